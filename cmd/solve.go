package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/optses/app/plugins"
	"github.com/kilianp07/optses/core/model"
	"github.com/kilianp07/optses/core/mpc"
	"github.com/kilianp07/optses/core/sweep"
	"github.com/kilianp07/optses/infra/logger"
	"github.com/kilianp07/optses/infra/results"
)

var solveCmd = &cobra.Command{
	Use:   "solve <scenario>",
	Short: "Run one scenario in the foreground and print its result",
	Args:  cobra.ExactArgs(1),
	RunE:  runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&scenariosPath, "scenarios", "s", "", "scenario file (default from config)")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if scenariosPath != "" {
		cfg.Sweep.ScenariosFile = scenariosPath
	}
	scenarios, err := sweep.LoadScenarios(cfg.Sweep.ScenariosFile)
	if err != nil {
		return fmt.Errorf("load scenarios: %w", err)
	}
	var sc *model.Scenario
	for i := range scenarios {
		if scenarios[i].Name == args[0] {
			sc = &scenarios[i]
		}
	}
	if sc == nil {
		return fmt.Errorf("scenario %q not found in %s", args[0], cfg.Sweep.ScenariosFile)
	}

	driver, err := plugins.NewDriver(cfg.Sweep.Driver, mpc.NopDisplay{}, logger.New("driver"))
	if err != nil {
		return err
	}
	table, err := driver.Run(ctx, sc.Name, sc.Params, 0)
	if err != nil {
		return fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	return results.WriteCSV(cmd.OutOrStdout(), table)
}

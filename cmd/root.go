package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/optses/app"
	"github.com/kilianp07/optses/config"
	"github.com/kilianp07/optses/core/sweep"
	"github.com/kilianp07/optses/infra/logger"
)

var (
	cfgPath       string
	workers       int
	scenariosPath string
	noProgress    bool
)

var rootCmd = &cobra.Command{
	Use:          "optses",
	Short:        "Parallel storage dispatch scenario sweeps",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel workers (default from config, else CPU count)")
	rootCmd.Flags().StringVarP(&scenariosPath, "scenarios", "s", "", "scenario file (default from config)")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable progress bars")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration file. A missing default file falls back
// to built-in defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Sweep.Workers = workers
	}
	if scenariosPath != "" {
		cfg.Sweep.ScenariosFile = scenariosPath
	}
	if noProgress {
		cfg.Sweep.NoProgress = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	closer, err := logger.Configure(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	scenarios, err := sweep.LoadScenarios(cfg.Sweep.ScenariosFile)
	if err != nil {
		return fmt.Errorf("load scenarios: %w", err)
	}
	svc, err := app.New(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	report, err := svc.Run(ctx, scenarios)
	if report != nil {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d scenarios: %d succeeded, %d failed in %s (log: %s)\n",
			report.Completed(), report.Succeeded, report.Failed, sweep.FormatElapsed(report.Elapsed), svc.Sink.Path())
	}
	return err
}

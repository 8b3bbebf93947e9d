package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/optses/core/mpc"
	"github.com/kilianp07/optses/infra/results"
	"github.com/kilianp07/optses/pkg/export"
)

var (
	plotOut     string
	plotColumns []string
)

var plotCmd = &cobra.Command{
	Use:   "plot <result.csv>",
	Short: "Render a result table as an HTML line chart",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlot,
}

func init() {
	plotCmd.Flags().StringVarP(&plotOut, "output", "o", "", "output file (default <result>.html)")
	plotCmd.Flags().StringSliceVar(&plotColumns, "columns", []string{mpc.ColSOC, mpc.ColPower}, "columns to plot")
	rootCmd.AddCommand(plotCmd)
}

func runPlot(cmd *cobra.Command, args []string) error {
	table, err := results.ReadCSV(args[0])
	if err != nil {
		return err
	}
	out := plotOut
	if out == "" {
		out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".html"
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	title := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	if err := export.WriteChartHTML(f, title, table, plotColumns...); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
	return err
}

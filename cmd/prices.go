package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/optses/auth"
	"github.com/kilianp07/optses/connectors/factory"
	wholesalemarket "github.com/kilianp07/optses/connectors/clients/wholesaleMarket"
	"github.com/kilianp07/optses/core/mpc"
)

var (
	pricesStart string
	pricesEnd   string
	pricesOut   string
)

var pricesCmd = &cobra.Command{
	Use:   "fetch-prices",
	Short: "Download a spot price profile usable as profile_file",
	RunE:  runFetchPrices,
}

func init() {
	pricesCmd.Flags().StringVar(&pricesStart, "start", "", "first day, YYYY-MM-DD or RFC3339")
	pricesCmd.Flags().StringVar(&pricesEnd, "end", "", "end day (exclusive), YYYY-MM-DD or RFC3339")
	pricesCmd.Flags().StringVarP(&pricesOut, "output", "o", "prices.csv", "output profile")
	_ = pricesCmd.MarkFlagRequired("start")
	_ = pricesCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(pricesCmd)
}

func parseDay(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func runFetchPrices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	start, err := parseDay(pricesStart)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	end, err := parseDay(pricesEnd)
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}

	var cred *auth.ClientCred
	if cfg.Prices.Auth.Enabled() {
		cred = auth.NewClientCred(cfg.Prices.Auth)
	}
	src, err := factory.NewPriceSource(cfg.Prices.Source, cred, cfg.Prices.BaseURL)
	if err != nil {
		return err
	}
	profile, err := src.Fetch(cmd.Context(), wholesalemarket.WithStartDate(start), wholesalemarket.WithEndDate(end))
	if err != nil {
		return err
	}

	f, err := os.Create(pricesOut)
	if err != nil {
		return err
	}
	if err := mpc.WriteProfile(f, profile); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d prices to %s\n", len(profile.Prices), pricesOut)
	return err
}

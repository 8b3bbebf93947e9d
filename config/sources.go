package config

import (
	"fmt"

	"github.com/kilianp07/optses/auth"
)

// PricesConfig selects the remote provider used by fetch-prices.
type PricesConfig struct {
	Source  string    `json:"source"`
	BaseURL string    `json:"base_url"`
	Auth    auth.Conf `json:"auth"`
}

// APIConfig exposes sweep status and stored results over HTTP. An empty
// address disables the server.
type APIConfig struct {
	Addr  string `json:"addr"`
	Token string `json:"token"`
}

func (c *PricesConfig) SetDefaults() {
	if c.Source == "" {
		c.Source = "wholesale_market"
	}
}

func (c PricesConfig) Validate() error {
	if c.Auth.ClientID != "" && c.Auth.AuthURL == "" {
		return fmt.Errorf("auth_url is required with client_id")
	}
	return nil
}

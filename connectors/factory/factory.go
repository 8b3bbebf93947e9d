package factory

import (
	"fmt"

	"github.com/kilianp07/optses/auth"
	"github.com/kilianp07/optses/connectors"
	wholesalemarket "github.com/kilianp07/optses/connectors/clients/wholesaleMarket"
)

const (
	IDWholesaleMarket = "wholesale_market"
)

var (
	errUnknownClient = "unknown connector id: %s"
)

// NewPriceSource returns the price source registered under id. An empty
// baseURL selects the provider's public endpoint.
func NewPriceSource(id string, authClient *auth.ClientCred, baseURL string) (connectors.PriceSource, error) {
	switch id {
	case IDWholesaleMarket:
		return wholesalemarket.New(authClient, baseURL), nil
	default:
		return nil, fmt.Errorf(errUnknownClient, id)
	}
}

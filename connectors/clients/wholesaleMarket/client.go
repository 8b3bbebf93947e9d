package wholesalemarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/kilianp07/optses/auth"
	"github.com/kilianp07/optses/connectors"
	"github.com/kilianp07/optses/core/mpc"
)

// BaseURL is the RTE wholesale market endpoint.
const BaseURL = "https://digital.iservices.rte-france.com/open_api/wholesale_market/v2/france_power_exchanges"

// Client reads day-ahead spot prices of the French power exchange.
type Client struct {
	auth    *auth.ClientCred
	baseURL string
	http    *http.Client

	startDate time.Time
	endDate   time.Time
}

// New returns a client for baseURL (BaseURL when empty). authClient may be
// nil for endpoints without authentication.
func New(authClient *auth.ClientCred, baseURL string) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{auth: authClient, baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

type response struct {
	FrancePowerExchanges []struct {
		Values []struct {
			StartDate string  `json:"start_date"`
			EndDate   string  `json:"end_date"`
			Value     float64 `json:"value"`
			Price     float64 `json:"price"`
		} `json:"values"`
	} `json:"france_power_exchanges"`
}

// profile flattens every exchange into one increasing price series.
func (r *response) profile() (*mpc.Profile, error) {
	type sample struct {
		ts    time.Time
		price float64
	}
	var samples []sample
	for _, exchange := range r.FrancePowerExchanges {
		for _, v := range exchange.Values {
			ts, err := time.Parse(time.RFC3339, v.StartDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time: %w", err)
			}
			samples = append(samples, sample{ts: ts.UTC(), price: v.Price})
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("response holds no prices")
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].ts.Before(samples[j].ts) })
	p := &mpc.Profile{}
	for i, s := range samples {
		if i > 0 && s.ts.Equal(samples[i-1].ts) {
			continue
		}
		p.Times = append(p.Times, s.ts)
		p.Prices = append(p.Prices, s.price)
	}
	return p, nil
}

// Fetch retrieves the spot prices between the start and end dates, which
// must both be set through options.
func (w *Client) Fetch(ctx context.Context, opts ...connectors.Option) (*mpc.Profile, error) {
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	if w.startDate.IsZero() || w.endDate.IsZero() {
		return nil, fmt.Errorf("start and end dates are required")
	}
	if !w.endDate.After(w.startDate) {
		return nil, fmt.Errorf("end date %s not after start date %s", w.endDate, w.startDate)
	}

	q := url.Values{}
	q.Set("start_date", w.startDate.Format(time.RFC3339))
	q.Set("end_date", w.endDate.Format(time.RFC3339))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if w.auth != nil {
		if err := w.auth.SetAuthHeader(req); err != nil {
			return nil, fmt.Errorf("failed to set auth header: %w", err)
		}
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}
	var marketResponse response
	if err := json.NewDecoder(resp.Body).Decode(&marketResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return marketResponse.profile()
}

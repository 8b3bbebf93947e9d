package wholesalemarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/optses/auth"
)

const payload = `{"france_power_exchanges":[{"values":[
 {"start_date":"2021-01-01T01:00:00+01:00","end_date":"2021-01-01T02:00:00+01:00","value":1,"price":42.5},
 {"start_date":"2021-01-01T00:00:00+01:00","end_date":"2021-01-01T01:00:00+01:00","value":1,"price":40}
]}]}`

func TestFetch(t *testing.T) {
	var gotAuth, gotStart string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
		default:
			gotAuth = r.Header.Get("Authorization")
			gotStart = r.URL.Query().Get("start_date")
			_, _ = w.Write([]byte(payload))
		}
	}))
	defer srv.Close()

	cred := auth.NewClientCred(auth.Conf{ClientID: "id", AuthURL: srv.URL + "/token"})
	c := New(cred, srv.URL+"/prices")
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))
	p, err := c.Fetch(context.Background(), WithStartDate(start), WithEndDate(start.Add(2*time.Hour)))
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "2021-01-01T00:00:00+01:00", gotStart)
	assert.Equal(t, []float64{40, 42.5}, p.Prices)
	assert.Equal(t, time.Date(2020, 12, 31, 23, 0, 0, 0, time.UTC), p.Start())
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	c := New(nil, srv.URL)

	_, err := c.Fetch(context.Background())
	assert.ErrorContains(t, err, "required")

	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = c.Fetch(context.Background(), WithStartDate(start), WithEndDate(start))
	assert.ErrorContains(t, err, "not after")

	_, err = c.Fetch(context.Background(), WithEndDate(start.Add(time.Hour)))
	assert.ErrorContains(t, err, "429")
}

func TestEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"france_power_exchanges":[]}`))
	}))
	defer srv.Close()
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := New(nil, srv.URL).Fetch(context.Background(), WithStartDate(start), WithEndDate(start.Add(time.Hour)))
	assert.ErrorContains(t, err, "no prices")
}

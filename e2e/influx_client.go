// Package e2e holds container-backed tests of the sweep sinks.
package e2e

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxClient wraps the InfluxDB v2 client for assertions on what the
// sweep wrote.
type InfluxClient struct {
	org    string
	bucket string
	client influxdb2.Client
	query  api.QueryAPI
}

// NewInfluxClient assumes the server is already running and reachable.
func NewInfluxClient(url, org, bucket, token string) *InfluxClient {
	c := influxdb2.NewClient(url, token)
	return &InfluxClient{org: org, bucket: bucket, client: c, query: c.QueryAPI(org)}
}

// Query runs a Flux query. The caller closes the result.
func (c *InfluxClient) Query(ctx context.Context, flux string) (*api.QueryTableResult, error) {
	return c.query.Query(ctx, flux)
}

// ScenarioStatuses returns the last status tag per scenario of the
// scenario_run measurement.
func (c *InfluxClient) ScenarioStatuses(ctx context.Context) (map[string]string, error) {
	res, err := c.Query(ctx, fmt.Sprintf(`from(bucket:"%s") |> range(start:-1h)
  |> filter(fn: (r) => r._measurement == "scenario_run" and r._field == "duration_s")`, c.bucket))
	if err != nil {
		return nil, err
	}
	defer res.Close()
	out := map[string]string{}
	for res.Next() {
		rec := res.Record()
		name, _ := rec.ValueByKey("scenario").(string)
		status, _ := rec.ValueByKey("status").(string)
		out[name] = status
	}
	return out, res.Err()
}

// SetupBucket ensures the organisation and bucket exist.
func (c *InfluxClient) SetupBucket(ctx context.Context) error {
	orgAPI := c.client.OrganizationsAPI()
	org, err := orgAPI.FindOrganizationByName(ctx, c.org)
	if err != nil || org == nil {
		org, err = orgAPI.CreateOrganizationWithName(ctx, c.org)
		if err != nil {
			return fmt.Errorf("create org: %w", err)
		}
	}

	bucketAPI := c.client.BucketsAPI()
	buckets, err := bucketAPI.FindBucketsByOrgName(ctx, c.org)
	if err != nil {
		return err
	}
	if buckets != nil {
		for _, b := range *buckets {
			if b.Name == c.bucket {
				return nil
			}
		}
	}
	_, err = bucketAPI.CreateBucketWithName(ctx, org, c.bucket)
	if err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// Close releases the underlying client resources.
func (c *InfluxClient) Close() { c.client.Close() }

// Package monitoring reports scenario failures to an error tracker.
package monitoring

import "time"

// Monitor captures errors with tags such as the scenario name and run ID.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

// NopMonitor drops every report.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration)                       {}

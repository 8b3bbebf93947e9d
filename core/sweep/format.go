package sweep

import (
	"fmt"
	"time"
)

// FormatElapsed renders d as HH:MM:SS, hours unbounded.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

// FinishedMessage is the log line of a successful scenario.
func FinishedMessage(name string, elapsed time.Duration) string {
	return fmt.Sprintf("Simulation %s finished in %s.", name, FormatElapsed(elapsed))
}

// FailedMessage is the log line of a failed scenario.
func FailedMessage(name string, err error) string {
	return fmt.Sprintf("Simulation %s failed with %s: %v", name, FailureKind(err), err)
}

func fmtAny(v any) string { return fmt.Sprint(v) }

// Package logger defines the logging interface used across the core
// packages. Implementations live in infra/logger.
package logger

// Logger is the diagnostic logger of the application. It is distinct from
// the shared simulation log, which only receives scenario outcome lines.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

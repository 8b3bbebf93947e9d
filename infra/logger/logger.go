package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	corelogger "github.com/kilianp07/optses/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// Config controls the diagnostic log of the CLI.
type Config struct {
	Level      string `json:"level"`
	AppLog     string `json:"app_log"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

var (
	mu    sync.RWMutex
	extra io.Writer
	level = zerolog.InfoLevel
)

// Configure sets the level of loggers created afterwards and, when
// cfg.AppLog is set, mirrors their output to a rotating file. The returned
// closer releases the file.
func Configure(cfg Config) (io.Closer, error) {
	lvl := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, err
		}
		lvl = parsed
	}

	var lj *lumberjack.Logger
	if cfg.AppLog != "" {
		if dir := filepath.Dir(cfg.AppLog); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		lj = &lumberjack.Logger{
			Filename:   cfg.AppLog,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
	}

	mu.Lock()
	defer mu.Unlock()
	level = lvl
	if lj == nil {
		extra = nil
		return nopCloser{}, nil
	}
	extra = lj
	return lj, nil
}

// New returns a Logger for the given component. The console format is
// selected via the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

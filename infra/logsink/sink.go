// Package logsink appends simulation outcome lines to one file shared by
// every worker, including workers in other processes.
package logsink

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

// TimeFormat matches the timestamps of the shared simulation log.
const TimeFormat = "2006-01-02 15:04:05,000"

// Sink writes "<timestamp> - <LEVEL> - <message>" lines. Each line is
// written under an in-process mutex and an exclusive lock on "<path>.lock",
// with the file opened in append mode, written, synced and closed.
type Sink struct {
	path string
	lock *flock.Flock

	mu  sync.Mutex
	fmt zerolog.Logger
	buf bytes.Buffer
	now func() time.Time
}

// New returns a sink appending to path. The file is created on first write.
func New(path string) (*Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("log sink path is empty")
	}
	s := &Sink{path: path, lock: flock.New(path + ".lock"), now: time.Now}
	w := zerolog.ConsoleWriter{
		Out:             &s.buf,
		NoColor:         true,
		PartsOrder:      []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatTimestamp: func(i any) string { return fmt.Sprint(i) },
		FormatLevel: func(i any) string {
			return fmt.Sprintf("- %s -", strings.ToUpper(fmt.Sprint(i)))
		},
	}
	s.fmt = zerolog.New(w)
	return s, nil
}

// Path returns the log file path.
func (s *Sink) Path() string { return s.path }

// Info logs msg at INFO level.
func (s *Sink) Info(msg string) error { return s.Log(zerolog.InfoLevel, msg) }

// Error logs msg at ERROR level.
func (s *Sink) Error(msg string) error { return s.Log(zerolog.ErrorLevel, msg) }

// Log formats and appends one line. Write failures are returned, never retried.
func (s *Sink) Log(level zerolog.Level, msg string) error {
	msg = strings.ReplaceAll(msg, "\n", " ")
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Reset()
	s.fmt.WithLevel(level).Str(zerolog.TimestampFieldName, s.now().Format(TimeFormat)).Msg(msg)
	return s.append(s.buf.Bytes())
}

// Write appends p as raw bytes under the same locks.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.append(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *Sink) append(line []byte) (err error) {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", s.lock.Path(), err)
	}
	defer func() {
		if uerr := s.lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	require.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestNewWithWriterFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "sweep", zerolog.InfoLevel)
	l.Debugf("hidden")
	l.Infof("run %s started", "abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sweep", entry["component"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "run abc started", entry["message"])
}

func TestConfigureAppLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "optses.log")
	closer, err := Configure(Config{Level: "debug", AppLog: path, MaxSizeMB: 1})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = Configure(Config{})
	})

	New("cli").Debugw("scenario loaded", map[string]any{"name": "A"})
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"A"`)
	assert.Contains(t, string(data), `"component":"cli"`)

	_, err = Configure(Config{Level: "loud"})
	assert.Error(t, err)
}

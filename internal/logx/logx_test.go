package logx

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, opts Options) *bytes.Buffer {
	t.Helper()
	Init(opts)
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		Init(Options{})
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestDebugGatedByMode(t *testing.T) {
	buf := capture(t, Options{})
	Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	buf = capture(t, Options{Debug: true})
	Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "[DEBUG] shown 2")
}

func TestQuietSuppressesInfoButNotErrors(t *testing.T) {
	buf := capture(t, Options{Debug: true, Quiet: true})
	Info("info")
	Debug("debug")
	Error("boom: %v", "x")
	Warn("careful")

	out := buf.String()
	assert.NotContains(t, out, "info")
	assert.NotContains(t, out, "debug")
	assert.Contains(t, out, "[ERROR] boom: x")
	assert.Contains(t, out, "[WARN] careful")
}

func TestFatalReachesLogFile(t *testing.T) {
	var code int
	exit = func(c int) { code = c }
	t.Cleanup(func() {
		exit = os.Exit
		Init(Options{})
	})

	file := filepath.Join(t.TempDir(), "explorer.log")
	Init(Options{File: file})
	Fatal("❌ Failed to connect to RPC: %v", "dial tcp: refused")

	assert.Equal(t, 1, code)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "❌ Failed to connect to RPC: dial tcp: refused")
}

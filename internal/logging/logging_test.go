package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew_WritesFileSink(t *testing.T) {
	dir := t.TempDir()

	logger, closeFn, err := New(Options{Level: "error", Dir: dir, File: "test.log"})
	require.NoError(t, err)

	// Below the console level, but the file sink records at debug.
	logger.Info("investigation started")
	closeFn()

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "investigation started"))
}

func TestNew_NoFileSink(t *testing.T) {
	logger, closeFn, err := New(Options{Level: "info"})
	require.NoError(t, err)
	defer closeFn()

	assert.NotNil(t, logger)
}

func TestNew_BadLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, levelFromString("warning", false))
	assert.Equal(t, zapcore.ErrorLevel, levelFromString("error", true))
	assert.Equal(t, zapcore.DebugLevel, levelFromString("", true))
	assert.Equal(t, zapcore.InfoLevel, levelFromString("bogus", false))
}

func TestNewWritesRotatedFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "linkz.log")

	log, err := New(Options{Level: "info", File: logPath})
	require.NoError(t, err)

	log.Info("profile saved")
	_ = log.Sync()

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(logPath), "linkz.*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	content, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "profile saved")
}

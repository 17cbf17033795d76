package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	l, err := NewLogger(LevelInfo, path, 0)
	require.NoError(t, err)

	l.Debug("hidden %d", 1)
	l.Info("guild %s locked", "g1")
	l.Critical("restore failed for %s", "g2")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "guild g1 locked")
	assert.Contains(t, out, "critical")
	assert.False(t, strings.Contains(out, "hidden"))
}

func TestLoggerRotatesOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0o644))

	l, err := NewLogger(LevelInfo, path, 32)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "bot-*.log"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestPackageFuncsWithoutLogger(t *testing.T) {
	prev := GlobalLogger
	GlobalLogger = nil
	t.Cleanup(func() { GlobalLogger = prev })

	assert.NotPanics(t, func() {
		Info("no logger %d", 1)
		Error("no logger")
	})
}

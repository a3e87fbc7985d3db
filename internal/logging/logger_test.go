package logging

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StderrOnly_DoesNotPanic(t *testing.T) {
	l := New(Config{Level: LevelInfo, Service: "cir-test"})
	require.NoError(t, l.Close())
	l.Info("hello", "run_id", "abc")
}

func TestNew_WithLogDir_WritesFile(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{Level: LevelDebug, LogDir: dir, Service: "cir-test"})
	l.Info("run started", "phase", "REPRODUCE")
	require.NoError(t, l.Close())

	entries, err := filepath.Glob(filepath.Join(dir, "cir-test_*.log"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWith_ScopesChildLogger(t *testing.T) {
	l := Default()
	child := l.With("run_id", "xyz")
	assert.NotNil(t, child.Slog())
	child.Info("scoped message")
}

func TestClose_NilFileIsNoop(t *testing.T) {
	l := Default()
	assert.NoError(t, l.Close())
	assert.NoError(t, l.Close())
}

func TestStderrHandler_FormatSelectsJSONOrText(t *testing.T) {
	_, ok := stderrHandler(LevelInfo, "json").(*slog.JSONHandler)
	assert.True(t, ok)
	_, ok = stderrHandler(LevelInfo, "text").(*slog.TextHandler)
	assert.True(t, ok)
	_, ok = stderrHandler(LevelInfo, "").(*slog.TextHandler)
	assert.True(t, ok, "empty format defaults to text")
}

func TestLevel_ToSlogLevel(t *testing.T) {
	assert.Equal(t, LevelDebug.toSlogLevel().String(), "DEBUG")
	assert.Equal(t, LevelWarn.toSlogLevel().String(), "WARN")
	assert.Equal(t, LevelError.toSlogLevel().String(), "ERROR")
	assert.Equal(t, Level(99).toSlogLevel().String(), "INFO")
}

package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/logging"
)

// Tests below Init the package-wide registry and must not run in parallel.

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	valid := map[string]logging.Level{
		"debug":   logging.LevelDebug,
		"INFO":    logging.LevelInfo,
		" warn ":  logging.LevelWarn,
		"warning": logging.LevelWarn,
		"Error":   logging.LevelError,
	}
	for in, want := range valid {
		got, err := logging.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "loud", "fatal"} {
		got, err := logging.ParseLevel(in)
		assert.ErrorIs(t, err, logging.ErrInvalidLevel, in)
		assert.Equal(t, logging.LevelInfo, got, in)
	}
}

func TestInitRejectsInvalidLevels(t *testing.T) {
	dir := t.TempDir()

	for name, cfg := range map[string]logging.Config{
		"level":     {Level: "nope"},
		"component": {Level: "info", Components: map[string]string{"scanner": "nope"}},
		"console":   {Level: "info", ConsoleLevel: "nope"},
	} {
		cfg.Path = filepath.Join(dir, name+".log")
		assert.ErrorIs(t, logging.Init(cfg), logging.ErrInvalidLevel, name)
	}
}

func TestLoggersObtainedBeforeInitStartWriting(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "early.log")

	early := logging.Get("early")
	early.Info("dropped before init")

	require.NoError(t, logging.Init(logging.Config{Level: "debug", Path: logPath}))

	logging.Get("scanner").Info("pattern matched", "pattern", "tests/")
	early.Debug("early logger message")
	early.With("pkg", "acme/widgets").Warn("install slow")

	require.NoError(t, logging.Close())

	content := readLog(t, logPath)
	assert.NotContains(t, content, "dropped before init")
	for _, want := range []string{"pattern matched", "tests/", "scanner", "early logger message", "acme/widgets"} {
		assert.Contains(t, content, want)
	}
	assert.Equal(t, "early", early.Component())
}

func TestComponentLevelOverride(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "component.log")

	require.NoError(t, logging.Init(logging.Config{
		Level:      "error",
		Path:       logPath,
		Components: map[string]string{"gitattributes": "debug"},
	}))

	logging.Get("size").Info("size info is filtered")
	logging.Get("gitattributes").Debug("manifest debug is kept")
	require.NoError(t, logging.Close())

	content := readLog(t, logPath)
	assert.NotContains(t, content, "size info is filtered")
	assert.Contains(t, content, "manifest debug is kept")
}

func TestReinitMovesExistingLoggers(t *testing.T) {
	dir := t.TempDir()
	first, second := filepath.Join(dir, "first.log"), filepath.Join(dir, "second.log")

	logger := logging.Get("batch")

	require.NoError(t, logging.Init(logging.Config{Level: "info", Path: first}))
	logger.Info("to first")
	require.NoError(t, logging.Init(logging.Config{Level: "info", Path: second}))
	logger.Info("to second")
	require.NoError(t, logging.Close())

	assert.Contains(t, readLog(t, first), "to first")
	assert.NotContains(t, readLog(t, first), "to second")
	assert.Contains(t, readLog(t, second), "to second")
}

func TestLoggerSilentAfterClose(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "closed.log")

	require.NoError(t, logging.Init(logging.Config{Level: "info", Path: logPath}))
	logger := logging.Get("closed")
	require.NoError(t, logging.Close())
	require.NoError(t, logging.Close())

	logger.Info("after close")

	assert.NotContains(t, readLog(t, logPath), "after close")
}

func TestDefaultLogPath(t *testing.T) {
	t.Parallel()

	path := logging.DefaultLogPath()
	assert.Equal(t, "exportcheck.log", filepath.Base(path))
	assert.Equal(t, "exportcheck", filepath.Base(filepath.Dir(path)))
	assert.Equal(t, path, logging.DefaultConfig().Path)
}

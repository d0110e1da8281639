package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/logging"
)

// logFiles returns the active log and its backups in dir.
func logFiles(t *testing.T, dir, stem string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), stem) && strings.HasSuffix(e.Name(), ".log") {
			names = append(names, e.Name())
		}
	}
	return names
}

func writeLines(t *testing.T, w *logging.RotatingWriter, n int, line string) {
	t.Helper()
	for range n {
		_, err := w.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
}

func TestRotationBySize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := logging.NewRotatingWriter(filepath.Join(dir, "size.log"), logging.RotationConfig{
		MaxSize:    512,
		MaxBackups: 50,
	})
	require.NoError(t, err)

	writeLines(t, w, 20, strings.Repeat("x", 50))
	require.NoError(t, w.Close())

	files := logFiles(t, dir, "size")
	assert.GreaterOrEqual(t, len(files), 2)
	for _, name := range files {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.LessOrEqual(t, info.Size(), int64(512), name)
	}
}

func TestRotationKeepsMaxBackups(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := logging.NewRotatingWriter(filepath.Join(dir, "limit.log"), logging.RotationConfig{
		MaxSize:    256,
		MaxBackups: 2,
	})
	require.NoError(t, err)

	writeLines(t, w, 50, strings.Repeat("y", 30))
	require.NoError(t, w.Close())

	assert.LessOrEqual(t, len(logFiles(t, dir, "limit")), 3)
}

func TestStartupPrunesOldBackups(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := filepath.Join(dir, "app.20200101T000000.000.log")
	fresh := filepath.Join(dir, "app.20990101T000000.000.log")
	for _, p := range []string{old, fresh} {
		require.NoError(t, os.WriteFile(p, []byte("backup\n"), 0o644))
	}
	past := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(old, past, past))

	w, err := logging.NewRotatingWriter(filepath.Join(dir, "app.log"), logging.RotationConfig{MaxAge: 30})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestRotationCreatesParentDirectories(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "nested", "deeper", "app.log")

	w, err := logging.NewRotatingWriter(logPath, logging.DefaultRotationConfig())
	require.NoError(t, err)
	defer w.Close()

	assert.FileExists(t, logPath)
}

func TestRotationConcurrentWrites(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "concurrent.log")
	w, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{MaxSize: 1 << 20})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_, _ = w.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, 400, strings.Count(string(content), "line\n"))
}

func TestWriteAfterClose(t *testing.T) {
	t.Parallel()

	w, err := logging.NewRotatingWriter(filepath.Join(t.TempDir(), "closed.log"), logging.RotationConfig{})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

package history

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	h, err := New("/tmp/x")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", h.Dir())
}

func TestRecord(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "history")
	h, err := New(dir)
	require.NoError(t, err)

	entry, err := h.Record(OpBatch, "popular", []PackageRecord{
		{Package: "acme/clean", Status: "ok"},
		{Package: "acme/dirty", Status: StatusViolations, Paths: []string{"tests/"}, TotalBytes: 300},
		{Package: "acme/broken", Status: "install_failed", Error: "boom"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(entry.ID, "batch-"))
	assert.Equal(t, Summary{Packages: 3, Violations: 1, TotalBytes: 300}, entry.Summary)
	assert.FileExists(t, filepath.Join(dir, entry.ID+".json"))

	got, err := h.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, "popular", got.Target)
	assert.Len(t, got.Packages, 3)
}

func TestRecord_NilRecords(t *testing.T) {
	h, err := New(t.TempDir())
	require.NoError(t, err)

	entry, err := h.Record(OpClean, ".gitattributes", nil)
	require.NoError(t, err)
	assert.NotNil(t, entry.Packages)
	assert.Equal(t, 0, entry.Summary.Packages)
}

func TestList_NewestFirstWithLimit(t *testing.T) {
	h, err := New(t.TempDir())
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 3; i++ {
		e, err := h.Record(OpCheck, "", nil)
		require.NoError(t, err)
		ids = append(ids, e.ID)
		time.Sleep(10 * time.Millisecond)
	}

	all, err := h.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	limited, err := h.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestList_MissingDirAndJunk(t *testing.T) {
	h, err := New(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)

	entries, err := h.List(10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	h, err = New(dir)
	require.NoError(t, err)

	entries, err = h.List(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGet(t *testing.T) {
	h, err := New(t.TempDir())
	require.NoError(t, err)

	e, err := h.Record(OpCheck, "acme/pkg", nil)
	require.NoError(t, err)

	byPrefix, err := h.Get(e.ID[:len(e.ID)-2])
	require.NoError(t, err)
	assert.Equal(t, e.ID, byPrefix.ID)

	_, err = h.Get("")
	assert.Error(t, err)

	_, err = h.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = h.Record(OpCheck, "other", nil)
	require.NoError(t, err)
	_, err = h.Get("check-")
	assert.ErrorContains(t, err, "ambiguous")
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	h, err := New(dir)
	require.NoError(t, err)

	old, err := h.Record(OpCheck, "", nil)
	require.NoError(t, err)
	fresh, err := h.Record(OpCheck, "", nil)
	require.NoError(t, err)

	past := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(filepath.Join(dir, old.ID+".json"), past, past))

	removed, err := h.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, filepath.Join(dir, old.ID+".json"))
	assert.FileExists(t, filepath.Join(dir, fresh.ID+".json"))

	missing, err := New(filepath.Join(dir, "absent"))
	require.NoError(t, err)
	removed, err = missing.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

package size

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("a", size)), 0o644))
}

func TestTotalSize_EndToEndScenario(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "tests", "a.php"), 100)
	writeFile(t, filepath.Join(base, "tests", "b.php"), 200)
	writeFile(t, filepath.Join(base, "CHANGELOG.md"), 50)

	assert.Equal(t, int64(350), TotalSize(base, []string{"CHANGELOG.md", "tests/"}))
}

func TestTotalSize_Empty(t *testing.T) {
	assert.Equal(t, int64(0), TotalSize(t.TempDir(), nil))
	assert.Equal(t, int64(0), TotalSize(t.TempDir(), []string{}))
}

func TestTotalSize_MissingPathsContributeZero(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "keep.txt"), 10)

	assert.Equal(t, int64(10), TotalSize(base, []string{"keep.txt", "gone.txt", "gone-dir/"}))
}

func TestTotalSize_Monotonic(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "a"), 5)
	writeFile(t, filepath.Join(base, "b", "c"), 7)
	writeFile(t, filepath.Join(base, "d"), 0)

	paths := []string{"a", "b/", "d", "missing"}
	agg := New(Options{Workers: 2})

	var prev int64
	for i := 0; i <= len(paths); i++ {
		got := agg.TotalSize(base, paths[:i])
		assert.GreaterOrEqual(t, got, prev, "prefix %d", i)
		prev = got
	}
	assert.Equal(t, int64(12), prev)
}

func TestPathSize_NestedDirectories(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "docs", "index.md"), 11)
	writeFile(t, filepath.Join(base, "docs", "guide", "one.md"), 22)
	writeFile(t, filepath.Join(base, "docs", "guide", "deep", "two.md"), 33)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "docs", "empty"), 0o755))

	agg := New(Options{})
	assert.Equal(t, int64(66), agg.PathSize(base, "docs/"))
	assert.Equal(t, int64(66), agg.PathSize(base, "docs"))
	assert.Equal(t, int64(0), agg.PathSize(base, "docs/empty/"))
}

func TestPathSize_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}

	base := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "big.bin"), 1000)
	writeFile(t, filepath.Join(outside, "tree", "inner.bin"), 500)
	writeFile(t, filepath.Join(base, "pkg", "real.txt"), 4)

	require.NoError(t, os.Symlink(filepath.Join(outside, "big.bin"), filepath.Join(base, "pkg", "file-link")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "tree"), filepath.Join(base, "pkg", "dir-link")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "missing"), filepath.Join(base, "pkg", "dangling")))

	// File links count with the target size; directory links are not followed.
	assert.Equal(t, int64(1004), New(Options{}).PathSize(base, "pkg/"))
}

func TestEntries(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "tests", "x"), 3)
	writeFile(t, filepath.Join(base, "Makefile"), 9)

	entries := New(Options{}).Entries(base, []string{"tests/", "Makefile", "gone"})

	assert.Equal(t, []types.Entry{
		{Path: "tests/", Kind: types.KindDirectory, Size: 3},
		{Path: "Makefile", Kind: types.KindFile, Size: 9},
		{Path: "gone", Kind: types.KindFile, Size: 0},
	}, entries)
}

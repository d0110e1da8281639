package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree creates files (paths without trailing slash) and directories
// (paths with a trailing slash) under a fresh temp root.
func buildTree(t *testing.T, entries ...string) string {
	t.Helper()

	root := t.TempDir()
	for _, e := range entries {
		full := filepath.Join(root, filepath.FromSlash(e))
		if strings.HasSuffix(e, "/") {
			require.NoError(t, os.MkdirAll(full, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
	return root
}

func TestScan_EndToEndScenario(t *testing.T) {
	root := buildTree(t, "tests/a_test.php", "tests/b_test.php", "CHANGELOG.md", "src/Lib.php")

	result, err := Scan(root, []string{"tests/", "CHANGELOG.md", "missing.txt"})
	require.NoError(t, err)

	assert.Equal(t, []string{"CHANGELOG.md"}, result.Files())
	assert.Equal(t, []string{"tests/"}, result.Directories())
}

func TestScan_Branches(t *testing.T) {
	root := buildTree(t,
		"tests/", "docs/", "composer.lock",
		"UPGRADE-2.0.md", "UPGRADE-3.0.md", "README.md",
		"build-dir/", "build-file",
	)

	tests := []struct {
		name      string
		patterns  []string
		wantFiles []string
		wantDirs  []string
	}{
		{
			name:     "literal directory with slash",
			patterns: []string{"tests/"},
			wantDirs: []string{"tests/"},
		},
		{
			name:     "literal directory without slash gains one",
			patterns: []string{"docs"},
			wantDirs: []string{"docs/"},
		},
		{
			name:      "literal file",
			patterns:  []string{"composer.lock"},
			wantFiles: []string{"composer.lock"},
		},
		{
			name:      "wildcard records the pattern once",
			patterns:  []string{"UPGRADE-*.md"},
			wantFiles: []string{"UPGRADE-*.md"},
		},
		{
			name:      "question mark wildcard",
			patterns:  []string{"README.m?"},
			wantFiles: []string{"README.m?"},
		},
		{
			name:      "wildcard matching both kinds lands in both sets",
			patterns:  []string{"build-*"},
			wantFiles: []string{"build-*"},
			wantDirs:  []string{"build-*/"},
		},
		{
			name:     "missing pattern contributes nothing",
			patterns: []string{"missing.txt", "nope/", "*.nothing"},
		},
		{
			name:      "duplicates are collapsed",
			patterns:  []string{"tests/", "tests", "composer.lock", "composer.lock"},
			wantFiles: []string{"composer.lock"},
			wantDirs:  []string{"tests/"},
		},
		{
			name:      "leading slash anchors to the root",
			patterns:  []string{"/tests/", "/composer.lock"},
			wantFiles: []string{"composer.lock"},
			wantDirs:  []string{"tests/"},
		},
		{
			name:     "blank patterns are ignored",
			patterns: []string{"", "   "},
		},
		{
			name:      "wildcard uses only the last segment",
			patterns:  []string{"nested/UPGRADE-2.*"},
			wantFiles: []string{"nested/UPGRADE-2.*"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Scan(root, tt.patterns)
			require.NoError(t, err)

			wantFiles := tt.wantFiles
			if wantFiles == nil {
				wantFiles = []string{}
			}
			wantDirs := tt.wantDirs
			if wantDirs == nil {
				wantDirs = []string{}
			}
			assert.Equal(t, wantFiles, result.Files())
			assert.Equal(t, wantDirs, result.Directories())
		})
	}
}

func TestScan_TrailingSlashOnFileFallsBackToWildcard(t *testing.T) {
	root := buildTree(t, "Makefile")

	assert.Equal(t, BranchWildcard, Resolve(root, "Makefile/"))

	result, err := Scan(root, []string{"Makefile/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Makefile"}, result.Files())
	assert.Empty(t, result.Directories())
}

func TestResolve_TieBreakOrder(t *testing.T) {
	root := buildTree(t, "dir/", "file.txt")

	assert.Equal(t, BranchDirectory, Resolve(root, "dir"))
	assert.Equal(t, BranchDirectory, Resolve(root, "dir/"))
	assert.Equal(t, BranchFile, Resolve(root, "file.txt"))
	assert.Equal(t, BranchWildcard, Resolve(root, "*.txt"))
	assert.Equal(t, BranchWildcard, Resolve(root, "absent"))
}

func TestScan_Idempotent(t *testing.T) {
	root := buildTree(t, "tests/", ".github/workflows/ci.yml", "phpunit.xml.dist", "UPGRADE-1.md")
	patterns := []string{".github/", "tests/", "phpunit.xml.dist", "UPGRADE-*.md", "missing"}

	first, err := Scan(root, patterns)
	require.NoError(t, err)
	second, err := Scan(root, patterns)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
}

func TestScan_OrderIndependent(t *testing.T) {
	root := buildTree(t, "tests/", "CHANGELOG.md", "UPGRADE-1.md")
	patterns := []string{"tests/", "CHANGELOG.md", "UPGRADE-*.md", "docs/"}

	forward, err := Scan(root, patterns)
	require.NoError(t, err)

	reversed := make([]string, len(patterns))
	for i, p := range patterns {
		reversed[len(patterns)-1-i] = p
	}
	backward, err := Scan(root, reversed)
	require.NoError(t, err)

	assert.True(t, forward.Equal(backward))
}

func TestScan_LiteralHitsResolveAndAreDisjoint(t *testing.T) {
	root := buildTree(t, "tests/", "docs/", "Makefile", ".gitignore", "src/a.go")
	patterns := []string{"tests/", "docs", "Makefile", ".gitignore", "missing/", "Dockerfile"}

	result, err := Scan(root, patterns)
	require.NoError(t, err)

	dirs := map[string]bool{}
	for _, d := range result.Directories() {
		dirs[strings.TrimSuffix(d, "/")] = true
		info, err := os.Stat(filepath.Join(root, d))
		require.NoError(t, err)
		assert.True(t, info.IsDir(), d)
	}
	for _, f := range result.Files() {
		assert.False(t, dirs[f], "%s in both sets", f)
		info, err := os.Stat(filepath.Join(root, f))
		require.NoError(t, err)
		assert.True(t, info.Mode().IsRegular(), f)
	}
}

func TestScan_SymlinkedChildIsClassifiedByTarget(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}

	root := buildTree(t, "real-docs/")
	require.NoError(t, os.Symlink(filepath.Join(root, "real-docs"), filepath.Join(root, "docs-link")))
	require.NoError(t, os.Symlink(filepath.Join(root, "gone"), filepath.Join(root, "docs-dangling")))

	result, err := Scan(root, []string{"docs-*"})
	require.NoError(t, err)

	assert.Equal(t, []string{"docs-*/"}, result.Directories())
	assert.Empty(t, result.Files())
}

func TestScan_InvalidRoot(t *testing.T) {
	root := buildTree(t, "file")

	tests := []struct {
		name string
		root string
	}{
		{name: "empty", root: ""},
		{name: "missing", root: filepath.Join(root, "absent")},
		{name: "file", root: filepath.Join(root, "file")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Scan(tt.root, []string{"tests/"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRoot), "got %v", err)
		})
	}
}

func TestScan_UnreadableRootIsFatal(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	root := buildTree(t, "locked/")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o311))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	_, err := Scan(locked, []string{"*.md"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRoot))
}

func TestScan_InvalidPatterns(t *testing.T) {
	root := buildTree(t, "a")

	for _, p := range []string{"../outside", "a/../../b", "[unclosed"} {
		t.Run(p, func(t *testing.T) {
			_, err := Scan(root, []string{p})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPattern), "got %v", err)
		})
	}
}

func TestBranchString(t *testing.T) {
	assert.Equal(t, "directory", BranchDirectory.String())
	assert.Equal(t, "file", BranchFile.String())
	assert.Equal(t, "wildcard", BranchWildcard.String())
	assert.Equal(t, "unknown", Branch(42).String())
}

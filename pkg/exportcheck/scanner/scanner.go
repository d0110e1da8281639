// Package scanner decides which exclusion patterns hit real entries inside a
// package root. Each pattern goes through exactly one of three branches, tried
// in order: literal directory, literal file, then a single-segment name glob
// against the immediate children of the root.
package scanner

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/logging"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/types"
)

var logger = logging.Get("scanner")

// ErrInvalidRoot is returned when the package root is missing, not a
// directory, or cannot be listed.
var ErrInvalidRoot = errors.New("invalid package root")

// ErrInvalidPattern is returned for patterns that cannot be evaluated.
var ErrInvalidPattern = errors.New("invalid pattern")

// Branch identifies how a pattern was resolved.
type Branch int

const (
	// BranchDirectory means root/pattern is an existing directory.
	BranchDirectory Branch = iota
	// BranchFile means root/pattern is an existing regular file.
	BranchFile
	// BranchWildcard means the pattern's last segment is matched against root children.
	BranchWildcard
)

// String returns the branch name.
func (b Branch) String() string {
	switch b {
	case BranchDirectory:
		return "directory"
	case BranchFile:
		return "file"
	case BranchWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// Options configures a Scanner.
type Options struct {
	// Root is the package root. It must be an existing directory.
	Root string

	// Patterns are root-relative exclusion patterns, evaluated in order.
	Patterns []string
}

// Scanner resolves patterns against a package root.
type Scanner struct {
	opts Options

	// children caches the root listing for the lifetime of one Scan.
	children []os.DirEntry
	listed   bool
}

// New creates a Scanner with the given options.
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Scan evaluates every pattern and returns the deduplicated hits.
// Patterns that match nothing contribute nothing.
func Scan(root string, patterns []string) (*types.ScanResult, error) {
	return New(Options{Root: root, Patterns: patterns}).Scan()
}

// Scan evaluates the configured patterns against the root.
func (s *Scanner) Scan() (*types.ScanResult, error) {
	if err := s.validateRoot(); err != nil {
		return nil, err
	}

	s.children, s.listed = nil, false
	result := types.NewScanResult()

	for _, pattern := range s.opts.Patterns {
		if err := s.apply(result, pattern); err != nil {
			return nil, err
		}
	}

	logger.Debug("scan complete",
		"root", s.opts.Root,
		"patterns", len(s.opts.Patterns),
		"files", len(result.Files()),
		"directories", len(result.Directories()))

	return result, nil
}

// Resolve reports which branch a pattern takes under root. It never lists
// the root; BranchWildcard only says the literal checks failed.
func Resolve(root, pattern string) Branch {
	info, err := os.Stat(candidatePath(root, pattern))
	switch {
	case err != nil:
		return BranchWildcard
	case info.IsDir():
		return BranchDirectory
	case info.Mode().IsRegular():
		return BranchFile
	default:
		return BranchWildcard
	}
}

func (s *Scanner) apply(result *types.ScanResult, pattern string) error {
	// Patterns are root-relative; a leading slash only anchors them.
	pattern = strings.TrimLeft(filepath.ToSlash(pattern), "/")
	if strings.TrimSpace(pattern) == "" {
		return nil
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}

	branch := Resolve(s.opts.Root, pattern)
	switch branch {
	case BranchDirectory:
		result.AddDirectory(pattern)
	case BranchFile:
		result.AddFile(pattern)
	case BranchWildcard:
		return s.matchChildren(result, pattern)
	}

	logger.Debug("literal hit", "pattern", pattern, "branch", branch)
	return nil
}

// matchChildren matches the final segment of pattern against the names of
// the root's immediate children. Hits record the pattern itself, so one
// pattern may land in both sets when it matches a file and a directory.
func (s *Scanner) matchChildren(result *types.ScanResult, pattern string) error {
	name := path.Base(strings.TrimRight(filepath.ToSlash(pattern), "/"))

	g, err := glob.Compile(name)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}

	children, err := s.listRoot()
	if err != nil {
		return err
	}

	for _, child := range children {
		if !g.Match(child.Name()) {
			continue
		}

		isDir, ok := childIsDir(s.opts.Root, child)
		if !ok {
			continue
		}

		if isDir {
			result.AddDirectory(pattern)
		} else {
			result.AddFile(pattern)
		}
		logger.Debug("wildcard hit", "pattern", pattern, "child", child.Name(), "dir", isDir)
	}

	return nil
}

func (s *Scanner) listRoot() ([]os.DirEntry, error) {
	if s.listed {
		return s.children, nil
	}

	entries, err := os.ReadDir(s.opts.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", ErrInvalidRoot, s.opts.Root, err)
	}

	s.children, s.listed = entries, true
	return entries, nil
}

func (s *Scanner) validateRoot() error {
	if s.opts.Root == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidRoot)
	}

	info, err := os.Stat(s.opts.Root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, s.opts.Root)
	}

	return nil
}

// childIsDir classifies a root child, following symlinks. ok is false for
// dangling links.
func childIsDir(root string, child os.DirEntry) (isDir, ok bool) {
	if child.Type()&os.ModeSymlink == 0 {
		return child.IsDir(), true
	}

	info, err := os.Stat(filepath.Join(root, child.Name()))
	if err != nil {
		return false, false
	}
	return info.IsDir(), true
}

// candidatePath joins root and pattern without cleaning, so a trailing slash
// still requires a directory.
func candidatePath(root, pattern string) string {
	return strings.TrimRight(root, string(filepath.Separator)) + string(filepath.Separator) + filepath.FromSlash(pattern)
}

// validatePattern rejects patterns that would resolve outside the root.
func validatePattern(pattern string) error {
	if filepath.VolumeName(pattern) != "" {
		return fmt.Errorf("%w: %q must be relative to the package root", ErrInvalidPattern, pattern)
	}
	for _, seg := range strings.Split(pattern, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: %q escapes the package root", ErrInvalidPattern, pattern)
		}
	}
	return nil
}

// Package gitattributes maintains the export-ignore lines of a gitattributes
// manifest. New violations are appended idempotently, stale lines are pruned
// in place, and every other line is left alone.
package gitattributes

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/atomicfile"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/logging"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/scanner"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/types"
)

// DefaultFilename is the manifest name used when none is configured.
const DefaultFilename = ".gitattributes"

var logger = logging.Get("gitattributes")

// Manifest owns a single gitattributes file.
type Manifest struct {
	path     string
	baseDir  string
	lockPath string
}

// Option configures a Manifest.
type Option func(*Manifest)

// WithBaseDir sets the directory that pruned paths are resolved against.
// It defaults to the directory containing the manifest.
func WithBaseDir(dir string) Option {
	return func(m *Manifest) {
		m.baseDir = dir
	}
}

// WithLockPath serializes manifest rewrites across processes through a
// lock file at path. An empty path disables locking.
func WithLockPath(path string) Option {
	return func(m *Manifest) {
		m.lockPath = path
	}
}

// New creates a Manifest for the file at path. The file need not exist.
func New(path string, opts ...Option) (*Manifest, error) {
	if path == "" {
		return nil, errors.New("manifest path cannot be empty")
	}

	m := &Manifest{path: path}
	for _, opt := range opts {
		opt(m)
	}
	if m.baseDir == "" {
		m.baseDir = filepath.Dir(path)
	}

	return m, nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return m.path
}

// FormatLine renders a root-relative path as an anchored export-ignore line.
func FormatLine(path string) string {
	return "/" + strings.TrimLeft(path, "/") + " " + types.Marker
}

// Lines builds one deduplicated line per violation, files first, then
// directories with exactly one trailing slash.
func Lines(result *types.ScanResult) []string {
	seen := make(map[string]struct{})
	var lines []string

	add := func(line string) {
		if _, ok := seen[line]; ok {
			return
		}
		seen[line] = struct{}{}
		lines = append(lines, line)
	}

	for _, f := range result.Files() {
		add(FormatLine(types.NormalizeFile(f)))
	}
	for _, d := range result.Directories() {
		add(FormatLine(types.NormalizeDirectory(d)))
	}

	return lines
}

// Pending returns the lines Append would add, without writing anything.
func (m *Manifest) Pending(result *types.ScanResult) ([]string, error) {
	content, err := m.read()
	if err != nil {
		return nil, err
	}
	return missingLines(content, Lines(result)), nil
}

// Append adds the lines for result that are not already present verbatim.
// The file is not touched when nothing is new. It returns the added lines.
func (m *Manifest) Append(result *types.ScanResult) ([]string, error) {
	candidates := Lines(result)
	if len(candidates) == 0 {
		return nil, nil
	}

	unlock, err := m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	content, err := m.read()
	if err != nil {
		return nil, err
	}

	added := missingLines(content, candidates)
	if len(added) == 0 {
		logger.Debug("manifest already up to date", "path", m.path)
		return nil, nil
	}

	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += strings.Join(added, "\n") + "\n"

	if err := atomicfile.Write(m.path, []byte(content), 0o644); err != nil {
		return nil, err
	}

	logger.Info("appended export-ignore lines", "path", m.path, "count", len(added))
	return added, nil
}

// Prune removes export-ignore lines whose path no longer exists under the
// base directory. Lines without the marker are kept verbatim and in order;
// blank lines are dropped. It returns the removed lines. The file is only
// rewritten when its content changes.
func (m *Manifest) Prune() ([]string, error) {
	unlock, err := m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	content, err := m.read()
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, nil
	}

	var kept, removed []string
	for _, line := range splitLines(content) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.Contains(trimmed, types.Marker) {
			kept = append(kept, line)
			continue
		}

		path := strings.TrimLeft(strings.Fields(trimmed)[0], "/")
		if m.exists(path) {
			kept = append(kept, line)
			continue
		}

		logger.Debug("pruning stale line", "line", trimmed)
		removed = append(removed, line)
	}

	var next string
	if len(kept) > 0 {
		next = strings.Join(kept, "\n") + "\n"
	}
	if next == content {
		return removed, nil
	}

	if err := atomicfile.Write(m.path, []byte(next), 0o644); err != nil {
		return nil, err
	}

	logger.Info("pruned manifest", "path", m.path, "removed", len(removed))
	return removed, nil
}

// exists reports whether a manifest path still refers to something under
// the base directory. Wildcard paths count as existing when the scanner
// would still hit them.
func (m *Manifest) exists(path string) bool {
	if path == "" {
		return true
	}

	if strings.ContainsAny(path, "*?[{") {
		result, err := scanner.Scan(m.baseDir, []string{path})
		return err == nil && !result.Empty()
	}

	_, err := os.Stat(filepath.Join(m.baseDir, filepath.FromSlash(path)))
	return err == nil
}

func (m *Manifest) read() (string, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading manifest %s: %w", m.path, err)
	}
	return string(data), nil
}

func (m *Manifest) lock() (func(), error) {
	if m.lockPath == "" {
		return func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(m.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	fl := flock.New(m.lockPath)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("locking manifest %s: %w", m.path, err)
	}

	return func() { _ = fl.Unlock() }, nil
}

// missingLines returns candidates not already present among the non-empty
// lines of content.
func missingLines(content string, candidates []string) []string {
	existing := make(map[string]struct{})
	for _, line := range splitLines(content) {
		if line != "" {
			existing[line] = struct{}{}
		}
	}

	var missing []string
	for _, c := range candidates {
		if _, ok := existing[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// splitLines splits on LF, dropping the CR of CRLF endings.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

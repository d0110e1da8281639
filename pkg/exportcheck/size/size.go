// Package size computes the recoverable byte size of scan hits.
package size

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/logging"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/types"
)

var logger = logging.Get("size")

// Options configures an Aggregator.
type Options struct {
	// Workers is the fastwalk worker count. Zero uses the fastwalk default.
	Workers int
}

// Aggregator sums regular-file bytes below a base path.
type Aggregator struct {
	opts Options
}

// New creates an Aggregator.
func New(opts Options) *Aggregator {
	if opts.Workers < 0 {
		opts.Workers = 0
	}
	return &Aggregator{opts: opts}
}

// TotalSize is a convenience wrapper around a default Aggregator.
func TotalSize(base string, paths []string) int64 {
	return New(Options{}).TotalSize(base, paths)
}

// TotalSize returns the summed size of every path relative to base.
// Paths that no longer exist contribute zero.
func (a *Aggregator) TotalSize(base string, paths []string) int64 {
	var total int64
	for _, p := range paths {
		total += a.PathSize(base, p)
	}
	return total
}

// Entries returns one sized entry per path, in input order.
// Directory-ness is taken from the trailing slash on the path.
func (a *Aggregator) Entries(base string, paths []string) []types.Entry {
	entries := make([]types.Entry, 0, len(paths))
	for _, p := range paths {
		kind := types.KindFile
		if strings.HasSuffix(p, "/") {
			kind = types.KindDirectory
		}
		entries = append(entries, types.Entry{
			Path: p,
			Kind: kind,
			Size: a.PathSize(base, p),
		})
	}
	return entries
}

// PathSize returns the size of a single base-relative path: the file
// length for a file, the recursive regular-file total for a directory,
// and zero when the path is gone.
func (a *Aggregator) PathSize(base, rel string) int64 {
	full := filepath.Join(base, filepath.FromSlash(strings.TrimRight(rel, "/")))

	info, err := os.Stat(full)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("cannot stat path, counting as zero", "path", full, "err", err)
		} else {
			logger.Debug("path vanished before sizing", "path", full)
		}
		return 0
	}

	if !info.IsDir() {
		if info.Mode().IsRegular() {
			return info.Size()
		}
		return 0
	}

	return a.dirSize(full)
}

// dirSize walks dir without following symlinked directories. Symlinks to
// regular files count with the target's size; directory entries themselves
// and special files count as zero.
func (a *Aggregator) dirSize(dir string) int64 {
	var total atomic.Int64

	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: a.opts.Workers,
	}

	err := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("skipping unreadable entry", "path", path, "err", err)
			return nil
		}

		switch {
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return nil
			}
			total.Add(info.Size())
		case d.Type()&fs.ModeSymlink != 0:
			info, err := os.Stat(path)
			if err == nil && info.Mode().IsRegular() {
				total.Add(info.Size())
			}
		}
		return nil
	})
	if err != nil {
		logger.Warn("directory walk ended early", "dir", dir, "err", err)
	}

	return total.Load()
}

// Package acquire materializes package trees for checking: the current
// project as its git archive, or a dependency installed through composer
// into a scratch workspace.
package acquire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/logging"
)

var logger = logging.Get("acquire")

var (
	// ErrInvalidPackageName is returned for names not in vendor/package form.
	ErrInvalidPackageName = errors.New("package must be in format vendor/package")

	// ErrInstallFailed is returned when composer cannot install a package.
	ErrInstallFailed = errors.New("package install failed")

	// ErrArchiveFailed is returned when the git archive cannot be produced
	// or extracted.
	ErrArchiveFailed = errors.New("git archive failed")
)

// projectDirName is the workspace subdirectory holding the current project.
const projectDirName = "current-project"

// DefaultComposerTimeout bounds a single composer install.
const DefaultComposerTimeout = 5 * time.Minute

// packageNamePattern is composer's package name grammar.
var packageNamePattern = regexp.MustCompile(`^[a-z0-9]([_.-]?[a-z0-9]+)*/[a-z0-9](([_.]|-{1,2})?[a-z0-9]+)*$`)

// Options configures a Workspace.
type Options struct {
	// Dir is the scratch directory. It is created if missing.
	Dir string

	// Runner executes git and composer. Defaults to ExecRunner.
	Runner Runner

	// GitBinary defaults to "git".
	GitBinary string

	// ComposerBinary defaults to "composer".
	ComposerBinary string

	// ComposerTimeout bounds each install. Zero uses DefaultComposerTimeout;
	// a negative value disables the timeout.
	ComposerTimeout time.Duration
}

// Workspace is a scratch directory that package trees are extracted into.
type Workspace struct {
	opts Options
}

// NewWorkspace creates the scratch directory and returns its Workspace.
func NewWorkspace(opts Options) (*Workspace, error) {
	if opts.Dir == "" {
		return nil, errors.New("workspace directory cannot be empty")
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner
	}
	if opts.GitBinary == "" {
		opts.GitBinary = "git"
	}
	if opts.ComposerBinary == "" {
		opts.ComposerBinary = "composer"
	}
	if opts.ComposerTimeout == 0 {
		opts.ComposerTimeout = DefaultComposerTimeout
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace %s: %w", opts.Dir, err)
	}

	return &Workspace{opts: opts}, nil
}

// Dir returns the scratch directory.
func (w *Workspace) Dir() string {
	return w.opts.Dir
}

// Cleanup removes the scratch directory and everything in it.
func (w *Workspace) Cleanup() error {
	if err := os.RemoveAll(w.opts.Dir); err != nil {
		return fmt.Errorf("removing workspace %s: %w", w.opts.Dir, err)
	}
	return nil
}

// ValidatePackageName checks that name is a composer vendor/package name.
func ValidatePackageName(name string) error {
	if !packageNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidPackageName, name)
	}
	return nil
}

// PackageDir returns the directory a package is installed into.
func (w *Workspace) PackageDir(name string) string {
	return filepath.Join(w.opts.Dir, strings.ReplaceAll(name, "/", "__"))
}

// Remove deletes a single package's install directory.
func (w *Workspace) Remove(name string) error {
	return os.RemoveAll(w.PackageDir(name))
}

// GitArchive exports HEAD of the repository at workdir into the workspace
// and returns the extracted root. Paths already marked export-ignore at HEAD
// are absent from the result.
func (w *Workspace) GitArchive(ctx context.Context, workdir string) (string, error) {
	dest := filepath.Join(w.opts.Dir, projectDirName)
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("%w: clearing %s: %v", ErrArchiveFailed, dest, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", ErrArchiveFailed, dest, err)
	}

	logger.Debug("creating git archive", "workdir", workdir, "dest", dest)

	stream, err := w.opts.Runner(ctx, workdir, w.opts.GitBinary, "archive", "--format=tar", "HEAD")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArchiveFailed, err)
	}

	n, err := extractTar(bytes.NewReader(stream), dest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArchiveFailed, err)
	}

	logger.Info("extracted git archive", "entries", n, "dest", dest)
	return dest, nil
}

// composerManifest is the throwaway project used to pull in one package.
type composerManifest struct {
	Name             string            `json:"name"`
	Require          map[string]string `json:"require"`
	MinimumStability string            `json:"minimum-stability"`
	PreferStable     bool              `json:"prefer-stable"`
}

// Composer installs the named package into its own directory and returns
// the path of the installed package root.
func (w *Workspace) Composer(ctx context.Context, name string) (string, error) {
	if err := ValidatePackageName(name); err != nil {
		return "", err
	}

	dir := w.PackageDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInstallFailed, name, err)
	}

	manifest, err := json.MarshalIndent(composerManifest{
		Name:             "temp/export-ignore-check",
		Require:          map[string]string{name: "*"},
		MinimumStability: "stable",
		PreferStable:     true,
	}, "", "    ")
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInstallFailed, name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "composer.json"), manifest, 0o644); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInstallFailed, name, err)
	}

	if w.opts.ComposerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.ComposerTimeout)
		defer cancel()
	}

	logger.Debug("installing package", "package", name, "dir", dir)

	_, err = w.opts.Runner(ctx, dir, w.opts.ComposerBinary,
		"install", "--no-interaction", "--quiet", "--prefer-dist", "--no-scripts")
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInstallFailed, name, err)
	}

	vendorPath := filepath.Join(dir, "vendor", filepath.FromSlash(name))
	info, err := os.Stat(vendorPath)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s was not installed correctly", ErrInstallFailed, name)
	}

	logger.Info("installed package", "package", name)
	return vendorPath, nil
}

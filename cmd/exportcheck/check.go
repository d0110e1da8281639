package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/acquire"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/check"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/config"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/gitattributes"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/history"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/output"
)

// runner executes git and composer for every workspace the CLI creates.
var runner acquire.Runner = acquire.ExecRunner

// runCheck checks the current project or a single dependency.
func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	workdir, err := resolveDir(cfg.Workdir)
	if err != nil {
		return err
	}
	cfg.Workdir = workdir

	if viper.GetBool("clean") {
		return runClean(cfg)
	}

	patterns, err := cfg.ResolvePatterns()
	if err != nil {
		return fmt.Errorf("failed to load patterns: %w", err)
	}
	printVerbose("Checking %d patterns", len(patterns))

	formatter, err := output.Get(cfg.Output)
	if err != nil {
		return err
	}

	manifest, err := newManifest(cfg)
	if err != nil {
		return err
	}

	var name string
	if len(args) == 1 {
		name = args[0]
	}

	start := time.Now()

	root, cleanup, err := acquireRoot(cmd.Context(), cfg, name)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := check.Options{Patterns: patterns, Workers: cfg.Workers}
	if name == "" && cfg.NoArchive {
		opts.Exemptions, err = manifest.Exemptions()
		if err != nil {
			return err
		}
	}

	checker := check.New(opts)
	result, err := checker.Scan(root)
	if err != nil {
		return err
	}
	report := checker.Report(root, result)
	report.Package = name

	res := &output.Result{
		Report:   report,
		Source:   name,
		Duration: time.Since(start),
	}
	if name == "" {
		res.Source = workdir
	}

	if !report.Clean() {
		switch {
		case name != "":
			printNotice("Note: %s is a dependency, so %s is left untouched (--dry-run implied).", name, manifest.Path())
		case cfg.DryRun:
			if res.Pending, err = manifest.Pending(result); err != nil {
				return err
			}
		default:
			if res.Pending, err = manifest.Append(result); err != nil {
				return err
			}
			res.Applied = len(res.Pending) > 0
		}
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, res); err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}
	if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
		return err
	}

	recordHistory(cfg, history.OpCheck, res.Source, []history.PackageRecord{reportRecord(name, report, "", "")})

	if !report.Clean() {
		return check.ErrViolations
	}
	return nil
}

// acquireRoot materializes the tree to scan and returns a cleanup func.
func acquireRoot(ctx context.Context, cfg *config.Config, name string) (string, func(), error) {
	if name == "" && cfg.NoArchive {
		printVerbose("Scanning working tree %s", cfg.Workdir)
		return cfg.Workdir, func() {}, nil
	}

	ws, err := newWorkspace(cfg)
	if err != nil {
		return "", nil, err
	}

	if name != "" {
		printVerbose("Installing %s into %s", name, ws.PackageDir(name))
		root, err := ws.Composer(ctx, name)
		if err != nil {
			_ = ws.Remove(name)
			return "", nil, err
		}
		return root, func() { _ = ws.Remove(name) }, nil
	}

	printVerbose("Archiving %s into %s", cfg.Workdir, ws.Dir())
	root, err := ws.GitArchive(ctx, cfg.Workdir)
	if err != nil {
		return "", nil, err
	}
	return root, func() { _ = os.RemoveAll(root) }, nil
}

// runClean prunes stale export-ignore lines from the manifest.
func runClean(cfg *config.Config) error {
	manifest, err := newManifest(cfg)
	if err != nil {
		return err
	}

	removed, err := manifest.Prune()
	if err != nil {
		return err
	}

	if len(removed) == 0 {
		printInfo("No stale export-ignore lines in %s.", manifest.Path())
	} else {
		printInfo("Removed %d stale line(s) from %s:", len(removed), manifest.Path())
		for _, line := range removed {
			printInfo("  %s", line)
		}
	}

	recordHistory(cfg, history.OpClean, manifest.Path(), []history.PackageRecord{{
		Package: manifest.Path(),
		Status:  "pruned",
		Paths:   removed,
	}})
	return nil
}

func newManifest(cfg *config.Config) (*gitattributes.Manifest, error) {
	return gitattributes.New(cfg.ManifestPath(),
		gitattributes.WithBaseDir(cfg.Workdir),
		gitattributes.WithLockPath(config.LockPath()))
}

func newWorkspace(cfg *config.Config) (*acquire.Workspace, error) {
	return acquire.NewWorkspace(acquire.Options{
		Dir:             cfg.ScratchDir,
		Runner:          runner,
		GitBinary:       cfg.Git.Binary,
		ComposerBinary:  cfg.Composer.Binary,
		ComposerTimeout: cfg.Composer.Timeout,
	})
}

// resolveDir makes dir absolute and checks that it is a directory.
func resolveDir(dir string) (string, error) {
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", fmt.Errorf("failed to expand path: %w", err)
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", abs)
		}
		return "", fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", abs)
	}

	return abs, nil
}

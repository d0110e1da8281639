// Package batch checks many dependency packages, one scratch install each,
// and collects a per-package status.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/acquire"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/atomicfile"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/logging"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/types"
)

var logger = logging.Get("batch")

// Status is the outcome of checking one package.
type Status string

const (
	// StatusOK means the package is clean.
	StatusOK Status = "ok"
	// StatusViolations means the package ships excludable paths.
	StatusViolations Status = "violations"
	// StatusInstallFailed means the package could not be installed.
	StatusInstallFailed Status = "install_failed"
	// StatusError means the check itself failed.
	StatusError Status = "error"
	// StatusSkipped means the batch was cancelled before the package started.
	StatusSkipped Status = "skipped"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusOK, StatusViolations, StatusInstallFailed, StatusError, StatusSkipped}

// Installer materializes a package and later discards it.
type Installer interface {
	Composer(ctx context.Context, name string) (string, error)
	Remove(name string) error
}

// Checker checks a materialized package root.
type Checker interface {
	Check(root string) (*types.Report, error)
}

// Result is the outcome for one package.
type Result struct {
	Package  string        `json:"package" yaml:"package"`
	Status   Status        `json:"status" yaml:"status"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Report   *types.Report `json:"-" yaml:"-"`
}

// Summary collects the results of one batch run in input order.
type Summary struct {
	RunID     string    `json:"runId" yaml:"runId"`
	Started   time.Time `json:"started" yaml:"started"`
	Finished  time.Time `json:"finished" yaml:"finished"`
	Cancelled bool      `json:"cancelled" yaml:"cancelled"`
	Results   []Result  `json:"results" yaml:"results"`
}

// Counts returns the number of results per status.
func (s *Summary) Counts() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, r := range s.Results {
		counts[r.Status]++
	}
	return counts
}

// Failures returns the results with violations.
func (s *Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Status == StatusViolations && r.Report != nil {
			out = append(out, r)
		}
	}
	return out
}

// Options configures a Driver.
type Options struct {
	// Concurrency bounds how many packages are checked at once. Values
	// below one mean one.
	Concurrency int

	// OnResult, if set, is called once per package as it finishes.
	// Calls are serialized.
	OnResult func(Result)
}

// Driver runs package checks.
type Driver struct {
	installer Installer
	checker   Checker
	opts      Options

	mu sync.Mutex
}

// NewDriver creates a Driver.
func NewDriver(installer Installer, checker Checker, opts Options) *Driver {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Driver{installer: installer, checker: checker, opts: opts}
}

// Run checks every package. Cancelling ctx stops new packages from
// starting; packages already running finish and the rest are marked
// skipped. Per-package failures never abort the run.
func (d *Driver) Run(ctx context.Context, names []string) *Summary {
	summary := &Summary{
		RunID:   uuid.NewString(),
		Started: time.Now().UTC(),
		Results: make([]Result, len(names)),
	}

	logger.Info("batch started", "run", summary.RunID, "packages", len(names), "concurrency", d.opts.Concurrency)

	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)

	for i, name := range names {
		if ctx.Err() != nil {
			d.record(summary, i, Result{Package: name, Status: StatusSkipped})
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				d.record(summary, i, Result{Package: name, Status: StatusSkipped})
				return nil
			}
			d.record(summary, i, d.checkOne(context.WithoutCancel(ctx), name))
			return nil
		})
	}

	_ = g.Wait()

	summary.Finished = time.Now().UTC()
	summary.Cancelled = ctx.Err() != nil

	logger.Info("batch finished", "run", summary.RunID, "cancelled", summary.Cancelled)
	return summary
}

func (d *Driver) record(summary *Summary, i int, r Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	summary.Results[i] = r
	if d.opts.OnResult != nil {
		d.opts.OnResult(r)
	}
}

func (d *Driver) checkOne(ctx context.Context, name string) Result {
	start := time.Now()
	result := Result{Package: name}

	defer func() {
		if err := d.installer.Remove(name); err != nil {
			logger.Warn("failed to remove package install", "package", name, "err", err)
		}
	}()

	root, err := d.installer.Composer(ctx, name)
	if err != nil {
		result.Status = StatusInstallFailed
		if !errors.Is(err, acquire.ErrInstallFailed) {
			result.Status = StatusError
		}
		result.Error = err.Error()
		result.Duration = time.Since(start)
		logger.Debug("install failed", "package", name, "err", err)
		return result
	}

	report, err := d.checker.Check(root)
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}

	report.Package = name
	report.Root = root
	result.Report = report
	if report.Clean() {
		result.Status = StatusOK
	} else {
		result.Status = StatusViolations
	}

	logger.Debug("package checked", "package", name, "status", result.Status, "bytes", report.TotalSizeBytes)
	return result
}

// SaveFailures writes the reports of violating packages to path as indented
// JSON keyed by package name. It writes nothing and returns false when there
// are no failures.
func SaveFailures(path string, summary *Summary) (bool, error) {
	failures := summary.Failures()
	if len(failures) == 0 {
		return false, nil
	}

	docs := make(map[string]types.Document, len(failures))
	for _, f := range failures {
		docs[f.Package] = f.Report.Document()
	}

	data, err := json.MarshalIndent(docs, "", "    ")
	if err != nil {
		return false, fmt.Errorf("failed to marshal failures: %w", err)
	}

	if err := atomicfile.Write(path, append(data, '\n'), 0o644); err != nil {
		return false, err
	}

	logger.Info("saved batch failures", "path", path, "count", len(failures))
	return true, nil
}

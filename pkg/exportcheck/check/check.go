// Package check runs a single package check: scan the root, size the hits
// and assemble a report.
package check

import (
	"errors"
	"fmt"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/gitattributes"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/logging"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/scanner"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/size"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/types"
)

var logger = logging.Get("check")

// ErrViolations signals that a package is not clean. It is not an
// operational failure; callers map it to a non-zero exit status.
var ErrViolations = errors.New("export-ignore violations found")

// Options configures a Checker.
type Options struct {
	// Patterns are the exclusion patterns, in evaluation order.
	Patterns []string

	// Workers bounds the size walk. Zero uses the walker default.
	Workers int

	// Exemptions, when set, drops hits already covered by export-ignore
	// rules. Only needed when scanning a working tree instead of an archive.
	Exemptions *gitattributes.Exemptions
}

// Checker checks package roots against a fixed pattern list.
type Checker struct {
	opts  Options
	sizer *size.Aggregator
}

// New creates a Checker.
func New(opts Options) *Checker {
	return &Checker{
		opts:  opts,
		sizer: size.New(size.Options{Workers: opts.Workers}),
	}
}

// Check scans root and returns its report. A clean package yields a report
// with no hits and a zero size.
func (c *Checker) Check(root string) (*types.Report, error) {
	result, err := c.Scan(root)
	if err != nil {
		return nil, err
	}
	return c.Report(root, result), nil
}

// Scan runs the pattern scan and applies exemptions.
func (c *Checker) Scan(root string) (*types.ScanResult, error) {
	result, err := scanner.Scan(root, c.opts.Patterns)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	if c.opts.Exemptions != nil {
		before := result.Len()
		result = c.opts.Exemptions.Filter(result)
		logger.Debug("applied exemptions", "before", before, "after", result.Len())
	}

	return result, nil
}

// Report sizes the hits in result and builds the report for root.
func (c *Checker) Report(root string, result *types.ScanResult) *types.Report {
	report := &types.Report{
		Root:        root,
		Files:       result.Files(),
		Directories: result.Directories(),
		Entries:     []types.Entry{},
	}

	if result.Empty() {
		report.HumanSize = types.FormatBytes(0)
		return report
	}

	report.Entries = c.sizer.Entries(root, result.Paths())
	for _, e := range report.Entries {
		report.TotalSizeBytes += e.Size
	}
	report.HumanSize = types.FormatBytes(report.TotalSizeBytes)

	logger.Debug("check complete",
		"root", root,
		"hits", result.Len(),
		"bytes", report.TotalSizeBytes)

	return report
}

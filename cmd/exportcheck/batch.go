package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/acquire"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/batch"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/check"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/config"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/history"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/output"
)

// errInterrupted is returned when a batch was cancelled before every
// package ran.
var errInterrupted = errors.New("batch interrupted")

var batchCmd = &cobra.Command{
	Use:   "batch [vendor/package...]",
	Short: "Check many packages",
	Long: `Check several packages, one composer install each, without touching the
current project's .gitattributes.

Without arguments the most popular packages on packagist are checked.
Reports of packages with violations are written to the results file.
Interrupting the run lets in-flight packages finish and skips the rest.`,
	RunE: runBatch,
}

// httpClient fetches the popular package listing.
var httpClient = &http.Client{Timeout: 30 * time.Second}

func init() {
	batchCmd.Flags().IntP("concurrency", "c", 0, "packages checked at once (default 1)")
	batchCmd.Flags().IntP("limit", "l", 0, "popular packages to check when none are named (default 100)")
	batchCmd.Flags().String("results", "", "write reports of violating packages to `FILE` (default results.json)")
	batchCmd.Flags().String("source", "", "popular packages listing `URL`")

	bindBatchFlags()
	rootCmd.AddCommand(batchCmd)
}

// bindBatchFlags binds the batch flags to viper keys.
func bindBatchFlags() {
	_ = viper.BindPFlag("batch.concurrency", batchCmd.Flags().Lookup("concurrency"))
	_ = viper.BindPFlag("batch.limit", batchCmd.Flags().Lookup("limit"))
	_ = viper.BindPFlag("batch.results_path", batchCmd.Flags().Lookup("results"))
	_ = viper.BindPFlag("batch.source_url", batchCmd.Flags().Lookup("source"))
}

// runBatch checks every named or popular package.
func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	patterns, err := cfg.ResolvePatterns()
	if err != nil {
		return fmt.Errorf("failed to load patterns: %w", err)
	}

	ctx := cmd.Context()

	names := args
	if len(names) == 0 {
		printNotice("Fetching the %d most popular packages...", cfg.Batch.Limit)
		names, err = batch.FetchPopular(ctx, httpClient, cfg.Batch.SourceURL, cfg.Batch.Limit)
		if err != nil {
			return err
		}
	}
	if len(names) == 0 {
		printInfo("No packages to check.")
		return nil
	}

	ws, err := newBatchWorkspace(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			printVerbose("Failed to remove %s: %v", ws.Dir(), err)
		}
	}()

	done := 0
	driver := batch.NewDriver(ws, check.New(check.Options{Patterns: patterns, Workers: cfg.Workers}), batch.Options{
		Concurrency: cfg.Batch.Concurrency,
		OnResult: func(r batch.Result) {
			done++
			printNotice("[%d/%d] %s: %s", done, len(names), r.Package, r.Status)
		},
	})

	summary := driver.Run(ctx, names)

	if err := writeBatchSummary(cmd, cfg, summary); err != nil {
		return err
	}

	saved, err := batch.SaveFailures(cfg.Batch.ResultsPath, summary)
	if err != nil {
		return err
	}
	if saved {
		printNotice("Reports for %d package(s) with violations written to %s", len(summary.Failures()), cfg.Batch.ResultsPath)
	}

	records := make([]history.PackageRecord, 0, len(summary.Results))
	for _, r := range summary.Results {
		records = append(records, reportRecord(r.Package, r.Report, string(r.Status), r.Error))
	}
	recordHistory(cfg, history.OpBatch, summary.RunID, records)

	if summary.Cancelled {
		return errInterrupted
	}
	return nil
}

// newBatchWorkspace creates a per-run scratch directory so concurrent
// batches never share package directories.
func newBatchWorkspace(cfg *config.Config) (*acquire.Workspace, error) {
	if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	dir, err := os.MkdirTemp(cfg.ScratchDir, "batch-*")
	if err != nil {
		return nil, fmt.Errorf("creating batch directory: %w", err)
	}

	runCfg := *cfg
	runCfg.ScratchDir = dir
	return newWorkspace(&runCfg)
}

func writeBatchSummary(cmd *cobra.Command, cfg *config.Config, summary *batch.Summary) error {
	out := cmd.OutOrStdout()

	if cfg.Output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "    ")
		return enc.Encode(summary)
	}

	return output.WriteSummary(out, summary, cfg.Output == "pretty")
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/config"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/history"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	Long: `View the history of check, batch and clean runs.

Each run is stored as a JSON file under the history directory
(default: $XDG_DATA_HOME/exportcheck/history).`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Long:  `Display detailed information about a run by its ID or a unique ID prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory returns the configured history store.
func openHistory() (*history.History, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	path := cfg.History.Path
	if path == "" {
		path = config.HistoryDir()
	}

	h, err := history.New(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history: %w", err)
	}
	return h, cfg, nil
}

// recordHistory stores a run when history is enabled. Failures are logged
// but never fail the run.
func recordHistory(cfg *config.Config, op history.Operation, target string, records []history.PackageRecord) {
	if !cfg.History.Enabled {
		return
	}

	path := cfg.History.Path
	if path == "" {
		path = config.HistoryDir()
	}

	h, err := history.New(path)
	if err == nil {
		var entry *history.Entry
		entry, err = h.Record(op, target, records)
		if err == nil {
			printVerbose("Recorded history entry %s", entry.ID)
			return
		}
	}
	printVerbose("Failed to record history: %v", err)
}

// reportRecord converts a check outcome into a history record. An empty
// status is derived from the report.
func reportRecord(name string, report *types.Report, status, errMsg string) history.PackageRecord {
	rec := history.PackageRecord{Package: name, Status: status, Error: errMsg}
	if report != nil {
		rec.Paths = append(append([]string{}, report.Directories...), report.Files...)
		rec.TotalBytes = report.TotalSizeBytes
		if rec.Status == "" {
			rec.Status = "ok"
			if !report.Clean() {
				rec.Status = history.StatusViolations
			}
		}
	}
	if rec.Package == "" && report != nil {
		rec.Package = report.Root
	}
	return rec
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, args []string) error {
	h, _, err := openHistory()
	if err != nil {
		return err
	}

	entries, err := h.List(0)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	total := len(entries)

	if total == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'exportcheck' in a project to record a check.")
		return nil
	}

	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}

	fmt.Printf("\n%-40s  %-6s  %-8s  %-10s  %-10s\n", "ID", "TYPE", "PACKAGES", "VIOLATIONS", "SIZE")
	fmt.Println(strings.Repeat("-", 84))

	for _, entry := range entries {
		fmt.Printf("%-40s  %-6s  %-8d  %-10d  %-10s\n",
			truncateString(entry.ID, 40),
			entry.Operation,
			entry.Summary.Packages,
			entry.Summary.Violations,
			types.FormatBytes(entry.Summary.TotalBytes),
		)
	}

	fmt.Println(strings.Repeat("-", 84))
	fmt.Printf("\nShowing %d of %d entries. Use --limit to see more.\n", len(entries), total)
	fmt.Println("Use 'exportcheck history show <id>' for details on a specific entry.")

	return nil
}

// runHistoryShow displays details of a specific run.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	h, _, err := openHistory()
	if err != nil {
		return err
	}

	entry, err := h.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	fmt.Println("\nRun Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:         %s\n", entry.ID)
	fmt.Printf("Timestamp:  %s\n", entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Operation:  %s\n", entry.Operation)
	if entry.Target != "" {
		fmt.Printf("Target:     %s\n", entry.Target)
	}
	fmt.Printf("Packages:   %d\n", entry.Summary.Packages)
	fmt.Printf("Violations: %d\n", entry.Summary.Violations)
	fmt.Printf("Total Size: %s\n", types.FormatBytes(entry.Summary.TotalBytes))

	// Limit display to 50 packages
	limit := min(len(entry.Packages), 50)

	for _, p := range entry.Packages[:limit] {
		fmt.Println()
		fmt.Printf("%s [%s] %s\n", p.Package, p.Status, types.FormatBytes(p.TotalBytes))
		if p.Error != "" {
			fmt.Printf("  error: %s\n", p.Error)
		}
		for _, path := range p.Paths {
			fmt.Printf("  %s\n", path)
		}
	}

	if len(entry.Packages) > limit {
		fmt.Printf("\n... and %d more packages\n", len(entry.Packages)-limit)
	}

	return nil
}

// runHistoryClean removes old history entries.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	h, cfg, err := openHistory()
	if err != nil {
		return err
	}

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := h.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d entries.", removed)
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

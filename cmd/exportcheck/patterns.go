package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/scanner"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns [path]",
	Short: "Print the effective exclusion patterns",
	Long: `Print the exclusion patterns in evaluation order, one per line.

With a path, each pattern is followed by how it resolves against that
directory: directory, file or wildcard.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPatterns,
}

func init() {
	rootCmd.AddCommand(patternsCmd)
}

// runPatterns prints the configured pattern list.
func runPatterns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	patterns, err := cfg.ResolvePatterns()
	if err != nil {
		return fmt.Errorf("failed to load patterns: %w", err)
	}

	out := cmd.OutOrStdout()

	if len(args) == 0 {
		for _, p := range patterns {
			fmt.Fprintln(out, p)
		}
		return nil
	}

	root, err := resolveDir(args[0])
	if err != nil {
		return err
	}

	for _, p := range patterns {
		fmt.Fprintf(out, "%-40s  %s\n", p, scanner.Resolve(root, p))
	}
	return nil
}

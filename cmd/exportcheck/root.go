package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/check"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/config"
	"github.com/jamesainslie/exportcheck/pkg/exportcheck/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "exportcheck [vendor/package]",
		Short: "Find files that should be excluded from package archives",
		Long: `exportcheck finds files and directories that ship in a package's
distribution archive but are only useful for development, such as tests,
CI configuration and changelogs.

Without an argument the current project is checked: its git archive is
extracted and scanned, and any hits are appended to .gitattributes as
export-ignore lines. With a vendor/package argument that package is
installed with composer into a scratch directory and checked read-only.

The exit status is 0 when nothing was found and 1 otherwise.

Examples:
  exportcheck                      # Check and fix the current project
  exportcheck --dry-run            # Report without touching .gitattributes
  exportcheck symfony/console      # Check a dependency
  exportcheck --clean              # Drop stale export-ignore lines
  exportcheck -o json              # Machine-readable report
  exportcheck batch --limit 50     # Check the 50 most popular packages`,
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: initializeLogging,
		RunE:              runCheck,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/exportcheck/config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (pretty, plain, json, yaml, paths)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON format (same as -o json)")
	rootCmd.PersistentFlags().String("patterns", "", "read exclusion patterns from `FILE`")
	rootCmd.PersistentFlags().Int("workers", 0, "size walk workers (0=auto)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Check flags
	rootCmd.Flags().StringP("workdir", "w", "", "project directory to check (default: .)")
	rootCmd.Flags().String("manifest", "", "gitattributes `FILE` to update (default: <workdir>/.gitattributes)")
	rootCmd.Flags().BoolP("dry-run", "d", false, "report only, never modify the manifest")
	rootCmd.Flags().Bool("clean", false, "remove export-ignore lines for paths that no longer exist")
	rootCmd.Flags().Bool("no-archive", false, "scan the working tree instead of its git archive")

	bindRootFlags()
}

// bindRootFlags binds the root flags to viper keys.
func bindRootFlags() {
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("patterns_file", rootCmd.PersistentFlags().Lookup("patterns"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("workdir", rootCmd.Flags().Lookup("workdir"))
	_ = viper.BindPFlag("manifest", rootCmd.Flags().Lookup("manifest"))
	_ = viper.BindPFlag("dry_run", rootCmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("clean", rootCmd.Flags().Lookup("clean"))
	_ = viper.BindPFlag("no_archive", rootCmd.Flags().Lookup("no-archive"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, config.AppName))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", config.AppName))
		}
	}

	config.BindEnv(viper.GetViper())
	config.SetDefaults(viper.GetViper())

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// loadConfig decodes the merged flag, env, file and default settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Decode(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if viper.GetBool("json") {
		cfg.Output = "json"
	}
	if cfg.Output == "" {
		cfg.Output = config.DefaultOutput
	}
	if cfg.Workdir == "" {
		cfg.Workdir = config.DefaultWorkdir
	}
	if cfg.Manifest == "" {
		cfg.Manifest = config.DefaultManifest
	}
	return cfg, nil
}

// Execute runs the root command. Violations only set the exit status; every
// other error is printed. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	defer func() { _ = logging.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, check.ErrViolations) {
		printError("%v", err)
	}
	return err
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printNotice prints a message to stderr unless quiet, keeping stdout
// clean for machine-readable reports.
func printNotice(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

package main

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage exportcheck configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/exportcheck/config.yaml (if set)
  2. ~/.config/exportcheck/config.yaml

Environment variables can override config file settings using the EXPORTCHECK_ prefix:
  EXPORTCHECK_OUTPUT=json
  EXPORTCHECK_PATTERNS_FILE=./patterns.txt
  EXPORTCHECK_BATCH_CONCURRENCY=4`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration merged from defaults, file, environment and flags.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configKeys are the settings shown by config show; flag-only keys such
// as verbose are left out.
var configKeys = []string{
	"patterns", "patterns_file", "manifest", "workdir", "scratch_dir",
	"workers", "output", "dry_run", "no_archive", "git", "composer",
	"batch", "history", "logging",
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Fprintf(out, "# Config file: %s\n", configFile)
	} else {
		fmt.Fprintln(out, "# Config file: (using defaults, no file found)")
	}

	all := viper.AllSettings()
	settings := make(map[string]interface{}, len(configKeys))
	for _, key := range configKeys {
		if v, ok := all[key]; ok {
			settings[key] = v
		}
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	if _, err := out.Write(data); err != nil {
		return err
	}

	var overrides []string
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, config.EnvPrefix+"_") {
			overrides = append(overrides, env)
		}
	}
	sort.Strings(overrides)

	fmt.Fprintln(out, "\n# Environment overrides:")
	if len(overrides) == 0 {
		fmt.Fprintln(out, "#   (none)")
	}
	for _, o := range overrides {
		fmt.Fprintf(out, "#   %s\n", o)
	}

	return nil
}

// editorCommand splits $VISUAL or $EDITOR into a program and its
// arguments, falling back to vi.
func editorCommand() (string, []string) {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(env)); len(fields) > 0 {
			return fields[0], fields[1:]
		}
	}
	return "vi", nil
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	path, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	name, args := editorCommand()
	printVerbose("Opening %s with %s", path, name)

	editor := exec.CommandContext(cmd.Context(), name, append(args, path)...)
	editor.Stdin, editor.Stdout, editor.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := editor.Run(); err != nil {
		return fmt.Errorf("editor %s failed: %w", name, err)
	}
	return nil
}

// runConfigInit writes the commented default file unless one exists.
func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	_, statErr := os.Stat(path)
	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	if statErr == nil {
		printInfo("Config file already exists: %s", path)
		printInfo("Use 'exportcheck config edit' to modify it.")
		return nil
	}
	printInfo("Created default config file: %s", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)

	if _, err := os.Stat(path); err != nil {
		printVerbose("File does not exist, defaults apply")
	}
	return nil
}

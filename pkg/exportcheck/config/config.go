package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/patterns"
)

// EnvPrefix prefixes environment overrides, e.g. EXPORTCHECK_OUTPUT=json.
const EnvPrefix = "EXPORTCHECK"

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// GitConfig locates the git binary used to archive the project.
type GitConfig struct {
	Binary string `mapstructure:"binary"`
}

// ComposerConfig locates composer and bounds each install.
type ComposerConfig struct {
	Binary  string        `mapstructure:"binary"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BatchConfig configures multi-package runs.
type BatchConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	Limit       int    `mapstructure:"limit"`
	SourceURL   string `mapstructure:"source_url"`
	ResultsPath string `mapstructure:"results_path"`
}

// HistoryConfig configures the run history.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	Patterns     []string       `mapstructure:"patterns"`
	PatternsFile string         `mapstructure:"patterns_file"`
	Manifest     string         `mapstructure:"manifest"`
	Workdir      string         `mapstructure:"workdir"`
	ScratchDir   string         `mapstructure:"scratch_dir"`
	Workers      int            `mapstructure:"workers"`
	Output       string         `mapstructure:"output"`
	DryRun       bool           `mapstructure:"dry_run"`
	NoArchive    bool           `mapstructure:"no_archive"`
	Git          GitConfig      `mapstructure:"git"`
	Composer     ComposerConfig `mapstructure:"composer"`
	Batch        BatchConfig    `mapstructure:"batch"`
	History      HistoryConfig  `mapstructure:"history"`
	Logging      LoggingConfig  `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/exportcheck/config.yaml
//   - $HOME/.config/exportcheck/config.yaml
//
// Environment variables are prefixed with EXPORTCHECK_ (e.g. EXPORTCHECK_OUTPUT).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, AppName))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", AppName))

	BindEnv(v)
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return Decode(v)
}

// BindEnv enables EXPORTCHECK_ environment overrides on v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("patterns", patterns.Default())
	v.SetDefault("patterns_file", "")
	v.SetDefault("manifest", DefaultManifest)
	v.SetDefault("workdir", DefaultWorkdir)
	v.SetDefault("scratch_dir", DefaultScratchDir())
	v.SetDefault("workers", 0)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("dry_run", false)
	v.SetDefault("no_archive", false)

	v.SetDefault("git.binary", "git")
	v.SetDefault("composer.binary", "composer")
	v.SetDefault("composer.timeout", DefaultComposerTimeout)

	v.SetDefault("batch.concurrency", DefaultBatchConcurrency)
	v.SetDefault("batch.limit", DefaultBatchLimit)
	v.SetDefault("batch.source_url", DefaultBatchSourceURL)
	v.SetDefault("batch.results_path", DefaultBatchResults)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", HistoryDir())
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"scanner":       "info",
		"size":          "info",
		"gitattributes": "info",
		"acquire":       "info",
		"batch":         "info",
	})
}

// Decode unmarshals v into a Config and expands ~ in path settings.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{
		&cfg.PatternsFile,
		&cfg.Manifest,
		&cfg.Workdir,
		&cfg.ScratchDir,
		&cfg.Batch.ResultsPath,
		&cfg.History.Path,
		&cfg.Logging.Path,
	} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	return &cfg, nil
}

// ResolvePatterns returns the effective pattern list: the pattern file when
// one is configured, otherwise the configured list.
func (c *Config) ResolvePatterns() ([]string, error) {
	if c.PatternsFile != "" {
		return patterns.Load(c.PatternsFile)
	}
	if len(c.Patterns) == 0 {
		return patterns.Default(), nil
	}
	return c.Patterns, nil
}

// ManifestPath returns the manifest path, resolved against the workdir when
// it is relative.
func (c *Config) ManifestPath() string {
	if filepath.IsAbs(c.Manifest) {
		return c.Manifest
	}
	return filepath.Join(c.Workdir, c.Manifest)
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", AppName), nil
}

// ConfigPath returns the path of the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left alone.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# exportcheck configuration

# Exclusion patterns checked in order. Leave unset to use the built-in list.
# patterns:
#   - tests/
#   - CHANGELOG.md
#   - UPGRADE-*.md

# Read patterns from a file instead (.yaml, .json, or one per line)
patterns_file: ""

# Manifest that export-ignore lines are appended to, relative to workdir
manifest: %s

# Project directory checked when no package is given
workdir: %s

# Scratch directory that packages are extracted into
scratch_dir: %s

# Size walk workers (0 = walker default)
workers: 0

# Report format: pretty, plain, json, yaml, paths
output: %s

git:
  binary: git

composer:
  binary: composer
  timeout: %s

batch:
  concurrency: %d
  limit: %d
  source_url: %s
  results_path: %s

# Run history
history:
  enabled: true
  path: %s
  retention_days: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/exportcheck/exportcheck.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    scanner: info
    size: info
    gitattributes: info
    acquire: info
    batch: info
`, DefaultManifest, DefaultWorkdir, DefaultScratchDir(), DefaultOutput, DefaultComposerTimeout,
		DefaultBatchConcurrency, DefaultBatchLimit, DefaultBatchSourceURL, DefaultBatchResults,
		HistoryDir(), DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/exportcheck/ for run history.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// StateDir returns $XDG_STATE_HOME/exportcheck/ for log and lock files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// CacheDir returns $XDG_CACHE_HOME/exportcheck/.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// DefaultScratchDir returns the default package extraction directory.
func DefaultScratchDir() string {
	return filepath.Join(CacheDir(), "packages")
}

// HistoryDir returns the default run history directory.
func HistoryDir() string {
	return filepath.Join(DataDir(), "history")
}

// LockPath returns the lock file serializing manifest rewrites.
func LockPath() string {
	return filepath.Join(StateDir(), "manifest.lock")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "exportcheck.log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// Package config provides configuration management for exportcheck.
package config

import "time"

// AppName names the config, state and cache directories.
const AppName = "exportcheck"

// Default configuration values for exportcheck.
const (
	// DefaultManifest is the manifest file name, relative to the workdir.
	DefaultManifest = ".gitattributes"

	// DefaultWorkdir is the project directory checked when no package is given.
	DefaultWorkdir = "."

	// DefaultOutput is the report format.
	DefaultOutput = "pretty"

	// DefaultComposerTimeout bounds a single composer install.
	DefaultComposerTimeout = 5 * time.Minute

	// DefaultBatchConcurrency is the number of packages checked at once.
	DefaultBatchConcurrency = 1

	// DefaultBatchLimit is how many popular packages a batch checks when
	// none are named.
	DefaultBatchLimit = 100

	// DefaultBatchSourceURL lists popular packages.
	DefaultBatchSourceURL = "https://packagist.org/explore/popular.json"

	// DefaultBatchResults is where violating batch reports are written.
	DefaultBatchResults = "results.json"

	// DefaultRetentionDays is how long history entries are kept.
	DefaultRetentionDays = 30
)

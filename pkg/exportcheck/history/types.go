// Package history records past check, batch and clean runs as JSON files.
package history

import "time"

// Operation is the kind of run an entry records.
type Operation string

const (
	// OpCheck records a single package check.
	OpCheck Operation = "check"
	// OpBatch records a batch run.
	OpBatch Operation = "batch"
	// OpClean records a manifest prune.
	OpClean Operation = "clean"
)

// Entry is one recorded run.
type Entry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Operation Operation       `json:"operation"`
	Target    string          `json:"target,omitempty"`
	Packages  []PackageRecord `json:"packages"`
	Summary   Summary         `json:"summary"`
}

// PackageRecord is the outcome for one package within a run.
type PackageRecord struct {
	Package    string   `json:"package"`
	Status     string   `json:"status"`
	Paths      []string `json:"paths,omitempty"`
	TotalBytes int64    `json:"total_bytes"`
	Error      string   `json:"error,omitempty"`
}

// Summary aggregates the package records of an entry.
type Summary struct {
	Packages   int   `json:"packages"`
	Violations int   `json:"violations"`
	TotalBytes int64 `json:"total_bytes"`
}

// Package types provides core data types for the exportcheck package auditor.
// It includes the scan result produced by the pattern scanner, the report
// consumed by formatters, and helpers for parsing and formatting byte sizes.
package types

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Marker is the gitattributes attribute that excludes a path from archives.
const Marker = "export-ignore"

// EntryKind classifies a scan hit.
type EntryKind string

const (
	// KindFile is a hit that resolved to a regular file.
	KindFile EntryKind = "file"
	// KindDirectory is a hit that resolved to a directory.
	KindDirectory EntryKind = "directory"
)

// ScanResult holds the paths under a package root that matched exclusion patterns.
// Paths are relative to the root. Directory paths end in exactly one slash,
// file paths never do. Each set is deduplicated by value.
type ScanResult struct {
	files       map[string]struct{}
	directories map[string]struct{}
}

// NewScanResult creates an empty ScanResult.
func NewScanResult() *ScanResult {
	return &ScanResult{
		files:       make(map[string]struct{}),
		directories: make(map[string]struct{}),
	}
}

// AddFile records a file hit. Any trailing slash is stripped.
func (r *ScanResult) AddFile(path string) {
	r.files[NormalizeFile(path)] = struct{}{}
}

// AddDirectory records a directory hit with exactly one trailing slash.
func (r *ScanResult) AddDirectory(path string) {
	r.directories[NormalizeDirectory(path)] = struct{}{}
}

// Files returns the file hits in sorted order.
func (r *ScanResult) Files() []string {
	return sortedKeys(r.files)
}

// Directories returns the directory hits in sorted order.
func (r *ScanResult) Directories() []string {
	return sortedKeys(r.directories)
}

// Paths returns directories followed by files, each group sorted.
func (r *ScanResult) Paths() []string {
	return append(r.Directories(), r.Files()...)
}

// Len returns the total number of hits.
func (r *ScanResult) Len() int {
	return len(r.files) + len(r.directories)
}

// Empty reports whether the scan found nothing.
func (r *ScanResult) Empty() bool {
	return r.Len() == 0
}

// Equal reports whether both results hold the same sets.
func (r *ScanResult) Equal(other *ScanResult) bool {
	if other == nil {
		return false
	}
	return sameKeys(r.files, other.files) && sameKeys(r.directories, other.directories)
}

// NormalizeFile strips trailing slashes from a file path.
func NormalizeFile(path string) string {
	return strings.TrimRight(path, "/")
}

// NormalizeDirectory strips trailing slashes and appends exactly one.
func NormalizeDirectory(path string) string {
	return strings.TrimRight(path, "/") + "/"
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sameKeys(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// Entry is a single hit with its recoverable size.
type Entry struct {
	// Path is the root-relative path; directories end in a slash.
	Path string `json:"path" yaml:"path"`

	// Kind is either file or directory.
	Kind EntryKind `json:"kind" yaml:"kind"`

	// Size is the recursive byte size of the entry.
	Size int64 `json:"size" yaml:"size"`
}

// Report is the outcome of checking a single package.
type Report struct {
	// Package is the package name, empty for the current project.
	Package string

	// Root is the package root that was scanned.
	Root string

	// Files and Directories mirror the scan result in sorted order.
	Files       []string
	Directories []string

	// Entries carries per-path sizes, directories first.
	Entries []Entry

	// TotalSizeBytes is the recoverable size over all hits.
	TotalSizeBytes int64

	// HumanSize is TotalSizeBytes formatted with FormatBytes.
	HumanSize string
}

// Clean reports whether the package has no violations.
func (r *Report) Clean() bool {
	return len(r.Files) == 0 && len(r.Directories) == 0
}

// Suggestions returns the gitattributes lines that would fix the report,
// directories first, trailing slashes stripped, tab-separated from the marker.
func (r *Report) Suggestions() []string {
	out := make([]string, 0, len(r.Directories)+len(r.Files))
	for _, p := range append(append([]string{}, r.Directories...), r.Files...) {
		out = append(out, NormalizeFile(p)+"\t"+Marker)
	}
	return out
}

// Document is the serialized shape of a Report used by the JSON and YAML
// formatters and by batch result files.
type Document struct {
	Files             []string `json:"files" yaml:"files"`
	Directories       []string `json:"directories" yaml:"directories"`
	Suggestions       []string `json:"suggestions" yaml:"suggestions"`
	TotalSizeBytes    int64    `json:"totalSizeBytes" yaml:"totalSizeBytes"`
	HumanReadableSize string   `json:"humanReadableSize" yaml:"humanReadableSize"`
	Entries           []Entry  `json:"entries" yaml:"entries"`
}

// Document converts the report into its serialized shape. Slices are never
// nil so empty sets encode as empty lists.
func (r *Report) Document() Document {
	doc := Document{
		Files:             nonNil(r.Files),
		Directories:       nonNil(r.Directories),
		Suggestions:       r.Suggestions(),
		TotalSizeBytes:    r.TotalSizeBytes,
		HumanReadableSize: r.HumanSize,
		Entries:           r.Entries,
	}
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	if doc.HumanReadableSize == "" {
		doc.HumanReadableSize = FormatBytes(r.TotalSizeBytes)
	}
	return doc
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var byteUnits = []string{"B", "KB", "MB", "GB"}

// FormatBytes converts a byte count into the largest unit (B, KB, MB, GB)
// that keeps the value at or above one, rounded to two decimals with
// trailing zeros dropped.
//
// Examples:
//   - FormatBytes(0) returns "0 B"
//   - FormatBytes(1536) returns "1.5 KB"
//   - FormatBytes(1073741824) returns "1 GB"
func FormatBytes(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	pow := 0
	value := float64(bytes)
	for value >= 1024 && pow < len(byteUnits)-1 {
		value /= 1024
		pow++
	}

	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + byteUnits[pow]
}

// FormatCount renders a byte count with thousands separators, e.g. "1,536 bytes".
func FormatCount(bytes int64) string {
	return humanize.Comma(bytes) + " bytes"
}

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size such as "10MB", "512KiB" or "1024".
// SI suffixes (KB, MB) are powers of 1000, IEC suffixes (KiB, MiB) powers of 1024.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSize, s)
	}

	return int64(n), nil
}

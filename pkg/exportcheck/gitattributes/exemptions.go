package gitattributes

import (
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/types"
)

// Exemptions answers whether a root-relative path is already covered by an
// export-ignore rule in a manifest.
type Exemptions struct {
	ignore *gitignore.GitIgnore
	rules  []string
}

// Exemptions parses the manifest's export-ignore rules. A missing manifest
// yields an empty set.
func (m *Manifest) Exemptions() (*Exemptions, error) {
	content, err := m.read()
	if err != nil {
		return nil, err
	}
	return ParseExemptions(content), nil
}

// ParseExemptions builds Exemptions from manifest content. Only lines that
// set the attribute count; "-export-ignore" and "!export-ignore" unset it.
func ParseExemptions(content string) *Exemptions {
	var rules []string
	for _, line := range splitLines(content) {
		fields := strings.Fields(line)
		if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		for _, attr := range fields[1:] {
			if attr == types.Marker {
				rules = append(rules, fields[0])
				break
			}
		}
	}

	return &Exemptions{
		ignore: gitignore.CompileIgnoreLines(rules...),
		rules:  rules,
	}
}

// Rules returns the path patterns of the export-ignore lines.
func (e *Exemptions) Rules() []string {
	return append([]string(nil), e.rules...)
}

// Covers reports whether path is matched by any rule.
func (e *Exemptions) Covers(path string) bool {
	if len(e.rules) == 0 {
		return false
	}
	return e.ignore.MatchesPath(path)
}

// Filter returns a new result holding only the hits no rule covers.
func (e *Exemptions) Filter(result *types.ScanResult) *types.ScanResult {
	out := types.NewScanResult()
	for _, f := range result.Files() {
		if !e.Covers(f) {
			out.AddFile(f)
		}
	}
	for _, d := range result.Directories() {
		if !e.Covers(d) {
			out.AddDirectory(d)
		}
	}
	return out
}

// Package patterns provides the built-in exclusion pattern list and loads
// pattern lists from files.
package patterns

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a pattern file does not exist.
var ErrNotFound = errors.New("pattern file not found")

// defaults lists the paths most packages keep out of their dist archive.
// Literal directories come first so the scan can skip a root listing for
// the common hits.
var defaults = []string{
	".github/",
	"tests/",
	"Tests/",
	"docs/",

	"dist-size-status.json",
	".gitignore",
	".editorconfig",

	"CODE_OF_CONDUCT.md",
	"CONTRIBUTING.md",
	"phpcs.xml",
	"phpcs.xml.dist",
	".php-cs-fixer.dist.php",

	"phpmd.xml.dist",

	"phpstan-baseline.neon",
	"phpstan.neon.dist",
	"phpstan.dist.neon",
	"phpstan.neon",

	"rector.php",

	"phpunit.xml.dist",
	"phpunit.xml",

	"psalm.xml",
	".psalm/",
	"psalm-baseline.xml",

	"composer-require-checker.json",
	"composer-unused.php",
	"infection.json5",

	"Taskfile.yml",
	"Taskfile.yaml",
	"Makefile",
	"bootstrap.php",
	"grumphp.yml",
	"composer.lock",
	"ecs.php",
	"Dockerfile",
	"composer-dependency-analyser.php",

	".gitlab-ci.yml",
	".travis.yml",
	".styleci.yml",

	"UPGRADE-*.md",

	"docker-compose.yaml",
	"docker-compose.yml",
}

// Default returns a copy of the built-in pattern list.
func Default() []string {
	return append([]string(nil), defaults...)
}

// Load reads a pattern list from path. YAML and JSON files hold either a
// list of strings or a mapping with a "patterns" list; any other file holds
// one pattern per line, with blank lines and "#" comments ignored.
// Order is preserved and duplicates are kept.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading pattern file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return parseStructured(path, data)
	default:
		return ParseText(data), nil
	}
}

// ParseText parses one pattern per line.
func ParseText(data []byte) []string {
	var out []string

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}

	return out
}

// parseStructured decodes YAML, which also covers JSON documents.
func parseStructured(path string, data []byte) ([]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing pattern file %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := root.Decode(&list); err != nil {
			return nil, fmt.Errorf("parsing pattern file %s: %w", path, err)
		}
		return clean(list), nil
	case yaml.MappingNode:
		var wrapped struct {
			Patterns []string `yaml:"patterns"`
		}
		if err := root.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("parsing pattern file %s: %w", path, err)
		}
		return clean(wrapped.Patterns), nil
	default:
		return nil, fmt.Errorf("parsing pattern file %s: expected a list or a patterns mapping", path)
	}
}

func clean(list []string) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package rule loads and validates the rule file that lists the module
// sources to aggregate.
package rule

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the parsed rule file.
//
//	name: My Module          # optional, becomes the #!name= header
//	desc: merged rules       # optional, becomes the #!desc= header
//	rules:
//	  - url: https://example.com/a.sgmodule
//	    drop: "adblock, foo" # optional filter tokens, comma/space separated
type File struct {
	Name  string  `yaml:"name,omitempty"`
	Desc  string  `yaml:"desc,omitempty"`
	Rules []Entry `yaml:"rules"`
}

// Entry is a single module source.
type Entry struct {
	URL  string `yaml:"url"`
	Drop string `yaml:"drop,omitempty"`
}

// DropTokens splits the entry's drop string into individual filter tokens.
func (e Entry) DropTokens() []string {
	return splitTokens(e.Drop)
}

var tokenSeparator = regexp.MustCompile(`[,\s]+`)

// splitTokens splits on commas and whitespace, discarding empty parts.
func splitTokens(s string) []string {
	var tokens []string
	for _, tok := range tokenSeparator.Split(s, -1) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// LoadResult is the outcome of loading a rule file. Skipped counts entries
// that were dropped during validation (currently: missing url).
type LoadResult struct {
	File    File
	Skipped int
}

// Load reads and validates the rule file at path. Entries without a url are
// skipped rather than fatal, matching the file's forgiving hand-edited
// nature. An empty rules list after validation is an error.
func Load(path string) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return LoadResult{}, fmt.Errorf("rule file not found at %s", path)
		}
		return LoadResult{}, fmt.Errorf("reading rule file %s: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return LoadResult{}, fmt.Errorf("parsing rule file %s: %w", path, err)
	}

	valid := make([]Entry, 0, len(file.Rules))
	skipped := 0
	for _, entry := range file.Rules {
		if strings.TrimSpace(entry.URL) == "" {
			skipped++
			continue
		}
		entry.URL = strings.TrimSpace(entry.URL)
		valid = append(valid, entry)
	}
	file.Rules = valid

	if len(file.Rules) == 0 {
		return LoadResult{}, fmt.Errorf("no valid rules found in %s", path)
	}

	return LoadResult{File: file, Skipped: skipped}, nil
}

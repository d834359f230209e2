// Package aggregate fetches module sources and merges them into a single
// sgmodule artifact.
package aggregate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	sectionHeaderRe = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*$`)
	mitmHostnameRe  = regexp.MustCompile(`(?i)^\s*hostname\s*=\s*(.+?)\s*$`)
)

// commentPrefixes are the line comment styles found across sgmodule sources.
var commentPrefixes = []string{"#", "//", ";"}

// appendMarker is Surge's marker for extending rather than replacing the
// MITM hostname list.
const appendMarker = "%APPEND%"

// mitmSection is the section that receives special hostname handling.
const mitmSection = "MITM"

// Merger accumulates section content across sources. Section order follows
// first appearance; lines are deduplicated globally; [MITM] hostnames are
// collected separately and re-emitted as a single hostname line.
type Merger struct {
	sectionOrder []string
	sections     map[string][]string
	seenLines    map[string]bool

	mitmHosts []string
	seenHosts map[string]bool
}

// NewMerger creates an empty Merger.
func NewMerger() *Merger {
	return &Merger{
		sections:  make(map[string][]string),
		seenLines: make(map[string]bool),
		seenHosts: make(map[string]bool),
	}
}

// Add parses one source's content into the merger. Lines matching any drop
// token (case-insensitive substring) are filtered from non-MITM sections.
func (m *Merger) Add(content string, dropTokens []string) {
	lowered := make([]string, len(dropTokens))
	for idx, tok := range dropTokens {
		lowered[idx] = strings.ToLower(tok)
	}

	current := ""
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimLeft(strings.TrimRight(raw, "\r\n"), "\ufeff")
		stripped := strings.TrimSpace(line)

		if stripped == "" || isComment(stripped) {
			continue
		}

		if match := sectionHeaderRe.FindStringSubmatch(line); match != nil {
			current = strings.TrimSpace(match[1])
			if !strings.EqualFold(current, mitmSection) {
				if _, ok := m.sections[current]; !ok {
					m.sections[current] = nil
					m.sectionOrder = append(m.sectionOrder, current)
				}
			}
			continue
		}

		// Content before the first section header is source metadata.
		if current == "" {
			continue
		}

		if strings.EqualFold(current, mitmSection) {
			m.addHostnames(line)
			continue
		}

		if matchesAny(strings.ToLower(line), lowered) {
			continue
		}
		if !m.seenLines[line] {
			m.seenLines[line] = true
			m.sections[current] = append(m.sections[current], line)
		}
	}
}

// addHostnames extracts hosts from a MITM hostname line.
func (m *Merger) addHostnames(line string) {
	match := mitmHostnameRe.FindStringSubmatch(line)
	if match == nil {
		return
	}
	rest := strings.TrimSpace(strings.ReplaceAll(match[1], appendMarker, ""))
	for _, host := range strings.Split(rest, ",") {
		host = strings.TrimSpace(host)
		if host == "" || m.seenHosts[host] {
			continue
		}
		m.seenHosts[host] = true
		m.mitmHosts = append(m.mitmHosts, host)
	}
}

// LineCount returns the number of merged non-MITM lines.
func (m *Merger) LineCount() int {
	total := 0
	for _, lines := range m.sections {
		total += len(lines)
	}
	return total
}

// HostCount returns the number of collected MITM hostnames.
func (m *Merger) HostCount() int {
	return len(m.mitmHosts)
}

// Render produces the merged module text. The optional name and desc become
// #!name= / #!desc= header directives; sections follow in first-seen order
// and [MITM] is emitted last as a single %APPEND% hostname line.
func (m *Merger) Render(name, desc string) string {
	var out []string

	if name != "" {
		out = append(out, "#!name="+name)
	}
	if desc != "" {
		out = append(out, "#!desc="+desc)
	}
	if len(out) > 0 {
		out = append(out, "")
	}

	for _, section := range m.sectionOrder {
		lines := m.sections[section]
		if len(lines) == 0 {
			continue
		}
		out = append(out, "["+section+"]")
		out = append(out, lines...)
		out = append(out, "")
	}

	if len(m.mitmHosts) > 0 {
		out = append(out, "["+mitmSection+"]")
		out = append(out, fmt.Sprintf("hostname = %s %s", appendMarker, strings.Join(m.mitmHosts, ", ")))
		out = append(out, "")
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	return strings.Join(out, "\n") + "\n"
}

// WriteFile renders the merged module and writes it to path, creating the
// parent directory if needed.
func (m *Merger) WriteFile(path, name, desc string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(m.Render(name, desc)), 0644); err != nil {
		return fmt.Errorf("writing merged module to %s: %w", path, err)
	}
	return nil
}

// isComment reports whether a stripped line is a comment.
func isComment(stripped string) bool {
	for _, prefix := range commentPrefixes {
		if strings.HasPrefix(stripped, prefix) {
			return true
		}
	}
	return false
}

// matchesAny reports whether line contains any of the (lowercased) tokens.
func matchesAny(line string, tokens []string) bool {
	for _, tok := range tokens {
		if tok != "" && strings.Contains(line, tok) {
			return true
		}
	}
	return false
}

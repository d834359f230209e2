package aggregate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleModuleA = `#!name=Source A
#!desc=first source

[Rule]
DOMAIN-SUFFIX,ads.example.com,REJECT
DOMAIN-SUFFIX,track.example.com,REJECT

[URL Rewrite]
^https?://example\.com/ad - reject

[MITM]
hostname = %APPEND% example.com, api.example.com
`

const sampleModuleB = `// second source
; with odd comments

[Rule]
DOMAIN-SUFFIX,ads.example.com,REJECT
DOMAIN-SUFFIX,spam.example.net,REJECT

[Script]
matcher = type=http-response,pattern=^https://api\.example\.com

[MITM]
hostname = api.example.com, cdn.example.net
`

func TestMergerSectionOrderAndDedupe(t *testing.T) {
	merger := NewMerger()
	merger.Add(sampleModuleA, nil)
	merger.Add(sampleModuleB, nil)

	rendered := merger.Render("", "")

	// Sections appear in first-seen order.
	ruleIdx := strings.Index(rendered, "[Rule]")
	rewriteIdx := strings.Index(rendered, "[URL Rewrite]")
	scriptIdx := strings.Index(rendered, "[Script]")
	mitmIdx := strings.Index(rendered, "[MITM]")
	if ruleIdx == -1 || rewriteIdx == -1 || scriptIdx == -1 || mitmIdx == -1 {
		t.Fatalf("missing sections in rendered output:\n%s", rendered)
	}
	if !(ruleIdx < rewriteIdx && rewriteIdx < scriptIdx && scriptIdx < mitmIdx) {
		t.Errorf("sections out of order (MITM must be last):\n%s", rendered)
	}

	// The duplicate rule from source B is dropped.
	if got := strings.Count(rendered, "DOMAIN-SUFFIX,ads.example.com,REJECT"); got != 1 {
		t.Errorf("duplicate line appears %d times, want 1", got)
	}

	if merger.LineCount() != 5 {
		t.Errorf("LineCount() = %d, want 5", merger.LineCount())
	}
}

func TestMergerMITMHostnames(t *testing.T) {
	merger := NewMerger()
	merger.Add(sampleModuleA, nil)
	merger.Add(sampleModuleB, nil)

	if merger.HostCount() != 3 {
		t.Errorf("HostCount() = %d, want 3", merger.HostCount())
	}

	rendered := merger.Render("", "")

	// A single hostname line with %APPEND%, hosts deduped in first-seen order.
	wantHostLine := "hostname = %APPEND% example.com, api.example.com, cdn.example.net"
	if !strings.Contains(rendered, wantHostLine) {
		t.Errorf("rendered output missing %q:\n%s", wantHostLine, rendered)
	}
	if got := strings.Count(rendered, "hostname ="); got != 1 {
		t.Errorf("rendered output has %d hostname lines, want 1", got)
	}
}

func TestMergerDropTokens(t *testing.T) {
	merger := NewMerger()
	merger.Add(sampleModuleA, []string{"TRACK"})

	rendered := merger.Render("", "")
	if strings.Contains(rendered, "track.example.com") {
		t.Errorf("drop token did not filter line (match must be case-insensitive):\n%s", rendered)
	}
	if !strings.Contains(rendered, "ads.example.com") {
		t.Errorf("unrelated line was filtered:\n%s", rendered)
	}
}

func TestMergerDropTokensIgnoredForMITM(t *testing.T) {
	merger := NewMerger()
	merger.Add(sampleModuleA, []string{"example.com"})

	rendered := merger.Render("", "")
	if !strings.Contains(rendered, "hostname = %APPEND% example.com") {
		t.Errorf("drop tokens must not apply to MITM hostnames:\n%s", rendered)
	}
}

func TestMergerSkipsPreambleAndComments(t *testing.T) {
	merger := NewMerger()
	merger.Add("\ufeffstray preamble line\n# comment\n[Rule]\n# another\nDOMAIN,x.com,REJECT\n", nil)

	rendered := merger.Render("", "")
	if strings.Contains(rendered, "stray preamble") {
		t.Errorf("preamble before first section leaked into output:\n%s", rendered)
	}
	if strings.Contains(rendered, "# comment") || strings.Contains(rendered, "# another") {
		t.Errorf("comment lines leaked into output:\n%s", rendered)
	}
	if !strings.Contains(rendered, "DOMAIN,x.com,REJECT") {
		t.Errorf("rule line missing from output:\n%s", rendered)
	}
}

func TestRenderHeader(t *testing.T) {
	merger := NewMerger()
	merger.Add(sampleModuleA, nil)

	rendered := merger.Render("My Merge", "all the rules")
	lines := strings.Split(rendered, "\n")
	if lines[0] != "#!name=My Merge" {
		t.Errorf("lines[0] = %q, want %q", lines[0], "#!name=My Merge")
	}
	if lines[1] != "#!desc=all the rules" {
		t.Errorf("lines[1] = %q, want %q", lines[1], "#!desc=all the rules")
	}
	if lines[2] != "" {
		t.Errorf("lines[2] = %q, want blank separator", lines[2])
	}
	if !strings.HasSuffix(rendered, "\n") {
		t.Error("rendered output must end with a newline")
	}
	if strings.HasSuffix(rendered, "\n\n") {
		t.Error("rendered output must not end with a blank line")
	}
}

func TestRenderOmitsEmptyHeader(t *testing.T) {
	merger := NewMerger()
	merger.Add(sampleModuleA, nil)

	rendered := merger.Render("", "")
	if strings.Contains(rendered, "#!name=") || strings.Contains(rendered, "#!desc=") {
		t.Errorf("empty name/desc must not produce header directives:\n%s", rendered)
	}
	if !strings.HasPrefix(rendered, "[Rule]") {
		t.Errorf("output without header must start at the first section:\n%s", rendered)
	}
}

func TestWriteFileCreatesParentDir(t *testing.T) {
	merger := NewMerger()
	merger.Add(sampleModuleA, nil)

	path := filepath.Join(t.TempDir(), "out", "nested", "merged.sgmodule")
	if err := merger.WriteFile(path, "n", "d"); err != nil {
		t.Fatalf("WriteFile() error = %v, want nil", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(data) != merger.Render("n", "d") {
		t.Error("written file differs from rendered output")
	}
}

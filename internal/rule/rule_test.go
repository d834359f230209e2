package rule

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// writeRuleFile writes content to a temp rule.yml and returns its path.
func writeRuleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rule.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing rule file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeRuleFile(t, `
name: My Module
desc: merged rules
rules:
  - url: https://example.com/a.sgmodule
    drop: "token1, token2"
  - url: https://example.com/b.sgmodule
`)

	result, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	file := result.File
	if file.Name != "My Module" {
		t.Errorf("Name = %q, want %q", file.Name, "My Module")
	}
	if file.Desc != "merged rules" {
		t.Errorf("Desc = %q, want %q", file.Desc, "merged rules")
	}
	if len(file.Rules) != 2 {
		t.Fatalf("len(Rules) = %d, want 2", len(file.Rules))
	}
	if file.Rules[0].URL != "https://example.com/a.sgmodule" {
		t.Errorf("Rules[0].URL = %q", file.Rules[0].URL)
	}
	if file.Rules[0].Drop != "token1, token2" {
		t.Errorf("Rules[0].Drop = %q", file.Rules[0].Drop)
	}
	if result.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", result.Skipped)
	}
}

func TestLoadSkipsEntriesWithoutURL(t *testing.T) {
	path := writeRuleFile(t, `
rules:
  - drop: "orphan"
  - url: https://example.com/a.sgmodule
`)

	result, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if len(result.File.Rules) != 1 {
		t.Errorf("len(Rules) = %d, want 1", len(result.File.Rules))
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("Load() error = %v, want not-found error", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeRuleFile(t, "rules: [\n")
		if _, err := Load(path); err == nil {
			t.Error("Load() error = nil, want parse error")
		}
	})

	t.Run("no valid rules", func(t *testing.T) {
		path := writeRuleFile(t, "rules:\n  - drop: x\n")
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), "no valid rules") {
			t.Errorf("Load() error = %v, want no-valid-rules error", err)
		}
	})

	t.Run("empty rules list", func(t *testing.T) {
		path := writeRuleFile(t, "name: empty\n")
		if _, err := Load(path); err == nil {
			t.Error("Load() error = nil, want error for empty rules")
		}
	})
}

func TestDropTokens(t *testing.T) {
	tests := []struct {
		name string
		drop string
		want []string
	}{
		{"empty", "", nil},
		{"comma separated", "a,b,c", []string{"a", "b", "c"}},
		{"comma and spaces", "a, b,  c", []string{"a", "b", "c"}},
		{"whitespace separated", "a b\tc", []string{"a", "b", "c"}},
		{"mixed separators", "a, b c,,d", []string{"a", "b", "c", "d"}},
		{"only separators", " , ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Entry{Drop: tt.drop}.DropTokens()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DropTokens(%q) = %v, want %v", tt.drop, got, tt.want)
			}
		})
	}
}

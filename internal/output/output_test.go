package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestPrinterSuccess(t *testing.T) {
	t.Run("json mode", func(t *testing.T) {
		var buf bytes.Buffer
		printer := NewPrinter(&buf, true, false)

		if err := printer.Success(map[string]any{"message": "done", "count": 3}); err != nil {
			t.Fatalf("Success() error = %v", err)
		}

		var got map[string]any
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
		}
		if got["message"] != "done" {
			t.Errorf("message = %v, want done", got["message"])
		}
	})

	t.Run("human mode with message", func(t *testing.T) {
		var buf bytes.Buffer
		printer := NewPrinter(&buf, false, false)

		if err := printer.Success(map[string]any{"message": "done"}); err != nil {
			t.Fatalf("Success() error = %v", err)
		}
		if got := buf.String(); got != "done\n" {
			t.Errorf("output = %q, want %q", got, "done\n")
		}
	})
}

func TestPrinterError(t *testing.T) {
	t.Run("json mode includes code", func(t *testing.T) {
		var buf bytes.Buffer
		printer := NewPrinter(&buf, true, false)

		printer.Error(NewSystemError("it broke"))

		var got map[string]any
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if got["error"] != "it broke" {
			t.Errorf("error = %v, want %q", got["error"], "it broke")
		}
		if got["code"] != float64(ExitSystemError) {
			t.Errorf("code = %v, want %d", got["code"], ExitSystemError)
		}
	})

	t.Run("human mode goes to stderr writer", func(t *testing.T) {
		var out, errOut bytes.Buffer
		printer := NewPrinter(&out, false, false).WithStderr(&errOut)

		printer.Error(NewUserError("bad flag"))

		if out.Len() != 0 {
			t.Errorf("stdout = %q, want empty", out.String())
		}
		if !strings.Contains(errOut.String(), "bad flag") {
			t.Errorf("stderr = %q, want message", errOut.String())
		}
	})

	t.Run("untyped error defaults to user error", func(t *testing.T) {
		var buf bytes.Buffer
		printer := NewPrinter(&buf, true, false)

		printer.Error(errors.New("plain"))

		var got map[string]any
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if got["code"] != float64(ExitUserError) {
			t.Errorf("code = %v, want %d", got["code"], ExitUserError)
		}
	})
}

func TestPrinterWarnAndStderr(t *testing.T) {
	var out, errOut bytes.Buffer
	printer := NewPrinter(&out, false, false).WithStderr(&errOut)

	printer.Warn("attempt %d failed", 2)
	printer.Stderr("retrying\n")

	if !strings.Contains(errOut.String(), "attempt 2 failed") {
		t.Errorf("stderr = %q, want warning", errOut.String())
	}
	if !strings.Contains(errOut.String(), "retrying") {
		t.Errorf("stderr = %q, want progress line", errOut.String())
	}
	if out.Len() != 0 {
		t.Errorf("stdout = %q, want empty", out.String())
	}
}

func TestPrinterStderrSilentInJSONMode(t *testing.T) {
	var out, errOut bytes.Buffer
	printer := NewPrinter(&out, true, false).WithStderr(&errOut)

	printer.Stderr("progress\n")

	if errOut.Len() != 0 || out.Len() != 0 {
		t.Error("Stderr() must be a no-op in JSON mode")
	}
}

func TestPrinterTable(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(&buf, false, false)

	printer.Table([]string{"URL", "DROP"}, [][]string{
		{"https://a.example", "ads"},
		{"https://b.example", ""},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("table has %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "URL") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "https://a.example  ads") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},
		{"user error", NewUserError("bad"), ExitUserError},
		{"system error", NewSystemError("broke"), ExitSystemError},
		{"conflict error", NewConflictError("locked"), ExitConflict},
		{"untyped error", errors.New("oops"), ExitUserError},
		{"wrapped exit error", NewSystemErrorWithCause("outer", errors.New("inner")), ExitSystemError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveColorMode(t *testing.T) {
	tests := []struct {
		mode  string
		isTTY bool
		want  bool
	}{
		{"never", true, false},
		{"always", false, true},
		{"auto", true, true},
		{"auto", false, false},
		{"", true, true},
	}

	for _, tt := range tests {
		if got := ResolveColorMode(tt.mode, tt.isTTY); got != tt.want {
			t.Errorf("ResolveColorMode(%q, %v) = %v, want %v", tt.mode, tt.isTTY, got, tt.want)
		}
	}
}

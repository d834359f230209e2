package aggregate

import (
	"context"
	"fmt"

	"github.com/sgmodkit/sgsync/internal/rule"
)

// Default header values used when neither the CLI nor the rule file supply
// name/desc.
const (
	DefaultName = "Aggregated Module"
	DefaultDesc = "Auto-generated by sgsync"
)

// Options configures an aggregation run.
type Options struct {
	RulePath   string
	OutputPath string

	// Name and Desc override the rule file's top-level values when set.
	Name string
	Desc string
}

// Result summarizes an aggregation run.
type Result struct {
	Sources   int // rule entries attempted
	Fetched   int // sources downloaded successfully
	Skipped   int // sources that failed after retries
	Lines     int // merged non-MITM lines
	Hostnames int // merged MITM hostnames
}

// Reporter receives per-source progress. The CLI prints it; the MCP tool
// discards it.
type Reporter interface {
	SourceStart(index, total int, url string)
	SourceSkipped(url string, err error)
}

// nopReporter discards all progress.
type nopReporter struct{}

func (nopReporter) SourceStart(int, int, string) {}
func (nopReporter) SourceSkipped(string, error) {}

// Run loads the rule file, fetches every source, merges them, and writes
// the output artifact. A source that fails after the fetcher's retries is
// skipped; only a rule file problem, a fully-empty fetch set, or a write
// failure is fatal.
func Run(ctx context.Context, opts Options, fetcher *Fetcher, reporter Reporter) (Result, error) {
	if reporter == nil {
		reporter = nopReporter{}
	}

	loaded, err := rule.Load(opts.RulePath)
	if err != nil {
		return Result{}, err
	}

	name := opts.Name
	if name == "" {
		name = loaded.File.Name
	}
	if name == "" {
		name = DefaultName
	}
	desc := opts.Desc
	if desc == "" {
		desc = loaded.File.Desc
	}
	if desc == "" {
		desc = DefaultDesc
	}

	merger := NewMerger()
	result := Result{Sources: len(loaded.File.Rules)}

	for idx, entry := range loaded.File.Rules {
		reporter.SourceStart(idx+1, len(loaded.File.Rules), entry.URL)

		content, fetchErr := fetcher.Fetch(ctx, entry.URL)
		if fetchErr != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Skipped++
			reporter.SourceSkipped(entry.URL, fetchErr)
			continue
		}

		result.Fetched++
		merger.Add(content, entry.DropTokens())
	}

	if result.Fetched == 0 {
		return result, fmt.Errorf("all %d sources failed to download", result.Sources)
	}

	if err := merger.WriteFile(opts.OutputPath, name, desc); err != nil {
		return result, err
	}

	result.Lines = merger.LineCount()
	result.Hostnames = merger.HostCount()
	return result, nil
}

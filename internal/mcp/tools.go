package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sgmodkit/sgsync/internal/aggregate"
	"github.com/sgmodkit/sgsync/internal/config"
	"github.com/sgmodkit/sgsync/internal/git"
	"github.com/sgmodkit/sgsync/internal/rule"
)

// defaultRulePath and defaultOutputPath mirror the CLI flag defaults.
const (
	defaultRulePath   = "rule.yml"
	defaultOutputPath = "merged.sgmodule"
)

// --- Status tool ---

// StatusInput is the input for the status tool.
type StatusInput struct {
	Input  string `json:"input,omitempty"  jsonschema:"rule file path (default rule.yml)"`
	Output string `json:"output,omitempty" jsonschema:"output artifact path (default merged.sgmodule)"`
}

// StatusOutput is the output for the status tool.
type StatusOutput struct {
	Repo          string `json:"repo"                  jsonschema:"repository name"`
	Branch        string `json:"branch"                jsonschema:"current branch"`
	Head          string `json:"head"                  jsonschema:"HEAD commit SHA"`
	RuleCount     int    `json:"rule_count"            jsonschema:"number of valid rule sources"`
	OutputExists  bool   `json:"output_exists"         jsonschema:"whether the artifact file exists"`
	OutputChanged bool   `json:"output_changed"        jsonschema:"whether the artifact differs from its last committed state"`
	LastCommit    string `json:"last_commit,omitempty" jsonschema:"short SHA and subject of the artifact's last commit"`
}

func handleStatus(repoRoot string) mcp.ToolHandlerFor[StatusInput, StatusOutput] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
		rulePath := orDefault(input.Input, defaultRulePath)
		outputPath := orDefault(input.Output, defaultOutputPath)

		client := &git.Client{Dir: repoRoot}
		root, err := client.RepoRoot()
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("getting repo root: %w", err)
		}
		rooted := &git.Client{Dir: root}

		branch, err := rooted.CurrentBranch()
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("getting current branch: %w", err)
		}
		head, err := rooted.HEAD()
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("getting HEAD: %w", err)
		}

		out := StatusOutput{
			Repo:   filepath.Base(root),
			Branch: branch,
			Head:   head,
		}

		if loaded, loadErr := rule.Load(filepath.Join(root, rulePath)); loadErr == nil {
			out.RuleCount = len(loaded.File.Rules)
		}
		if _, statErr := os.Stat(filepath.Join(root, outputPath)); statErr == nil {
			out.OutputExists = true
		}

		changed, err := rooted.FileChanged(outputPath)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("diffing %s: %w", outputPath, err)
		}
		out.OutputChanged = changed

		if sha, subject := rooted.LastCommitFor(outputPath); sha != "" {
			out.LastCommit = sha + " " + subject
		}

		return nil, out, nil
	}
}

// --- Rules tool ---

// RulesInput is the input for the rules tool.
type RulesInput struct {
	Input string `json:"input,omitempty" jsonschema:"rule file path (default rule.yml)"`
}

// RuleSource is one validated rule entry.
type RuleSource struct {
	URL  string   `json:"url"            jsonschema:"source URL"`
	Drop []string `json:"drop,omitempty" jsonschema:"filter tokens applied to this source"`
}

// RulesOutput is the output for the rules tool.
type RulesOutput struct {
	Name    string       `json:"name,omitempty" jsonschema:"module display name from the rule file"`
	Desc    string       `json:"desc,omitempty" jsonschema:"module description from the rule file"`
	Rules   []RuleSource `json:"rules"          jsonschema:"validated rule sources"`
	Skipped int          `json:"skipped"        jsonschema:"entries skipped for missing url"`
}

func handleRules(repoRoot string) mcp.ToolHandlerFor[RulesInput, RulesOutput] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input RulesInput) (*mcp.CallToolResult, RulesOutput, error) {
		rulePath := filepath.Join(repoRoot, orDefault(input.Input, defaultRulePath))

		loaded, err := rule.Load(rulePath)
		if err != nil {
			return nil, RulesOutput{}, fmt.Errorf("loading rule file: %w", err)
		}

		out := RulesOutput{
			Name:    loaded.File.Name,
			Desc:    loaded.File.Desc,
			Skipped: loaded.Skipped,
		}
		for _, entry := range loaded.File.Rules {
			out.Rules = append(out.Rules, RuleSource{URL: entry.URL, Drop: entry.DropTokens()})
		}

		return nil, out, nil
	}
}

// --- Aggregate tool ---

// AggregateInput is the input for the aggregate tool.
type AggregateInput struct {
	Input  string `json:"input,omitempty"  jsonschema:"rule file path (default rule.yml)"`
	Output string `json:"output,omitempty" jsonschema:"output artifact path (default merged.sgmodule)"`
	Name   string `json:"name,omitempty"   jsonschema:"module display name for the #!name= header"`
	Desc   string `json:"desc,omitempty"   jsonschema:"module description for the #!desc= header"`
}

// AggregateOutput is the output for the aggregate tool.
type AggregateOutput struct {
	Output    string `json:"output"    jsonschema:"path of the written artifact"`
	Sources   int    `json:"sources"   jsonschema:"rule sources attempted"`
	Fetched   int    `json:"fetched"   jsonschema:"sources downloaded successfully"`
	Skipped   int    `json:"skipped"   jsonschema:"sources skipped after failed downloads"`
	Lines     int    `json:"lines"     jsonschema:"merged non-MITM lines"`
	Hostnames int    `json:"hostnames" jsonschema:"merged MITM hostnames"`
}

func handleAggregate(repoRoot string) mcp.ToolHandlerFor[AggregateInput, AggregateOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AggregateInput) (*mcp.CallToolResult, AggregateOutput, error) {
		outputPath := orDefault(input.Output, defaultOutputPath)
		settings := config.Defaults()

		fetcher := aggregate.NewFetcher(
			settings.Timeout,
			aggregate.WithRetries(settings.Retries),
			aggregate.WithBackoff(settings.Backoff),
		)

		result, err := aggregate.Run(ctx, aggregate.Options{
			RulePath:   filepath.Join(repoRoot, orDefault(input.Input, defaultRulePath)),
			OutputPath: filepath.Join(repoRoot, outputPath),
			Name:       input.Name,
			Desc:       input.Desc,
		}, fetcher, nil)
		if err != nil {
			return nil, AggregateOutput{}, fmt.Errorf("aggregating: %w", err)
		}

		return nil, AggregateOutput{
			Output:    outputPath,
			Sources:   result.Sources,
			Fetched:   result.Fetched,
			Skipped:   result.Skipped,
			Lines:     result.Lines,
			Hostnames: result.Hostnames,
		}, nil
	}
}

// orDefault returns value, or fallback when value is empty.
func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

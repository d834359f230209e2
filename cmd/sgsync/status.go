// Package main provides the entry point for the sgsync CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sgmodkit/sgsync/internal/git"
	"github.com/sgmodkit/sgsync/internal/output"
	"github.com/sgmodkit/sgsync/internal/rule"
)

// statusResult holds the data for status output.
type statusResult struct {
	Repo          string `json:"repo"`
	Branch        string `json:"branch"`
	Head          string `json:"head"`
	RuleFile      string `json:"rule_file"`
	RuleCount     int    `json:"rule_count"`
	RulesSkipped  int    `json:"rules_skipped,omitempty"`
	Output        string `json:"output"`
	OutputExists  bool   `json:"output_exists"`
	OutputSize    int64  `json:"output_size,omitempty"`
	OutputChanged bool   `json:"output_changed"`
	LastCommit    string `json:"last_commit,omitempty"`
}

// newStatusCmd creates the status command.
func newStatusCmd() *cobra.Command {
	var inputFlag string
	var outputFlag string
	var repoFlag string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show repository and pipeline state",
		Long: `Show the current state of the repository and the aggregation pipeline.

Displays repository info (name, branch, HEAD), the rule file and its source
count, and whether the output artifact differs from its last committed state.

Examples:
  sgsync status            # Show human-readable status
  sgsync status --json     # Output status as JSON for scripting`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, inputFlag, outputFlag, repoFlag)
		},
	}

	cmd.Flags().StringVarP(&inputFlag, "input", "i", "rule.yml", "Rule file path, relative to the repository root")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "merged.sgmodule", "Output artifact path, relative to the repository root")
	cmd.Flags().StringVar(&repoFlag, "repo", ".", "Repository root to operate in")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, inputFlag, outputFlag, repoFlag string) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd)).
		WithStderr(cmd.ErrOrStderr())

	client := &git.Client{Dir: repoFlag}
	if !client.IsRepo() {
		err := output.NewSystemError("not in a git repository: " + repoFlag)
		printer.Error(err)
		return err
	}

	result, err := gatherStatus(client, inputFlag, outputFlag)
	if err != nil {
		printer.Error(err)
		return err
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"repo":           result.Repo,
			"branch":         result.Branch,
			"head":           result.Head,
			"rule_file":      result.RuleFile,
			"rule_count":     result.RuleCount,
			"rules_skipped":  result.RulesSkipped,
			"output":         result.Output,
			"output_exists":  result.OutputExists,
			"output_size":    result.OutputSize,
			"output_changed": result.OutputChanged,
			"last_commit":    result.LastCommit,
		})
	}

	printHumanStatus(printer, result)
	return nil
}

// gatherStatus collects all status information.
func gatherStatus(client *git.Client, inputFlag, outputFlag string) (*statusResult, error) {
	root, err := client.RepoRoot()
	if err != nil {
		return nil, err
	}
	rooted := &git.Client{Dir: root}

	branch, err := rooted.CurrentBranch()
	if err != nil {
		return nil, err
	}
	head, err := rooted.HEAD()
	if err != nil {
		return nil, err
	}

	result := &statusResult{
		Repo:     filepath.Base(root),
		Branch:   branch,
		Head:     head,
		RuleFile: inputFlag,
		Output:   outputFlag,
	}

	// Rule file problems are reported in the status, not fatal.
	if loaded, loadErr := rule.Load(filepath.Join(root, inputFlag)); loadErr == nil {
		result.RuleCount = len(loaded.File.Rules)
		result.RulesSkipped = loaded.Skipped
	}

	if info, statErr := os.Stat(filepath.Join(root, outputFlag)); statErr == nil {
		result.OutputExists = true
		result.OutputSize = info.Size()
	}

	changed, err := rooted.FileChanged(outputFlag)
	if err != nil {
		return nil, err
	}
	result.OutputChanged = changed

	if sha, subject := rooted.LastCommitFor(outputFlag); sha != "" {
		result.LastCommit = sha + " " + subject
	}

	return result, nil
}

// printHumanStatus outputs status in human-readable format.
func printHumanStatus(printer *output.Printer, status *statusResult) {
	printer.Section("Repository")
	printer.KeyValue("Repo", status.Repo)
	printer.KeyValue("Branch", status.Branch)
	printer.KeyValue("HEAD", status.Head[:min(12, len(status.Head))])

	printer.Section("Pipeline")
	printer.KeyValue("Rule file", status.RuleFile)
	if status.RuleCount > 0 {
		rules := strconv.Itoa(status.RuleCount)
		if status.RulesSkipped > 0 {
			rules += fmt.Sprintf(" (%d skipped)", status.RulesSkipped)
		}
		printer.KeyValue("Sources", rules)
	} else {
		printer.KeyValue("Sources", "unreadable rule file")
	}

	printer.Section("Artifact")
	printer.KeyValue("Output", status.Output)
	printer.KeyValue("Exists", formatBool(status.OutputExists))
	if status.OutputExists {
		printer.KeyValue("Size", strconv.FormatInt(status.OutputSize, 10)+" bytes")
	}
	printer.KeyValue("Uncommitted changes", formatBool(status.OutputChanged))
	if status.LastCommit != "" {
		printer.KeyValue("Last commit", status.LastCommit)
	}
}

// formatBool returns a human-readable boolean string.
func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Package main provides the entry point for the sgsync CLI.
package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sgmodkit/sgsync/internal/output"
	"github.com/sgmodkit/sgsync/internal/rule"
)

// newRulesCmd creates the rules command.
func newRulesCmd() *cobra.Command {
	var inputFlag string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Validate and list the rule file's sources",
		Long: `Parse the rule file and list every valid source with its drop tokens.

Entries without a url are reported as skipped. A rule file with no valid
entries fails validation.

Examples:
  sgsync rules                   # list sources from rule.yml
  sgsync rules -i rules/ads.yml  # list a specific rule file
  sgsync rules --json            # structured output`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRules(cmd, inputFlag)
		},
	}

	cmd.Flags().StringVarP(&inputFlag, "input", "i", "rule.yml", "Rule file path")

	return cmd
}

// runRules executes the rules command.
func runRules(cmd *cobra.Command, inputFlag string) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd)).
		WithStderr(cmd.ErrOrStderr())

	loaded, err := rule.Load(inputFlag)
	if err != nil {
		userErr := output.NewUserError(err.Error())
		printer.Error(userErr)
		return userErr
	}

	if printer.IsJSON() {
		entries := make([]map[string]any, 0, len(loaded.File.Rules))
		for _, entry := range loaded.File.Rules {
			entries = append(entries, map[string]any{
				"url":  entry.URL,
				"drop": entry.DropTokens(),
			})
		}
		return printer.Success(map[string]any{
			"name":    loaded.File.Name,
			"desc":    loaded.File.Desc,
			"rules":   entries,
			"skipped": loaded.Skipped,
		})
	}

	if loaded.File.Name != "" {
		printer.KeyValue("Name", loaded.File.Name)
	}
	if loaded.File.Desc != "" {
		printer.KeyValue("Desc", loaded.File.Desc)
	}
	if loaded.File.Name != "" || loaded.File.Desc != "" {
		printer.Println()
	}

	rows := make([][]string, 0, len(loaded.File.Rules))
	for _, entry := range loaded.File.Rules {
		rows = append(rows, []string{entry.URL, strings.Join(entry.DropTokens(), ", ")})
	}
	printer.Table([]string{"URL", "DROP"}, rows)

	if loaded.Skipped > 0 {
		printer.Warn("%d entries skipped (missing url)", loaded.Skipped)
	}
	return nil
}

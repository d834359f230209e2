// Package main provides the entry point for the sgsync CLI.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sgmodkit/sgsync/internal/aggregate"
	"github.com/sgmodkit/sgsync/internal/config"
	"github.com/sgmodkit/sgsync/internal/output"
)

// aggregateFlags holds all flag values for the aggregate command.
type aggregateFlags struct {
	input   string
	output  string
	name    string
	desc    string
	retries int
	timeout int
	backoff float64
}

// newAggregateCmd creates the aggregate command.
func newAggregateCmd() *cobra.Command {
	defaults := config.Defaults()
	var flags aggregateFlags

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Merge rule sources into a single module artifact",
		Long: `Download every source listed in the rule file and merge them into one
.sgmodule artifact.

Sections are merged in first-seen order with duplicate lines removed.
[MITM] hostnames are collected across sources and emitted as a single
%APPEND% hostname line. A source that fails to download (after retries)
is skipped with a warning; the run only fails when the rule file is
unusable or every source fails.

Examples:
  sgsync aggregate                          # rule.yml -> merged.sgmodule
  sgsync aggregate -i rules/ads.yml -o dist/ads.sgmodule
  sgsync aggregate --name "My Rules" --desc "nightly merge"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAggregate(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "rule.yml", "Rule file path")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "merged.sgmodule", "Output artifact path")
	cmd.Flags().StringVar(&flags.name, "name", "", "Module display name for the #!name= header")
	cmd.Flags().StringVar(&flags.desc, "desc", "", "Module description for the #!desc= header")
	cmd.Flags().IntVar(&flags.retries, "retries", defaults.Retries, "Download retries per source")
	cmd.Flags().IntVar(&flags.timeout, "timeout", int(defaults.Timeout/time.Second), "Per-download timeout in seconds")
	cmd.Flags().Float64Var(&flags.backoff, "backoff", defaults.Backoff, "Backoff multiplier between download retries")

	return cmd
}

// runAggregate executes the aggregate command.
func runAggregate(cmd *cobra.Command, flags aggregateFlags) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd)).
		WithStderr(cmd.ErrOrStderr())

	fetcher := aggregate.NewFetcher(
		time.Duration(flags.timeout)*time.Second,
		aggregate.WithRetries(flags.retries),
		aggregate.WithBackoff(flags.backoff),
	)

	result, err := aggregate.Run(cmd.Context(), aggregate.Options{
		RulePath:   flags.input,
		OutputPath: flags.output,
		Name:       flags.name,
		Desc:       flags.desc,
	}, fetcher, &printerReporter{printer: printer})
	if err != nil {
		userErr := output.NewUserError(err.Error())
		printer.Error(userErr)
		return userErr
	}

	return printer.Success(map[string]any{
		"message": formatAggregateSummary(result, flags.output),
		"output":  flags.output,
		"sources": result.Sources,
		"fetched": result.Fetched,
		"skipped": result.Skipped,
		"lines":   result.Lines,
		"mitm":    result.Hostnames,
	})
}

// formatAggregateSummary builds the human one-line summary.
func formatAggregateSummary(result aggregate.Result, outputPath string) string {
	return fmt.Sprintf("wrote %s (%d/%d sources, %d lines, %d MITM hostnames)",
		outputPath, result.Fetched, result.Sources, result.Lines, result.Hostnames)
}

// printerReporter streams per-source progress to stderr so it never
// pollutes piped stdout.
type printerReporter struct {
	printer *output.Printer
}

func (r *printerReporter) SourceStart(index, total int, url string) {
	r.printer.Stderr("[%d/%d] downloading %s\n", index, total, url)
}

func (r *printerReporter) SourceSkipped(url string, err error) {
	r.printer.Warn("skipping %s: %v", url, err)
}

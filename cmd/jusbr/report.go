package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/arturlm/jusbr/internal/database"
	"github.com/arturlm/jusbr/internal/report"
	"github.com/spf13/cobra"
)

// reportOpts selects the report format and destination.
type reportOpts struct {
	json     bool
	markdown bool
	output   string
	verbose  bool
}

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [query-id]",
		Short: "Print the report of a stored query",
		Long: `Report prints the crawl report of a query already stored in the
local database, without crawling anything.

Examples:
  # Plain text summary
  jusbr report 7b0e7e6e-9df0-43a4-8b4e-0a54d15f6a2b

  # JSON report with party and movement details
  jusbr report --json 7b0e7e6e-9df0-43a4-8b4e-0a54d15f6a2b

  # Markdown report written to a file
  jusbr report --markdown --output report.md 7b0e7e6e-9df0-43a4-8b4e-0a54d15f6a2b`,
		Args: cobra.ExactArgs(1),
		RunE: runReportCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to the given file path")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	opts, err := reportOptions(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	return writeQueryReport(cmd.Context(), cmd, store, args[0], opts)
}

// reportOptions reads the shared report flags.
func reportOptions(cmd *cobra.Command) (reportOpts, error) {
	opts := reportOpts{
		json:     getBoolFlag(cmd, "json"),
		markdown: getBoolFlag(cmd, "markdown"),
		output:   getStringFlag(cmd, "output"),
		verbose:  getBoolFlag(cmd, "verbose"),
	}
	if opts.json && opts.markdown {
		return reportOpts{}, errors.New("--json and --markdown are mutually exclusive")
	}
	return opts, nil
}

// formatWriter builds the writer for the selected format.
func (o reportOpts) formatWriter(w io.Writer) report.Writer {
	switch {
	case o.json:
		return report.NewJSONWriter(w, report.WithPrettyPrint())
	case o.markdown:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(o.verbose))
	}
}

// writeQueryReport builds the query report and writes it to stdout, or
// to the output file with a plain summary kept on stdout.
func writeQueryReport(ctx context.Context, cmd *cobra.Command, store *database.Store, queryID string, opts reportOpts) error {
	rep, err := report.Build(ctx, store, queryID)
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	if opts.output == "" {
		_, err = opts.formatWriter(stdout).Write(rep)
		return err
	}

	if dir := filepath.Dir(opts.output); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.Create(opts.output) //nolint:gosec // user-provided report path is intentional
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	w := report.NewMultiWriter(
		opts.formatWriter(f),
		report.NewSimpleWriter(stdout, report.WithVerbose(opts.verbose)),
	)
	if _, err := w.Write(rep); err != nil {
		return err
	}
	return f.Close()
}

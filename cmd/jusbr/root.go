package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the jusbr root command with all subcommands
// attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jusbr",
		Short: "Crawl judicial processes from the Brazilian federal courts",
		Long: `jusbr searches the public process portals of the six Brazilian
federal regional courts (TRF1-TRF6) by CPF, CNPJ or process number,
and stores the crawled process details in a local SQLite database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "verbose (debug) logging")
	cmd.PersistentFlags().StringP("config", "c", "", "path to a .jusbr.yml portal configuration file")
	cmd.PersistentFlags().String("data-dir", "", "directory for the crawl database (default: XDG data dir)")

	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewWorkerCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

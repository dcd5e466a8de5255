package main

import (
	"github.com/spf13/cobra"
	"github.com/streamingfast/cli"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tthrun",
	Short: "Plan and run ttH analysis jobs, then merge their histograms into datacards",
	Long: cli.Dedent(`
		Splits the samples of a catalog into jobs, runs them on the SLURM queue or
		through a local parallel make, merges the job histograms and prepares the
		datacards of the analysis.

		Any place where <catalog> is specified, a local YAML file or a gs://, s3://,
		az:// or file:// URL can be given.
	`),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level of the run (debug, info, warn, error)")
}

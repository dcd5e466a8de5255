package main

import (
	"github.com/spf13/cobra"
	"github.com/streamingfast/cli"
)

var planCmd = &cobra.Command{
	Use:   "plan <catalog>",
	Short: "Plan the jobs of a run and write their files, without running anything",
	Long: cli.Dedent(`
		Builds the job plan of the catalog samples selected by the run configuration
		and writes the job configurations, job scripts, Makefile or sbatch.sh and the
		datacard configuration under the output directory.
	`),
	Args: cobra.ExactArgs(1),
	RunE: planE,
}

func init() {
	addRunConfigFlags(planCmd.Flags())
	rootCmd.AddCommand(planCmd)
}

func planE(cmd *cobra.Command, args []string) error {
	l, plan, err := prepare(cmd.Context(), cmd, args[0])
	if err != nil {
		return err
	}

	printPlanSummary(cmd.OutOrStdout(), l, plan)
	return nil
}

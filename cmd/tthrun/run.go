package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/streamingfast/cli"
	"github.com/streamingfast/cli/sflags"
	"go.uber.org/zap"

	"github.com/tth-analysis/tthrun/dispatch"
	"github.com/tth-analysis/tthrun/layout"
	"github.com/tth-analysis/tthrun/metrics"
	"github.com/tth-analysis/tthrun/orchestrator"
)

var errInterrupted = errors.New("interrupted")

var runCmd = &cobra.Command{
	Use:   "run <catalog>",
	Short: "Plan the jobs of a run, execute them and prepare the datacards",
	Long: cli.Dedent(`
		Plans and writes the jobs like 'tthrun plan', then, once confirmed, submits
		them to the selected backend, waits for all of them, merges their histograms
		and prepares the datacards.

		An interrupt cancels the run; tasks already queued on SLURM are cancelled.
	`),
	Args: cobra.ExactArgs(1),
	RunE: runE,
}

func init() {
	addRunConfigFlags(runCmd.Flags())
	runCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation before running")
	runCmd.Flags().String("metrics-textfile", "", "When set, write the run metrics to this file in the prometheus textfile format")
	rootCmd.AddCommand(runCmd)
}

func runE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	l, plan, err := prepare(ctx, cmd, args[0])
	if err != nil {
		return err
	}
	printPlanSummary(cmd.OutOrStdout(), l, plan)

	if !sflags.MustGetBool(cmd, "yes") {
		confirmed, err := confirm(fmt.Sprintf("Run %s, hadder and prepareDatacards", l.Backend()))
		if err != nil {
			return err
		}
		if !confirmed {
			zlog.Info("run not confirmed, stopping after setup")
			return nil
		}
	}

	runner, err := dispatch.NewLogStreamsRunner(l)
	if err != nil {
		return err
	}
	defer runner.Close()
	runner.Quiet = func(command string) bool { return strings.HasPrefix(command, "squeue") }

	backend, err := dispatch.New(l, runner)
	if err != nil {
		return err
	}

	orch := orchestrator.New(l, backend, runner)
	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		select {
		case <-signalCtx.Done():
			zlog.Info("received interrupt, cancelling run")
			orch.Shutdown(errInterrupted)
		case <-orch.Terminating():
		}
	}()

	datacard, err := orch.Run(ctx, plan)
	writeMetrics(cmd, l)
	if err != nil {
		return fmt.Errorf("run %s: %w", orch.State().ID, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Datacards written to %s\n", datacard)
	return nil
}

func confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	_, err := prompt.Run()
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("confirmation: %w", err)
	}
	return true, nil
}

func writeMetrics(cmd *cobra.Command, l *layout.Layout) {
	path := sflags.MustGetString(cmd, "metrics-textfile")
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		zlog.Warn("unable to write metrics", zap.String("path", path), zap.String("output_dir", l.OutputDir()), zap.Error(err))
	}
}

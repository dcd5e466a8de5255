package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	tterrors "github.com/tth-analysis/tthrun/errors"
	"github.com/tth-analysis/tthrun/layout"
	"github.com/tth-analysis/tthrun/metrics"
	"github.com/tth-analysis/tthrun/work"
)

// LocalBackend runs every job of the generated Makefile with one make
// process, bounded to the layout's parallel job count.
type LocalBackend struct {
	layout *layout.Layout
	runner Runner
	*options
}

func NewLocalBackend(l *layout.Layout, runner Runner, opts ...Option) *LocalBackend {
	return &LocalBackend{layout: l, runner: runner, options: newOptions(opts)}
}

func (b *LocalBackend) Name() layout.BackendMode { return layout.BackendLocal }

func MakeCommand(l *layout.Layout) string {
	return fmt.Sprintf("make -f %s -j %d", l.MakefilePath(), l.ParallelJobs())
}

func (b *LocalBackend) command() string {
	if b.localCmd != nil {
		return b.localCmd(b.layout)
	}
	return MakeCommand(b.layout)
}

func (b *LocalBackend) Submit(ctx context.Context, jobs work.JobList) (*Submission, error) {
	proc, err := b.runner.Start(ctx, b.command())
	if err != nil {
		return nil, tterrors.NewBackendSubmission(string(layout.BackendLocal), "", err)
	}

	metrics.JobsSubmitted.AddInt(len(jobs))
	sub := &Submission{
		Backend:     layout.BackendLocal,
		JobIDs:      jobs.IDs(),
		SubmittedAt: b.clock.Now(),
		process:     proc,
	}
	zlog.Info("make started", zap.Object("submission", sub), zap.Int("parallel_jobs", b.layout.ParallelJobs()))
	return sub, nil
}

// AwaitCompletion blocks until make exits. The poll interval is unused.
func (b *LocalBackend) AwaitCompletion(ctx context.Context, sub *Submission, _ time.Duration) (*Outcome, error) {
	if sub.process == nil {
		return nil, fmt.Errorf("submission of %d jobs has no running process", len(sub.JobIDs))
	}

	res, err := sub.process.Wait()
	if err != nil {
		return nil, err
	}
	if !res.Succeeded() {
		return nil, &tterrors.ExternalCommandError{
			Stage:    "local backend",
			Command:  res.Command,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
		}
	}

	outcome := &Outcome{Polls: 1, Elapsed: b.clock.Since(sub.SubmittedAt)}
	zlog.Info("make finished", zap.Object("outcome", outcome))
	return outcome, nil
}

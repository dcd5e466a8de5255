package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	tterrors "github.com/tth-analysis/tthrun/errors"
	"github.com/tth-analysis/tthrun/layout"
	"github.com/tth-analysis/tthrun/metrics"
	"github.com/tth-analysis/tthrun/work"
)

// QueueBackend submits every job to SLURM with sbatch and polls squeue
// until none of the submitted tasks is listed anymore.
type QueueBackend struct {
	layout *layout.Layout
	runner Runner
	*options
}

func NewQueueBackend(l *layout.Layout, runner Runner, opts ...Option) *QueueBackend {
	return &QueueBackend{layout: l, runner: runner, options: newOptions(opts)}
}

func (b *QueueBackend) Name() layout.BackendMode { return layout.BackendQueue }

func (b *QueueBackend) Submit(ctx context.Context, jobs work.JobList) (*Submission, error) {
	sub := &Submission{
		Backend:     layout.BackendQueue,
		JobIDs:      jobs.IDs(),
		SubmittedAt: b.clock.Now(),
	}

	for _, job := range jobs {
		taskID, err := b.submitJob(ctx, job)
		if err != nil {
			b.revoke(sub)
			return nil, err
		}
		sub.TaskIDs = append(sub.TaskIDs, taskID)
		metrics.JobsSubmitted.Inc()
		zlog.Debug("job submitted", zap.String("job_id", job.ID()), zap.String("task_id", taskID))
	}

	zlog.Info("jobs submitted to the batch system", zap.Object("submission", sub))
	return sub, nil
}

func (b *QueueBackend) submitJob(ctx context.Context, job *work.Job) (string, error) {
	command := SubmitCommand(b.layout.QueueLogPattern(job.ID()), job.ScriptFile)
	res, err := b.runner.Run(ctx, command)
	if err != nil {
		return "", tterrors.NewBackendSubmission(string(layout.BackendQueue), job.ID(), err)
	}
	if !res.Succeeded() {
		return "", tterrors.NewBackendSubmission(string(layout.BackendQueue), job.ID(), &tterrors.ExternalCommandError{
			Stage:    "submit",
			Command:  command,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
		})
	}

	taskIDs := ParseTaskIDs(res.Stdout)
	if len(taskIDs) == 0 {
		return "", tterrors.NewBackendSubmission(string(layout.BackendQueue), job.ID(), fmt.Errorf("no task id in output %q", res.Stdout))
	}
	return taskIDs[len(taskIDs)-1], nil
}

func (b *QueueBackend) AwaitCompletion(ctx context.Context, sub *Submission, pollInterval time.Duration) (*Outcome, error) {
	if pollInterval <= 0 {
		return nil, tterrors.NewInvalidArgument("poll_interval", "must be positive, got %s", pollInterval)
	}

	outcome := &Outcome{}
	if len(sub.TaskIDs) == 0 {
		return outcome, nil
	}

	userName, err := b.userName()
	if err != nil {
		return nil, tterrors.NewBackendPoll(string(layout.BackendQueue), "", err)
	}
	command := PollCommand(userName, sub.TaskIDs)
	started := b.clock.Now()

	for {
		pending, err := b.poll(ctx, command)
		outcome.Polls++
		metrics.Polls.Inc()
		if err != nil {
			if ctx.Err() != nil {
				b.revoke(sub)
			}
			return nil, err
		}

		metrics.PendingJobs.SetUint64(uint64(pending))
		if pending == 0 {
			outcome.Elapsed = b.clock.Since(started)
			zlog.Info("all batch tasks finished", zap.Object("outcome", outcome))
			return outcome, nil
		}

		zlog.Info("waiting for batch tasks",
			zap.String("pending", humanize.Comma(int64(pending))),
			zap.String("submitted", humanize.RelTime(sub.SubmittedAt, b.clock.Now(), "ago", "from now")),
		)

		if err := b.sleeper.Sleep(ctx, pollInterval); err != nil {
			b.revoke(sub)
			return nil, fmt.Errorf("waiting on %d batch tasks: %w", pending, err)
		}
	}
}

func (b *QueueBackend) poll(ctx context.Context, command string) (int, error) {
	res, err := b.runner.Run(ctx, command)
	if err != nil {
		return 0, tterrors.NewBackendPoll(string(layout.BackendQueue), command, err)
	}
	if !res.Succeeded() {
		return 0, tterrors.NewBackendPoll(string(layout.BackendQueue), command, &tterrors.ExternalCommandError{
			Stage:    "poll",
			Command:  command,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
		})
	}

	pending, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		return 0, tterrors.NewBackendPoll(string(layout.BackendQueue), command, fmt.Errorf("pending count: %w", err))
	}
	return pending, nil
}

// revoke cancels the tasks already handed to the batch system. It runs on a
// fresh context since the run's one is usually done by then.
func (b *QueueBackend) revoke(sub *Submission) {
	if len(sub.TaskIDs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	command := CancelCommand(sub.TaskIDs)
	res, err := b.runner.Run(ctx, command)
	if err == nil && !res.Succeeded() {
		err = &tterrors.ExternalCommandError{Stage: "cancel", Command: command, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	if err != nil {
		zlog.Warn("unable to cancel batch tasks", zap.Strings("task_ids", sub.TaskIDs), zap.Error(err))
		return
	}
	zlog.Info("cancelled batch tasks", zap.Int("task_count", len(sub.TaskIDs)))
}

func (b *QueueBackend) userName() (string, error) {
	if b.user != "" {
		return b.user, nil
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username, nil
	}
	if name := os.Getenv("USER"); name != "" {
		return name, nil
	}
	return "", errors.New("unable to determine the current user")
}

func SubmitCommand(logPattern, script string) string {
	return fmt.Sprintf("sbatch --output=%s %s", logPattern, script)
}

// PollCommand counts the lines of squeue output mentioning any of the
// tasks.
func PollCommand(user string, taskIDs []string) string {
	return fmt.Sprintf(`squeue -u %s | grep "%s" | wc -l`, user, strings.Join(taskIDs, `\|`))
}

func CancelCommand(taskIDs []string) string {
	return "scancel " + strings.Join(taskIDs, " ")
}

// ParseTaskIDs returns the last whitespace separated token of each non-empty
// line of sbatch output.
func ParseTaskIDs(output string) (out []string) {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		out = append(out, fields[len(fields)-1])
	}
	return
}

package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tth-analysis/tthrun/catalog"
	tterrors "github.com/tth-analysis/tthrun/errors"
	"github.com/tth-analysis/tthrun/layout"
	"github.com/tth-analysis/tthrun/work"
)

func testLayout(t *testing.T, backend layout.BackendMode) *layout.Layout {
	t.Helper()
	cfg := layout.DefaultConfig()
	cfg.OutputDir = "/out"
	cfg.RunningMethod = string(backend)
	l, err := layout.Build(cfg)
	require.NoError(t, err)
	return l
}

func testJobs(t *testing.T, l *layout.Layout) work.JobList {
	t.Helper()
	cat := work.TestCatalog(work.TestSample("TTW", catalog.CategoryTTW, 50))
	plan, err := work.BuildNewPlan(cat, l, nil)
	require.NoError(t, err)
	require.Len(t, plan.Jobs, 2)
	return plan.Jobs
}

type recordingSleeper struct {
	sleeps []time.Duration
	err    error
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return s.err
}

func queueHandler(pendingCounts ...string) func(string) *Result {
	var taskID int64 = 4000
	var polls int64
	return func(command string) *Result {
		switch {
		case strings.HasPrefix(command, "sbatch"):
			return &Result{Stdout: fmt.Sprintf("Submitted batch job %d\n", atomic.AddInt64(&taskID, 1))}
		case strings.HasPrefix(command, "squeue"):
			idx := atomic.AddInt64(&polls, 1) - 1
			return &Result{Stdout: pendingCounts[idx]}
		}
		return nil
	}
}

func TestQueueBackend_SubmitAndAwait(t *testing.T) {
	l := testLayout(t, layout.BackendQueue)
	jobs := testJobs(t, l)

	runner := &StubRunner{Handler: queueHandler("2\n", "1\n", "0\n")}
	sleeper := &recordingSleeper{}
	b := NewQueueBackend(l, runner, WithSleeper(sleeper), WithUser("tester"), WithClock(clock.NewMock()))

	sub, err := b.Submit(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, []string{"4001", "4002"}, sub.TaskIDs)
	assert.Equal(t, []string{"TTW_0", "TTW_1"}, sub.JobIDs)

	outcome, err := b.AwaitCompletion(context.Background(), sub, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, outcome.Polls)
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second}, sleeper.sleeps)

	assert.Equal(t, []string{
		"sbatch --output=/out/logs/2lss_1tau_SS_Tight/TTW_0-%j.out /out/jobs/2lss_1tau_SS_Tight/TTW_0.sh",
		"sbatch --output=/out/logs/2lss_1tau_SS_Tight/TTW_1-%j.out /out/jobs/2lss_1tau_SS_Tight/TTW_1.sh",
		`squeue -u tester | grep "4001\|4002" | wc -l`,
		`squeue -u tester | grep "4001\|4002" | wc -l`,
		`squeue -u tester | grep "4001\|4002" | wc -l`,
	}, runner.Commands())
}

func TestQueueBackend_SubmitUnparsableOutput(t *testing.T) {
	l := testLayout(t, layout.BackendQueue)
	jobs := testJobs(t, l)

	calls := 0
	runner := &StubRunner{Handler: func(command string) *Result {
		if strings.HasPrefix(command, "sbatch") {
			calls++
			if calls == 1 {
				return &Result{Stdout: "Submitted batch job 77\n"}
			}
			return &Result{Stdout: "\n  \n"}
		}
		return nil
	}}
	b := NewQueueBackend(l, runner, WithSleeper(&recordingSleeper{}), WithUser("tester"))

	_, err := b.Submit(context.Background(), jobs)
	require.Error(t, err)

	var subErr *tterrors.BackendSubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "TTW_1", subErr.JobID)
	assert.Equal(t, []string{"scancel 77"}, runner.CommandsWithPrefix("scancel"))
}

func TestQueueBackend_SubmitCommandFailure(t *testing.T) {
	l := testLayout(t, layout.BackendQueue)
	jobs := testJobs(t, l)

	runner := &StubRunner{Handler: func(string) *Result {
		return &Result{ExitCode: 1, Stderr: "sbatch: error: invalid partition"}
	}}
	b := NewQueueBackend(l, runner, WithUser("tester"))

	_, err := b.Submit(context.Background(), jobs)
	var subErr *tterrors.BackendSubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "TTW_0", subErr.JobID)

	var cmdErr *tterrors.ExternalCommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Empty(t, runner.CommandsWithPrefix("scancel"))
}

func TestQueueBackend_PollFailures(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
	}{
		{"non integer count", &Result{Stdout: "squeue: error\n"}},
		{"non zero exit", &Result{ExitCode: 2, Stderr: "squeue: command not found"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			l := testLayout(t, layout.BackendQueue)
			runner := &StubRunner{Handler: func(command string) *Result {
				if strings.HasPrefix(command, "squeue") {
					return test.result
				}
				return nil
			}}
			b := NewQueueBackend(l, runner, WithSleeper(&recordingSleeper{}), WithUser("tester"))

			sub := &Submission{Backend: layout.BackendQueue, JobIDs: []string{"TTW_0"}, TaskIDs: []string{"12"}}
			_, err := b.AwaitCompletion(context.Background(), sub, time.Second)

			var pollErr *tterrors.BackendPollError
			require.ErrorAs(t, err, &pollErr)
			assert.Equal(t, `squeue -u tester | grep "12" | wc -l`, pollErr.Command)
		})
	}
}

func TestQueueBackend_CancelledWaitRevokesTasks(t *testing.T) {
	l := testLayout(t, layout.BackendQueue)
	runner := &StubRunner{Handler: queueHandler("2\n")}
	sleeper := &recordingSleeper{err: context.Canceled}
	b := NewQueueBackend(l, runner, WithSleeper(sleeper), WithUser("tester"))

	sub := &Submission{Backend: layout.BackendQueue, JobIDs: []string{"TTW_0", "TTW_1"}, TaskIDs: []string{"12", "13"}}
	_, err := b.AwaitCompletion(context.Background(), sub, time.Second)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"scancel 12 13"}, runner.CommandsWithPrefix("scancel"))
}

func TestQueueBackend_AwaitRejectsNonPositiveInterval(t *testing.T) {
	b := NewQueueBackend(testLayout(t, layout.BackendQueue), &StubRunner{})

	_, err := b.AwaitCompletion(context.Background(), &Submission{TaskIDs: []string{"1"}}, 0)
	var argErr *tterrors.InvalidArgumentError
	require.ErrorAs(t, err, &argErr)
}

func TestParseTaskIDs(t *testing.T) {
	tests := []struct {
		in     string
		expect []string
	}{
		{"Submitted batch job 12345\n", []string{"12345"}},
		{"Submitted batch job 1\n\nSubmitted batch job 2", []string{"1", "2"}},
		{"  \n\n", nil},
		{"", nil},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			assert.Equal(t, test.expect, ParseTaskIDs(test.in))
		})
	}
}

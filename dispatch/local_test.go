package dispatch

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tterrors "github.com/tth-analysis/tthrun/errors"
	"github.com/tth-analysis/tthrun/layout"
)

func TestMakeCommand(t *testing.T) {
	assert.Equal(t, "make -f /out/Makefile -j 10", MakeCommand(testLayout(t, layout.BackendLocal)))
}

func TestLocalBackend(t *testing.T) {
	tests := []struct {
		name        string
		command     string
		expectError bool
		expectCode  int
	}{
		{"success", "echo built", false, 0},
		{"failure", "echo 'make: *** [TTW_0] Error 1' >&2; exit 2", true, 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			l := testLayout(t, layout.BackendLocal)
			jobs := testJobs(t, l)

			var stdout, stderr bytes.Buffer
			runner := NewShellRunner(&stdout, &stderr)
			b := NewLocalBackend(l, runner, WithLocalCommand(func(*layout.Layout) string { return test.command }))

			sub, err := b.Submit(context.Background(), jobs)
			require.NoError(t, err)
			assert.Equal(t, []string{"TTW_0", "TTW_1"}, sub.JobIDs)
			assert.Empty(t, sub.TaskIDs)

			outcome, err := b.AwaitCompletion(context.Background(), sub, time.Hour)
			if test.expectError {
				var cmdErr *tterrors.ExternalCommandError
				require.ErrorAs(t, err, &cmdErr)
				assert.Equal(t, test.expectCode, cmdErr.ExitCode)
				assert.Contains(t, cmdErr.Error(), "Error 1")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, outcome.Polls)
			assert.Equal(t, "echo built\nbuilt\n", stdout.String())
		})
	}
}

func TestLocalBackend_RunsMakefileCommand(t *testing.T) {
	l := testLayout(t, layout.BackendLocal)
	runner := &StubRunner{}
	b := NewLocalBackend(l, runner)

	sub, err := b.Submit(context.Background(), testJobs(t, l))
	require.NoError(t, err)
	_, err = b.AwaitCompletion(context.Background(), sub, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"make -f /out/Makefile -j 10"}, runner.Commands())
}

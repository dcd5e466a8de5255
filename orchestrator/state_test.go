package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from   State
		to     State
		expect bool
	}{
		{StatePlanned, StateDispatched, true},
		{StatePlanned, StateCompleted, false},
		{StateDispatched, StateCompleted, true},
		{StateCompleted, StateMerged, true},
		{StateMerged, StateSummarized, true},
		{StateSummarized, StateDone, true},
		{StateMerged, StateDone, false},
		{StateCompleted, StateFailed, true},
		{StateDone, StateFailed, false},
		{StateFailed, StatePlanned, false},
	}

	for _, test := range tests {
		t.Run(test.from.String()+"->"+test.to.String(), func(t *testing.T) {
			assert.Equal(t, test.expect, test.from.CanTransitionTo(test.to))
		})
	}
}

func TestRunState_FailIsFinal(t *testing.T) {
	rs := newRunState("abc", []string{"TTW_0"})
	require.NoError(t, rs.transition(StateDispatched))
	require.Error(t, rs.transition(StateMerged))

	cause := errors.New("boom")
	rs.fail(cause)
	rs.fail(errors.New("second"))

	assert.Equal(t, StateFailed, rs.State)
	assert.Equal(t, cause, rs.Cause)
	assert.Equal(t, []State{StatePlanned, StateDispatched, StateFailed}, rs.History)
	assert.Error(t, rs.transition(StateDone))
}

package orchestrator

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/tth-analysis/tthrun/dispatch"
)

/*
Transitions:

stateDiagram-v2
    [*] --> Planned
    Planned --> Dispatched: backend accepted every job
    Dispatched --> Completed: backend reports no pending job
    Completed --> Merged: every job output present, merge command exited 0
    Merged --> Summarized: datacard command exited 0
    Summarized --> Done
    Planned --> Failed
    Dispatched --> Failed
    Completed --> Failed
    Merged --> Failed
    Summarized --> Failed
    Done --> [*]
    Failed --> [*]
*/

type State int

const (
	StatePlanned State = iota
	StateDispatched
	StateCompleted
	StateMerged
	StateSummarized
	StateDone
	StateFailed
)

var AllStates = []State{StatePlanned, StateDispatched, StateCompleted, StateMerged, StateSummarized, StateDone, StateFailed}

func (s State) String() string {
	switch s {
	case StatePlanned:
		return "Planned"
	case StateDispatched:
		return "Dispatched"
	case StateCompleted:
		return "Completed"
	case StateMerged:
		return "Merged"
	case StateSummarized:
		return "Summarized"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// next is the only forward transition of each non terminal state. Failed
// is reachable from all of them.
var next = map[State]State{
	StatePlanned:    StateDispatched,
	StateDispatched: StateCompleted,
	StateCompleted:  StateMerged,
	StateMerged:     StateSummarized,
	StateSummarized: StateDone,
}

func (s State) CanTransitionTo(to State) bool {
	if s.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return next[s] == to
}

// RunState is the progress record of one run.
type RunState struct {
	ID         string
	JobIDs     []string
	Submission *dispatch.Submission
	State      State
	// Cause is set once State is Failed.
	Cause   error
	History []State
}

func newRunState(id string, jobIDs []string) *RunState {
	return &RunState{ID: id, JobIDs: jobIDs, State: StatePlanned, History: []State{StatePlanned}}
}

func (r *RunState) transition(to State) error {
	if !r.State.CanTransitionTo(to) {
		return fmt.Errorf("run %s: invalid transition from %s to %s", r.ID, r.State, to)
	}
	r.State = to
	r.History = append(r.History, to)
	return nil
}

func (r *RunState) fail(cause error) {
	if r.State.Terminal() {
		return
	}
	r.Cause = cause
	r.State = StateFailed
	r.History = append(r.History, StateFailed)
}

func (r *RunState) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("run_id", r.ID)
	enc.AddString("state", r.State.String())
	enc.AddInt("job_count", len(r.JobIDs))
	if r.Cause != nil {
		enc.AddString("cause", r.Cause.Error())
	}
	return nil
}

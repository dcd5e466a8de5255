package orchestrator

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/streamingfast/shutter"
	"go.uber.org/zap"

	"github.com/tth-analysis/tthrun/dispatch"
	tterrors "github.com/tth-analysis/tthrun/errors"
	"github.com/tth-analysis/tthrun/layout"
	"github.com/tth-analysis/tthrun/metrics"
	"github.com/tth-analysis/tthrun/runctx"
	"github.com/tth-analysis/tthrun/work"
)

// Orchestrator drives a planned run through dispatch, completion, merge
// and datacard preparation. Stages run one after the other; the first
// failure ends the run.
type Orchestrator struct {
	*shutter.Shutter

	layout  *layout.Layout
	backend dispatch.Backend
	runner  dispatch.Runner
	clock   clock.Clock
	newID   func() string

	state *RunState
}

type Option func(*Orchestrator)

func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

func WithRunIDFunc(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

func New(l *layout.Layout, backend dispatch.Backend, runner dispatch.Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		Shutter: shutter.New(),
		layout:  l,
		backend: backend,
		runner:  runner,
		clock:   clock.New(),
		newID:   func() string { return uuid.New().String()[0:8] },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the record of the last run, nil before Run is called.
func (o *Orchestrator) State() *RunState {
	return o.state
}

// Run executes plan to the end and returns the path of the datacard file.
// Shutting the orchestrator down while a run is in progress cancels it.
func (o *Orchestrator) Run(ctx context.Context, plan *work.Plan) (datacard string, err error) {
	rs := newRunState(o.newID(), plan.JobIDs)
	o.state = rs

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.OnTerminating(func(_ error) { cancel() })

	ctx = runctx.WithRunID(ctx, zlog, rs.ID)
	logger := runctx.Logger(ctx)

	metrics.JobsPlanned.SetUint64(uint64(len(plan.Jobs)))
	setStateMetric(rs.State)
	logger.Info("starting run", zap.Object("layout", o.layout), zap.Int("job_count", len(plan.Jobs)))

	defer func() {
		if err != nil {
			rs.fail(err)
			logger.Error("run failed", zap.Object("run", rs), zap.Error(err))
		} else {
			logger.Info("run done", zap.Object("run", rs), zap.String("datacard", datacard))
		}
		setStateMetric(rs.State)
		o.Shutdown(err)
	}()

	if len(plan.Jobs) == 0 {
		return "", tterrors.NewInvalidConfiguration("plan", "no job to run, check the catalog and the data selection")
	}

	if err := o.stage(ctx, rs, "dispatch", StateDispatched, func(ctx context.Context) error {
		if err := RemoveOutputs(plan.Jobs.OutputFiles()); err != nil {
			return err
		}
		sub, err := o.backend.Submit(ctx, plan.Jobs)
		if err != nil {
			return err
		}
		rs.Submission = sub
		return nil
	}); err != nil {
		return "", err
	}

	if err := o.stage(ctx, rs, "await", StateCompleted, func(ctx context.Context) error {
		_, err := o.backend.AwaitCompletion(ctx, rs.Submission, o.layout.PollInterval())
		return err
	}); err != nil {
		return "", err
	}

	if err := o.stage(ctx, rs, "merge", StateMerged, func(ctx context.Context) error {
		if err := CheckOutputs(o.layout.HistogramsDir(), plan.Jobs.OutputFiles()); err != nil {
			return err
		}
		return o.exec(ctx, "merge", MergeCommand(o.layout, plan.Categories()))
	}); err != nil {
		return "", err
	}

	if err := o.stage(ctx, rs, "summarize", StateSummarized, func(ctx context.Context) error {
		return o.exec(ctx, "summarize", SummarizeCommand(o.layout))
	}); err != nil {
		return "", err
	}

	if err := rs.transition(StateDone); err != nil {
		return "", err
	}
	return o.layout.DatacardOutputFile(), nil
}

func (o *Orchestrator) stage(ctx context.Context, rs *RunState, name string, to State, f func(ctx context.Context) error) error {
	logger := runctx.Logger(ctx)
	logger.Info("entering stage", zap.String("stage", name))

	start := o.clock.Now()
	err := f(ctx)
	metrics.StageDuration.SetFloat64(o.clock.Since(start).Seconds(), name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	if err := rs.transition(to); err != nil {
		return err
	}
	setStateMetric(rs.State)
	logger.Debug("stage done", zap.String("stage", name), zap.Stringer("state", rs.State))
	return nil
}

func (o *Orchestrator) exec(ctx context.Context, stage, command string) error {
	res, err := o.runner.Run(ctx, command)
	if err != nil {
		return err
	}
	if !res.Succeeded() {
		return &tterrors.ExternalCommandError{Stage: stage, Command: command, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return nil
}

func setStateMetric(current State) {
	for _, s := range AllStates {
		value := 0.
		if s == current {
			value = 1.
		}
		metrics.RunState.SetFloat64(value, s.String())
	}
}

package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap/zapcore"

	"github.com/tth-analysis/tthrun/layout"
	"github.com/tth-analysis/tthrun/work"
)

// Backend hands planned jobs to an execution system and waits for all of
// them to finish.
type Backend interface {
	Name() layout.BackendMode
	Submit(ctx context.Context, jobs work.JobList) (*Submission, error)
	AwaitCompletion(ctx context.Context, sub *Submission, pollInterval time.Duration) (*Outcome, error)
}

// New returns the backend of the layout's running method.
func New(l *layout.Layout, runner Runner, opts ...Option) (Backend, error) {
	switch l.Backend() {
	case layout.BackendQueue:
		return NewQueueBackend(l, runner, opts...), nil
	case layout.BackendLocal:
		return NewLocalBackend(l, runner, opts...), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", l.Backend())
	}
}

// Submission tracks the jobs handed to a backend. TaskIDs are the opaque
// identifiers the batch system returned, in submission order; the local
// backend has none.
type Submission struct {
	Backend     layout.BackendMode
	JobIDs      []string
	TaskIDs     []string
	SubmittedAt time.Time

	process Process
}

func (s *Submission) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("backend", string(s.Backend))
	enc.AddInt("job_count", len(s.JobIDs))
	enc.AddInt("task_count", len(s.TaskIDs))
	enc.AddTime("submitted_at", s.SubmittedAt)
	return nil
}

type Outcome struct {
	Polls   int
	Elapsed time.Duration
}

func (o *Outcome) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("polls", o.Polls)
	enc.AddDuration("elapsed", o.Elapsed)
	return nil
}

type options struct {
	clock    clock.Clock
	sleeper  Sleeper
	user     string
	localCmd func(l *layout.Layout) string
}

type Option func(*options)

// WithSleeper replaces the wait between two polls of the queue backend.
func WithSleeper(s Sleeper) Option {
	return func(o *options) { o.sleeper = s }
}

// WithClock sets the clock used for timestamps and by the default sleeper.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithUser sets the batch system user whose tasks are polled.
func WithUser(user string) Option {
	return func(o *options) { o.user = user }
}

// WithLocalCommand replaces the make invocation of the local backend.
func WithLocalCommand(f func(l *layout.Layout) string) Option {
	return func(o *options) { o.localCmd = f }
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.sleeper == nil {
		o.sleeper = NewClockSleeper(o.clock)
	}
	return o
}

package dispatch

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Sleeper suspends the poll loop between two polls of the batch system.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// ClockSleeper waits on a timer of its clock, returning early with the
// context error when ctx is done.
type ClockSleeper struct {
	Clock clock.Clock
}

func NewClockSleeper(c clock.Clock) *ClockSleeper {
	if c == nil {
		c = clock.New()
	}
	return &ClockSleeper{Clock: c}
}

func (s *ClockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timer := s.Clock.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

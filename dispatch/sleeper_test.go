package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockSleeper_FiresOnClock(t *testing.T) {
	mock := clock.NewMock()
	s := NewClockSleeper(mock)

	done := make(chan error, 1)
	go func() { done <- s.Sleep(context.Background(), time.Minute) }()

	for {
		mock.Add(time.Minute)
		select {
		case err := <-done:
			require.NoError(t, err)
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestClockSleeper_CancelledContext(t *testing.T) {
	s := NewClockSleeper(clock.NewMock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Sleep(ctx, time.Hour), context.Canceled)

	ctx, cancel = context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Sleep(ctx, time.Hour) }()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

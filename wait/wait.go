package wait

import (
	"context"
	"errors"
	"time"

	"github.com/raulk/clock"
)

// ErrTimeout is returned by Poll when the check did not pass in time.
var ErrTimeout = errors.New("timed out")

// A CheckFunc returns true when the check has been passed and false if it has not.
type CheckFunc func(context.Context) (bool, error)

// RepeatUntil runs c every period until the context is done, c returns an error or c returns true to indicate completion.
func RepeatUntil(ctx context.Context, period time.Duration, c CheckFunc) error {
	return RepeatUntilWithClock(ctx, clock.New(), period, c)
}

// RepeatUntilWithClock is RepeatUntil measuring periods on clk.
func RepeatUntilWithClock(ctx context.Context, clk clock.Clock, period time.Duration, c CheckFunc) error {
	timer := clk.Timer(period)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Perform the check
		done, err := c(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		// Shortcut the timer if there is no wait period
		if period == 0 {
			continue
		}

		// Wait for the next check
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(period)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Poll runs c every period until it passes, giving up with ErrTimeout once timeout
// has elapsed on clk.
func Poll(ctx context.Context, clk clock.Clock, period, timeout time.Duration, c CheckFunc) error {
	deadline := clk.Now().Add(timeout)
	return RepeatUntilWithClock(ctx, clk, period, func(ctx context.Context) (bool, error) {
		done, err := c(ctx)
		if err != nil || done {
			return done, err
		}
		if !clk.Now().Before(deadline) {
			return false, ErrTimeout
		}
		return false, nil
	})
}

// Sleep waits for d on clk, returning early with the context's error if it is done first.
func Sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := clk.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package wait

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRepeatUntil(t *testing.T) {
	calls := 0
	err := RepeatUntil(context.Background(), time.Millisecond, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRepeatUntilZeroPeriod(t *testing.T) {
	calls := 0
	err := RepeatUntil(context.Background(), 0, func(context.Context) (bool, error) {
		calls++
		return calls == 5, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, calls)
}

func TestRepeatUntilError(t *testing.T) {
	boom := errors.New("boom")
	err := RepeatUntil(context.Background(), time.Millisecond, func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRepeatUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RepeatUntil(ctx, time.Millisecond, func(context.Context) (bool, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestPoll(t *testing.T) {
	clk := clock.New()

	calls := 0
	err := Poll(context.Background(), clk, time.Millisecond, time.Minute, func(context.Context) (bool, error) {
		calls++
		return calls == 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	err = Poll(context.Background(), clk, time.Millisecond, 10*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPollDeadlineOnClock(t *testing.T) {
	mock := clock.NewMock()

	// the mock never advances on its own, each check moves it past half the timeout
	calls := 0
	err := Poll(context.Background(), mock, 0, time.Minute, func(context.Context) (bool, error) {
		calls++
		mock.Add(31 * time.Second)
		return false, nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 2, calls)
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), clock.New(), time.Millisecond))
	require.NoError(t, Sleep(context.Background(), clock.New(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, clock.New(), time.Hour), context.Canceled)
}

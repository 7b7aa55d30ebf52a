package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/LeonPucin/dash-core/clock"
	"github.com/LeonPucin/dash-core/clock/clocktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleep_Completes(t *testing.T) {
	start := time.Unix(0, 0)
	mock := clocktest.NewAuto(start)

	require.NoError(t, clock.Sleep(context.Background(), mock, 3*time.Second))
	assert.Equal(t, start.Add(3*time.Second), mock.Now())
	assert.Equal(t, []time.Duration{3 * time.Second}, mock.Sleeps())
}

func TestSleep_NonPositiveReturnsImmediately(t *testing.T) {
	mock := clocktest.NewMock(time.Unix(0, 0))

	require.NoError(t, clock.Sleep(context.Background(), mock, 0))
	require.NoError(t, clock.Sleep(context.Background(), mock, -time.Second))
	assert.Empty(t, mock.Sleeps())
}

func TestSleep_ContextCancelled(t *testing.T) {
	mock := clocktest.NewMock(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- clock.Sleep(ctx, mock, time.Hour)
	}()

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sleep did not observe cancellation")
	}
}

func TestMock_ManualAdd(t *testing.T) {
	mock := clocktest.NewMock(time.Unix(0, 0))
	ch := mock.After(time.Minute)

	mock.Add(30 * time.Second)
	select {
	case <-ch:
		t.Fatal("timer fired early")
	default:
	}
	assert.Equal(t, 1, mock.Pending())

	mock.Add(30 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("timer did not fire")
	}
	assert.Zero(t, mock.Pending())
}

func TestReal_After(t *testing.T) {
	c := clock.Real()
	before := c.Now()

	<-c.After(5 * time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(before), 5*time.Millisecond)
}

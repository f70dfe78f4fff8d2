package resync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (c *countingReloader) Reload(ctx context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestNew_InvalidRule(t *testing.T) {
	_, err := New("FREQ=SOMETIMES", time.Now(), &countingReloader{}, zap.NewNop())
	assert.Error(t, err)
}

func TestNext(t *testing.T) {
	start := time.Date(2021, time.June, 15, 0, 0, 0, 0, time.UTC)
	s, err := New("FREQ=HOURLY;INTERVAL=6", start, &countingReloader{}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2021, time.June, 15, 12, 0, 0, 0, time.UTC),
		s.Next(time.Date(2021, time.June, 15, 7, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2021, time.June, 15, 18, 0, 0, 0, time.UTC),
		s.Next(time.Date(2021, time.June, 15, 12, 0, 0, 0, time.UTC)))
}

func TestNext_Exhausted(t *testing.T) {
	start := time.Date(2021, time.June, 15, 0, 0, 0, 0, time.UTC)
	s, err := New("FREQ=DAILY;COUNT=2", start, &countingReloader{}, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, s.Next(start.AddDate(0, 0, 1)).IsZero())
}

func TestRun_ReloadsOnOccurrence(t *testing.T) {
	reloader := &countingReloader{err: errors.New("store down")}
	s, err := New("FREQ=SECONDLY;COUNT=2", time.Now(), reloader, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// A failing reload does not stop the schedule; it ends when the rule does
	require.NoError(t, s.Run(ctx))
	assert.Equal(t, int32(1), reloader.calls.Load())
}

func TestRun_StopsOnCancel(t *testing.T) {
	reloader := &countingReloader{}
	s, err := New("FREQ=DAILY", time.Now(), reloader, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Equal(t, int32(0), reloader.calls.Load())
}

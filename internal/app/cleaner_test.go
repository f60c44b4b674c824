package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) PurgeExpired(context.Context) (int64, error) {
	p.calls.Add(1)
	return 3, p.err
}

func TestCleanerRunOnce(t *testing.T) {
	p := &countingPurger{}
	c := NewResetTokenCleaner(p, "")

	n, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.Equal(t, int32(1), p.calls.Load())

	p.err = errors.New("db down")
	_, err = c.RunOnce(context.Background())
	require.Error(t, err)
}

func TestCleanerRejectsBadSpec(t *testing.T) {
	c := NewResetTokenCleaner(&countingPurger{}, "not a cron spec")
	require.Error(t, c.Start())
}

func TestCleanerStartStop(t *testing.T) {
	c := NewResetTokenCleaner(&countingPurger{}, "@every 1h")
	require.NoError(t, c.Start())
	c.Stop()
}

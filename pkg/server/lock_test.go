package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockTryLock(t *testing.T) {
	l := NewLock()
	require.True(t, l.TryLock(context.Background(), time.Second))

	start := time.Now()
	assert.False(t, l.TryLock(context.Background(), 30*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	assert.False(t, l.TryLock(context.Background(), 0))

	l.Unlock()
	assert.True(t, l.TryLock(context.Background(), 0))
	l.Unlock()
}

func TestLockWaitsForRelease(t *testing.T) {
	l := NewLock()
	require.True(t, l.TryLock(context.Background(), time.Second))

	go func() {
		time.Sleep(20 * time.Millisecond)
		l.Unlock()
	}()
	assert.True(t, l.TryLock(context.Background(), 5*time.Second))
	l.Unlock()
}

func TestLockContextCancel(t *testing.T) {
	l := NewLock()
	require.True(t, l.TryLock(context.Background(), time.Second))
	defer l.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, l.TryLock(ctx, time.Minute))
}

func TestLockUnlockUnlocked(t *testing.T) {
	assert.Panics(t, func() { NewLock().Unlock() })
}

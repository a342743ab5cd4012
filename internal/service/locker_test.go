package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTurnLockerSerializesPerConversation(t *testing.T) {
	l := NewMemoryTurnLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, 1)
	require.NoError(t, err)

	other, err := l.Lock(ctx, 2)
	require.NoError(t, err)
	other()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		next, err := l.Lock(ctx, 1)
		if assert.NoError(t, err) {
			next()
		}
		close(acquired)
	}()

	unlock()
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter was not released")
	}

	l.mu.Lock()
	assert.Empty(t, l.slots)
	l.mu.Unlock()
}

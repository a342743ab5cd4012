package service

import (
	"context"
	"sync"
)

// TurnLocker serializes chat turns within one conversation.
type TurnLocker interface {
	Lock(ctx context.Context, conversationID uint) (unlock func(), err error)
}

// MemoryTurnLocker is a TurnLocker for a single process.
type MemoryTurnLocker struct {
	mu    sync.Mutex
	slots map[uint]*turnSlot
}

type turnSlot struct {
	held chan struct{}
	refs int
}

func NewMemoryTurnLocker() *MemoryTurnLocker {
	return &MemoryTurnLocker{slots: make(map[uint]*turnSlot)}
}

func (l *MemoryTurnLocker) Lock(ctx context.Context, conversationID uint) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[conversationID]
	if !ok {
		slot = &turnSlot{held: make(chan struct{}, 1)}
		l.slots[conversationID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.held <- struct{}{}:
	case <-ctx.Done():
		l.release(conversationID, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.held
			l.release(conversationID, slot)
		})
	}, nil
}

func (l *MemoryTurnLocker) release(conversationID uint, slot *turnSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, conversationID)
	}
}

// Package stream carries chat fragments from a producer goroutine to a
// downstream consumer (SSE or WebSocket).
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

const (
	// EventMeta announces a newly created conversation.
	EventMeta = "meta"
	// EventError reports a failed stream right before the abnormal close.
	EventError = "error"
)

var (
	// ErrIdleTimeout is the cancellation cause when nothing was emitted
	// within the idle timeout.
	ErrIdleTimeout = errors.New("stream idle timeout")
	// ErrConsumerGone is the cancellation cause when the consumer stopped reading.
	ErrConsumerGone = errors.New("stream consumer gone")
	errCompleted    = errors.New("stream completed")
)

// Event is one downstream message. An empty Name marks a content fragment.
type Event struct {
	Name string
	Data string
}

// Meta is the payload of the meta event.
type Meta struct {
	ConversationID uint   `json:"conversationId"`
	Title          string `json:"title"`
}

// Channel is a single-producer push channel. Send blocks until the consumer
// takes the event. The producer must finish with Complete or
// CompleteWithError exactly once; later calls are ignored.
type Channel struct {
	events chan Event
	ctx    context.Context
	cancel context.CancelCauseFunc

	idle  time.Duration
	timer *time.Timer

	once sync.Once
	err  error
}

// NewChannel creates a channel whose context derives from parent. When idle
// is positive the context is cancelled with ErrIdleTimeout once no event has
// been sent for that long.
func NewChannel(parent context.Context, idle time.Duration) *Channel {
	ctx, cancel := context.WithCancelCause(parent)
	c := &Channel{
		events: make(chan Event),
		ctx:    ctx,
		cancel: cancel,
		idle:   idle,
	}
	if idle > 0 {
		c.timer = time.AfterFunc(idle, func() { cancel(ErrIdleTimeout) })
	}
	return c
}

// Context is cancelled on idle timeout, consumer abort, parent cancellation
// or completion. Producers should run upstream calls under it.
func (c *Channel) Context() context.Context {
	return c.ctx
}

// Events is closed once the producer completes.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Send delivers ev to the consumer.
func (c *Channel) Send(ev Event) error {
	if err := c.ctx.Err(); err != nil {
		return context.Cause(c.ctx)
	}

	select {
	case c.events <- ev:
		if c.timer != nil {
			c.timer.Reset(c.idle)
		}
		return nil
	case <-c.ctx.Done():
		return context.Cause(c.ctx)
	}
}

// SendMeta emits the meta event.
func (c *Channel) SendMeta(m Meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.Send(Event{Name: EventMeta, Data: string(data)})
}

// Complete closes the channel successfully.
func (c *Channel) Complete() {
	c.finish(nil)
}

// CompleteWithError closes the channel with a failure visible through Err.
func (c *Channel) CompleteWithError(err error) {
	if err == nil {
		err = errors.New("stream failed")
	}
	c.finish(err)
}

func (c *Channel) finish(err error) {
	c.once.Do(func() {
		if c.timer != nil {
			c.timer.Stop()
		}
		c.err = err
		close(c.events)
		c.cancel(errCompleted)
	})
}

// Err reports the failure the channel closed with. Only meaningful after
// Events has been drained.
func (c *Channel) Err() error {
	return c.err
}

// Abort is called by the consumer when it can no longer deliver events.
func (c *Channel) Abort(cause error) {
	if cause == nil {
		cause = ErrConsumerGone
	}
	c.cancel(cause)
}

package stream

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	frags []string
	err   error
}

func (s *sliceSource) Recv() (string, error) {
	if len(s.frags) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	f := s.frags[0]
	s.frags = s.frags[1:]
	return f, nil
}

func collect(ch *Channel) []Event {
	var out []Event
	for ev := range ch.Events() {
		out = append(out, ev)
	}
	return out
}

func TestChannelDeliversInOrderAndCompletes(t *testing.T) {
	ch := NewChannel(context.Background(), time.Minute)

	go func() {
		assert.NoError(t, ch.SendMeta(Meta{ConversationID: 4, Title: "Hello"}))
		res, err := Relay(&sliceSource{frags: []string{"Hi", "", " there"}}, ch)
		assert.NoError(t, err)
		assert.Equal(t, "Hi there", res.Text)
		assert.Equal(t, 2, res.Fragments)
		ch.Complete()
	}()

	events := collect(ch)
	require.Len(t, events, 3)
	assert.Equal(t, Event{Name: EventMeta, Data: `{"conversationId":4,"title":"Hello"}`}, events[0])
	assert.Equal(t, Event{Data: "Hi"}, events[1])
	assert.Equal(t, Event{Data: " there"}, events[2])
	assert.NoError(t, ch.Err())
}

func TestChannelCompleteWithErrorAfterFragments(t *testing.T) {
	ch := NewChannel(context.Background(), time.Minute)
	boom := errors.New("connection reset")

	go func() {
		_, err := Relay(&sliceSource{frags: []string{"partial"}, err: boom}, ch)
		ch.CompleteWithError(err)
		// Later completions are ignored.
		ch.Complete()
	}()

	events := collect(ch)
	require.Len(t, events, 1)
	assert.Equal(t, "partial", events[0].Data)
	assert.ErrorIs(t, ch.Err(), boom)
}

func TestChannelIdleTimeoutCancelsContext(t *testing.T) {
	ch := NewChannel(context.Background(), 20*time.Millisecond)

	select {
	case <-ch.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("idle timeout did not fire")
	}
	assert.ErrorIs(t, context.Cause(ch.Context()), ErrIdleTimeout)

	err := ch.Send(Event{Data: "late"})
	assert.ErrorIs(t, err, ErrIdleTimeout)
}

func TestChannelSendResetsIdleTimer(t *testing.T) {
	ch := NewChannel(context.Background(), 80*time.Millisecond)

	go func() {
		for i := 0; i < 4; i++ {
			time.Sleep(30 * time.Millisecond)
			if err := ch.Send(Event{Data: "tick"}); err != nil {
				ch.CompleteWithError(err)
				return
			}
		}
		ch.Complete()
	}()

	events := collect(ch)
	assert.Len(t, events, 4)
	assert.NoError(t, ch.Err())
}

func TestChannelAbortUnblocksProducer(t *testing.T) {
	ch := NewChannel(context.Background(), 0)

	done := make(chan error, 1)
	go func() {
		done <- ch.Send(Event{Data: "never read"})
	}()

	ch.Abort(nil)
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrConsumerGone)
	case <-time.After(time.Second):
		t.Fatal("send did not return after abort")
	}
}

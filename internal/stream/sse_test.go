package stream

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "novel-forge/backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEWriterFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.WriteEvent(Event{Name: EventMeta, Data: `{"conversationId":1,"title":"Hello"}`}))
	require.NoError(t, w.WriteEvent(Event{Data: " there"}))
	require.NoError(t, w.WriteEvent(Event{Data: "line one\nline two"}))

	assert.Equal(t,
		"event: meta\ndata: {\"conversationId\":1,\"title\":\"Hello\"}\n\n"+
			"data:  there\n\n"+
			"data: line one\ndata: line two\n\n",
		rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestSSEWriterPumpReportsFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewSSEWriter(rec)
	require.NoError(t, err)

	ch := NewChannel(context.Background(), time.Minute)
	go func() {
		_ = ch.Send(Event{Data: "Hi"})
		ch.CompleteWithError(apperrors.NewBadGatewayError(apperrors.CodeUpstream, "upstream returned status 500").Wrap(errors.New("overloaded")))
	}()

	err = w.Pump(ch)
	require.Error(t, err)
	assert.Equal(t, "data: Hi\n\nevent: error\ndata: upstream returned status 500\n\n", rec.Body.String())
}

func TestSSEWriterPumpClean(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewSSEWriter(rec)
	require.NoError(t, err)

	ch := NewChannel(context.Background(), time.Minute)
	go func() {
		_ = ch.Send(Event{Data: "done"})
		ch.Complete()
	}()

	assert.NoError(t, w.Pump(ch))
	assert.Equal(t, "data: done\n\n", rec.Body.String())
}

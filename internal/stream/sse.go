package stream

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "novel-forge/backend/pkg/errors"
)

// SetSSEHeaders prepares w for an event stream.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// SSEWriter frames events in the text/event-stream format and flushes after
// each one.
type SSEWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent writes one event. Multi-line data is split over several data
// lines so that the consumer reassembles it unchanged.
func (s *SSEWriter) WriteEvent(ev Event) error {
	var b strings.Builder
	if ev.Name != "" {
		b.WriteString("event: ")
		b.WriteString(ev.Name)
		b.WriteByte('\n')
	}

	data := strings.ReplaceAll(ev.Data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Pump writes events from ch until it closes. It returns the stream failure,
// after reporting it with an error event, or the write error that made it
// give up on the consumer.
func (s *SSEWriter) Pump(ch *Channel) error {
	for ev := range ch.Events() {
		if err := s.WriteEvent(ev); err != nil {
			ch.Abort(fmt.Errorf("%w: %v", ErrConsumerGone, err))
			return err
		}
	}

	if err := ch.Err(); err != nil {
		_ = s.WriteEvent(Event{Name: EventError, Data: apperrors.GetErrorMessage(err)})
		return err
	}
	return nil
}

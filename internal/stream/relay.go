package stream

import (
	"errors"
	"io"
	"strings"
)

// Source yields fragments until io.EOF.
type Source interface {
	Recv() (string, error)
}

// Result describes what a relay forwarded.
type Result struct {
	// Text is the concatenation of every forwarded fragment.
	Text      string
	Fragments int
}

// Relay forwards every non-empty fragment from src to ch in arrival order.
// It does not close ch; on failure the returned Result covers what was
// forwarded before the error.
func Relay(src Source, ch *Channel) (Result, error) {
	var (
		buf strings.Builder
		n   int
	)
	for {
		frag, err := src.Recv()
		if errors.Is(err, io.EOF) {
			return Result{Text: buf.String(), Fragments: n}, nil
		}
		if err != nil {
			return Result{Text: buf.String(), Fragments: n}, err
		}
		if frag == "" {
			continue
		}

		if err := ch.Send(Event{Data: frag}); err != nil {
			return Result{Text: buf.String(), Fragments: n}, err
		}
		buf.WriteString(frag)
		n++
	}
}

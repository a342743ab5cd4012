package ai

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"novel-forge/backend/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"

	maxFrameSize = 1 << 20
)

// FragmentStream yields assistant text fragments in arrival order.
type FragmentStream interface {
	// Recv returns the next non-empty fragment, or io.EOF once the provider
	// signals the end of the stream.
	Recv() (string, error)
	Close() error
}

type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	log     *logger.Logger
	done    bool
}

func newStream(body io.ReadCloser, log *logger.Logger) *stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxFrameSize)
	return &stream{body: body, scanner: scanner, log: log}
}

// NewStream decodes an event-stream body. Exposed for callers that already
// hold a response.
func NewStream(body io.ReadCloser, log *logger.Logger) FragmentStream {
	return newStream(body, log)
}

func (s *stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for s.scanner.Scan() {
		frag, ok, end := parseLine(s.scanner.Text(), s.log)
		if end {
			s.done = true
			return "", io.EOF
		}
		if ok {
			return frag, nil
		}
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("read upstream stream: %w", err)
	}
	return "", io.EOF
}

func (s *stream) Close() error {
	return s.body.Close()
}

// parseLine decodes one line of the event stream. ok is set when the line
// carried a non-empty fragment; end is set on the [DONE] sentinel.
func parseLine(line string, log *logger.Logger) (fragment string, ok bool, end bool) {
	payload, found := strings.CutPrefix(line, dataPrefix)
	if !found {
		return "", false, false
	}
	if strings.TrimSpace(payload) == doneSentinel {
		return "", false, true
	}

	var frame openai.ChatCompletionStreamResponse
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		if log != nil {
			log.Debug("Skipping undecodable stream frame", "error", err.Error())
		}
		return "", false, false
	}
	if len(frame.Choices) == 0 || frame.Choices[0].Delta.Content == "" {
		return "", false, false
	}
	return frame.Choices[0].Delta.Content, true, false
}

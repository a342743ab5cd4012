package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels for chat metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeDegraded  = "degraded"
	OutcomeAborted   = "aborted"
)

// ChatMetrics records chat pipeline activity. A nil *ChatMetrics is valid
// and records nothing.
type ChatMetrics struct {
	streams   metric.Int64Counter
	active    metric.Int64UpDownCounter
	fragments metric.Int64Counter
	duration  metric.Float64Histogram
	buffered  metric.Int64Counter
}

func NewChatMetrics(meter metric.Meter) (*ChatMetrics, error) {
	streams, err := meter.Int64Counter("chat.streams",
		metric.WithDescription("Streaming chat turns by outcome"))
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter("chat.streams.active",
		metric.WithDescription("Streaming chat turns in flight"))
	if err != nil {
		return nil, err
	}
	fragments, err := meter.Int64Counter("chat.fragments",
		metric.WithDescription("Fragments relayed downstream"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("chat.stream.duration",
		metric.WithDescription("Duration of streaming chat turns"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	buffered, err := meter.Int64Counter("chat.buffered",
		metric.WithDescription("Buffered chat calls by outcome"))
	if err != nil {
		return nil, err
	}

	return &ChatMetrics{
		streams:   streams,
		active:    active,
		fragments: fragments,
		duration:  duration,
		buffered:  buffered,
	}, nil
}

func (m *ChatMetrics) StreamStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.active.Add(ctx, 1)
}

func (m *ChatMetrics) StreamFinished(ctx context.Context, outcome string, fragments int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.active.Add(ctx, -1)
	m.streams.Add(ctx, 1, attrs)
	m.fragments.Add(ctx, int64(fragments))
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *ChatMetrics) BufferedCall(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.buffered.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

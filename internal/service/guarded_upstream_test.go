package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"novel-forge/backend/ai"
	"novel-forge/backend/pkg/logger"
	"novel-forge/backend/pkg/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBreaker() *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.Config{
		Name:             "ai",
		FailureThreshold: 2,
		Cooldown:         time.Hour,
	}, logger.Discard())
}

func TestGuardedUpstreamOpensOnServerErrors(t *testing.T) {
	up := &fakeUpstream{err: &ai.UpstreamError{StatusCode: http.StatusBadGateway}}
	breaker := newBreaker()
	g := NewGuardedUpstream(up, breaker)
	msgs := []ai.ChatMessage{{Role: "user", Content: "hi"}}

	for i := 0; i < 2; i++ {
		_, err := g.Stream(context.Background(), msgs)
		var upErr *ai.UpstreamError
		require.ErrorAs(t, err, &upErr)
	}
	assert.Equal(t, resilience.StateOpen, breaker.State())

	_, err := g.Stream(context.Background(), msgs)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)

	_, err = g.Complete(context.Background(), msgs)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Len(t, up.calls, 2)
}

func TestGuardedUpstreamIgnoresClientErrors(t *testing.T) {
	up := &fakeUpstream{err: &ai.UpstreamError{StatusCode: http.StatusBadRequest}}
	breaker := newBreaker()
	g := NewGuardedUpstream(up, breaker)

	for i := 0; i < 3; i++ {
		_, err := g.Stream(context.Background(), nil)
		assert.Error(t, err)
	}
	assert.Equal(t, resilience.StateClosed, breaker.State())
}

func TestGuardedUpstreamCompleteCountsOnlyProviderFaults(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantOpen bool
	}{
		{"client error", &ai.UpstreamError{StatusCode: http.StatusBadRequest}, false},
		{"no choices", ai.ErrNoResponse, false},
		{"server error", &ai.UpstreamError{StatusCode: http.StatusServiceUnavailable}, true},
		{"transport", errors.New("send chat request: connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := newBreaker()
			g := NewGuardedUpstream(&fakeUpstream{completeErr: tt.err}, breaker)

			for i := 0; i < 3; i++ {
				_, err := g.Complete(context.Background(), nil)
				require.Error(t, err)
			}
			if tt.wantOpen {
				assert.Equal(t, resilience.StateOpen, breaker.State())
			} else {
				assert.Equal(t, resilience.StateClosed, breaker.State())
			}
		})
	}
}

func TestGuardedUpstreamCompletePassesAnswer(t *testing.T) {
	g := NewGuardedUpstream(&fakeUpstream{answer: "Once"}, newBreaker())
	out, err := g.Complete(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Once", out)
}

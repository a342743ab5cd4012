package service

import (
	"context"
	"errors"
	"net/http"

	"novel-forge/backend/ai"
	"novel-forge/backend/pkg/resilience"
)

// GuardedUpstream puts a circuit breaker in front of an Upstream. Only
// provider-side failures trip it: transport errors, unreadable responses and
// 5xx statuses, on both the buffered and the streaming path.
type GuardedUpstream struct {
	next    Upstream
	breaker *resilience.CircuitBreaker
}

func NewGuardedUpstream(next Upstream, breaker *resilience.CircuitBreaker) *GuardedUpstream {
	return &GuardedUpstream{next: next, breaker: breaker}
}

func (g *GuardedUpstream) Complete(ctx context.Context, msgs []ai.ChatMessage) (string, error) {
	var (
		answer  string
		callErr error
	)
	err := g.breaker.Execute(func() error {
		answer, callErr = g.next.Complete(ctx, msgs)
		if providerFault(ctx, callErr) {
			return callErr
		}
		return nil
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "", err
	}
	return answer, callErr
}

func (g *GuardedUpstream) Stream(ctx context.Context, msgs []ai.ChatMessage) (ai.FragmentStream, error) {
	var (
		feed    ai.FragmentStream
		callErr error
	)
	err := g.breaker.Execute(func() error {
		feed, callErr = g.next.Stream(ctx, msgs)
		if providerFault(ctx, callErr) {
			return callErr
		}
		return nil
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, err
	}
	return feed, callErr
}

func providerFault(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil || errors.Is(err, ai.ErrNoResponse) {
		return false
	}
	var upErr *ai.UpstreamError
	if errors.As(err, &upErr) {
		return upErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

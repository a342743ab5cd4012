package resilience

import (
	"errors"
	"testing"
	"time"

	"novel-forge/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func newBreaker() (*CircuitBreaker, *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(Config{Name: "test", FailureThreshold: 2, SuccessThreshold: 1, Cooldown: time.Minute}, logger.Discard())
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb, _ := newBreaker()

	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, uint64(1), cb.Stats().Rejections)
}

func TestCircuitBreakerRecoversAfterCooldown(t *testing.T) {
	cb, now := newBreaker()
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return errBoom })
	a := assert.New(t)
	a.Equal(StateOpen, cb.State())

	*now = now.Add(2 * time.Minute)
	a.NoError(cb.Execute(func() error { return nil }))
	a.Equal(StateClosed, cb.State())
	a.Equal(uint64(1), cb.Stats().TimesOpened)
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb, now := newBreaker()
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return errBoom })

	*now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, uint64(2), cb.Stats().TimesOpened)
}

// Package resilience guards calls to flaky dependencies.
package resilience

import (
	"errors"
	"sync"
	"time"

	"novel-forge/backend/pkg/logger"
)

// ErrCircuitOpen is returned by Execute while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit open")

// State is the breaker position.
type State string

const (
	// StateClosed lets every call through.
	StateClosed State = "closed"
	// StateOpen rejects calls until the cooldown expires.
	StateOpen State = "open"
	// StateHalfOpen lets probe calls through to decide whether to close again.
	StateHalfOpen State = "half-open"
)

type Config struct {
	Name string
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint
	// SuccessThreshold successful probes close it again.
	SuccessThreshold uint
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
}

func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
	}
}

// Stats is a point-in-time view of a breaker.
type Stats struct {
	State          State
	Requests       uint64
	Failures       uint64
	Rejections     uint64
	TimesOpened    uint64
	LastFailureAt  time.Time
	NextAttemptAt  time.Time
	ConsecutiveErr uint
}

// CircuitBreaker stops calling a dependency after repeated failures.
type CircuitBreaker struct {
	cfg Config
	log *logger.Logger
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  uint
	successes uint
	stats     Stats
}

func NewCircuitBreaker(cfg Config, log *logger.Logger) *CircuitBreaker {
	def := DefaultConfig(cfg.Name)
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &CircuitBreaker{cfg: cfg, log: log, now: time.Now, state: StateClosed}
}

// Execute runs fn unless the breaker is open. A non-nil error from fn
// counts as a failure.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}

	err := fn()
	cb.record(err == nil)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Before(cb.stats.NextAttemptAt) {
			cb.stats.Rejections++
			return false
		}
		cb.state = StateHalfOpen
		cb.successes = 0
		cb.log.Info("Circuit breaker half-open", "name", cb.cfg.Name)
	case StateHalfOpen:
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.stats.Rejections++
			return false
		}
	}

	cb.stats.Requests++
	return true
}

func (cb *CircuitBreaker) record(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if ok {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.successes++
			if cb.successes >= cb.cfg.SuccessThreshold {
				cb.state = StateClosed
				cb.log.Info("Circuit breaker closed", "name", cb.cfg.Name)
			}
		}
		return
	}

	cb.failures++
	cb.stats.Failures++
	cb.stats.LastFailureAt = cb.now()
	if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.stats.TimesOpened++
	cb.stats.NextAttemptAt = cb.now().Add(cb.cfg.Cooldown)

	cb.log.Warn("Circuit breaker opened",
		"name", cb.cfg.Name,
		"failures", cb.failures,
		"next_attempt", cb.stats.NextAttemptAt.Format(time.RFC3339),
	)
}

// State returns the current position.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := cb.stats
	s.State = cb.state
	s.ConsecutiveErr = cb.failures
	return s
}

// Package worker runs background tasks on a bounded pool.
package worker

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"novel-forge/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ErrPoolSaturated is returned by Submit when every slot is busy.
var ErrPoolSaturated = errors.New("worker pool saturated")

// Pool bounds the number of concurrently running tasks. Submit never
// blocks; Wait joins every task started so far.
type Pool struct {
	group    errgroup.Group
	limit    int
	inFlight atomic.Int64
	log      *logger.Logger
}

// NewPool creates a pool running at most limit tasks at once. A limit of
// zero or less means unbounded.
func NewPool(limit int, log *logger.Logger) *Pool {
	p := &Pool{limit: limit, log: log}
	if limit > 0 {
		p.group.SetLimit(limit)
	}
	return p
}

// Submit starts task on the pool, or returns ErrPoolSaturated.
func (p *Pool) Submit(name string, task func()) error {
	started := p.group.TryGo(func() error {
		p.inFlight.Add(1)
		defer p.inFlight.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("Worker task panicked",
					"task", name,
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
			}
		}()

		task()
		return nil
	})
	if !started {
		return ErrPoolSaturated
	}
	return nil
}

// InFlight returns the number of running tasks.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Limit returns the configured bound.
func (p *Pool) Limit() int {
	return p.limit
}

// Wait blocks until every submitted task has returned.
func (p *Pool) Wait() {
	_ = p.group.Wait()
}

// pkg/sched/scheduler.go
package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/justrach/turboAPI/pkg/runtime"
)

var ErrSchedulerClosed = errors.New("sched: scheduler closed")

// live counts scheduler instances currently alive in the process. The engine
// is built around exactly one; the counter exists so tests can assert that
// concurrent load never grows it.
var live atomic.Int64

// Live reports the number of scheduler instances currently alive.
func Live() int64 { return live.Load() }

// Gate admits one task body at a time in exclusive-lock mode and is a no-op
// in parallel mode. The runtime Interpreter satisfies it, which ties task
// admission and sync dispatch to the same execution lock.
type Gate interface {
	Acquire()
	Release()
}

// Scheduler runs managed pending computations cooperatively. A task holds
// the gate while executing body code and gives it up at every suspension
// point (Sleep, Await, Go, Yield), so blocking work never stalls other tasks and
// the lock is never held across a suspension.
type Scheduler struct {
	gate Gate

	// mu couples the closing check with the waitgroup add, so Shutdown's
	// wait covers every spawn it did not refuse.
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup

	inflight atomic.Int64
}

func New(gate Gate) *Scheduler {
	if gate == nil {
		gate = runtime.NewInterpreter(runtime.Parallel)
	}
	s := &Scheduler{gate: gate}
	live.Add(1)
	return s
}

// Inflight reports tasks spawned and not yet delivered.
func (s *Scheduler) Inflight() int64 { return s.inflight.Load() }

// Spawn schedules a pending computation. deliver is called exactly once,
// from the task goroutine, with the computation's outcome. Spawn itself
// never runs any of the body.
func (s *Scheduler) Spawn(ctx context.Context, p *runtime.Pending, deliver func(any, error)) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()
	s.inflight.Add(1)

	go func() {
		defer s.wg.Done()
		defer s.inflight.Add(-1)

		t := &task{s: s}
		t.acquire()

		var out any
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					out, err = nil, fmt.Errorf("sched: task panic: %v", r)
				}
			}()
			out, err = p.Run(withTask(ctx, t))
		}()

		t.release()
		deliver(out, err)
	}()
	return nil
}

// Shutdown refuses new spawns and waits for in-flight tasks, bounded by ctx.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	already := s.closing
	s.closing = true
	s.mu.Unlock()
	if already {
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	defer live.Add(-1)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// task tracks whether its goroutine currently holds the gate, so the gate is
// released exactly once however the body exits.
type task struct {
	s       *Scheduler
	holding bool
}

func (t *task) acquire() {
	t.s.gate.Acquire()
	t.holding = true
}

func (t *task) release() {
	if !t.holding {
		return
	}
	t.holding = false
	t.s.gate.Release()
}

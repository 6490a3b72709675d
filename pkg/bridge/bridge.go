// pkg/bridge/bridge.go
package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/justrach/turboAPI/pkg/runtime"
	"github.com/justrach/turboAPI/pkg/sched"
)

// ErrBridgeUnavailable is returned once the scheduler has been torn down or
// failed; callers must fail fast rather than hang.
var ErrBridgeUnavailable = errors.New("bridge: scheduler unavailable")

// Bridge converts managed pending computations into native-awaitable
// handles. It owns the one persistent cooperative scheduler for the process:
// the scheduler is created on the first submission and reused for every one
// after it, no matter how many goroutines submit concurrently. Running a
// scheduler per worker, or one per request, is a known throughput cliff and
// is deliberately impossible to express through this API.
type Bridge struct {
	gate sched.Gate
	once sync.Once
	sch  atomic.Pointer[sched.Scheduler]

	down atomic.Bool
	log  *zap.Logger
}

// New builds a bridge whose scheduler will admit task bodies through gate:
// the process's exclusive execution lock, or a no-op gate in parallel mode.
func New(gate sched.Gate, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{gate: gate, log: log}
}

// Scheduler exposes the singleton for instrumentation. It is nil until the
// first async dispatch and safe to read from any goroutine (the metrics
// gauge scrapes it concurrently with serving).
func (b *Bridge) Scheduler() *sched.Scheduler { return b.sch.Load() }

// Available reports whether submissions are being accepted.
func (b *Bridge) Available() bool { return !b.down.Load() }

// Submit schedules p and returns a handle the native runtime can await.
// Safe to call from any goroutine.
func (b *Bridge) Submit(ctx context.Context, p *runtime.Pending) (*PendingExecution, error) {
	if b.down.Load() {
		return nil, ErrBridgeUnavailable
	}
	b.once.Do(func() {
		b.sch.Store(sched.New(b.gate))
		b.log.Info("scheduler started")
	})

	taskCtx, cancel := context.WithCancel(ctx)
	pe := &PendingExecution{
		done:   make(chan outcome, 1),
		cancel: cancel,
	}
	err := b.sch.Load().Spawn(taskCtx, p, func(v any, err error) {
		pe.done <- outcome{val: v, err: err}
		cancel()
	})
	if err != nil {
		cancel()
		if errors.Is(err, sched.ErrSchedulerClosed) {
			b.fail(err)
			return nil, ErrBridgeUnavailable
		}
		return nil, err
	}
	return pe, nil
}

// Shutdown tears the scheduler down. Submissions after it return
// ErrBridgeUnavailable.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.down.Store(true)
	s := b.sch.Load()
	if s == nil {
		return nil
	}
	b.log.Info("scheduler stopping", zap.Int64("inflight", s.Inflight()))
	return s.Shutdown(ctx)
}

func (b *Bridge) fail(err error) {
	if !b.down.Swap(true) {
		b.log.Error("bridge marked unavailable", zap.Error(err))
	}
}

type outcome struct {
	val any
	err error
}

// PendingExecution is the native-awaitable handle for one in-flight async
// handler invocation. It must never be awaited while the caller holds the
// exclusive execution lock.
type PendingExecution struct {
	done   chan outcome
	cancel context.CancelFunc
}

// Wait blocks until the computation resolves or ctx expires. On expiry the
// computation is cancelled (best-effort) and ctx's error is returned; the
// scheduler stays usable.
func (pe *PendingExecution) Wait(ctx context.Context) (any, error) {
	select {
	case out := <-pe.done:
		return out.val, out.err
	case <-ctx.Done():
		pe.cancel()
		return nil, ctx.Err()
	}
}

// Cancel requests that the computation stop. Side effects already produced
// by the handler are not rolled back.
func (pe *PendingExecution) Cancel() { pe.cancel() }

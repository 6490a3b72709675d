// pkg/sched/yield.go
package sched

import (
	"context"
	"time"
)

type ctxKey struct{}

func withTask(ctx context.Context, t *task) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

func taskFrom(ctx context.Context) *task {
	t, _ := ctx.Value(ctxKey{}).(*task)
	return t
}

// Scheduled reports whether ctx belongs to a cooperatively scheduled task.
func Scheduled(ctx context.Context) bool { return taskFrom(ctx) != nil }

// Sleep is a suspension point: it gives up the gate for the duration,
// letting other tasks execute, and takes it back before returning. Outside a
// scheduled task it degrades to a plain timer wait.
func Sleep(ctx context.Context, d time.Duration) error {
	t := taskFrom(ctx)
	if t != nil {
		t.release()
		defer t.acquire()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go is the I/O suspension point: fn runs with the gate released, so
// blocking work in fn never stalls other tasks. The gate is reacquired
// before the result is returned to the body.
func Go(ctx context.Context, fn func() (any, error)) (any, error) {
	t := taskFrom(ctx)
	if t == nil {
		return fn()
	}
	t.release()
	defer t.acquire()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fn()
}

// Await suspends until ch delivers or ctx expires, with the gate released.
// It is how one task waits on work resolved elsewhere without starving the
// rest.
func Await[T any](ctx context.Context, ch <-chan T) (T, error) {
	t := taskFrom(ctx)
	if t != nil {
		t.release()
		defer t.acquire()
	}

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Yield gives other tasks a turn.
func Yield(ctx context.Context) error {
	t := taskFrom(ctx)
	if t == nil {
		return nil
	}
	t.release()
	t.acquire()
	return ctx.Err()
}

// pkg/engine/coordinator.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/justrach/turboAPI/pkg/bridge"
	"github.com/justrach/turboAPI/pkg/codec"
	"github.com/justrach/turboAPI/pkg/dispatch"
	"github.com/justrach/turboAPI/pkg/request"
	"github.com/justrach/turboAPI/pkg/response"
	"github.com/justrach/turboAPI/pkg/runtime"
)

// Config bounds coordinator behavior.
type Config struct {
	// Timeout applies to each execution unless the incoming context already
	// carries a deadline. Zero disables it.
	Timeout time.Duration
	// TimeoutStatus is the status for TimedOut outcomes; 504 when zero.
	TimeoutStatus int
}

// Coordinator is the state machine between a matched route and a Response:
// Dispatched -> {SyncRunning | AsyncAwaiting} -> Completed | Failed |
// TimedOut. It owns the lock discipline around handler invocation; no
// handler failure escapes it.
type Coordinator struct {
	interp *runtime.Interpreter
	bridge *bridge.Bridge
	cfg    Config
	log    *zap.Logger
}

func New(interp *runtime.Interpreter, b *bridge.Bridge, cfg Config, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TimeoutStatus == 0 {
		cfg.TimeoutStatus = http.StatusGatewayTimeout
	}
	return &Coordinator{interp: interp, bridge: b, cfg: cfg, log: log}
}

// Execute runs the handler for a matched entry and always yields a
// Response.
func (c *Coordinator) Execute(ctx context.Context, e *dispatch.Entry, rc *request.Context) response.Response {
	if c.cfg.Timeout > 0 {
		if _, has := ctx.Deadline(); !has {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
		}
	}

	var out any
	var err error
	if e.Handler.IsAsync() {
		out, err = c.runAsync(ctx, e, rc)
	} else {
		out, err = c.runSync(ctx, e, rc)
	}
	return c.finish(e, out, err)
}

// runSync invokes the handler inline under the exclusive lock. The calling
// goroutine never touches a scheduler suspension primitive on this path;
// cost is the call plus one lock round trip.
func (c *Coordinator) runSync(ctx context.Context, e *dispatch.Entry, rc *request.Context) (out any, err error) {
	c.interp.Acquire()
	defer c.interp.Release()

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("handler panic: %v", r)
		}
	}()
	return e.Handler.Sync(ctx, rc)
}

// runAsync constructs the pending computation under the lock, releases the
// lock, and awaits the native handle. The lock is never held between
// pending-computation creation and its resolution; it is retaken only to
// extract the resolved value.
func (c *Coordinator) runAsync(ctx context.Context, e *dispatch.Entry, rc *request.Context) (any, error) {
	c.interp.Acquire()
	// Construction only binds the body to the request; none of it runs here.
	p := runtime.NewPending(func(taskCtx context.Context) (any, error) {
		return e.Handler.Async(taskCtx, rc)
	})
	c.interp.Release()

	pe, err := c.bridge.Submit(ctx, p)
	if err != nil {
		return nil, err
	}

	out, err := pe.Wait(ctx)
	if err != nil {
		return nil, err
	}

	c.interp.Acquire()
	v := out
	c.interp.Release()
	return v, nil
}

// finish converts a handler outcome into the canonical Response, applying
// the error taxonomy.
func (c *Coordinator) finish(e *dispatch.Entry, out any, err error) response.Response {
	if err == nil {
		resp, nerr := response.Normalize(out)
		if nerr != nil {
			c.log.Error("handler result not normalizable",
				zap.String("method", e.Method),
				zap.String("pattern", e.Pattern),
				zap.Error(nerr),
			)
			return errResponse(http.StatusInternalServerError, "HandlerException", "internal server error")
		}
		return resp
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return validationResponse(ve)
	}

	var se *StatusError
	if errors.As(err, &se) {
		c.log.Warn("handler failed with status hint",
			zap.String("method", e.Method),
			zap.String("pattern", e.Pattern),
			zap.Int("status", se.Status),
			zap.Error(err),
		)
		return errResponse(se.Status, "HandlerException", se.Err.Error())
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.log.Warn("handler timed out",
			zap.String("method", e.Method),
			zap.String("pattern", e.Pattern),
		)
		return errResponse(c.cfg.TimeoutStatus, "TimedOut", "request timed out")

	case errors.Is(err, bridge.ErrBridgeUnavailable):
		c.log.Error("async dispatch refused",
			zap.String("method", e.Method),
			zap.String("pattern", e.Pattern),
			zap.Error(err),
		)
		return errResponse(http.StatusServiceUnavailable, "BridgeUnavailable", "async execution unavailable")

	default:
		// Detail stays in the log; the caller gets a generic message.
		c.log.Error("handler failed",
			zap.String("method", e.Method),
			zap.String("pattern", e.Pattern),
			zap.Error(err),
		)
		return errResponse(http.StatusInternalServerError, "HandlerException", "internal server error")
	}
}

func errResponse(status int, kind, msg string) response.Response {
	body, _ := codec.JSONStrict.Marshal(map[string]string{
		"error":   kind,
		"message": msg,
	})
	return response.Response{
		Status:  status,
		Headers: map[string]string{"Content-Type": codec.JSONStrict.ContentType()},
		Body:    body,
	}
}

func validationResponse(ve *ValidationError) response.Response {
	body, _ := codec.JSONStrict.Marshal(map[string]any{
		"error":  "ValidationError",
		"fields": ve.Fields,
	})
	return response.Response{
		Status:  http.StatusUnprocessableEntity,
		Headers: map[string]string{"Content-Type": codec.JSONStrict.ContentType()},
		Body:    body,
	}
}

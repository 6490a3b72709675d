// pkg/dispatch/registry.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/justrach/turboAPI/pkg/request"
)

// SyncFunc runs to completion on the calling goroutine, under the exclusive
// execution lock when one is configured.
type SyncFunc func(ctx context.Context, rc *request.Context) (any, error)

// AsyncFunc is the body of an async handler. It runs on the cooperative
// scheduler and may suspend at sched yield points.
type AsyncFunc func(ctx context.Context, rc *request.Context) (any, error)

// Handler is the tagged sync/async variant stored per route. Exactly one
// field is set; the tag is resolved once at registration, never per request.
type Handler struct {
	Sync  SyncFunc
	Async AsyncFunc
}

func (h Handler) IsAsync() bool { return h.Async != nil }

func (h Handler) valid() bool {
	return (h.Sync != nil) != (h.Async != nil)
}

// Entry is one registered route.
type Entry struct {
	Method     string
	Pattern    string
	Handler    Handler
	ParamNames []string

	segs []segment
}

// Registry accumulates routes before the server starts. Build freezes it
// into an immutable Table.
type Registry struct {
	entries []*Entry
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Get(pattern string, h Handler) *Registry {
	return r.Handle(http.MethodGet, pattern, h)
}

func (r *Registry) Post(pattern string, h Handler) *Registry {
	return r.Handle(http.MethodPost, pattern, h)
}

func (r *Registry) Put(pattern string, h Handler) *Registry {
	return r.Handle(http.MethodPut, pattern, h)
}

func (r *Registry) Delete(pattern string, h Handler) *Registry {
	return r.Handle(http.MethodDelete, pattern, h)
}

func (r *Registry) Handle(method, pattern string, h Handler) *Registry {
	r.entries = append(r.entries, &Entry{
		Method:  strings.ToUpper(strings.TrimSpace(method)),
		Pattern: pattern,
		Handler: h,
	})
	return r
}

// Sync registers a run-to-completion handler.
func Sync(fn SyncFunc) Handler { return Handler{Sync: fn} }

// Async registers a cooperatively scheduled handler.
func Async(fn AsyncFunc) Handler { return Handler{Async: fn} }

// Build validates and freezes the registry. Entries keep registration
// order within each method list; Match's tie-break depends on it.
func (r *Registry) Build() (*Table, error) {
	t := &Table{byMethod: map[string][]*Entry{}}
	for _, e := range r.entries {
		if !e.Handler.valid() {
			return nil, fmt.Errorf("dispatch: route %s %s must set exactly one of sync or async", e.Method, e.Pattern)
		}
		if e.Method == "" {
			return nil, errors.New("dispatch: method is required")
		}
		segs, params, err := parsePattern(e.Pattern)
		if err != nil {
			return nil, fmt.Errorf("dispatch: route %s %s: %w", e.Method, e.Pattern, err)
		}
		e.segs = segs
		e.ParamNames = params
		t.byMethod[e.Method] = append(t.byMethod[e.Method], e)
	}
	return t, nil
}

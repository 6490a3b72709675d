// core/router_dispatch.go
package core

import (
	"errors"
	"net/http"
	"time"

	"github.com/justrach/turboAPI/pkg/codec"
	"github.com/justrach/turboAPI/pkg/dispatch"
	"github.com/justrach/turboAPI/pkg/manifest"
	hmetrics "github.com/justrach/turboAPI/pkg/middleware/metrics"
	"github.com/justrach/turboAPI/pkg/request"
	"github.com/justrach/turboAPI/pkg/response"
)

// dispatchHandler is the seam between the outer mux and the engine: match,
// apply route policy, build the request context, execute, write.
func dispatchHandler(cfg manifest.Config, d BuildDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, params, err := d.Table.Match(r.Method, r.URL.Path)
		if err != nil {
			if errors.Is(err, dispatch.ErrRouteNotFound) {
				writeError(w, r, http.StatusNotFound, "RouteNotFound", "no handler registered for "+r.Method+" "+r.URL.Path)
				return
			}
			writeError(w, r, http.StatusInternalServerError, "HandlerException", "internal server error")
			return
		}

		h := executeHandler(entry, d)
		if pol, ok := cfg.Policy(entry.Method, entry.Pattern); ok {
			if pol.Policy.TimeoutMS > 0 {
				h = withTimeout(h, time.Duration(pol.Policy.TimeoutMS)*time.Millisecond)
			}
			h = withGuard(h, d.Auth, pol.Guard)
		}

		rc, err := request.FromHTTP(r, params)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "BadRequest", "unreadable request body")
			return
		}

		h(w, r.WithContext(request.Into(r.Context(), rc)))
	}
}

func executeHandler(entry *dispatch.Entry, d BuildDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := request.From(r.Context())
		resp := d.Coord.Execute(r.Context(), entry, rc)
		hmetrics.CountDispatch(modeOf(entry), outcomeOf(resp.Status))
		writeResponse(w, r, resp)
	}
}

func modeOf(e *dispatch.Entry) string {
	if e.Handler.IsAsync() {
		return "async"
	}
	return "sync"
}

func outcomeOf(status int) string {
	switch {
	case status == http.StatusGatewayTimeout:
		return "timed_out"
	case status == http.StatusServiceUnavailable:
		return "unavailable"
	case status >= 500:
		return "failed"
	default:
		return "completed"
	}
}

func writeResponse(w http.ResponseWriter, r *http.Request, resp response.Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.Status)
	// HEAD gets headers only.
	if r.Method == http.MethodHead || len(resp.Body) == 0 {
		return
	}
	_, _ = w.Write(resp.Body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, kind, msg string) {
	body, _ := codec.JSONStrict.Marshal(map[string]string{
		"error":   kind,
		"message": msg,
	})
	writeResponse(w, r, response.Response{
		Status:  status,
		Headers: map[string]string{"Content-Type": codec.JSONStrict.ContentType()},
		Body:    body,
	})
}

package core

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justrach/turboAPI/pkg/bridge"
	"github.com/justrach/turboAPI/pkg/dispatch"
	"github.com/justrach/turboAPI/pkg/engine"
	"github.com/justrach/turboAPI/pkg/manifest"
	"github.com/justrach/turboAPI/pkg/middleware/auth"
	"github.com/justrach/turboAPI/pkg/request"
	rt "github.com/justrach/turboAPI/pkg/runtime"
	"github.com/justrach/turboAPI/pkg/sched"
	"github.com/justrach/turboAPI/pkg/transport/httpx"
)

const testSecret = "router-test-secret"

func newTestServer(t *testing.T, cfg manifest.Config, register func(*dispatch.Registry)) *httptest.Server {
	t.Helper()
	require.NoError(t, cfg.Validate())

	reg := dispatch.NewRegistry()
	register(reg)
	table, err := reg.Build()
	require.NoError(t, err)

	interp := rt.NewInterpreter(rt.Exclusive)
	b := bridge.New(interp, nil)
	t.Cleanup(func() { b.Shutdown(context.Background()) })

	coord := engine.New(interp, b, engine.Config{}, nil)

	srv := httptest.NewServer(BuildRouter(cfg, BuildDeps{
		Auth:   auth.New([]byte(testSecret)),
		Table:  table,
		Coord:  coord,
		Router: httpx.NewChi(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) (int, http.Header, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, resp.Header, decoded
}

func TestDispatchPathParams(t *testing.T) {
	srv := newTestServer(t, manifest.Config{}, func(r *dispatch.Registry) {
		r.Get("/items/{id}", dispatch.Sync(func(ctx context.Context, rc *request.Context) (any, error) {
			return map[string]string{"id": rc.Param("id")}, nil
		}))
	})

	status, hdr, body := doJSON(t, http.MethodGet, srv.URL+"/items/42", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, map[string]any{"id": "42"}, body)
}

func TestDispatchPostBody(t *testing.T) {
	srv := newTestServer(t, manifest.Config{}, func(r *dispatch.Registry) {
		r.Post("/echo", dispatch.Sync(func(ctx context.Context, rc *request.Context) (any, error) {
			var in map[string]any
			if err := json.Unmarshal(rc.Body, &in); err != nil {
				return nil, &engine.ValidationError{Fields: map[string]string{"body": "invalid json"}}
			}
			return in, nil
		}))
	})

	status, _, body := doJSON(t, http.MethodPost, srv.URL+"/echo", `{"name":"turbo"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"name": "turbo"}, body)

	status, _, body = doJSON(t, http.MethodPost, srv.URL+"/echo", `{broken`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "ValidationError", body["error"])
}

func TestDispatchAsyncRoute(t *testing.T) {
	srv := newTestServer(t, manifest.Config{}, func(r *dispatch.Registry) {
		r.Get("/slow", dispatch.Async(func(ctx context.Context, rc *request.Context) (any, error) {
			if err := sched.Sleep(ctx, 5*time.Millisecond); err != nil {
				return nil, err
			}
			return map[string]string{"mode": "async"}, nil
		}))
	})

	status, _, body := doJSON(t, http.MethodGet, srv.URL+"/slow", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"mode": "async"}, body)
}

func TestSyncFastWhileAsyncSuspended(t *testing.T) {
	srv := newTestServer(t, manifest.Config{}, func(r *dispatch.Registry) {
		r.Get("/slow", dispatch.Async(func(ctx context.Context, rc *request.Context) (any, error) {
			return "slow", sched.Sleep(ctx, 300*time.Millisecond)
		}))
		r.Get("/fast", dispatch.Sync(func(ctx context.Context, rc *request.Context) (any, error) {
			return map[string]string{"speed": "fast"}, nil
		}))
	})

	slowDone := make(chan struct{})
	go func() {
		defer close(slowDone)
		resp, err := http.Get(srv.URL + "/slow")
		if err == nil {
			resp.Body.Close()
		}
	}()
	time.Sleep(50 * time.Millisecond) // let the async handler reach its suspension

	start := time.Now()
	status, _, _ := doJSON(t, http.MethodGet, srv.URL+"/fast", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Less(t, time.Since(start), 200*time.Millisecond,
		"suspended async work must not hold the lock over sync dispatch")
	<-slowDone
}

func TestUnknownRouteIs404JSON(t *testing.T) {
	srv := newTestServer(t, manifest.Config{}, func(r *dispatch.Registry) {
		r.Get("/known", dispatch.Sync(func(ctx context.Context, rc *request.Context) (any, error) {
			return "ok", nil
		}))
	})

	status, hdr, body := doJSON(t, http.MethodGet, srv.URL+"/missing", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, "RouteNotFound", body["error"])
}

func TestPanicThenServiceContinues(t *testing.T) {
	srv := newTestServer(t, manifest.Config{}, func(r *dispatch.Registry) {
		r.Get("/boom", dispatch.Sync(func(ctx context.Context, rc *request.Context) (any, error) {
			panic("handler bug")
		}))
		r.Get("/fine", dispatch.Sync(func(ctx context.Context, rc *request.Context) (any, error) {
			return map[string]bool{"fine": true}, nil
		}))
	})

	status, _, body := doJSON(t, http.MethodGet, srv.URL+"/boom", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "HandlerException", body["error"])

	status, _, _ = doJSON(t, http.MethodGet, srv.URL+"/fine", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestHeadServedByGetWithoutBody(t *testing.T) {
	srv := newTestServer(t, manifest.Config{}, func(r *dispatch.Registry) {
		r.Get("/doc", dispatch.Sync(func(ctx context.Context, rc *request.Context) (any, error) {
			return map[string]string{"title": "spec"}, nil
		}))
	})

	resp, err := http.Head(srv.URL + "/doc")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Empty(t, raw)
}

func TestHeartbeat(t *testing.T) {
	srv := newTestServer(t, manifest.Config{}, func(r *dispatch.Registry) {})

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGuardedRoute(t *testing.T) {
	cfg := manifest.Config{Routes: []manifest.RoutePolicy{{
		Path:   "/admin",
		Method: "GET",
		Guard:  manifest.Guard{RequireAuth: true, Subjects: []string{"ops"}},
	}}}
	srv := newTestServer(t, cfg, func(r *dispatch.Registry) {
		r.Get("/admin", dispatch.Sync(func(ctx context.Context, rc *request.Context) (any, error) {
			return map[string]bool{"admin": true}, nil
		}))
	})

	get := func(token string) int {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/admin", nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, get(""))
	assert.Equal(t, http.StatusUnauthorized, get("not-a-token"))
	assert.Equal(t, http.StatusForbidden, get(signToken(t, "guest")))
	assert.Equal(t, http.StatusOK, get(signToken(t, "ops")))
}

func TestRouteTimeoutPolicy(t *testing.T) {
	cfg := manifest.Config{Routes: []manifest.RoutePolicy{{
		Path:   "/slow",
		Method: "GET",
		Policy: manifest.Policy{TimeoutMS: 30},
	}}}
	srv := newTestServer(t, cfg, func(r *dispatch.Registry) {
		r.Get("/slow", dispatch.Async(func(ctx context.Context, rc *request.Context) (any, error) {
			return nil, sched.Sleep(ctx, 5*time.Second)
		}))
	})

	start := time.Now()
	status, _, body := doJSON(t, http.MethodGet, srv.URL+"/slow", "")
	assert.Equal(t, http.StatusGatewayTimeout, status)
	assert.Equal(t, "TimedOut", body["error"])
	assert.Less(t, time.Since(start), time.Second)
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

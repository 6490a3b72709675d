package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justrach/turboAPI/pkg/request"
)

func named(name string) Handler {
	return Sync(func(ctx context.Context, rc *request.Context) (any, error) {
		return name, nil
	})
}

func result(t *testing.T, e *Entry) string {
	t.Helper()
	out, err := e.Handler.Sync(context.Background(), nil)
	require.NoError(t, err)
	return out.(string)
}

func TestMatchLiteralAndParams(t *testing.T) {
	table, err := NewRegistry().
		Get("/items", named("list")).
		Get("/items/{id}", named("item")).
		Get("/users/{uid}/posts/{pid}", named("post")).
		Post("/items", named("create")).
		Build()
	require.NoError(t, err)

	cases := []struct {
		method, path string
		want         string
		params       map[string]string
	}{
		{"GET", "/items", "list", nil},
		{"GET", "/items/42", "item", map[string]string{"id": "42"}},
		{"GET", "/users/7/posts/9", "post", map[string]string{"uid": "7", "pid": "9"}},
		{"POST", "/items", "create", nil},
		{"get", "/items", "list", nil},
	}
	for _, c := range cases {
		e, params, err := table.Match(c.method, c.path)
		require.NoError(t, err, "%s %s", c.method, c.path)
		assert.Equal(t, c.want, result(t, e))
		if c.params == nil {
			assert.Empty(t, params)
		} else {
			assert.Equal(t, c.params, params)
		}
	}
}

func TestMatchMisses(t *testing.T) {
	table, err := NewRegistry().
		Get("/items/{id}", named("item")).
		Build()
	require.NoError(t, err)

	for _, c := range []struct{ method, path string }{
		{"GET", "/missing"},
		{"DELETE", "/items/42"},
		{"GET", "/items/42/extra"},
		{"GET", "/"},
	} {
		_, _, err := table.Match(c.method, c.path)
		assert.ErrorIs(t, err, ErrRouteNotFound, "%s %s", c.method, c.path)
	}
}

func TestLiteralBeatsParametric(t *testing.T) {
	// Registration order should not matter for specificity.
	table, err := NewRegistry().
		Get("/items/{id}", named("param")).
		Get("/items/special", named("literal")).
		Build()
	require.NoError(t, err)

	e, _, err := table.Match("GET", "/items/special")
	require.NoError(t, err)
	assert.Equal(t, "literal", result(t, e))

	e, params, err := table.Match("GET", "/items/42")
	require.NoError(t, err)
	assert.Equal(t, "param", result(t, e))
	assert.Equal(t, "42", params["id"])
}

func TestFirstRegisteredWinsOnTies(t *testing.T) {
	table, err := NewRegistry().
		Get("/things/{a}", named("first")).
		Get("/things/{b}", named("second")).
		Build()
	require.NoError(t, err)

	e, params, err := table.Match("GET", "/things/x")
	require.NoError(t, err)
	assert.Equal(t, "first", result(t, e))
	assert.Equal(t, map[string]string{"a": "x"}, params)
}

func TestRootPattern(t *testing.T) {
	table, err := NewRegistry().
		Get("/", named("root")).
		Build()
	require.NoError(t, err)

	e, _, err := table.Match("GET", "/")
	require.NoError(t, err)
	assert.Equal(t, "root", result(t, e))
}

func TestBuildRejectsBadPatterns(t *testing.T) {
	cases := []string{"", "items", "/a//b", "/x/{}", "/x/{id", "/x/{id}/{id}"}
	for _, p := range cases {
		_, err := NewRegistry().Get(p, named("x")).Build()
		assert.Error(t, err, "pattern %q", p)
	}
}

func TestBuildRejectsUntaggedHandlers(t *testing.T) {
	_, err := NewRegistry().Get("/x", Handler{}).Build()
	assert.Error(t, err)

	both := Handler{
		Sync:  func(context.Context, *request.Context) (any, error) { return nil, nil },
		Async: func(context.Context, *request.Context) (any, error) { return nil, nil },
	}
	_, err = NewRegistry().Get("/x", both).Build()
	assert.Error(t, err)
}

func TestAsyncTagResolvedAtRegistration(t *testing.T) {
	table, err := NewRegistry().
		Get("/s", Sync(func(context.Context, *request.Context) (any, error) { return nil, nil })).
		Get("/a", Async(func(context.Context, *request.Context) (any, error) { return nil, nil })).
		Build()
	require.NoError(t, err)

	s, _, err := table.Match("GET", "/s")
	require.NoError(t, err)
	assert.False(t, s.Handler.IsAsync())

	a, _, err := table.Match("GET", "/a")
	require.NoError(t, err)
	assert.True(t, a.Handler.IsAsync())
}

func TestHeadFallsBackToGet(t *testing.T) {
	table, err := NewRegistry().
		Get("/doc", named("get-doc")).
		Handle("HEAD", "/probe", named("head-probe")).
		Build()
	require.NoError(t, err)

	e, _, err := table.Match("HEAD", "/doc")
	require.NoError(t, err)
	assert.Equal(t, "get-doc", result(t, e))

	e, _, err = table.Match("HEAD", "/probe")
	require.NoError(t, err)
	assert.Equal(t, "head-probe", result(t, e))
}

func TestExplicitHeadBeatsMoreLiteralGet(t *testing.T) {
	table, err := NewRegistry().
		Get("/doc/latest", named("get-latest")).
		Handle("HEAD", "/doc/{rev}", named("head-rev")).
		Build()
	require.NoError(t, err)

	e, params, err := table.Match("HEAD", "/doc/latest")
	require.NoError(t, err)
	assert.Equal(t, "head-rev", result(t, e))
	assert.Equal(t, map[string]string{"rev": "latest"}, params)

	e, _, err = table.Match("GET", "/doc/latest")
	require.NoError(t, err)
	assert.Equal(t, "get-latest", result(t, e))
}

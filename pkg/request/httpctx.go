// pkg/request/httpctx.go
package request

import "context"

type ctxKey struct{}

// Into stashes a built Context so policy wrappers between matching and
// execution can pass it along without re-reading the body.
func Into(ctx context.Context, rc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// From retrieves the Context stashed by Into, or nil.
func From(ctx context.Context) *Context {
	rc, _ := ctx.Value(ctxKey{}).(*Context)
	return rc
}

// pkg/request/context.go
package request

import (
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
)

// Field is one header name/value pair.
type Field struct {
	Name  string
	Value string
}

// Headers preserves arrival order, which plain map iteration would lose.
type Headers []Field

// Get returns the first value for a header name, case-insensitively.
func (h Headers) Get(name string) string {
	canon := textproto.CanonicalMIMEHeaderKey(name)
	for _, f := range h {
		if f.Name == canon {
			return f.Value
		}
	}
	return ""
}

// Context is the structured form of one incoming request. It is owned
// exclusively by that request's execution path and never shared.
type Context struct {
	Method     string
	Path       string
	Headers    Headers
	Query      map[string][]string
	PathParams map[string]string
	Body       []byte
}

// FromHTTP decodes an *http.Request into a Context, draining the body.
// params carries path parameters extracted by the dispatcher.
func FromHTTP(r *http.Request, params map[string]string) (*Context, error) {
	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("request: read body: %w", err)
		}
		body = b
	}

	headers := make(Headers, 0, len(r.Header))
	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	// net/http has already folded headers into a map; restore a stable order.
	sort.Strings(names)
	for _, name := range names {
		for _, v := range r.Header[name] {
			headers = append(headers, Field{Name: name, Value: v})
		}
	}

	if params == nil {
		params = map[string]string{}
	}

	return &Context{
		Method:     strings.ToUpper(r.Method),
		Path:       r.URL.Path,
		Headers:    headers,
		Query:      r.URL.Query(),
		PathParams: params,
		Body:       body,
	}, nil
}

// Param returns one extracted path parameter.
func (c *Context) Param(name string) string { return c.PathParams[name] }

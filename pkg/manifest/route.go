package manifest

import (
	"errors"
	"path"
	"strings"
)

// RoutePolicy attaches policy to a route registered in code. Path must match
// the registered pattern verbatim (including {param} segments).
type RoutePolicy struct {
	Path   string `toml:"path"`
	Method string `toml:"method"`
	Guard  Guard  `toml:"guard"`
	Policy Policy `toml:"policy"`
}

type Guard struct {
	RequireAuth bool     `toml:"require_auth"`
	Subjects    []string `toml:"subjects"`
}

type Policy struct {
	TimeoutMS int `toml:"timeout_ms"`
}

// normalize path/method
func (r *RoutePolicy) normalize() error {
	if r.Path == "" {
		return errors.New("path is required")
	}
	if !strings.HasPrefix(r.Path, "/") {
		r.Path = "/" + r.Path
	}
	if r.Path != "/" {
		r.Path = path.Clean(r.Path)
	}
	r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
	if r.Method == "" {
		r.Method = "GET"
	}
	return nil
}

// validate fields that are independent of global state.
func (r *RoutePolicy) validate() error {
	if r.Policy.TimeoutMS < 0 {
		return errors.New("policy.timeout_ms must be >= 0")
	}
	if len(r.Guard.Subjects) > 0 && !r.Guard.RequireAuth {
		return errors.New("guard.subjects requires guard.require_auth")
	}
	return nil
}

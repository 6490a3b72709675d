package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// Config is the top-level manifest: server knobs, engine knobs, rate limits,
// and optional per-route policy overlays. Routes themselves are registered
// in code; the manifest only attaches policy to them.
type Config struct {
	Server Server        `toml:"server"`
	Engine Engine        `toml:"engine"`
	Limits Limits        `toml:"limits"`
	Routes []RoutePolicy `toml:"route"`
}

// Server configures the HTTP listener.
type Server struct {
	Listen         string `toml:"listen"`
	ReadTimeoutMS  int    `toml:"read_timeout_ms"`
	WriteTimeoutMS int    `toml:"write_timeout_ms"`
	IdleTimeoutMS  int    `toml:"idle_timeout_ms"`
}

// Engine configures the execution coordinator and the managed runtime.
type Engine struct {
	// LockMode is "exclusive" (one managed call at a time, the default) or
	// "parallel" (lock ops are no-ops).
	LockMode string `toml:"lock_mode"`
	// RequestTimeoutMS bounds the await step of every dispatch. Zero
	// disables the bound.
	RequestTimeoutMS int `toml:"request_timeout_ms"`
	// TimeoutStatus overrides the status for timed-out requests (504).
	TimeoutStatus int `toml:"timeout_status"`
}

// Limits configures per-IP request rate limiting. Disabled by default so
// benchmarks measure the engine, not the limiter.
type Limits struct {
	Enabled           bool `toml:"enabled"`
	RequestsPerMinute int  `toml:"requests_per_minute"`
}

// Validate normalizes and checks the whole manifest.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		c.Server.Listen = ":8000"
	}
	if c.Server.ReadTimeoutMS < 0 || c.Server.WriteTimeoutMS < 0 || c.Server.IdleTimeoutMS < 0 {
		return errors.New("server timeouts must be >= 0")
	}

	c.Engine.LockMode = strings.ToLower(strings.TrimSpace(c.Engine.LockMode))
	switch c.Engine.LockMode {
	case "", "exclusive", "parallel":
	default:
		return fmt.Errorf("engine.lock_mode %q invalid", c.Engine.LockMode)
	}
	if c.Engine.RequestTimeoutMS < 0 {
		return errors.New("engine.request_timeout_ms must be >= 0")
	}
	if s := c.Engine.TimeoutStatus; s != 0 && (s < 100 || s > 599) {
		return fmt.Errorf("engine.timeout_status %d out of range", s)
	}

	if c.Limits.Enabled && c.Limits.RequestsPerMinute <= 0 {
		return errors.New("limits.requests_per_minute must be > 0 when enabled")
	}

	seen := map[string]bool{}
	for i := range c.Routes {
		r := &c.Routes[i]
		if err := r.normalize(); err != nil {
			return fmt.Errorf("route %d: %w", i, err)
		}
		if err := r.validate(); err != nil {
			return fmt.Errorf("route %s %s: %w", r.Method, r.Path, err)
		}
		key := r.Method + " " + r.Path
		if seen[key] {
			return fmt.Errorf("route %s declared twice", key)
		}
		seen[key] = true
	}
	return nil
}

// Policy returns the policy overlay for a registered route pattern, if the
// manifest declares one.
func (c *Config) Policy(method, pattern string) (RoutePolicy, bool) {
	method = strings.ToUpper(strings.TrimSpace(method))
	for _, r := range c.Routes {
		if r.Method == method && r.Path == pattern {
			return r, true
		}
	}
	return RoutePolicy{}, false
}

// pkg/dispatch/table.go
package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRouteNotFound signals that no registered route matches a request.
var ErrRouteNotFound = errors.New("dispatch: route not found")

type segment struct {
	literal string
	param   string // non-empty for {name} segments
}

func parsePattern(pattern string) ([]segment, []string, error) {
	if pattern == "" || !strings.HasPrefix(pattern, "/") {
		return nil, nil, fmt.Errorf("pattern %q must start with /", pattern)
	}
	if pattern == "/" {
		return []segment{}, nil, nil
	}

	parts := strings.Split(strings.Trim(pattern, "/"), "/")
	segs := make([]segment, 0, len(parts))
	var params []string
	seen := map[string]bool{}
	for _, p := range parts {
		if p == "" {
			return nil, nil, fmt.Errorf("pattern %q has an empty segment", pattern)
		}
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			name := p[1 : len(p)-1]
			if name == "" {
				return nil, nil, fmt.Errorf("pattern %q has an unnamed parameter", pattern)
			}
			if seen[name] {
				return nil, nil, fmt.Errorf("pattern %q repeats parameter %q", pattern, name)
			}
			seen[name] = true
			params = append(params, name)
			segs = append(segs, segment{param: name})
			continue
		}
		if strings.ContainsAny(p, "{}") {
			return nil, nil, fmt.Errorf("pattern %q mixes literal and parameter in one segment", pattern)
		}
		segs = append(segs, segment{literal: p})
	}
	return segs, params, nil
}

// Table is the immutable route table. Lookups are lock-free: nothing
// mutates the table after Build.
type Table struct {
	byMethod map[string][]*Entry
}

// Match returns the entry for (method, path) plus extracted path
// parameters. Among matching patterns, the one with more literal segments
// wins; at equal specificity the first registered wins. HEAD requests that
// match no HEAD route fall back to the GET entries; the transport drops
// the body.
func (t *Table) Match(method, path string) (*Entry, map[string]string, error) {
	method = strings.ToUpper(method)
	parts := splitPath(path)

	best := bestMatch(t.byMethod[method], parts)
	if best == nil && method == "HEAD" {
		best = bestMatch(t.byMethod["GET"], parts)
	}
	if best == nil {
		return nil, nil, ErrRouteNotFound
	}

	if len(best.ParamNames) == 0 {
		return best, nil, nil
	}
	params := make(map[string]string, len(best.ParamNames))
	for i, s := range best.segs {
		if s.param != "" {
			params[s.param] = parts[i]
		}
	}
	return best, params, nil
}

func bestMatch(candidates []*Entry, parts []string) *Entry {
	var best *Entry
	bestLiterals := -1
	for _, e := range candidates {
		if !matchSegs(e.segs, parts) {
			continue
		}
		lit := 0
		for _, s := range e.segs {
			if s.param == "" {
				lit++
			}
		}
		// Strict > keeps the first-registered entry on ties.
		if lit > bestLiterals {
			best, bestLiterals = e, lit
		}
	}
	return best
}

func matchSegs(segs []segment, parts []string) bool {
	if len(segs) != len(parts) {
		return false
	}
	for i, s := range segs {
		if s.param != "" {
			continue
		}
		if s.literal != parts[i] {
			return false
		}
	}
	return true
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return []string{}
	}
	return strings.Split(trimmed, "/")
}

// core/router_guard.go
package core

import (
	"net/http"

	"github.com/justrach/turboAPI/pkg/manifest"
	"github.com/justrach/turboAPI/pkg/middleware/auth"
)

func withGuard(next http.HandlerFunc, a *auth.Middleware, g manifest.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.RequireAuth {
			next(w, r)
			return
		}
		// No auth middleware wired but the route requires it: refuse.
		if a == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		sub, err := a.Subject(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if len(g.Subjects) == 0 {
			next(w, r)
			return
		}
		for _, x := range g.Subjects {
			if sub == x {
				next(w, r)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

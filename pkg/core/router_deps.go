// core/router_deps.go
package core

import (
	"net/http"

	"github.com/justrach/turboAPI/pkg/dispatch"
	"github.com/justrach/turboAPI/pkg/engine"
	"github.com/justrach/turboAPI/pkg/middleware/auth"
	"github.com/justrach/turboAPI/pkg/middleware/logger"
	"github.com/justrach/turboAPI/pkg/transport/httpx"
)

// BuildDeps carries everything BuildRouter needs to assemble the serving
// handler.
type BuildDeps struct {
	Auth    *auth.Middleware
	LogMW   *logger.Middleware
	Metrics http.Handler
	Table   *dispatch.Table
	Coord   *engine.Coordinator
	Router  httpx.Router
}

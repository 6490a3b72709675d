// bundlefx/bundlefx.go
package bundlefx

import (
	"go.uber.org/fx"

	"github.com/justrach/turboAPI/pkg/middleware/auth"
	"github.com/justrach/turboAPI/pkg/middleware/logger"
	"github.com/justrach/turboAPI/pkg/middleware/metrics"
)

// Module bundles the ambient middleware providers for apps that assemble
// their own server instead of using serverfx.Module.
var Module = fx.Options(
	auth.Module,
	logger.Module,
	metrics.Module,
)

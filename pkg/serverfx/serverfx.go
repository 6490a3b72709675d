package serverfx

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/justrach/turboAPI/pkg/bridge"
	"github.com/justrach/turboAPI/pkg/core"
	"github.com/justrach/turboAPI/pkg/dispatch"
	"github.com/justrach/turboAPI/pkg/engine"
	"github.com/justrach/turboAPI/pkg/manifest"
	"github.com/justrach/turboAPI/pkg/middleware/auth"
	"github.com/justrach/turboAPI/pkg/middleware/logger"
	"github.com/justrach/turboAPI/pkg/middleware/metrics"
	"github.com/justrach/turboAPI/pkg/runtime"
	"github.com/justrach/turboAPI/pkg/transport/httpx"
)

// ---------- Options ----------

type Config struct {
	Service         string // for logs/metrics tags only
	ManifestEnv     string // e.g., TURBO_MANIFEST
	DefaultManifest string // e.g., "manifest.toml"
	ListenEnv       string // SERVER_LISTEN_ADDRESS
	TLSCertEnv      string // SSL_SERVER_CERTIFICATE
	TLSKeyEnv       string // SSL_SERVER_KEY
}

type Option func(*Config)

func WithService(s string) Option            { return func(c *Config) { c.Service = s } }
func WithManifestEnv(k string) Option        { return func(c *Config) { c.ManifestEnv = k } }
func WithDefaultManifest(path string) Option { return func(c *Config) { c.DefaultManifest = path } }
func WithListenEnv(k string) Option          { return func(c *Config) { c.ListenEnv = k } }
func WithTLSCertKeyEnv(cert, key string) Option {
	return func(c *Config) { c.TLSCertEnv, c.TLSKeyEnv = cert, key }
}

func defaultConfig() Config {
	return Config{
		Service:         "turbo",
		ManifestEnv:     "TURBO_MANIFEST",
		DefaultManifest: "manifest.toml",
		ListenEnv:       "SERVER_LISTEN_ADDRESS",
		TLSCertEnv:      "SSL_SERVER_CERTIFICATE",
		TLSKeyEnv:       "SSL_SERVER_KEY",
	}
}

// Module returns a complete Fx option set around an application-supplied
// route registry; add app-specific fx.Invoke(...) alongside.
func Module(reg *dispatch.Registry, opts ...Option) fx.Option {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return fx.Options(
		// Core middleware
		auth.Module,
		logger.Module,
		fx.Provide(fx.Annotate(metrics.ProvideMetrics, fx.ResultTags(`name:"metrics"`))),
		// Router impl
		fx.Provide(httpx.NewChi),
		// Config into DI
		fx.Provide(func() Config { return cfg }),
		fx.Supply(reg),
		// Engine wiring
		fx.Provide(provideManifest),
		fx.Provide(provideInterpreter),
		fx.Provide(provideBridge),
		fx.Provide(provideCoordinator),
		fx.Provide(provideTable),
		// Router
		fx.Provide(fx.Annotate(
			provideRouter,
			fx.ParamTags(``, ``, ``, `name:"metrics"`, ``, ``, ``, ``),
			fx.ResultTags(`name:"app"`),
		)),
		// Lifecycle
		fx.Invoke(registerHooks),
	)
}

// ---------- Engine providers ----------

func provideManifest(cfg Config, zl *zap.Logger) manifest.Config {
	cfgPath := envOr(cfg.ManifestEnv, cfg.DefaultManifest)
	man, err := manifest.Load(cfgPath)
	if err != nil {
		zl.Fatal("manifest load failed", zap.Error(err), zap.String("path", cfgPath))
	}
	return man
}

func provideInterpreter(man manifest.Config) *runtime.Interpreter {
	return runtime.NewInterpreter(runtime.ParseLockMode(man.Engine.LockMode))
}

func provideBridge(ip *runtime.Interpreter, zl *zap.Logger) *bridge.Bridge {
	b := bridge.New(ip, zl)
	metrics.SetSchedulerInflight(func() int64 {
		if s := b.Scheduler(); s != nil {
			return s.Inflight()
		}
		return 0
	})
	return b
}

func provideCoordinator(ip *runtime.Interpreter, b *bridge.Bridge, man manifest.Config, zl *zap.Logger) *engine.Coordinator {
	return engine.New(ip, b, engine.Config{
		Timeout:       time.Duration(man.Engine.RequestTimeoutMS) * time.Millisecond,
		TimeoutStatus: man.Engine.TimeoutStatus,
	}, zl)
}

func provideTable(reg *dispatch.Registry, zl *zap.Logger) *dispatch.Table {
	t, err := reg.Build()
	if err != nil {
		zl.Fatal("route table build failed", zap.Error(err))
	}
	return t
}

// ---------- Router ----------

func provideRouter(
	cfg Config,
	man manifest.Config,
	a *auth.Middleware,
	/* name:"metrics" */ m http.Handler,
	lm *logger.Middleware,
	t *dispatch.Table,
	coord *engine.Coordinator,
	r httpx.Router,
) http.Handler {
	return core.BuildRouter(man, core.BuildDeps{
		Auth:    a,
		LogMW:   lm,
		Metrics: m,
		Table:   t,
		Coord:   coord,
		Router:  r,
	})
}

// ---------- Lifecycle ----------

type serverDeps struct {
	fx.In
	Logger *zap.Logger
	Bridge *bridge.Bridge
	App    http.Handler `name:"app"`
}

func registerHooks(lc fx.Lifecycle, cfg Config, man manifest.Config, d serverDeps) {
	addr := envOr(cfg.ListenEnv, man.Server.Listen)
	cert := os.Getenv(cfg.TLSCertEnv)
	key := os.Getenv(cfg.TLSKeyEnv)

	srv := &http.Server{
		Addr:         addr,
		Handler:      d.App,
		ReadTimeout:  msOr(man.Server.ReadTimeoutMS, 15*time.Second),
		WriteTimeout: msOr(man.Server.WriteTimeoutMS, 30*time.Second),
		IdleTimeout:  msOr(man.Server.IdleTimeoutMS, 60*time.Second),
		TLSConfig:    &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13},
	}
	useTLS := fileExists(cert) && fileExists(key)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if useTLS {
				d.Logger.Info("server starting (TLS)",
					zap.String("service", cfg.Service),
					zap.String("addr", addr),
					zap.String("cert", cert),
				)
				go func() {
					if err := srv.ListenAndServeTLS(cert, key); err != nil && err != http.ErrServerClosed {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			} else {
				d.Logger.Info("server starting (PLAINTEXT)",
					zap.String("service", cfg.Service),
					zap.String("addr", addr),
				)
				go func() {
					srv.TLSConfig = nil
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping", zap.String("service", cfg.Service))
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			// The scheduler outlives every request; tear it down last.
			return d.Bridge.Shutdown(ctx)
		},
	})
}

// ---------- helpers ----------

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func msOr(ms int, def time.Duration) time.Duration {
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

package auth

import "go.uber.org/fx"

func ProvideAuthMiddleware() *Middleware { return FromEnv() }

var Module = fx.Options(
	fx.Provide(ProvideAuthMiddleware),
)

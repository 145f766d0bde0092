package session

import "go.uber.org/fx"

var Module = fx.Provide(
	fx.Annotate(
		NewMemoryStore,
		fx.As(new(Store)),
	),
)

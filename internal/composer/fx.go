package composer

import "go.uber.org/fx"

var Module = fx.Options(
	fx.Provide(
		New,
		fx.Annotate(
			NewFileOpener,
			fx.As(new(MediaOpener)),
		),
	),
)

package apiimpl

import (
	"github.com/ikayaalp/gastrofolly-sub000/internal/api"
	"go.uber.org/fx"
)

var Module = fx.Provide(
	fx.Annotate(
		New,
		fx.As(new(api.Client)),
	),
)

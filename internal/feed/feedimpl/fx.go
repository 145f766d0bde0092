package feedimpl

import (
	"github.com/ikayaalp/gastrofolly-sub000/internal/feed"
	"go.uber.org/fx"
)

var Module = fx.Provide(
	fx.Annotate(
		New,
		fx.As(new(feed.Store)),
	),
)

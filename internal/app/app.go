package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ikayaalp/gastrofolly-sub000/internal/api/apiimpl"
	"github.com/ikayaalp/gastrofolly-sub000/internal/autoplay"
	"github.com/ikayaalp/gastrofolly-sub000/internal/composer"
	"github.com/ikayaalp/gastrofolly-sub000/internal/feed"
	"github.com/ikayaalp/gastrofolly-sub000/internal/feed/feedimpl"
	"github.com/ikayaalp/gastrofolly-sub000/internal/interactions"
	"github.com/ikayaalp/gastrofolly-sub000/internal/playback"
	"github.com/ikayaalp/gastrofolly-sub000/internal/session"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/config"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/logger"
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		func() clockwork.Clock { return clockwork.NewRealClock() },
	),
	session.Module,
	apiimpl.Module,
	feedimpl.Module,
	playback.Module,
	autoplay.Module,
	interactions.Module,
	composer.Module,
	fx.Invoke(run),
)

func run(lc fx.Lifecycle, log logger.Logger, cfg *config.Config, feedStore feed.Store,
	controller *playback.Controller, coordinator *autoplay.Coordinator, store *interactions.Store) {
	appCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go startHttpServer(log, cfg)

			// The fullscreen player advances to the next video when a
			// clip ends; like failures must reach the user.
			controller.SetAdvanceFunc(coordinator.Advance)
			store.SubscribeErrors(func(err error) {
				log.Warn("Like toggle rejected", "error", err)
			})

			go func() {
				feedStore.Load(appCtx)
				store.LoadLikedIDs(appCtx)
			}()

			if err := feedStore.ScheduleTrendingRefresh(appCtx); err != nil {
				log.Error("Failed to schedule trending refresh", "error", err)
			}

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			coordinator.Close()
			controller.Close()
			store.Close()
			return nil
		},
	})
}

func startHttpServer(log logger.Logger, cfg *config.Config) {
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		healthCheckHandler(w, r, log)
	})

	log.Info(fmt.Sprintf("Starting server on :%d", cfg.App.Port))

	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.App.Port), nil); err != nil {
		log.Error("Server failed to start: %v", err)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request, logger logger.Logger) {
	logger.Info("Health check request received", "Method", r.Method, "URL", r.URL.String())
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("ok")); err != nil {
		logger.Error("Failed to write response", "Error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

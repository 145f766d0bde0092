package feedimpl

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// ScheduleTrendingRefresh keeps the trending-hashtag list warm with a
// periodic job until ctx is cancelled.
func (f *FeedImpl) ScheduleTrendingRefresh(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create trending scheduler: %w", err)
	}

	interval := time.Duration(f.config.Feed.TrendingRefreshMinutes) * time.Minute

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				f.logger.Info("Context cancelled, stopping trending refresh job")
				return
			}

			taskCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()

			f.refreshTrending(taskCtx)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule trending refresh: %w", err)
	}

	scheduler.Start()

	go func() {
		<-ctx.Done()
		f.logger.Info("Stopping trending refresh scheduler")
		if err := scheduler.Shutdown(); err != nil {
			f.logger.Error("Failed to shut down trending scheduler", "error", err)
		}
	}()

	return nil
}

func (f *FeedImpl) refreshTrending(ctx context.Context) {
	tags, err := f.api.ListTrendingHashtags(ctx)
	if err != nil {
		// Trending is decorative, keep whatever we had.
		f.logger.Warn("Failed to refresh trending hashtags", "error", err)
		return
	}

	f.mu.Lock()
	f.trending = tags
	f.mu.Unlock()

	f.notify()
}

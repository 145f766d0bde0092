package feed

import (
	"context"

	"github.com/ikayaalp/gastrofolly-sub000/internal/domain"
)

// LikeSnapshot captures a post's like state before an optimistic mutation so
// a failed toggle can restore the exact prior count, not just the flag.
type LikeSnapshot struct {
	Liked     bool
	LikeCount int
}

//go:generate go run go.uber.org/mock/mockgen -source=feed.go -destination=mocks/mock.go -package=mocks
type Store interface {
	// Load fetches the current feed page. Transport failures degrade
	// silently to an empty feed.
	Load(ctx context.Context)

	// Refresh re-fetches the feed with the current query.
	Refresh(ctx context.Context)

	// Posts returns the current page in feed order. Posts and the page
	// slice are immutable once handed out; patches publish replacements.
	Posts() []*domain.Post

	// Get returns the post with the given id, if present.
	Get(id string) (*domain.Post, bool)

	// Search schedules a re-fetch filtered by term. Calls are debounced:
	// only the last term within the debounce window issues a request.
	Search(ctx context.Context, term string)

	// Trending returns the last fetched trending hashtags.
	Trending() []domain.Hashtag

	// ScheduleTrendingRefresh keeps the trending list warm until ctx ends.
	ScheduleTrendingRefresh(ctx context.Context) error

	// ApplyLikePatch patches a post's like state in place and returns the
	// pre-patch snapshot. ok is false when the post is not in the feed.
	ApplyLikePatch(postID string, liked bool, delta int) (snap LikeSnapshot, ok bool)

	// RestoreLike puts a post's like state back to an earlier snapshot.
	RestoreLike(postID string, snap LikeSnapshot)

	// Subscribe registers a change listener invoked after every feed or
	// like-state change.
	Subscribe(fn func())
}

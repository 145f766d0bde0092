package feedimpl

import (
	"context"
	"sync"
	"time"

	"github.com/ikayaalp/gastrofolly-sub000/internal/api"
	"github.com/ikayaalp/gastrofolly-sub000/internal/domain"
	"github.com/ikayaalp/gastrofolly-sub000/internal/feed"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/config"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/logger"
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Api    api.Client
	Logger logger.Logger
	Config *config.Config
	Clock  clockwork.Clock
}

type FeedImpl struct {
	api    api.Client
	logger logger.Logger
	config *config.Config
	clock  clockwork.Clock

	mu        sync.Mutex
	posts     []*domain.Post
	byID      map[string]*domain.Post
	trending  []domain.Hashtag
	query     api.ListPostsOptions
	listeners []func()

	searchTimer clockwork.Timer
}

func New(opts Opts) *FeedImpl {
	return &FeedImpl{
		api:    opts.Api,
		logger: opts.Logger.WithComponent("FeedStore"),
		config: opts.Config,
		clock:  opts.Clock,
		byID:   map[string]*domain.Post{},
		query:  api.ListPostsOptions{Limit: opts.Config.Feed.PageLimit},
	}
}

var _ feed.Store = (*FeedImpl)(nil)

func (f *FeedImpl) Load(ctx context.Context) {
	f.mu.Lock()
	query := f.query
	f.mu.Unlock()

	posts, err := f.api.ListPosts(ctx, query)
	if err != nil {
		// The feed degrades to empty rather than surfacing load errors.
		f.logger.Warn("Failed to load feed, showing empty state", "error", err)
		posts = nil
	}

	f.mu.Lock()
	f.posts = posts
	f.byID = make(map[string]*domain.Post, len(posts))
	for _, p := range posts {
		f.byID[p.ID] = p
	}
	f.mu.Unlock()

	f.notify()
}

func (f *FeedImpl) Refresh(ctx context.Context) {
	f.Load(ctx)
}

func (f *FeedImpl) Posts() []*domain.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts
}

func (f *FeedImpl) Get(id string) (*domain.Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	return p, ok
}

// Search applies a trailing debounce: each call restarts the window and only
// the final term issues a request.
func (f *FeedImpl) Search(ctx context.Context, term string) {
	f.mu.Lock()
	f.query.Search = term
	if f.searchTimer != nil {
		f.searchTimer.Stop()
	}
	debounce := time.Duration(f.config.Feed.SearchDebounceMs) * time.Millisecond
	f.searchTimer = f.clock.AfterFunc(debounce, func() {
		if ctx.Err() != nil {
			return
		}
		f.Load(ctx)
	})
	f.mu.Unlock()
}

func (f *FeedImpl) Trending() []domain.Hashtag {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trending
}

func (f *FeedImpl) ApplyLikePatch(postID string, liked bool, delta int) (feed.LikeSnapshot, bool) {
	f.mu.Lock()
	old, ok := f.byID[postID]
	if !ok {
		f.mu.Unlock()
		return feed.LikeSnapshot{}, false
	}
	snap := feed.LikeSnapshot{Liked: old.Liked, LikeCount: old.LikeCount}
	patched := *old
	patched.Liked = liked
	patched.LikeCount += delta
	if patched.LikeCount < 0 {
		patched.LikeCount = 0
	}
	f.publishLocked(old, &patched)
	f.mu.Unlock()

	f.notify()
	return snap, true
}

func (f *FeedImpl) RestoreLike(postID string, snap feed.LikeSnapshot) {
	f.mu.Lock()
	old, ok := f.byID[postID]
	if !ok {
		f.mu.Unlock()
		return
	}
	restored := *old
	restored.Liked = snap.Liked
	restored.LikeCount = snap.LikeCount
	f.publishLocked(old, &restored)
	f.mu.Unlock()

	f.notify()
}

// publishLocked swaps a patched post into a fresh page slice. Published posts
// and page slices are never written in place, so subscribers holding either
// read consistent values without synchronizing with the store. Callers hold
// f.mu.
func (f *FeedImpl) publishLocked(old, patched *domain.Post) {
	page := make([]*domain.Post, len(f.posts))
	copy(page, f.posts)
	for i, p := range page {
		if p == old {
			page[i] = patched
			break
		}
	}
	f.posts = page
	f.byID[patched.ID] = patched
}

func (f *FeedImpl) Subscribe(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *FeedImpl) notify() {
	f.mu.Lock()
	listeners := make([]func(), len(f.listeners))
	copy(listeners, f.listeners)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

package interactions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ikayaalp/gastrofolly-sub000/internal/api/mocks"
	"github.com/ikayaalp/gastrofolly-sub000/internal/domain"
	"github.com/ikayaalp/gastrofolly-sub000/internal/feed"
	"github.com/ikayaalp/gastrofolly-sub000/internal/session"
	apperrors "github.com/ikayaalp/gastrofolly-sub000/pkg/errors"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/logger"
	"go.uber.org/mock/gomock"
)

// fakeFeed implements the like-patch surface of the feed store over a single
// page of posts.
type fakeFeed struct {
	mu    sync.Mutex
	posts map[string]*domain.Post
}

func newFakeFeed(posts ...*domain.Post) *fakeFeed {
	byID := map[string]*domain.Post{}
	for _, p := range posts {
		byID[p.ID] = p
	}
	return &fakeFeed{posts: byID}
}

func (f *fakeFeed) Load(context.Context)                        {}
func (f *fakeFeed) Refresh(context.Context)                     {}
func (f *fakeFeed) Posts() []*domain.Post                       { return nil }
func (f *fakeFeed) Search(context.Context, string)              {}
func (f *fakeFeed) Trending() []domain.Hashtag                  { return nil }
func (f *fakeFeed) ScheduleTrendingRefresh(context.Context) error { return nil }
func (f *fakeFeed) Subscribe(func())                            {}

func (f *fakeFeed) Get(id string) (*domain.Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	return p, ok
}

func (f *fakeFeed) ApplyLikePatch(postID string, liked bool, delta int) (feed.LikeSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return feed.LikeSnapshot{}, false
	}
	snap := feed.LikeSnapshot{Liked: p.Liked, LikeCount: p.LikeCount}
	p.Liked = liked
	p.LikeCount += delta
	return snap, true
}

func (f *fakeFeed) RestoreLike(postID string, snap feed.LikeSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.posts[postID]; ok {
		p.Liked = snap.Liked
		p.LikeCount = snap.LikeCount
	}
}

func (f *fakeFeed) likeCount(postID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[postID].LikeCount
}

func (f *fakeFeed) liked(postID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[postID].Liked
}

func newTestStore(t *testing.T, client *mocks.MockClient, feedStore feed.Store, authed bool) *Store {
	t.Helper()
	sess := session.NewMemoryStore()
	if authed {
		sess.SetToken("token-123")
	}
	s := New(Opts{
		Api:     client,
		Session: sess,
		Feed:    feedStore,
		Logger:  logger.New(logger.Opts{}),
	})
	// Run completions inline so tests are deterministic.
	s.dispatch = func(fn func()) { fn() }
	return s
}

func TestToggleLikeRequiresSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	feedStore := newFakeFeed(&domain.Post{ID: "p1", LikeCount: 7})
	s := newTestStore(t, client, feedStore, false)

	err := s.ToggleLike(context.Background(), "p1")
	if !apperrors.IsUnauthorized(err) {
		t.Fatalf("err = %v, want authorization required", err)
	}
	if feedStore.likeCount("p1") != 7 {
		t.Fatalf("like count = %d, want unchanged 7", feedStore.likeCount("p1"))
	}
	if s.Liked("p1") {
		t.Fatal("no mutation should happen without a session")
	}
}

func TestToggleLikeOptimisticSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().ToggleLike(gomock.Any(), "p1").Return(true, nil)

	feedStore := newFakeFeed(&domain.Post{ID: "p1", LikeCount: 7})
	s := newTestStore(t, client, feedStore, true)

	if err := s.ToggleLike(context.Background(), "p1"); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if !s.Liked("p1") {
		t.Fatal("post should be liked")
	}
	if got := feedStore.likeCount("p1"); got != 8 {
		t.Fatalf("like count = %d, want 8", got)
	}
	if !feedStore.liked("p1") {
		t.Fatal("post's viewer flag should be set")
	}
}

func TestToggleLikeRollsBackOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().ToggleLike(gomock.Any(), "p1").Return(false, errors.New("network down"))

	feedStore := newFakeFeed(&domain.Post{ID: "p1", LikeCount: 7})
	s := newTestStore(t, client, feedStore, true)

	var surfaced error
	s.SubscribeErrors(func(err error) { surfaced = err })

	if err := s.ToggleLike(context.Background(), "p1"); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}

	// The exact prior count is restored, not just the flag.
	if got := feedStore.likeCount("p1"); got != 7 {
		t.Fatalf("like count after rollback = %d, want 7", got)
	}
	if feedStore.liked("p1") || s.Liked("p1") {
		t.Fatal("liked state should be rolled back")
	}
	if surfaced == nil {
		t.Fatal("failure must be surfaced to the user")
	}
}

func TestRapidTogglesNeverExceedOneInFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	feedStore := newFakeFeed(&domain.Post{ID: "p1", LikeCount: 7})
	s := newTestStore(t, client, feedStore, true)

	// Queue completions manually to simulate requests in flight.
	var queued []func()
	s.dispatch = func(fn func()) { queued = append(queued, fn) }

	serverLiked := false
	calls := 0
	client.EXPECT().ToggleLike(gomock.Any(), "p1").DoAndReturn(
		func(context.Context, string) (bool, error) {
			calls++
			serverLiked = !serverLiked
			return serverLiked, nil
		}).AnyTimes()

	// Two toggles before the first request resolves.
	if err := s.ToggleLike(context.Background(), "p1"); err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if err := s.ToggleLike(context.Background(), "p1"); err != nil {
		t.Fatalf("second toggle: %v", err)
	}

	if len(queued) != 1 {
		t.Fatalf("dispatched %d requests, want 1 while in flight", len(queued))
	}
	if got := feedStore.likeCount("p1"); got != 7 {
		t.Fatalf("net optimistic delta = %d, want 0", got-7)
	}

	// Drain the queue: the first completion issues one follow-up toggle
	// to reach the user's latest intent.
	for len(queued) > 0 {
		next := queued[0]
		queued = queued[1:]
		next()
	}

	if calls != 2 {
		t.Fatalf("server toggles = %d, want 2", calls)
	}
	if serverLiked != false {
		t.Fatal("server state should match the user's final intent")
	}
	if got := feedStore.likeCount("p1"); got != 7 {
		t.Fatalf("final like count = %d, want 7", got)
	}
}

// gatedFeed holds the first unlike patch open so an opposing like patch can
// race ahead of it when the store lets one through.
type gatedFeed struct {
	*fakeFeed
	unlikeEntered chan struct{}
	likeApplied   chan struct{}
	enterOnce     sync.Once
	likeOnce      sync.Once
}

func (g *gatedFeed) ApplyLikePatch(postID string, liked bool, delta int) (feed.LikeSnapshot, bool) {
	if delta < 0 {
		g.enterOnce.Do(func() { close(g.unlikeEntered) })
		select {
		case <-g.likeApplied:
		case <-time.After(50 * time.Millisecond):
		}
	}
	snap, ok := g.fakeFeed.ApplyLikePatch(postID, liked, delta)
	if delta > 0 {
		g.likeOnce.Do(func() { close(g.likeApplied) })
	}
	return snap, ok
}

func TestConcurrentOpposingTogglesRollBackExactly(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	feedStore := &gatedFeed{
		fakeFeed:      newFakeFeed(&domain.Post{ID: "p1", LikeCount: 7, Liked: true}),
		unlikeEntered: make(chan struct{}),
		likeApplied:   make(chan struct{}),
	}
	s := newTestStore(t, client, feedStore, true)
	s.dispatch = func(fn func()) { go fn() }

	client.EXPECT().ListLikedPostIDs(gomock.Any()).Return([]string{"p1"}, nil)
	s.LoadLikedIDs(context.Background())

	errSeen := make(chan error, 1)
	s.SubscribeErrors(func(err error) { errSeen <- err })

	release := make(chan struct{})
	client.EXPECT().ToggleLike(gomock.Any(), "p1").DoAndReturn(
		func(context.Context, string) (bool, error) {
			<-release
			return false, errors.New("network down")
		})

	// An unlike and an opposing re-like race while the request is held
	// open; the pending snapshot must record the state before the first
	// patch, whichever patch the feed sees first.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.ToggleLike(context.Background(), "p1")
	}()
	<-feedStore.unlikeEntered
	go func() {
		defer wg.Done()
		s.ToggleLike(context.Background(), "p1")
	}()
	wg.Wait()

	close(release)

	select {
	case <-errSeen:
	case <-time.After(2 * time.Second):
		t.Fatal("toggle failure never surfaced")
	}

	// Rollback restores the exact state before the first patch, count
	// included.
	if got := feedStore.likeCount("p1"); got != 7 {
		t.Fatalf("like count after rollback = %d, want the exact prior count 7", got)
	}
	if !feedStore.liked("p1") || !s.Liked("p1") {
		t.Fatal("liked state should be rolled back to liked")
	}
}

func TestToggleSaveIsLocal(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl) // no expectations: any call fails
	feedStore := newFakeFeed(&domain.Post{ID: "p1"})
	s := newTestStore(t, client, feedStore, false)

	s.ToggleSave("p1")
	if !s.Saved("p1") {
		t.Fatal("post should be saved")
	}
	s.ToggleSave("p1")
	if s.Saved("p1") {
		t.Fatal("second toggle should unsave")
	}
}

func TestLoadLikedIDsFailsSilently(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().ListLikedPostIDs(gomock.Any()).Return(nil, errors.New("boom"))

	feedStore := newFakeFeed()
	s := newTestStore(t, client, feedStore, true)

	s.LoadLikedIDs(context.Background())
	if s.Liked("anything") {
		t.Fatal("liked set should be empty after a failed load")
	}
}

func TestLoadLikedIDsPopulatesSet(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().ListLikedPostIDs(gomock.Any()).Return([]string{"a", "b"}, nil)

	feedStore := newFakeFeed()
	s := newTestStore(t, client, feedStore, true)

	s.LoadLikedIDs(context.Background())
	if !s.Liked("a") || !s.Liked("b") {
		t.Fatal("liked ids should be loaded")
	}
	if s.Liked("c") {
		t.Fatal("unexpected id in liked set")
	}
}

func TestLikeCountLabel(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	feedStore := newFakeFeed(&domain.Post{ID: "p1", LikeCount: 1234567})
	s := newTestStore(t, client, feedStore, false)

	if got := s.LikeCountLabel("p1"); got != "1,234,567" {
		t.Fatalf("label = %q, want 1,234,567", got)
	}
	if got := s.LikeCountLabel("missing"); got != "0" {
		t.Fatalf("label for unknown post = %q, want 0", got)
	}
}

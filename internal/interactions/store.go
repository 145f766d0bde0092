package interactions

import (
	"context"
	"sync"

	"github.com/ikayaalp/gastrofolly-sub000/internal/api"
	"github.com/ikayaalp/gastrofolly-sub000/internal/feed"
	"github.com/ikayaalp/gastrofolly-sub000/internal/session"
	apperrors "github.com/ikayaalp/gastrofolly-sub000/pkg/errors"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/formatter"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Api     api.Client
	Session session.Store
	Feed    feed.Store
	Logger  logger.Logger
}

// pendingLike tracks the single outstanding toggle request for one post.
// While it exists, further toggles only flip local state and record the
// desired outcome; at most one request is on the wire per post at a time.
type pendingLike struct {
	desired bool
	snap    feed.LikeSnapshot
}

// Store holds the viewer's liked and saved post sets. Likes are server-backed
// and mutated optimistically with rollback on failure; saves are local to the
// session and never touch the network.
type Store struct {
	api     api.Client
	session session.Store
	feed    feed.Store
	logger  logger.Logger

	// toggleMu serializes whole like mutations (local flip + feed patch +
	// pending bookkeeping) so a concurrent opposing toggle cannot land its
	// patch between another toggle's patch and snapshot capture.
	toggleMu sync.Mutex

	mu        sync.Mutex
	liked     map[string]struct{}
	saved     map[string]struct{}
	pending   map[string]*pendingLike
	listeners []func()
	errFns    []func(error)
	closed    bool

	// dispatch runs the network leg of a toggle; tests replace it to run
	// completions inline.
	dispatch func(fn func())
}

func New(opts Opts) *Store {
	return &Store{
		api:      opts.Api,
		session:  opts.Session,
		feed:     opts.Feed,
		logger:   opts.Logger.WithComponent("InteractionStore"),
		liked:    map[string]struct{}{},
		saved:    map[string]struct{}{},
		pending:  map[string]*pendingLike{},
		dispatch: func(fn func()) { go fn() },
	}
}

// LoadLikedIDs fetches the viewer's liked post ids at feed load. Failures
// degrade silently to an empty set.
func (s *Store) LoadLikedIDs(ctx context.Context) {
	ids, err := s.api.ListLikedPostIDs(ctx)
	if err != nil {
		s.logger.Warn("Failed to load liked post ids, starting empty", "error", err)
		ids = nil
	}

	s.mu.Lock()
	s.liked = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.liked[id] = struct{}{}
	}
	s.mu.Unlock()
	s.notify()
}

// ToggleLike optimistically flips the viewer's like on a post and reconciles
// with the server. Without an authenticated session it performs no mutation
// and returns an authorization-required error.
func (s *Store) ToggleLike(ctx context.Context, postID string) error {
	if _, ok := s.session.Token(); !ok {
		return apperrors.ErrUnauthorized
	}

	s.toggleMu.Lock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.toggleMu.Unlock()
		return nil
	}

	_, wasLiked := s.liked[postID]
	nowLiked := !wasLiked
	if nowLiked {
		s.liked[postID] = struct{}{}
	} else {
		delete(s.liked, postID)
	}

	delta := -1
	if nowLiked {
		delta = 1
	}

	p, inFlight := s.pending[postID]
	if inFlight {
		// Coalesce: the outstanding request's completion will issue a
		// follow-up if the server disagrees with the latest intent.
		p.desired = nowLiked
	}
	s.mu.Unlock()

	snap, known := s.feed.ApplyLikePatch(postID, nowLiked, delta)

	if !inFlight {
		if !known {
			snap = feed.LikeSnapshot{Liked: wasLiked}
		}
		s.mu.Lock()
		s.pending[postID] = &pendingLike{desired: nowLiked, snap: snap}
		s.mu.Unlock()
	}

	s.toggleMu.Unlock()
	s.notify()

	if !inFlight {
		s.dispatch(func() { s.runToggle(ctx, postID) })
	}
	return nil
}

// runToggle performs the network leg of a like toggle and reconciles or rolls
// back when it resolves.
func (s *Store) runToggle(ctx context.Context, postID string) {
	serverLiked, err := s.api.ToggleLike(ctx, postID)

	s.toggleMu.Lock()
	s.mu.Lock()
	p, ok := s.pending[postID]
	if !ok || s.closed {
		// Torn down while in flight.
		s.mu.Unlock()
		s.toggleMu.Unlock()
		return
	}

	if err != nil {
		snap := p.snap
		delete(s.pending, postID)
		if snap.Liked {
			s.liked[postID] = struct{}{}
		} else {
			delete(s.liked, postID)
		}
		s.mu.Unlock()

		s.feed.RestoreLike(postID, snap)
		s.toggleMu.Unlock()

		s.logger.Warn("Like toggle failed, rolled back", "post_id", postID, "error", err)
		s.notify()
		s.notifyError(err)
		return
	}

	if serverLiked != p.desired {
		s.mu.Unlock()
		s.toggleMu.Unlock()
		// The user toggled again while this request was in flight;
		// issue one follow-up to reach the desired state.
		s.dispatch(func() { s.runToggle(ctx, postID) })
		return
	}

	// Server agrees with local intent; adopt its authoritative flag.
	if serverLiked {
		s.liked[postID] = struct{}{}
	} else {
		delete(s.liked, postID)
	}
	delete(s.pending, postID)
	s.mu.Unlock()
	s.toggleMu.Unlock()
	s.notify()
}

// ToggleSave flips a post in the session-local saved set. No network call, no
// persistence beyond the app session.
func (s *Store) ToggleSave(postID string) {
	s.mu.Lock()
	if _, ok := s.saved[postID]; ok {
		delete(s.saved, postID)
	} else {
		s.saved[postID] = struct{}{}
	}
	s.mu.Unlock()
	s.notify()
}

// Liked reports whether the viewer has liked the post.
func (s *Store) Liked(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.liked[postID]
	return ok
}

// Saved reports whether the post is in the session's saved set.
func (s *Store) Saved(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.saved[postID]
	return ok
}

// LikeCountLabel returns the post's like count formatted for display.
func (s *Store) LikeCountLabel(postID string) string {
	if p, ok := s.feed.Get(postID); ok {
		return formatter.FormatCount(p.LikeCount)
	}
	return "0"
}

// Subscribe registers a change listener.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SubscribeErrors registers a listener for like failures, which must be
// visible to the user.
func (s *Store) SubscribeErrors(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errFns = append(s.errFns, fn)
}

// Close makes any in-flight completions no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.pending = map[string]*pendingLike{}
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (s *Store) notifyError(err error) {
	s.mu.Lock()
	fns := make([]func(error), len(s.errFns))
	copy(fns, s.errFns)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(err)
	}
}

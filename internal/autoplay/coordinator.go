package autoplay

import (
	"sync"
	"time"

	"github.com/ikayaalp/gastrofolly-sub000/internal/domain"
	"github.com/ikayaalp/gastrofolly-sub000/internal/feed"
	"github.com/ikayaalp/gastrofolly-sub000/internal/playback"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/config"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/logger"
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
)

// Entry is one feed entry currently satisfying the visibility threshold
// (>=80% of its area on screen), reported by the rendering layer in on-screen
// order. Video entries carry the surface that would render them.
type Entry struct {
	PostID  string
	Media   domain.MediaRef
	Surface playback.Surface
}

type Opts struct {
	fx.In

	Controller *playback.Controller
	Feed       feed.Store
	Logger     logger.Logger
	Config     *config.Config
	Clock      clockwork.Clock
}

// Coordinator selects at most one video-bearing visible entry as the active
// playback target. Selection is deterministic: the first video in on-screen
// order wins, regardless of how visible the others are. Rapid successive
// visibility events are last-write-wins.
type Coordinator struct {
	controller *playback.Controller
	feed       feed.Store
	logger     logger.Logger
	clock      clockwork.Clock
	debounce   time.Duration

	mu       sync.Mutex
	activeID string
	surfaces map[string]playback.Surface
	timer    clockwork.Timer
	closed   bool
}

func New(opts Opts) *Coordinator {
	c := &Coordinator{
		controller: opts.Controller,
		feed:       opts.Feed,
		logger:     opts.Logger.WithComponent("AutoplayCoordinator"),
		clock:      opts.Clock,
		debounce:   time.Duration(opts.Config.Autoplay.DebounceMs) * time.Millisecond,
		surfaces:   map[string]playback.Surface{},
	}
	// Feed reloads recycle entries; surfaces for posts that left the feed
	// must not be held here.
	opts.Feed.Subscribe(c.pruneSurfaces)
	return c
}

// pruneSurfaces evicts registered surfaces for posts no longer in the feed.
func (c *Coordinator) pruneSurfaces() {
	current := map[string]struct{}{}
	for _, p := range c.feed.Posts() {
		current[p.ID] = struct{}{}
	}

	c.mu.Lock()
	for id := range c.surfaces {
		if _, ok := current[id]; !ok {
			delete(c.surfaces, id)
		}
	}
	c.mu.Unlock()
}

// Report recomputes the autoplay selection from the entries currently
// visible. No video among them clears the session.
func (c *Coordinator) Report(visible []Entry) {
	var target *Entry
	for i := range visible {
		if visible[i].Media.Kind == domain.MediaVideo {
			target = &visible[i]
			break
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	for _, e := range visible {
		if e.Surface != nil {
			c.surfaces[e.PostID] = e.Surface
		}
	}

	// Every report supersedes any selection still waiting on the
	// debounce window: only the most recent target matters.
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	targetID := ""
	if target != nil {
		targetID = target.PostID
	}
	if targetID == c.activeID {
		c.mu.Unlock()
		return
	}

	if c.debounce <= 0 {
		c.applyLocked(target)
		c.mu.Unlock()
		return
	}

	selected := target
	c.timer = c.clock.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		if !c.closed {
			c.applyLocked(selected)
		}
		c.mu.Unlock()
	})
	c.mu.Unlock()
}

// applyLocked binds the selected entry, or clears the session when nil.
// Callers hold c.mu.
func (c *Coordinator) applyLocked(target *Entry) {
	if target == nil {
		c.activeID = ""
		c.controller.Release()
		return
	}
	c.activeID = target.PostID
	c.controller.Bind(target.PostID, target.Media.URL, target.Surface, playback.InlineOptions())
}

// Active returns the post id currently selected for autoplay, if any.
func (c *Coordinator) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// Advance moves the fullscreen player to the next video-bearing post in feed
// order after fromID. With nothing left to play, the session is cleared.
func (c *Coordinator) Advance(fromID string) {
	posts := c.feed.Posts()

	var next *domain.Post
	seen := false
	for _, p := range posts {
		if p.ID == fromID {
			seen = true
			continue
		}
		if seen && p.HasVideo() {
			next = p
			break
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if next == nil {
		c.activeID = ""
		c.controller.Release()
		return
	}

	surface, ok := c.surfaces[next.ID]
	if !ok {
		c.logger.Debug("No surface registered for next video, stopping", "post_id", next.ID)
		c.activeID = ""
		c.controller.Release()
		return
	}

	video, _ := next.Video()
	c.activeID = next.ID
	c.controller.Bind(next.ID, video.URL, surface, playback.FullscreenOptions())
}

// Close clears the session and drops any pending selection.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.closed = true
	c.activeID = ""
	c.mu.Unlock()
	c.controller.Release()
}

package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ikayaalp/gastrofolly-sub000/pkg/logger"
	"github.com/jonboulle/clockwork"
)

type fakeSurface struct {
	mu       sync.Mutex
	loads    []string
	opts     LoadOptions
	events   Events
	plays    int
	pauses   int
	seeks    []int64
	releases int
}

func (s *fakeSurface) Load(url string, opts LoadOptions, ev Events) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads = append(s.loads, url)
	s.opts = opts
	s.events = ev
}

func (s *fakeSurface) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays++
}

func (s *fakeSurface) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses++
}

func (s *fakeSurface) SeekTo(pos int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeks = append(s.seeks, pos)
}

func (s *fakeSurface) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases++
}

func (s *fakeSurface) lastSeek(t *testing.T) int64 {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.seeks) == 0 {
		t.Fatal("expected at least one seek")
	}
	return s.seeks[len(s.seeks)-1]
}

func newTestController(clock clockwork.Clock) *Controller {
	return New(Opts{
		Logger: logger.New(logger.Opts{}),
		Clock:  clock,
	})
}

// waitFor polls until cond holds; fake clock timer callbacks fire on their
// own goroutine, so tests wait for their effects instead of asserting
// immediately after Advance.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func (d *tapDetector) disarmed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == waitingForTap
}

func TestBindTransitionsToPlaying(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video-1.mp4", surface, InlineOptions())

	if got := c.State(); got != Loading {
		t.Fatalf("state after bind = %v, want %v", got, Loading)
	}
	if got := c.Session().ActivePostID; got != "post-1" {
		t.Fatalf("active post = %q, want post-1", got)
	}

	surface.events.Ready(60000)

	if got := c.State(); got != Playing {
		t.Fatalf("state after ready = %v, want %v", got, Playing)
	}
	session := c.Session()
	if !session.IsPlaying {
		t.Fatal("session should be playing after autoplay ready")
	}
	if session.DurationMillis != 60000 {
		t.Fatalf("duration = %d, want 60000", session.DurationMillis)
	}
	if !surface.opts.Muted || !surface.opts.Loop {
		t.Fatal("inline binding should be muted and looping")
	}
}

func TestBindReleasesPreviousSurfaceFirst(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	first := &fakeSurface{}
	second := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video-1.mp4", first, InlineOptions())
	first.events.Ready(30000)

	c.Bind("post-2", "https://cdn/video-2.mp4", second, InlineOptions())

	if first.releases != 1 {
		t.Fatalf("previous surface released %d times, want 1", first.releases)
	}
	if got := c.Session().ActivePostID; got != "post-2" {
		t.Fatalf("active post = %q, want post-2", got)
	}

	// A stale ready from the replaced binding must not resurrect it.
	first.events.Ready(30000)
	if got := c.Session().ActivePostID; got != "post-2" {
		t.Fatalf("stale event changed active post to %q", got)
	}
	if got := c.State(); got != Loading {
		t.Fatalf("stale ready advanced state to %v", got)
	}
}

func TestSingleActiveSession(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)

	surfaces := []*fakeSurface{{}, {}, {}}
	ids := []string{"a", "b", "c"}
	for i, s := range surfaces {
		c.Bind(ids[i], "https://cdn/"+ids[i]+".mp4", s, InlineOptions())
		surfaces[i].events.Ready(10000)
	}

	playingSessions := 0
	if c.Session().IsPlaying {
		playingSessions = 1
	}
	if playingSessions != 1 {
		t.Fatalf("playing sessions = %d, want 1", playingSessions)
	}
	if got := c.Session().ActivePostID; got != "c" {
		t.Fatalf("active post = %q, want c", got)
	}
	for i := 0; i < 2; i++ {
		if surfaces[i].releases != 1 {
			t.Fatalf("surface %d released %d times, want 1", i, surfaces[i].releases)
		}
	}
}

func TestTogglePlay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video.mp4", surface, FullscreenOptions())
	surface.events.Ready(60000)

	c.TogglePlay()
	if got := c.State(); got != Paused {
		t.Fatalf("state after toggle = %v, want %v", got, Paused)
	}
	if surface.pauses != 1 {
		t.Fatalf("pauses = %d, want 1", surface.pauses)
	}

	c.TogglePlay()
	if got := c.State(); got != Playing {
		t.Fatalf("state after second toggle = %v, want %v", got, Playing)
	}
}

func TestBufferingTransitions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video.mp4", surface, InlineOptions())
	surface.events.Ready(60000)

	surface.events.Stalled()
	if got := c.State(); got != Buffering {
		t.Fatalf("state after stall = %v, want %v", got, Buffering)
	}
	if !c.Session().IsBuffering {
		t.Fatal("session should report buffering")
	}

	surface.events.Resumed()
	if got := c.State(); got != Playing {
		t.Fatalf("state after resume = %v, want %v", got, Playing)
	}
	if c.Session().IsBuffering {
		t.Fatal("session should not report buffering after resume")
	}
}

func TestSeekClamps(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video.mp4", surface, FullscreenOptions())
	surface.events.Ready(60000)

	c.SeekTo(-5000)
	if got := surface.lastSeek(t); got != 0 {
		t.Fatalf("seek below zero clamped to %d, want 0", got)
	}

	c.SeekTo(90000)
	if got := surface.lastSeek(t); got != 60000 {
		t.Fatalf("seek beyond duration clamped to %d, want 60000", got)
	}
}

func TestSeekWithUnknownDurationIsNoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video.mp4", surface, FullscreenOptions())

	c.SeekTo(1000)
	if len(surface.seeks) != 0 {
		t.Fatalf("seeks = %v, want none before duration is known", surface.seeks)
	}
}

func TestDoubleTapRightSeeksForward(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video.mp4", surface, FullscreenOptions())
	surface.events.Ready(60000)
	surface.events.Position(10000)

	c.Tap(TapRight)
	clock.Advance(100 * time.Millisecond)
	c.Tap(TapRight)

	if got := surface.lastSeek(t); got != 15000 {
		t.Fatalf("double-tap seek position = %d, want 15000", got)
	}

	dir, shown := c.Indicator()
	if !shown || dir != SeekForward {
		t.Fatalf("indicator = (%v, %v), want (forward, shown)", dir, shown)
	}

	clock.Advance(IndicatorDuration)
	waitFor(t, func() bool {
		_, shown := c.Indicator()
		return !shown
	})
}

func TestDoubleTapLeftSeeksBackward(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video.mp4", surface, FullscreenOptions())
	surface.events.Ready(60000)
	surface.events.Position(10000)

	c.Tap(TapLeft)
	c.Tap(TapLeft)

	if got := surface.lastSeek(t); got != 5000 {
		t.Fatalf("double-tap seek position = %d, want 5000", got)
	}
	if dir, shown := c.Indicator(); !shown || dir != SeekBackward {
		t.Fatalf("indicator = (%v, %v), want (backward, shown)", dir, shown)
	}
}

func TestSlowTapsNeverSeek(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video.mp4", surface, FullscreenOptions())
	surface.events.Ready(60000)
	surface.events.Position(10000)

	c.Tap(TapRight)
	clock.Advance(DoubleTapWindow)
	waitFor(t, c.taps.disarmed)

	c.Tap(TapRight)
	clock.Advance(DoubleTapWindow)
	waitFor(t, c.taps.disarmed)

	if len(surface.seeks) != 0 {
		t.Fatalf("seeks = %v, want none for taps spaced a full window apart", surface.seeks)
	}
}

func TestMismatchedHalvesDoNotPair(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video.mp4", surface, FullscreenOptions())
	surface.events.Ready(60000)
	surface.events.Position(10000)

	c.Tap(TapLeft)
	c.Tap(TapRight)

	if len(surface.seeks) != 0 {
		t.Fatalf("seeks = %v, want none for taps in different halves", surface.seeks)
	}

	// The second tap re-armed for the right half; pairing it now seeks.
	c.Tap(TapRight)
	if got := surface.lastSeek(t); got != 15000 {
		t.Fatalf("seek = %d, want 15000", got)
	}
}

func TestScrubTapSeeksProportionally(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video.mp4", surface, FullscreenOptions())
	surface.events.Ready(60000)

	c.SetScrubWidth(200)
	c.ScrubTap(50)
	if got := surface.lastSeek(t); got != 15000 {
		t.Fatalf("scrub seek = %d, want 15000", got)
	}

	c.ScrubTap(300)
	if got := surface.lastSeek(t); got != 60000 {
		t.Fatalf("scrub past the end seek = %d, want 60000", got)
	}
}

func TestScrubWithoutWidthIsNoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video.mp4", surface, FullscreenOptions())
	surface.events.Ready(60000)

	c.ScrubTap(50)
	if len(surface.seeks) != 0 {
		t.Fatalf("seeks = %v, want none with unknown width", surface.seeks)
	}
}

func TestDurationCacheSurvivesRebind(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	first := &fakeSurface{}
	second := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video.mp4", first, InlineOptions())
	first.events.Ready(42000)

	c.Bind("post-2", "https://cdn/other.mp4", second, InlineOptions())

	// Re-entering the first video shows the cached duration before reload.
	third := &fakeSurface{}
	c.Bind("post-1", "https://cdn/video.mp4", third, InlineOptions())
	if got := c.Session().DurationMillis; got != 42000 {
		t.Fatalf("cached duration = %d, want 42000", got)
	}
}

func TestRebindResumesCachedPosition(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	first := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video.mp4", first, InlineOptions())
	first.events.Ready(42000)
	first.events.Position(12345)

	second := &fakeSurface{}
	c.Bind("post-2", "https://cdn/other.mp4", second, InlineOptions())

	// Re-entering the first video shows where the viewer left off.
	third := &fakeSurface{}
	c.Bind("post-1", "https://cdn/video.mp4", third, InlineOptions())
	if got := c.Session().PositionMillis; got != 12345 {
		t.Fatalf("resumed position = %d, want 12345", got)
	}
}

func TestFinishedVideoRebindsFromTop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	first := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video.mp4", first, FullscreenOptions())
	first.events.Ready(42000)
	first.events.Position(40000)
	first.events.Ended()

	second := &fakeSurface{}
	c.Bind("post-1", "https://cdn/video.mp4", second, FullscreenOptions())
	if got := c.Session().PositionMillis; got != 0 {
		t.Fatalf("position after re-entering a finished video = %d, want 0", got)
	}
}

func TestInlineEndLoopsSilently(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	advanced := ""
	c.SetAdvanceFunc(func(postID string) { advanced = postID })

	c.Bind("post-1", "https://cdn/video.mp4", surface, InlineOptions())
	surface.events.Ready(10000)
	surface.events.Ended()

	if got := c.State(); got != Playing {
		t.Fatalf("state after looping end = %v, want %v", got, Playing)
	}
	if got := surface.lastSeek(t); got != 0 {
		t.Fatalf("loop restart seek = %d, want 0", got)
	}
	if advanced != "" {
		t.Fatalf("inline loop advanced to %q, want no advance", advanced)
	}
}

func TestFullscreenEndAdvances(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	advanced := ""
	c.SetAdvanceFunc(func(postID string) { advanced = postID })

	c.Bind("post-1", "https://cdn/video.mp4", surface, FullscreenOptions())
	surface.events.Ready(10000)
	surface.events.Ended()

	if got := c.State(); got != Ended {
		t.Fatalf("state after end = %v, want %v", got, Ended)
	}
	if advanced != "post-1" {
		t.Fatalf("advanced from %q, want post-1", advanced)
	}
}

func TestPlaybackFailureDegradesQuietly(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	degraded := ""
	c.SetDegradeFunc(func(postID string) { degraded = postID })

	c.Bind("post-1", "https://cdn/video.mp4", surface, InlineOptions())
	surface.events.Failed(errors.New("decoder error"))

	if got := c.State(); got != Idle {
		t.Fatalf("state after failure = %v, want %v", got, Idle)
	}
	if got := c.Session().ActivePostID; got != "" {
		t.Fatalf("session still bound to %q after failure", got)
	}
	if degraded != "post-1" {
		t.Fatalf("degraded post = %q, want post-1", degraded)
	}
}

func TestCloseMakesLateEventsNoops(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestController(clock)
	surface := &fakeSurface{}

	c.Bind("post-1", "https://cdn/video.mp4", surface, InlineOptions())
	events := surface.events
	c.Close()

	events.Ready(60000)
	events.Position(1000)
	events.Ended()

	if got := c.State(); got != Idle {
		t.Fatalf("state after close = %v, want %v", got, Idle)
	}
}

package playback

import (
	"sync"
	"time"

	"github.com/ikayaalp/gastrofolly-sub000/internal/domain"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/logger"
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
)

const (
	// DoubleTapWindow is how long a first tap waits for its pair.
	DoubleTapWindow = 300 * time.Millisecond
	// SeekStepMillis is the distance of one double-tap seek.
	SeekStepMillis int64 = 5000
	// IndicatorDuration is how long the directional seek indicator shows.
	IndicatorDuration = 600 * time.Millisecond
)

type Opts struct {
	fx.In

	Logger logger.Logger
	Clock  clockwork.Clock
}

// Controller owns the single PlaybackSession for the whole feed. Rendering
// components subscribe to it and never keep playback state of their own.
// Binding a new post fully releases the previous surface binding first, so
// two decoders never run concurrently.
type Controller struct {
	logger logger.Logger
	clock  clockwork.Clock

	mu      sync.Mutex
	surface Surface
	state   State
	session domain.PlaybackSession
	opts    LoadOptions
	url     string
	gen     uint64
	closed  bool

	// last known duration/position per post id, so rebinding an
	// already-played video shows its duration without waiting for reload
	durations map[string]int64
	positions map[string]int64

	taps           *tapDetector
	indicator      SeekDirection
	indicatorShown bool
	indicatorTimer clockwork.Timer

	scrubWidth float64

	listeners []func(domain.PlaybackSession)
	onAdvance func(postID string)
	onDegrade func(postID string)
}

func New(opts Opts) *Controller {
	c := &Controller{
		logger:    opts.Logger.WithComponent("PlaybackController"),
		clock:     opts.Clock,
		state:     Idle,
		durations: map[string]int64{},
		positions: map[string]int64{},
	}
	c.taps = newTapDetector(opts.Clock, DoubleTapWindow, c.doubleTapSeek)
	return c
}

// Bind makes postID's video the active session. The previous binding is torn
// down completely before the new surface starts loading.
func (c *Controller) Bind(postID, url string, surface Surface, opts LoadOptions) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.releaseLocked()

	c.gen++
	c.surface = surface
	c.url = url
	c.opts = opts
	c.state = Loading
	c.session = domain.PlaybackSession{
		ActivePostID: postID,
		// show the cached duration and last position immediately when we
		// have seen this video before
		DurationMillis: c.durations[postID],
		PositionMillis: c.positions[postID],
	}
	ev := &bindingEvents{ctrl: c, gen: c.gen}
	c.mu.Unlock()

	c.notify()
	surface.Load(url, opts, ev)
}

// Release tears the active session down and returns to Idle.
func (c *Controller) Release() {
	c.mu.Lock()
	c.releaseLocked()
	c.mu.Unlock()
	c.notify()
}

// releaseLocked stops timers, invalidates outstanding bindings and frees the
// surface. Callers hold c.mu.
func (c *Controller) releaseLocked() {
	c.gen++
	if c.surface != nil {
		c.surface.Release()
		c.surface = nil
	}
	c.taps.Reset()
	c.hideIndicatorLocked()
	c.state = Idle
	c.session = domain.PlaybackSession{}
	c.scrubWidth = 0
}

// Close permanently shuts the controller down; late surface events and timer
// fires become no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	c.releaseLocked()
	c.closed = true
	c.mu.Unlock()
	c.notify()
}

// Session returns a copy of the current playback session.
func (c *Controller) Session() domain.PlaybackSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// State returns the current transport state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a session listener invoked after every change.
func (c *Controller) Subscribe(fn func(domain.PlaybackSession)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// SetAdvanceFunc registers the callback raised when a non-looping session
// reaches its end, so the fullscreen player can move to the next entry.
func (c *Controller) SetAdvanceFunc(fn func(postID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAdvance = fn
}

// SetDegradeFunc registers the callback raised when a video fails to load.
// The renderer shows a static thumbnail with a play affordance for that post.
func (c *Controller) SetDegradeFunc(fn func(postID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDegrade = fn
}

// TogglePlay flips between Playing and Paused.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	surface := c.surface
	switch c.state {
	case Playing:
		c.state = Paused
		c.session.IsPlaying = false
		c.mu.Unlock()
		c.notify()
		if surface != nil {
			surface.Pause()
		}
	case Paused, Ended:
		c.state = Playing
		c.session.IsPlaying = true
		c.mu.Unlock()
		c.notify()
		if surface != nil {
			surface.Play()
		}
	default:
		c.mu.Unlock()
	}
}

// SeekTo seeks to an absolute position, clamped to [0, duration]. Unknown
// duration makes seeking a no-op.
func (c *Controller) SeekTo(positionMillis int64) {
	c.mu.Lock()
	if c.surface == nil || c.session.DurationMillis <= 0 {
		c.mu.Unlock()
		return
	}
	pos := clamp(positionMillis, 0, c.session.DurationMillis)
	c.session.PositionMillis = pos
	c.positions[c.session.ActivePostID] = pos
	surface := c.surface
	c.mu.Unlock()

	c.notify()
	surface.SeekTo(pos)
}

// SeekBy seeks relative to the current position, clamped to [0, duration].
func (c *Controller) SeekBy(deltaMillis int64) {
	c.mu.Lock()
	pos := c.session.PositionMillis
	c.mu.Unlock()
	c.SeekTo(pos + deltaMillis)
}

// Tap feeds one tap on the media surface into the gesture machine. Taps that
// do not pair into a double tap are inert.
func (c *Controller) Tap(region TapRegion) {
	c.mu.Lock()
	if c.closed || c.surface == nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.taps.Tap(region)
}

// Indicator reports the directional seek indicator, shown for a short moment
// after a double-tap seek.
func (c *Controller) Indicator() (SeekDirection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indicator, c.indicatorShown
}

// doubleTapSeek is the gesture machine's double-tap action.
func (c *Controller) doubleTapSeek(region TapRegion) {
	dir := SeekForward
	step := SeekStepMillis
	if region == TapLeft {
		dir = SeekBackward
		step = -SeekStepMillis
	}
	c.SeekBy(step)
	c.showIndicator(dir)
}

func (c *Controller) showIndicator(dir SeekDirection) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.hideIndicatorLocked()
	c.indicator = dir
	c.indicatorShown = true
	gen := c.gen
	c.indicatorTimer = c.clock.AfterFunc(IndicatorDuration, func() {
		c.mu.Lock()
		if c.gen == gen {
			c.indicatorShown = false
		}
		c.mu.Unlock()
		c.notify()
	})
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) hideIndicatorLocked() {
	if c.indicatorTimer != nil {
		c.indicatorTimer.Stop()
		c.indicatorTimer = nil
	}
	c.indicatorShown = false
}

func (c *Controller) notify() {
	c.mu.Lock()
	listeners := make([]func(domain.PlaybackSession), len(c.listeners))
	copy(listeners, c.listeners)
	session := c.session
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(session)
	}
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// bindingEvents routes surface callbacks for a single binding generation.
type bindingEvents struct {
	ctrl *Controller
	gen  uint64
}

var _ Events = (*bindingEvents)(nil)

func (b *bindingEvents) live() bool {
	return b.ctrl.gen == b.gen && !b.ctrl.closed
}

func (b *bindingEvents) Ready(durationMillis int64) {
	c := b.ctrl
	c.mu.Lock()
	if !b.live() {
		c.mu.Unlock()
		return
	}
	c.session.DurationMillis = durationMillis
	c.durations[c.session.ActivePostID] = durationMillis
	surface := c.surface
	autoplay := c.opts.Autoplay
	if autoplay {
		c.state = Playing
		c.session.IsPlaying = true
	} else {
		c.state = Paused
	}
	c.mu.Unlock()

	c.notify()
	if autoplay && surface != nil {
		surface.Play()
	}
}

func (b *bindingEvents) Position(positionMillis int64) {
	c := b.ctrl
	c.mu.Lock()
	if !b.live() {
		c.mu.Unlock()
		return
	}
	c.session.PositionMillis = positionMillis
	c.positions[c.session.ActivePostID] = positionMillis
	c.mu.Unlock()
	c.notify()
}

func (b *bindingEvents) Stalled() {
	c := b.ctrl
	c.mu.Lock()
	if !b.live() || (c.state != Playing && c.state != Paused) {
		c.mu.Unlock()
		return
	}
	c.state = Buffering
	c.session.IsBuffering = true
	c.mu.Unlock()
	c.notify()
}

func (b *bindingEvents) Resumed() {
	c := b.ctrl
	c.mu.Lock()
	if !b.live() || c.state != Buffering {
		c.mu.Unlock()
		return
	}
	c.state = Playing
	c.session.IsBuffering = false
	c.session.IsPlaying = true
	c.mu.Unlock()
	c.notify()
}

func (b *bindingEvents) Ended() {
	c := b.ctrl
	c.mu.Lock()
	if !b.live() {
		c.mu.Unlock()
		return
	}
	surface := c.surface
	if c.opts.Loop {
		// Inline feed video restarts silently.
		c.session.PositionMillis = 0
		c.positions[c.session.ActivePostID] = 0
		c.mu.Unlock()
		c.notify()
		if surface != nil {
			surface.SeekTo(0)
			surface.Play()
		}
		return
	}
	c.state = Ended
	c.session.IsPlaying = false
	c.session.PositionMillis = c.session.DurationMillis
	postID := c.session.ActivePostID
	// A finished video restarts from the top when re-entered.
	c.positions[postID] = 0
	advance := c.onAdvance
	c.mu.Unlock()

	c.notify()
	if advance != nil {
		advance(postID)
	}
}

func (b *bindingEvents) Failed(err error) {
	c := b.ctrl
	c.mu.Lock()
	if !b.live() {
		c.mu.Unlock()
		return
	}
	postID := c.session.ActivePostID
	degrade := c.onDegrade
	// Expected under flaky conditions; reset quietly rather than surface.
	c.logger.Debug("Playback failed, resetting to idle", "post_id", postID, "error", err)
	c.releaseLocked()
	c.mu.Unlock()

	c.notify()
	if degrade != nil {
		degrade(postID)
	}
}

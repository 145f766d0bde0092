package playback

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TapRegion is the screen half a tap landed in.
type TapRegion int

const (
	TapLeft TapRegion = iota
	TapRight
)

// SeekDirection labels the transient indicator shown after a double-tap seek.
type SeekDirection int

const (
	SeekBackward SeekDirection = iota
	SeekForward
)

func (d SeekDirection) String() string {
	if d == SeekForward {
		return "forward"
	}
	return "backward"
}

type tapState int

const (
	waitingForTap tapState = iota
	armedForDouble
)

// tapDetector disambiguates single and double taps with an explicit state
// machine: WaitingForTap -> ArmedForDouble(timer) -> WaitingForTap. The
// pairing timeout is a cancellable scheduled task owned by the machine, so
// teardown is unambiguous. A second tap within the window and in the same
// screen half fires onDouble; unpaired taps expire silently.
type tapDetector struct {
	clock    clockwork.Clock
	window   time.Duration
	onDouble func(TapRegion)

	mu     sync.Mutex
	state  tapState
	region TapRegion
	timer  clockwork.Timer
}

func newTapDetector(clock clockwork.Clock, window time.Duration, onDouble func(TapRegion)) *tapDetector {
	return &tapDetector{
		clock:    clock,
		window:   window,
		onDouble: onDouble,
	}
}

func (d *tapDetector) Tap(region TapRegion) {
	d.mu.Lock()

	if d.state == armedForDouble && region == d.region {
		d.disarmLocked()
		d.mu.Unlock()
		d.onDouble(region)
		return
	}

	// First tap, or a tap in the other half: (re)arm for this region.
	d.disarmLocked()
	d.state = armedForDouble
	d.region = region
	d.timer = d.clock.AfterFunc(d.window, func() {
		d.mu.Lock()
		d.disarmLocked()
		d.mu.Unlock()
	})
	d.mu.Unlock()
}

// Reset aborts any armed tap, cancelling its timer.
func (d *tapDetector) Reset() {
	d.mu.Lock()
	d.disarmLocked()
	d.mu.Unlock()
}

func (d *tapDetector) disarmLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.state = waitingForTap
}

package playback

// State is the playback transport state of the single active session.
type State int

const (
	Idle State = iota
	Loading
	Playing
	Paused
	Buffering
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Buffering:
		return "buffering"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// LoadOptions describe how a video should be bound. Inline feed video plays
// muted and loops; the fullscreen player does neither and advances on end.
type LoadOptions struct {
	Muted    bool
	Loop     bool
	Autoplay bool
}

// InlineOptions is the binding used for in-feed autoplay.
func InlineOptions() LoadOptions {
	return LoadOptions{Muted: true, Loop: true, Autoplay: true}
}

// FullscreenOptions is the binding used by the fullscreen player.
func FullscreenOptions() LoadOptions {
	return LoadOptions{Autoplay: true}
}

// Events receives media element callbacks for one binding. The controller
// hands a fresh Events to every Load; events from a superseded binding are
// ignored on arrival.
type Events interface {
	Ready(durationMillis int64)
	Position(positionMillis int64)
	Stalled()
	Resumed()
	Ended()
	Failed(err error)
}

// Surface is the media element port implemented by the rendering layer. Load
// is asynchronous; outcomes arrive through the Events it was given. Release
// must stop decoding and drop all pending callbacks for the binding.
type Surface interface {
	Load(url string, opts LoadOptions, ev Events)
	Play()
	Pause()
	SeekTo(positionMillis int64)
	Release()
}

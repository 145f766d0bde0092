package domain

// PlaybackSession describes the single shared playback binding for the feed.
// ActivePostID is empty when no media is bound. Exactly one session exists at
// a time; it is owned by the playback controller and rendering components
// subscribe to it rather than keeping playback state of their own.
type PlaybackSession struct {
	ActivePostID   string
	PositionMillis int64
	DurationMillis int64
	IsPlaying      bool
	IsBuffering    bool
}

func (s PlaybackSession) Active() bool {
	return s.ActivePostID != ""
}

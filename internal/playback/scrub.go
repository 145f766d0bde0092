package playback

// SetScrubWidth records the rendered width of the scrub bar, reported by the
// layout callback. A width of zero disables scrubbing.
func (c *Controller) SetScrubWidth(width float64) {
	c.mu.Lock()
	c.scrubWidth = width
	c.mu.Unlock()
}

// ScrubTap seeks to the position proportional to a tap at horizontal offset x
// on the scrub bar. Unknown width or duration makes this a no-op.
func (c *Controller) ScrubTap(x float64) {
	c.mu.Lock()
	width := c.scrubWidth
	duration := c.session.DurationMillis
	c.mu.Unlock()

	if width <= 0 || duration <= 0 {
		return
	}

	c.SeekTo(int64(x / width * float64(duration)))
}

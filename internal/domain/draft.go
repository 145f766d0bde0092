package domain

// StagedMedia is a locally selected, not yet uploaded media item.
type StagedMedia struct {
	URI  string // device-local uri from the picker
	Kind MediaKind
}

// CompositionDraft is the in-progress content of a new post. It lives from
// composer open until submit or cancel; a successful submit consumes it.
type CompositionDraft struct {
	ID    string
	Body  string
	Media []StagedMedia
}

// StagedVideo returns the staged video, if any.
func (d *CompositionDraft) StagedVideo() (StagedMedia, bool) {
	for _, m := range d.Media {
		if m.Kind == MediaVideo {
			return m, true
		}
	}
	return StagedMedia{}, false
}

// Empty reports whether the draft has neither text nor staged media.
func (d CompositionDraft) Empty() bool {
	return d.Body == "" && len(d.Media) == 0
}

package domain

import "strings"

// MediaKind tags a media reference as image or video. It is determined once
// when a transport payload is ingested; call sites branch on the tag and never
// re-derive the kind from URLs or raw strings.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// ParseMediaKind normalizes a raw transport media type. Unknown or empty
// values default to image, matching how the backend treats untagged media.
func ParseMediaKind(raw string) MediaKind {
	if strings.EqualFold(strings.TrimSpace(raw), string(MediaVideo)) {
		return MediaVideo
	}
	return MediaImage
}

// MediaRef is a single attached media item on a post.
type MediaRef struct {
	URL            string
	Kind           MediaKind
	DurationMillis int64 // video only, 0 when unknown
	ThumbnailURL   string
}

func (m MediaRef) IsVideo() bool {
	return m.Kind == MediaVideo
}

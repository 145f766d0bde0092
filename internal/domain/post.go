package domain

import "time"

// Post is a single user-authored entry in the social feed. The feed store owns
// the canonical copy and never mutates a published Post: refreshes replace the
// page wholesale and optimistic like patches publish a replacement struct.
type Post struct {
	ID         string
	Author     string
	Content    string
	Media      []MediaRef
	LikeCount  int
	Liked      bool // per-viewer flag, server-sourced
	ReplyCount int
	CreatedAt  time.Time
}

// Video returns the post's video reference, if it carries one. A post holds
// either 1..N images or exactly one video, never both.
func (p *Post) Video() (MediaRef, bool) {
	for _, m := range p.Media {
		if m.Kind == MediaVideo {
			return m, true
		}
	}
	return MediaRef{}, false
}

func (p *Post) HasVideo() bool {
	_, ok := p.Video()
	return ok
}

// Hashtag is a trending tag with its usage count.
type Hashtag struct {
	Tag   string
	Count int
}

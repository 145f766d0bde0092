package api

import (
	"context"
	"io"

	"github.com/ikayaalp/gastrofolly-sub000/internal/domain"
)

// ListPostsOptions filters a feed page request.
type ListPostsOptions struct {
	Category string
	Sort     string
	Search   string
	Limit    int
}

// Upload is a single media file handed to the upload endpoint.
type Upload struct {
	Name   string
	Kind   domain.MediaKind
	Reader io.Reader
}

// UploadResult is the backend's answer to a media upload.
type UploadResult struct {
	MediaURL     string
	ThumbnailURL string
}

// CreatePostInput is the payload for creating a post. MediaURL carries the
// uploaded video url, or the uploaded image urls comma-joined, matching the
// transport convention.
type CreatePostInput struct {
	Title        string
	Content      string
	MediaURL     string
	ThumbnailURL string
	MediaType    domain.MediaKind
}

//go:generate go run go.uber.org/mock/mockgen -source=api.go -destination=mocks/mock.go -package=mocks
type Client interface {
	// ListPosts returns a feed page. Posts arrive fully ingested: media
	// kinds tagged, comma-joined image urls split.
	ListPosts(ctx context.Context, opts ListPostsOptions) ([]*domain.Post, error)

	// GetPost returns a single post by id.
	GetPost(ctx context.Context, id string) (*domain.Post, error)

	// ToggleLike flips the viewer's like on a post and returns the
	// authoritative liked flag.
	ToggleLike(ctx context.Context, postID string) (bool, error)

	// UploadMedia uploads one media file and returns its hosted urls.
	UploadMedia(ctx context.Context, up Upload) (UploadResult, error)

	// CreatePost publishes a new post from already-uploaded media.
	CreatePost(ctx context.Context, in CreatePostInput) error

	// ListLikedPostIDs returns the ids of posts the viewer has liked.
	ListLikedPostIDs(ctx context.Context) ([]string, error)

	// ListTrendingHashtags returns the current trending tags.
	ListTrendingHashtags(ctx context.Context) ([]domain.Hashtag, error)
}

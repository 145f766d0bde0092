package apiimpl

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ikayaalp/gastrofolly-sub000/internal/api"
	"github.com/ikayaalp/gastrofolly-sub000/internal/domain"
	apperrors "github.com/ikayaalp/gastrofolly-sub000/pkg/errors"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/retry"
)

// postPayload is the wire shape of a feed post. Image posts carry their urls
// comma-joined in media_url; video posts carry a single url.
type postPayload struct {
	ID             string `json:"id"`
	Author         string `json:"author"`
	Content        string `json:"content"`
	MediaURL       string `json:"media_url"`
	ThumbnailURL   string `json:"thumbnail_url"`
	MediaType      string `json:"media_type"`
	DurationMillis int64  `json:"duration_millis"`
	LikeCount      int    `json:"like_count"`
	Liked          bool   `json:"liked"`
	ReplyCount     int    `json:"reply_count"`
	CreatedAt      int64  `json:"created_at"`
}

// ingestPost converts a wire payload to a domain post. Media kinds are tagged
// here, exactly once; nothing downstream re-derives them.
func ingestPost(p postPayload) *domain.Post {
	post := &domain.Post{
		ID:         p.ID,
		Author:     p.Author,
		Content:    p.Content,
		LikeCount:  p.LikeCount,
		Liked:      p.Liked,
		ReplyCount: p.ReplyCount,
		CreatedAt:  time.UnixMilli(p.CreatedAt),
	}

	if p.MediaURL == "" {
		return post
	}

	kind := domain.ParseMediaKind(p.MediaType)
	if kind == domain.MediaVideo {
		post.Media = []domain.MediaRef{{
			URL:            p.MediaURL,
			Kind:           domain.MediaVideo,
			DurationMillis: p.DurationMillis,
			ThumbnailURL:   p.ThumbnailURL,
		}}
		return post
	}

	for _, u := range strings.Split(p.MediaURL, ",") {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		post.Media = append(post.Media, domain.MediaRef{
			URL:          u,
			Kind:         domain.MediaImage,
			ThumbnailURL: p.ThumbnailURL,
		})
	}
	return post
}

func (c *RestImpl) ListPosts(ctx context.Context, opts api.ListPostsOptions) ([]*domain.Post, error) {
	query := url.Values{}
	if opts.Category != "" {
		query.Set("category", opts.Category)
	}
	if opts.Sort != "" {
		query.Set("sort", opts.Sort)
	}
	if opts.Search != "" {
		query.Set("search", opts.Search)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	var payloads []postPayload
	err := retry.Do(ctx, c.logger, "list_posts", func() error {
		payloads = payloads[:0]
		return c.do(ctx, request{method: http.MethodGet, path: "/api/posts", query: query}, &payloads)
	}, retry.DefaultConfig())
	if err != nil {
		return nil, err
	}

	posts := make([]*domain.Post, 0, len(payloads))
	for _, p := range payloads {
		posts = append(posts, ingestPost(p))
	}
	return posts, nil
}

func (c *RestImpl) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	var payload postPayload
	err := retry.Do(ctx, c.logger, "get_post", func() error {
		return c.do(ctx, request{method: http.MethodGet, path: "/api/posts/" + url.PathEscape(id)}, &payload)
	}, retry.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return ingestPost(payload), nil
}

func (c *RestImpl) ToggleLike(ctx context.Context, postID string) (bool, error) {
	var result struct {
		Liked bool `json:"liked"`
	}
	// Not retried: a toggle is not idempotent on the wire.
	err := c.do(ctx, request{
		method:       http.MethodPost,
		path:         "/api/posts/" + url.PathEscape(postID) + "/like",
		requiresAuth: true,
	}, &result)
	if err != nil {
		return false, err
	}
	return result.Liked, nil
}

func (c *RestImpl) ListLikedPostIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := retry.Do(ctx, c.logger, "list_liked_post_ids", func() error {
		ids = ids[:0]
		err := c.do(ctx, request{method: http.MethodGet, path: "/api/posts/liked", requiresAuth: true}, &ids)
		if apperrors.IsUnauthorized(err) {
			return backoff.Permanent(err)
		}
		return err
	}, retry.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *RestImpl) ListTrendingHashtags(ctx context.Context) ([]domain.Hashtag, error) {
	var payloads []struct {
		Tag   string `json:"tag"`
		Count int    `json:"count"`
	}
	err := retry.Do(ctx, c.logger, "list_trending_hashtags", func() error {
		payloads = payloads[:0]
		return c.do(ctx, request{method: http.MethodGet, path: "/api/hashtags/trending"}, &payloads)
	}, retry.DefaultConfig())
	if err != nil {
		return nil, err
	}

	tags := make([]domain.Hashtag, 0, len(payloads))
	for _, p := range payloads {
		tags = append(tags, domain.Hashtag{Tag: p.Tag, Count: p.Count})
	}
	return tags, nil
}

package apiimpl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/ikayaalp/gastrofolly-sub000/internal/api"
)

// UploadMedia sends one file as a multipart body with a single "file" field.
// The multipart writer owns the boundary; it is never hand-built.
func (c *RestImpl) UploadMedia(ctx context.Context, up api.Upload) (api.UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", up.Name)
	if err != nil {
		return api.UploadResult{}, fmt.Errorf("create multipart field: %w", err)
	}
	if _, err := io.Copy(part, up.Reader); err != nil {
		return api.UploadResult{}, fmt.Errorf("read upload %q: %w", up.Name, err)
	}
	if err := writer.Close(); err != nil {
		return api.UploadResult{}, fmt.Errorf("finalize multipart body: %w", err)
	}

	query := url.Values{}
	query.Set("kind", string(up.Kind))

	var payload struct {
		MediaURL     string `json:"media_url"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	err = c.do(ctx, request{
		method:       http.MethodPost,
		path:         "/api/media",
		query:        query,
		body:         &body,
		contentType:  writer.FormDataContentType(),
		requiresAuth: true,
	}, &payload)
	if err != nil {
		return api.UploadResult{}, err
	}

	return api.UploadResult{
		MediaURL:     payload.MediaURL,
		ThumbnailURL: payload.ThumbnailURL,
	}, nil
}

func (c *RestImpl) CreatePost(ctx context.Context, in api.CreatePostInput) error {
	payload := struct {
		Title        string `json:"title"`
		Content      string `json:"content"`
		MediaURL     string `json:"media_url,omitempty"`
		ThumbnailURL string `json:"thumbnail_url,omitempty"`
		MediaType    string `json:"media_type,omitempty"`
	}{
		Title:        in.Title,
		Content:      in.Content,
		MediaURL:     in.MediaURL,
		ThumbnailURL: in.ThumbnailURL,
	}
	if in.MediaURL != "" {
		payload.MediaType = string(in.MediaType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode create post payload: %w", err)
	}

	return c.do(ctx, request{
		method:       http.MethodPost,
		path:         "/api/posts",
		body:         bytes.NewReader(raw),
		contentType:  "application/json",
		requiresAuth: true,
	}, nil)
}

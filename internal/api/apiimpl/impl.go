package apiimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ikayaalp/gastrofolly-sub000/internal/api"
	"github.com/ikayaalp/gastrofolly-sub000/internal/session"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/config"
	apperrors "github.com/ikayaalp/gastrofolly-sub000/pkg/errors"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/logger"
	"go.uber.org/fx"
	"golang.org/x/time/rate"
)

type RestImpl struct {
	http    *http.Client
	baseURL string
	session session.Store
	logger  logger.Logger
	limiter *rate.Limiter
}

type Opts struct {
	fx.In

	Config  *config.Config
	Logger  logger.Logger
	Session session.Store
}

func New(opts Opts) *RestImpl {
	return &RestImpl{
		http: &http.Client{
			Timeout: time.Duration(opts.Config.Api.TimeoutSeconds) * time.Second,
		},
		baseURL: strings.TrimRight(opts.Config.Api.BaseURL, "/"),
		session: opts.Session,
		logger:  opts.Logger.WithComponent("RestClient"),
		limiter: rate.NewLimiter(rate.Limit(opts.Config.Api.RequestsPerSec), opts.Config.Api.RequestBurst),
	}
}

var _ api.Client = (*RestImpl)(nil)

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type request struct {
	method       string
	path         string
	query        url.Values
	body         io.Reader
	contentType  string
	requiresAuth bool
}

// do executes a single request against the backend and decodes the response
// envelope into out. Mutating endpoints require a session token up front so
// unauthenticated calls never touch the wire.
func (c *RestImpl) do(ctx context.Context, req request, out any) error {
	token, authed := c.session.Token()
	if req.requiresAuth && !authed {
		return apperrors.ErrUnauthorized
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.Wrap(err, "request rate limit")
	}

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, req.body)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", req.method, req.path, err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if authed {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return apperrors.ErrUnauthorized
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = resp.Status
		}
		return apperrors.Wrap(apperrors.ErrUnavailable, msg)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response %s %s: %w", req.method, req.path, err)
	}
	if !env.Success {
		if env.Error == "" {
			env.Error = "request rejected"
		}
		return apperrors.New(env.Error)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data %s %s: %w", req.method, req.path, err)
		}
	}
	return nil
}

package composer

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/ikayaalp/gastrofolly-sub000/internal/api"
	"github.com/ikayaalp/gastrofolly-sub000/internal/domain"
	"github.com/ikayaalp/gastrofolly-sub000/internal/feed"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/config"
	apperrors "github.com/ikayaalp/gastrofolly-sub000/pkg/errors"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/formatter"
	"github.com/ikayaalp/gastrofolly-sub000/pkg/logger"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/fx"
)

const (
	titleMaxRunes    = 50
	placeholderTitle = "New post"
)

type Opts struct {
	fx.In

	Api    api.Client
	Feed   feed.Store
	Opener MediaOpener
	Logger logger.Logger
	Config *config.Config
}

// Pipeline stages media for a new post, uploads it and submits the post.
// Images and video are mutually exclusive: staging one kind clears the other.
// A failed upload returns the pipeline to Staged with the user's selections
// and text intact so they can retry without re-selecting.
type Pipeline struct {
	api    api.Client
	feed   feed.Store
	opener MediaOpener
	logger logger.Logger
	config *config.Config

	mu        sync.Mutex
	draft     domain.CompositionDraft
	state     State
	cancel    context.CancelFunc
	listeners []func()
}

func New(opts Opts) *Pipeline {
	return &Pipeline{
		api:    opts.Api,
		feed:   opts.Feed,
		opener: opts.Opener,
		logger: opts.Logger.WithComponent("CompositionPipeline"),
		config: opts.Config,
		state:  Empty,
	}
}

// Open starts a fresh draft, discarding any previous one.
func (p *Pipeline) Open() {
	p.mu.Lock()
	p.abandonLocked()
	p.draft = domain.CompositionDraft{ID: uuid.NewString()}
	p.state = Empty
	p.mu.Unlock()
	p.notify()
}

// SetBody replaces the draft's free-text body.
func (p *Pipeline) SetBody(text string) {
	p.mu.Lock()
	p.draft.Body = text
	p.refreshStateLocked()
	p.mu.Unlock()
	p.notify()
}

// StageImages adds picker-selected images to the draft. A staged video is
// cleared first; the total image count is capped.
func (p *Pipeline) StageImages(uris []string) error {
	p.mu.Lock()
	defer func() {
		p.mu.Unlock()
		p.notify()
	}()

	kept := p.draft.Media[:0]
	for _, m := range p.draft.Media {
		if m.Kind == domain.MediaImage {
			kept = append(kept, m)
		}
	}
	p.draft.Media = kept

	max := p.config.Composer.MaxImages
	for _, uri := range uris {
		if len(p.draft.Media) >= max {
			p.refreshStateLocked()
			return apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("at most %d images", max))
		}
		p.draft.Media = append(p.draft.Media, domain.StagedMedia{URI: uri, Kind: domain.MediaImage})
	}
	p.refreshStateLocked()
	return nil
}

// StageVideo stages exactly one video clip, clearing any staged images. The
// 60s source duration cap is enforced by the device picker at selection time.
func (p *Pipeline) StageVideo(uri string) {
	p.mu.Lock()
	p.draft.Media = []domain.StagedMedia{{URI: uri, Kind: domain.MediaVideo}}
	p.refreshStateLocked()
	p.mu.Unlock()
	p.notify()
}

// RemoveMedia drops the staged item at index.
func (p *Pipeline) RemoveMedia(index int) {
	p.mu.Lock()
	if index >= 0 && index < len(p.draft.Media) {
		p.draft.Media = append(p.draft.Media[:index], p.draft.Media[index+1:]...)
	}
	p.refreshStateLocked()
	p.mu.Unlock()
	p.notify()
}

// Draft returns a copy of the current draft.
func (p *Pipeline) Draft() domain.CompositionDraft {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.draft
	d.Media = append([]domain.StagedMedia(nil), p.draft.Media...)
	return d
}

// State returns the pipeline state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Cancel discards the draft. In-flight uploads are abandoned, not awaited.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	p.abandonLocked()
	p.draft = domain.CompositionDraft{}
	p.state = Empty
	p.mu.Unlock()
	p.notify()
}

// Subscribe registers a change listener.
func (p *Pipeline) Subscribe(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Submit uploads the staged media and creates the post. On success the draft
// is discarded and a feed refresh is requested; on upload failure the staged
// media and text survive untouched and the specific reason is returned.
func (p *Pipeline) Submit(ctx context.Context) error {
	p.mu.Lock()
	if p.state == Uploading || p.state == Submitting {
		p.mu.Unlock()
		return apperrors.Wrap(apperrors.ErrInvalidInput, "submission already in progress")
	}
	if strings.TrimSpace(p.draft.Body) == "" && len(p.draft.Media) == 0 {
		p.mu.Unlock()
		return apperrors.Wrap(apperrors.ErrInvalidInput, "post needs text or media")
	}

	draftID := p.draft.ID
	body := p.draft.Body
	media := append([]domain.StagedMedia(nil), p.draft.Media...)

	submitCtx, cancel := context.WithCancel(ctx)
	// Released on every exit; Cancel may fire it earlier to abandon the
	// in-flight uploads.
	defer cancel()
	p.cancel = cancel
	p.state = Uploading
	p.mu.Unlock()
	p.notify()

	mediaURL, thumbnailURL, mediaType, err := p.uploadStaged(submitCtx, media)
	if err != nil {
		p.failSubmit(draftID, err)
		return err
	}

	p.setState(draftID, Submitting)

	in := api.CreatePostInput{
		Title:        synthesizeTitle(body),
		Content:      body,
		MediaURL:     mediaURL,
		ThumbnailURL: thumbnailURL,
		MediaType:    mediaType,
	}
	if err := p.api.CreatePost(submitCtx, in); err != nil {
		p.failSubmit(draftID, err)
		return err
	}

	p.mu.Lock()
	if p.draft.ID == draftID {
		p.draft = domain.CompositionDraft{}
		p.state = Done
		p.cancel = nil
	}
	p.mu.Unlock()
	p.notify()

	p.feed.Refresh(ctx)
	return nil
}

// uploadStaged uploads the draft's media. A staged video uploads alone and
// supplies the thumbnail from its result; images upload concurrently and the
// first staged image's hosted url becomes the thumbnail.
func (p *Pipeline) uploadStaged(ctx context.Context, media []domain.StagedMedia) (mediaURL, thumbnailURL string, kind domain.MediaKind, err error) {
	if len(media) == 0 {
		return "", "", domain.MediaImage, nil
	}

	if media[0].Kind == domain.MediaVideo {
		res, err := p.uploadOne(ctx, media[0])
		if err != nil {
			return "", "", "", err
		}
		return res.MediaURL, res.ThumbnailURL, domain.MediaVideo, nil
	}

	urls := make([]string, len(media))
	errs := make([]error, len(media))

	uploadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, poolErr := ants.NewPool(p.config.Composer.UploadConcurrency, ants.WithPreAlloc(true))
	if poolErr != nil {
		return "", "", "", fmt.Errorf("create upload pool: %w", poolErr)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range media {
		i := i
		wg.Add(1)
		if submitErr := pool.Submit(func() {
			defer wg.Done()
			if uploadCtx.Err() != nil {
				errs[i] = uploadCtx.Err()
				return
			}
			res, err := p.uploadOne(uploadCtx, media[i])
			if err != nil {
				errs[i] = err
				// One failure aborts the whole submission.
				cancel()
				return
			}
			urls[i] = res.MediaURL
		}); submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil && !apperrors.Is(e, context.Canceled) {
			return "", "", "", e
		}
	}
	for _, e := range errs {
		if e != nil {
			return "", "", "", e
		}
	}

	return strings.Join(urls, ","), urls[0], domain.MediaImage, nil
}

func (p *Pipeline) uploadOne(ctx context.Context, m domain.StagedMedia) (api.UploadResult, error) {
	rc, err := p.opener.Open(m.URI)
	if err != nil {
		return api.UploadResult{}, fmt.Errorf("open %q: %w", m.URI, err)
	}
	defer rc.Close()

	return p.api.UploadMedia(ctx, api.Upload{
		Name:   path.Base(m.URI),
		Kind:   m.Kind,
		Reader: rc,
	})
}

// failSubmit returns the pipeline to Staged, keeping the draft intact, unless
// the draft was discarded while the submission was in flight.
func (p *Pipeline) failSubmit(draftID string, err error) {
	p.mu.Lock()
	if p.draft.ID == draftID {
		p.state = Staged
		p.cancel = nil
		p.logger.Warn("Submission failed, staged draft preserved", "draft_id", draftID, "error", err)
	}
	p.mu.Unlock()
	p.notify()
}

func (p *Pipeline) setState(draftID string, state State) {
	p.mu.Lock()
	if p.draft.ID == draftID {
		p.state = state
	}
	p.mu.Unlock()
	p.notify()
}

// refreshStateLocked keeps Empty/Staged consistent with draft contents while
// no submission is running.
func (p *Pipeline) refreshStateLocked() {
	if p.state == Uploading || p.state == Submitting {
		return
	}
	if p.draft.Empty() {
		p.state = Empty
	} else {
		p.state = Staged
	}
}

func (p *Pipeline) abandonLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Pipeline) notify() {
	p.mu.Lock()
	listeners := make([]func(), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// synthesizeTitle derives the post title from the first line of the body,
// ellipsized; an empty body gets the fixed placeholder.
func synthesizeTitle(body string) string {
	line := formatter.FirstLine(body)
	if line == "" {
		return placeholderTitle
	}
	return formatter.Ellipsize(line, titleMaxRunes)
}

// Package pipeline runs one posting job through its ordered stages: trend
// collection, topic selection, content generation, image generation, login
// and publish. The orchestrator owns the state transitions and the browser
// session lifetime; the stage services behind the interfaces do the work.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hanulsoft/blogpilot/internal/constants"
	"github.com/hanulsoft/blogpilot/internal/credentials"
	"github.com/hanulsoft/blogpilot/internal/db/models"
	"github.com/hanulsoft/blogpilot/internal/logger"
	"github.com/hanulsoft/blogpilot/internal/types"
)

// TrendSource collects trending keyword candidates and selects the topic
type TrendSource interface {
	TrendingKeywords(ctx context.Context, category string, count int) ([]types.TrendKeyword, error)
	SelectTopic(category, keyword string, candidates []types.TrendKeyword) types.Topic
}

// ContentGenerator produces the post draft and the image prompt
type ContentGenerator interface {
	GenerateBlogPost(ctx context.Context, topic types.Topic, category string, opts types.JobOptions, ref *types.ReferencePage) (*types.DraftPost, error)
	GenerateImagePrompt(ctx context.Context, topic types.Topic) (string, error)
}

// ReferenceFetcher crawls a reference article for content generation
type ReferenceFetcher interface {
	Crawl(ctx context.Context, url string) (*types.ReferencePage, error)
}

// ImageGenerator produces the post header image
type ImageGenerator interface {
	GenerateHeader(ctx context.Context, prompt, category string) (*types.ImageBlob, error)
}

// Automator drives the browser through login, compose and publish.
// Close must be safe to call after any failure.
type Automator interface {
	Login(ctx context.Context, creds types.Credentials) error
	Compose(ctx context.Context, draft *types.DraftPost) error
	Submit(ctx context.Context) (*types.PublishResult, error)
	Close()
}

// AutomatorFactory opens a fresh browser session. The orchestrator calls it
// at the login stage so no browser runs while earlier stages execute.
type AutomatorFactory func(ctx context.Context) (Automator, error)

// TitleChecker reports whether a post title was already published
type TitleChecker interface {
	TitleExists(ctx context.Context, title string) (bool, error)
}

// EventSink receives progress events as the job moves through its states
type EventSink func(types.ProgressEvent)

// Config wires the orchestrator's collaborators
type Config struct {
	Trends       TrendSource
	Content      ContentGenerator
	Images       ImageGenerator
	NewAutomator AutomatorFactory
	Creds        credentials.Store
	Posts        TitleChecker     // optional duplicate-title guard
	References   ReferenceFetcher // optional reference article crawler
	Emit         EventSink
	Now          func() time.Time
}

// Orchestrator executes posting jobs stage by stage
type Orchestrator struct {
	trends       TrendSource
	content      ContentGenerator
	images       ImageGenerator
	newAutomator AutomatorFactory
	creds        credentials.Store
	posts        TitleChecker
	references   ReferenceFetcher
	emit         EventSink
	now          func() time.Time
}

// New creates an orchestrator from its collaborators
func New(cfg Config) *Orchestrator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		trends:       cfg.Trends,
		content:      cfg.Content,
		images:       cfg.Images,
		newAutomator: cfg.NewAutomator,
		creds:        cfg.Creds,
		posts:        cfg.Posts,
		references:   cfg.References,
		emit:         cfg.Emit,
		now:          now,
	}
}

// run carries the artifacts of one job between stages
type run struct {
	jobID      string
	req        types.JobRequest
	creds      types.Credentials
	candidates []types.TrendKeyword
	topic      types.Topic
	reference  *types.ReferencePage
	draft      *types.DraftPost
	automator  Automator
	result     *types.PublishResult
}

type stage struct {
	state   models.JobState
	message string
	skip    func(*run) bool
	execute func(context.Context, *run) error
}

func (o *Orchestrator) stages() []stage {
	return []stage{
		{
			state:   models.StateCollectingTrend,
			message: "트렌드 키워드를 수집하고 있습니다",
			skip:    func(r *run) bool { return r.req.Keyword != "" },
			execute: o.collectTrends,
		},
		{
			state:   models.StateSelectingTopic,
			message: "포스팅 주제를 선택하고 있습니다",
			execute: o.selectTopic,
		},
		{
			state:   models.StateGeneratingContent,
			message: "블로그 글을 생성하고 있습니다",
			execute: o.generateContent,
		},
		{
			state:   models.StateGeneratingImage,
			message: "이미지를 생성하고 있습니다",
			skip:    func(r *run) bool { return !r.req.Options.IncludeImage },
			execute: o.generateImage,
		},
		{
			state:   models.StateLoggingIn,
			message: "네이버에 로그인하고 있습니다",
			execute: o.login,
		},
		{
			state:   models.StatePublishing,
			message: "포스팅을 발행하고 있습니다",
			execute: o.publish,
		},
	}
}

// Run executes one job and returns its publish result. The browser session,
// if one was opened, is released on every exit path. Run returns the
// classified failure on error and context.Canceled when the job was
// cancelled mid-flight.
func (o *Orchestrator) Run(ctx context.Context, jobID string, req types.JobRequest) (*types.PublishResult, error) {
	r := &run{jobID: jobID, req: req}
	defer func() {
		if r.automator != nil {
			r.automator.Close()
		}
	}()

	if err := o.preflight(r); err != nil {
		return nil, o.fail(r, err)
	}

	for _, st := range o.stages() {
		if ctx.Err() != nil {
			return nil, o.cancelled(r)
		}
		if st.skip != nil && st.skip(r) {
			continue
		}
		o.emitEvent(r, st.state, st.message, models.FailureNone)
		if err := st.execute(ctx, r); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil, o.cancelled(r)
			}
			return nil, o.fail(r, err)
		}
	}

	logger.InfoWithFields("job succeeded", map[string]interface{}{
		"job_id":   r.jobID,
		"post_url": r.result.PostURL,
	})
	o.emitEvent(r, models.StateSucceeded, fmt.Sprintf("포스팅이 완료되었습니다: %s", r.result.PostURL), models.FailureNone)
	return r.result, nil
}

// preflight validates configuration before any stage runs, so a missing key
// fails the job without touching the network or the browser.
func (o *Orchestrator) preflight(r *run) error {
	creds, err := o.creds.Get()
	if err != nil {
		return types.NewConfiguration("자격 증명을 읽을 수 없습니다")
	}
	if creds.Username == "" || creds.Secret == "" {
		return types.NewConfiguration("네이버 계정 정보가 설정되지 않았습니다")
	}
	if creds.APIKeys[constants.ServiceGemini] == "" {
		return types.NewConfiguration("Gemini API 키가 설정되지 않았습니다")
	}
	if r.req.Category == "" && r.req.Keyword == "" {
		return types.NewConfiguration("카테고리 또는 키워드를 지정해야 합니다")
	}
	r.creds = creds
	return nil
}

// collectTrends tolerates collection failure: topic selection falls back to
// the category signal when no candidate was found.
func (o *Orchestrator) collectTrends(ctx context.Context, r *run) error {
	candidates, err := o.trends.TrendingKeywords(ctx, r.req.Category, 10)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		logger.Warnf("trend collection failed for job %s, falling back to category signal: %v", r.jobID, err)
		return nil
	}
	r.candidates = candidates
	return nil
}

func (o *Orchestrator) selectTopic(_ context.Context, r *run) error {
	r.topic = o.trends.SelectTopic(r.req.Category, r.req.Keyword, r.candidates)
	logger.InfoWithFields("topic selected", map[string]interface{}{
		"job_id": r.jobID,
		"topic":  r.topic.Title,
		"source": string(r.topic.Source),
	})
	return nil
}

// generateContent crawls the reference article, when one was requested, and
// generates the draft. A reference that cannot be fetched is logged and
// skipped rather than failing the job, matching a manual crawl that came up
// empty.
func (o *Orchestrator) generateContent(ctx context.Context, r *run) error {
	if r.req.ReferenceURL != "" && o.references != nil {
		page, err := o.references.Crawl(ctx, r.req.ReferenceURL)
		switch {
		case err != nil && ctx.Err() != nil:
			return err
		case err != nil:
			logger.Warnf("reference crawl failed for job %s, generating without it: %v", r.jobID, err)
		default:
			logger.Infof("using reference material: %s", page.Title)
			r.reference = page
		}
	}

	draft, err := o.content.GenerateBlogPost(ctx, r.topic, r.req.Category, r.req.Options, r.reference)
	if err != nil {
		return err
	}
	if o.posts != nil {
		exists, checkErr := o.posts.TitleExists(ctx, draft.Title)
		if checkErr == nil && exists {
			return types.NewContentPolicy("이미 발행한 제목과 중복됩니다: "+draft.Title, nil)
		}
	}
	if r.req.Options.IncludeImage {
		prompt, err := o.content.GenerateImagePrompt(ctx, r.topic)
		if err != nil {
			return err
		}
		draft.ImagePrompt = prompt
	}
	r.draft = draft
	return nil
}

func (o *Orchestrator) generateImage(ctx context.Context, r *run) error {
	prompt := r.draft.ImagePrompt
	if prompt == "" {
		prompt = r.topic.Title
	}
	blob, err := o.images.GenerateHeader(ctx, prompt, r.req.Category)
	if err != nil {
		return err
	}
	r.draft.Image = blob
	return nil
}

func (o *Orchestrator) login(ctx context.Context, r *run) error {
	automator, err := o.newAutomator(ctx)
	if err != nil {
		return types.NewTransient("브라우저를 시작하지 못했습니다", err)
	}
	r.automator = automator
	return automator.Login(ctx, r.creds)
}

func (o *Orchestrator) publish(ctx context.Context, r *run) error {
	if err := o.withOneRetry(ctx, r, "compose", func() error {
		return r.automator.Compose(ctx, r.draft)
	}); err != nil {
		return err
	}

	var result *types.PublishResult
	if err := o.withOneRetry(ctx, r, "submit", func() error {
		res, err := r.automator.Submit(ctx)
		if err != nil {
			return err
		}
		result = res
		return nil
	}); err != nil {
		return err
	}
	result.PostTitle = r.draft.Title
	result.Topic = r.topic
	result.Tags = r.draft.Tags
	result.HasImage = r.draft.Image != nil
	r.result = result
	return nil
}

// withOneRetry retries a publish step once on a retryable fault. The browser
// keeps its session between attempts, so only the failed step repeats.
func (o *Orchestrator) withOneRetry(ctx context.Context, r *run, step string, fn func() error) error {
	err := fn()
	if err == nil || !types.IsRetryable(err) || ctx.Err() != nil {
		return err
	}
	logger.WarnWithFields("retrying publish step", map[string]interface{}{
		"job_id": r.jobID,
		"step":   step,
		"error":  err.Error(),
	})
	return fn()
}

func (o *Orchestrator) fail(r *run, err error) error {
	svcErr := types.Classify(err)
	logger.ErrorWithFields("job failed", map[string]interface{}{
		"job_id":       r.jobID,
		"failure_kind": string(svcErr.Kind),
		"error":        svcErr.Error(),
	})
	o.emitEvent(r, models.StateFailed, svcErr.Message, svcErr.Kind)
	return svcErr
}

func (o *Orchestrator) cancelled(r *run) error {
	logger.Infof("job %s cancelled", r.jobID)
	o.emitEvent(r, models.StateCancelled, "작업이 취소되었습니다", models.FailureNone)
	return context.Canceled
}

func (o *Orchestrator) emitEvent(r *run, state models.JobState, message string, kind models.FailureKind) {
	if o.emit == nil {
		return
	}
	o.emit(types.ProgressEvent{
		JobID:       r.jobID,
		State:       state,
		Message:     message,
		FailureKind: kind,
		Timestamp:   o.now(),
	})
}

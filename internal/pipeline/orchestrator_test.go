package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanulsoft/blogpilot/internal/credentials"
	"github.com/hanulsoft/blogpilot/internal/db/models"
	"github.com/hanulsoft/blogpilot/internal/types"
)

type fakeTrends struct {
	candidates []types.TrendKeyword
	err        error
	calls      int
}

func (f *fakeTrends) TrendingKeywords(_ context.Context, _ string, _ int) ([]types.TrendKeyword, error) {
	f.calls++
	return f.candidates, f.err
}

func (f *fakeTrends) SelectTopic(category, keyword string, candidates []types.TrendKeyword) types.Topic {
	if keyword != "" {
		return types.Topic{Title: keyword, Source: models.TopicUserProvided}
	}
	if len(candidates) > 0 {
		return types.Topic{Title: candidates[0].Keyword, Source: models.TopicTrendDiscovered}
	}
	return types.Topic{Title: category, Source: models.TopicTrendDiscovered}
}

type fakeContent struct {
	draft         *types.DraftPost
	err           error
	promptErr     error
	calls         int
	promptCalls   int
	seenTopic     types.Topic
	seenReference *types.ReferencePage
}

func (f *fakeContent) GenerateBlogPost(_ context.Context, topic types.Topic, _ string, _ types.JobOptions, ref *types.ReferencePage) (*types.DraftPost, error) {
	f.calls++
	f.seenTopic = topic
	f.seenReference = ref
	if f.err != nil {
		return nil, f.err
	}
	draft := *f.draft
	return &draft, nil
}

func (f *fakeContent) GenerateImagePrompt(_ context.Context, _ types.Topic) (string, error) {
	f.promptCalls++
	if f.promptErr != nil {
		return "", f.promptErr
	}
	return "a cozy pharmacy interior", nil
}

type fakeImages struct {
	err      error
	calls    int
	onCalled func()
}

func (f *fakeImages) GenerateHeader(ctx context.Context, _, _ string) (*types.ImageBlob, error) {
	f.calls++
	if f.onCalled != nil {
		f.onCalled()
	}
	if f.err != nil {
		return nil, f.err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return &types.ImageBlob{Data: []byte{0x89, 0x50}, Format: "png"}, nil
}

type fakeAutomator struct {
	loginErr    error
	composeErrs []error
	submitErrs  []error
	result      *types.PublishResult

	loginCalls   int
	composeCalls int
	submitCalls  int
	closeCalls   int
	seenDraft    *types.DraftPost
}

func (f *fakeAutomator) Login(_ context.Context, _ types.Credentials) error {
	f.loginCalls++
	return f.loginErr
}

func (f *fakeAutomator) Compose(_ context.Context, draft *types.DraftPost) error {
	f.composeCalls++
	f.seenDraft = draft
	if len(f.composeErrs) > 0 {
		err := f.composeErrs[0]
		f.composeErrs = f.composeErrs[1:]
		return err
	}
	return nil
}

func (f *fakeAutomator) Submit(_ context.Context) (*types.PublishResult, error) {
	f.submitCalls++
	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.result != nil {
		return f.result, nil
	}
	return &types.PublishResult{Success: true, PostURL: "https://blog.naver.com/tester/223456789"}, nil
}

func (f *fakeAutomator) Close() { f.closeCalls++ }

type fakeCrawler struct {
	page    *types.ReferencePage
	err     error
	calls   int
	seenURL string
}

func (f *fakeCrawler) Crawl(_ context.Context, url string) (*types.ReferencePage, error) {
	f.calls++
	f.seenURL = url
	return f.page, f.err
}

type fixture struct {
	trends    *fakeTrends
	content   *fakeContent
	images    *fakeImages
	automator *fakeAutomator
	crawler   *fakeCrawler
	opens     int
	events    []types.ProgressEvent
}

func newFixture() *fixture {
	return &fixture{
		trends: &fakeTrends{candidates: []types.TrendKeyword{
			{Keyword: "환절기 건강관리", Rank: 1, Source: "blog_home"},
		}},
		content: &fakeContent{draft: &types.DraftPost{
			Title: "환절기 건강관리 꿀팁 5가지",
			Body:  "환절기에는 면역력 관리가 중요합니다.",
			Tags:  []string{"건강", "환절기"},
		}},
		images:    &fakeImages{},
		automator: &fakeAutomator{},
	}
}

func (f *fixture) orchestrator(factoryErr error) *Orchestrator {
	var references ReferenceFetcher
	if f.crawler != nil {
		references = f.crawler
	}
	return New(Config{
		Trends:     f.trends,
		Content:    f.content,
		Images:     f.images,
		References: references,
		NewAutomator: func(_ context.Context) (Automator, error) {
			if factoryErr != nil {
				return nil, factoryErr
			}
			f.opens++
			return f.automator, nil
		},
		Creds: &credentials.StaticStore{Creds: types.Credentials{
			Username: "tester",
			Secret:   "secret",
			APIKeys:  map[string]string{"gemini": "test-key"},
		}},
		Emit: func(ev types.ProgressEvent) { f.events = append(f.events, ev) },
		Now:  func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) },
	})
}

func (f *fixture) states() []models.JobState {
	states := make([]models.JobState, 0, len(f.events))
	for _, ev := range f.events {
		states = append(states, ev.State)
	}
	return states
}

func TestRunFullPipelineSuccess(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(nil)

	req := types.JobRequest{Category: "의료/약학", Options: types.JobOptions{IncludeImage: true}}
	result, err := o.Run(context.Background(), "job-1", req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, "https://blog.naver.com/tester/223456789", result.PostURL)

	assert.Equal(t, []models.JobState{
		models.StateCollectingTrend,
		models.StateSelectingTopic,
		models.StateGeneratingContent,
		models.StateGeneratingImage,
		models.StateLoggingIn,
		models.StatePublishing,
		models.StateSucceeded,
	}, f.states())

	assert.Equal(t, 1, f.opens)
	assert.Equal(t, 1, f.automator.closeCalls, "browser released after success")
	require.NotNil(t, f.automator.seenDraft)
	assert.NotNil(t, f.automator.seenDraft.Image, "image attached before compose")
}

func TestRunSkipsTrendCollectionWithKeyword(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(nil)

	req := types.JobRequest{Category: "IT/테크", Keyword: "맥북 에어", Options: types.JobOptions{IncludeImage: true}}
	_, err := o.Run(context.Background(), "job-2", req)
	require.NoError(t, err)

	assert.Equal(t, 0, f.trends.calls, "no trend collection when keyword given")
	assert.NotContains(t, f.states(), models.StateCollectingTrend)
	assert.Equal(t, "맥북 에어", f.content.seenTopic.Title)
	assert.Equal(t, models.TopicUserProvided, f.content.seenTopic.Source)
}

func TestRunSkipsImageWhenDisabled(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(nil)

	req := types.JobRequest{Category: "여행", Options: types.JobOptions{IncludeImage: false}}
	_, err := o.Run(context.Background(), "job-3", req)
	require.NoError(t, err)

	assert.Equal(t, 0, f.images.calls)
	assert.Equal(t, 0, f.content.promptCalls, "no image prompt when image disabled")
	assert.NotContains(t, f.states(), models.StateGeneratingImage)
	require.NotNil(t, f.automator.seenDraft)
	assert.Nil(t, f.automator.seenDraft.Image)
}

func TestRunFailsFastOnMissingAPIKey(t *testing.T) {
	f := newFixture()
	o := New(Config{
		Trends:  f.trends,
		Content: f.content,
		Images:  f.images,
		NewAutomator: func(_ context.Context) (Automator, error) {
			f.opens++
			return f.automator, nil
		},
		Creds: &credentials.StaticStore{Creds: types.Credentials{Username: "tester", Secret: "secret"}},
		Emit:  func(ev types.ProgressEvent) { f.events = append(f.events, ev) },
	})

	_, err := o.Run(context.Background(), "job-4", types.JobRequest{Category: "여행"})
	require.Error(t, err)

	var svcErr *types.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, models.FailureConfiguration, svcErr.Kind)

	require.Len(t, f.events, 1, "no stage runs after a preflight failure")
	assert.Equal(t, models.StateFailed, f.events[0].State)
	assert.Equal(t, 0, f.trends.calls)
	assert.Equal(t, 0, f.opens)
}

func TestRunLoginTimeoutFailsAsAuthentication(t *testing.T) {
	f := newFixture()
	f.automator.loginErr = types.NewAuthFailure("로그인 시간이 초과되었습니다", context.DeadlineExceeded)
	o := f.orchestrator(nil)

	_, err := o.Run(context.Background(), "job-5", types.JobRequest{Category: "여행"})
	require.Error(t, err)

	var svcErr *types.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, models.FailureAuthentication, svcErr.Kind)

	assert.Equal(t, 1, f.automator.closeCalls, "browser released after login failure")
	assert.Equal(t, 0, f.automator.composeCalls)
	assert.NotContains(t, f.states(), models.StatePublishing)
	last := f.events[len(f.events)-1]
	assert.Equal(t, models.StateFailed, last.State)
	assert.Equal(t, models.FailureAuthentication, last.FailureKind)
}

func TestRunRetriesComposeOnceOnTransientFault(t *testing.T) {
	f := newFixture()
	f.automator.composeErrs = []error{types.NewTransient("편집기 로딩이 지연되었습니다", nil)}
	o := f.orchestrator(nil)

	result, err := o.Run(context.Background(), "job-6", types.JobRequest{Category: "여행"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, f.automator.composeCalls)
	assert.Equal(t, 1, f.automator.submitCalls)
}

func TestRunDoesNotRetrySubmitOnContentPolicy(t *testing.T) {
	f := newFixture()
	f.automator.submitErrs = []error{types.NewContentPolicy("동일한 글이 이미 등록되어 있습니다", nil)}
	o := f.orchestrator(nil)

	_, err := o.Run(context.Background(), "job-7", types.JobRequest{Category: "여행"})
	require.Error(t, err)

	var svcErr *types.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, models.FailureContentPolicy, svcErr.Kind)
	assert.Equal(t, 1, f.automator.submitCalls, "terminal faults are not retried")
	assert.Equal(t, 1, f.automator.closeCalls)
}

func TestRunTransientSubmitExhaustsRetryAndFails(t *testing.T) {
	f := newFixture()
	f.automator.submitErrs = []error{
		types.NewTransient("발행 확인 시간이 초과되었습니다", nil),
		types.NewTransient("발행 확인 시간이 초과되었습니다", nil),
	}
	o := f.orchestrator(nil)

	_, err := o.Run(context.Background(), "job-8", types.JobRequest{Category: "여행"})
	require.Error(t, err)
	assert.Equal(t, 2, f.automator.submitCalls, "one retry, then give up")
	assert.Equal(t, 1, f.automator.closeCalls)
}

func TestRunCancelDuringImageGeneration(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.images.onCalled = cancel
	o := f.orchestrator(nil)

	req := types.JobRequest{Category: "여행", Options: types.JobOptions{IncludeImage: true}}
	_, err := o.Run(ctx, "job-9", req)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 0, f.opens, "browser never opened for a cancelled job")
	states := f.states()
	assert.NotContains(t, states, models.StateLoggingIn)
	assert.NotContains(t, states, models.StatePublishing)
	assert.Equal(t, models.StateCancelled, states[len(states)-1])
}

func TestRunContentFailureSkipsBrowser(t *testing.T) {
	f := newFixture()
	f.content.err = types.NewAuthFailure("Gemini API 키가 유효하지 않습니다", errors.New("status 401"))
	o := f.orchestrator(nil)

	_, err := o.Run(context.Background(), "job-10", types.JobRequest{Category: "여행"})
	require.Error(t, err)

	var svcErr *types.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, models.FailureAuthentication, svcErr.Kind)
	assert.Equal(t, 1, f.content.calls, "non-retryable faults stop after one attempt")
	assert.Equal(t, 0, f.opens)
}

func TestRunToleratesTrendCollectionFailure(t *testing.T) {
	f := newFixture()
	f.trends.candidates = nil
	f.trends.err = errors.New("blog home returned status 503")
	o := f.orchestrator(nil)

	result, err := o.Run(context.Background(), "job-11", types.JobRequest{Category: "반려동물"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "반려동물", f.content.seenTopic.Title, "falls back to the category")
}

func TestRunDuplicateTitleIsContentPolicy(t *testing.T) {
	f := newFixture()
	o := New(Config{
		Trends:  f.trends,
		Content: f.content,
		Images:  f.images,
		NewAutomator: func(_ context.Context) (Automator, error) {
			f.opens++
			return f.automator, nil
		},
		Creds: &credentials.StaticStore{Creds: types.Credentials{
			Username: "tester",
			Secret:   "secret",
			APIKeys:  map[string]string{"gemini": "test-key"},
		}},
		Posts: titleCheckerFunc(func(_ context.Context, _ string) (bool, error) { return true, nil }),
		Emit:  func(ev types.ProgressEvent) { f.events = append(f.events, ev) },
	})

	_, err := o.Run(context.Background(), "job-12", types.JobRequest{Category: "여행"})
	require.Error(t, err)

	var svcErr *types.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, models.FailureContentPolicy, svcErr.Kind)
	assert.Equal(t, 0, f.opens)
}

type titleCheckerFunc func(ctx context.Context, title string) (bool, error)

func (f titleCheckerFunc) TitleExists(ctx context.Context, title string) (bool, error) {
	return f(ctx, title)
}

func TestRunPassesCrawledReferenceToGenerator(t *testing.T) {
	f := newFixture()
	f.crawler = &fakeCrawler{page: &types.ReferencePage{
		URL:     "https://example.com/article",
		Title:   "환절기 관리법 정리",
		Content: "전문가가 권하는 환절기 관리법입니다.",
	}}
	o := f.orchestrator(nil)

	req := types.JobRequest{
		Category:     "건강",
		ReferenceURL: "https://example.com/article",
		Options:      types.JobOptions{IncludeImage: false},
	}
	_, err := o.Run(context.Background(), "job-13", req)
	require.NoError(t, err)

	assert.Equal(t, 1, f.crawler.calls)
	assert.Equal(t, "https://example.com/article", f.crawler.seenURL)
	require.NotNil(t, f.content.seenReference)
	assert.Equal(t, "환절기 관리법 정리", f.content.seenReference.Title)
}

func TestRunToleratesReferenceCrawlFailure(t *testing.T) {
	f := newFixture()
	f.crawler = &fakeCrawler{err: types.NewTransient("참고 페이지를 불러올 수 없습니다", nil)}
	o := f.orchestrator(nil)

	req := types.JobRequest{
		Category:     "건강",
		ReferenceURL: "https://example.com/article",
		Options:      types.JobOptions{IncludeImage: false},
	}
	result, err := o.Run(context.Background(), "job-14", req)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Nil(t, f.content.seenReference, "generation proceeds without the reference")
}

func TestRunSkipsCrawlWithoutReferenceURL(t *testing.T) {
	f := newFixture()
	f.crawler = &fakeCrawler{}
	o := f.orchestrator(nil)

	_, err := o.Run(context.Background(), "job-15", types.JobRequest{Category: "건강"})
	require.NoError(t, err)
	assert.Equal(t, 0, f.crawler.calls)
}

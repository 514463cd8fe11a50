package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanulsoft/blogpilot/internal/db/models"
	"github.com/hanulsoft/blogpilot/internal/types"
	"github.com/hanulsoft/blogpilot/pkg/api/v1/client"
)

// mockClient implements client.Client with configurable function fields
type mockClient struct {
	StartJobFn      func(ctx context.Context, req client.StartJobRequest) (string, error)
	GetJobFn        func(ctx context.Context, jobID string) (types.JobStatus, error)
	GetJobEventsFn  func(ctx context.Context, jobID string) ([]types.ProgressEvent, error)
	CancelJobFn     func(ctx context.Context, jobID string) error
	ListJobsFn        func(ctx context.Context, params client.ListJobsParams) (types.ListJobsResponse, error)
	GetCategoriesFn   func(ctx context.Context) (types.CategoriesResponse, error)
	SuggestTitlesFn   func(ctx context.Context, topic string, count int) (types.TitleSuggestionsResponse, error)
	RelatedKeywordsFn func(ctx context.Context, keyword string) (types.RelatedKeywordsResponse, error)
	ImproveContentFn  func(ctx context.Context, content, instruction string) (string, error)
	CrawlReferenceFn  func(ctx context.Context, url string) (types.ReferencePage, error)
}

func (m *mockClient) HealthCheck(_ context.Context) (map[string]string, error) {
	return map[string]string{"status": "ok"}, nil
}

func (m *mockClient) StartJob(ctx context.Context, req client.StartJobRequest) (string, error) {
	return m.StartJobFn(ctx, req)
}

func (m *mockClient) GetJob(ctx context.Context, jobID string) (types.JobStatus, error) {
	return m.GetJobFn(ctx, jobID)
}

func (m *mockClient) GetJobEvents(ctx context.Context, jobID string) ([]types.ProgressEvent, error) {
	return m.GetJobEventsFn(ctx, jobID)
}

func (m *mockClient) CancelJob(ctx context.Context, jobID string) error {
	return m.CancelJobFn(ctx, jobID)
}

func (m *mockClient) ListJobs(ctx context.Context, params client.ListJobsParams) (types.ListJobsResponse, error) {
	return m.ListJobsFn(ctx, params)
}

func (m *mockClient) GetCategories(ctx context.Context) (types.CategoriesResponse, error) {
	return m.GetCategoriesFn(ctx)
}

func (m *mockClient) SuggestTitles(ctx context.Context, topic string, count int) (types.TitleSuggestionsResponse, error) {
	return m.SuggestTitlesFn(ctx, topic, count)
}

func (m *mockClient) RelatedKeywords(ctx context.Context, keyword string) (types.RelatedKeywordsResponse, error) {
	return m.RelatedKeywordsFn(ctx, keyword)
}

func (m *mockClient) ImproveContent(ctx context.Context, content, instruction string) (string, error) {
	return m.ImproveContentFn(ctx, content, instruction)
}

func (m *mockClient) CrawlReference(ctx context.Context, url string) (types.ReferencePage, error) {
	return m.CrawlReferenceFn(ctx, url)
}

// withMockClient swaps the shared API client for the duration of a test
func withMockClient(t *testing.T, mock *mockClient) {
	t.Helper()
	original := apiClient
	apiClient = mock
	t.Cleanup(func() { apiClient = original })
}

func TestStartJobCommandBuildsRequest(t *testing.T) {
	var gotReq client.StartJobRequest
	withMockClient(t, &mockClient{
		StartJobFn: func(_ context.Context, req client.StartJobRequest) (string, error) {
			gotReq = req
			return "job-abc", nil
		},
	})

	cmd := startJobCmd
	require.NoError(t, cmd.Flags().Set("category", "여행"))
	require.NoError(t, cmd.Flags().Set("keyword", "제주도"))
	require.NoError(t, cmd.Flags().Set("reference-url", "https://example.com/jeju"))
	require.NoError(t, cmd.Flags().Set("no-image", "true"))
	require.NoError(t, cmd.RunE(cmd, nil))

	assert.Equal(t, "여행", gotReq.Category)
	assert.Equal(t, "제주도", gotReq.Keyword)
	assert.Equal(t, "https://example.com/jeju", gotReq.ReferenceURL)
	require.NotNil(t, gotReq.IncludeImage)
	assert.False(t, *gotReq.IncludeImage)
	assert.Nil(t, gotReq.IncludeEmoji, "unset options stay server-defaulted")

	// reset flags for other tests
	require.NoError(t, cmd.Flags().Set("category", ""))
	require.NoError(t, cmd.Flags().Set("keyword", ""))
	require.NoError(t, cmd.Flags().Set("reference-url", ""))
	require.NoError(t, cmd.Flags().Set("no-image", "false"))
}

func TestListJobsCommandPassesFilters(t *testing.T) {
	var gotParams client.ListJobsParams
	withMockClient(t, &mockClient{
		ListJobsFn: func(_ context.Context, params client.ListJobsParams) (types.ListJobsResponse, error) {
			gotParams = params
			return types.ListJobsResponse{
				Jobs: []models.Job{{JobID: "job-1", State: models.StateSucceeded}},
			}, nil
		},
	})

	cmd := listJobsCmd
	require.NoError(t, cmd.Flags().Set("limit", "5"))
	require.NoError(t, cmd.Flags().Set("state", "succeeded"))
	require.NoError(t, cmd.RunE(cmd, nil))

	assert.Equal(t, 5, gotParams.Limit)
	assert.Equal(t, "succeeded", gotParams.State)
}

func TestCancelJobCommand(t *testing.T) {
	var cancelled string
	withMockClient(t, &mockClient{
		CancelJobFn: func(_ context.Context, jobID string) error {
			cancelled = jobID
			return nil
		},
	})

	cmd := cancelJobCmd
	require.NoError(t, cmd.Flags().Set("id", "job-xyz"))
	require.NoError(t, cmd.RunE(cmd, nil))
	assert.Equal(t, "job-xyz", cancelled)
}

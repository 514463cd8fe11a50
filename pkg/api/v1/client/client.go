// Package client provides the API client for interacting with the posting API
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/hanulsoft/blogpilot/internal/types"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// DefaultBaseURL is the default API server address
const DefaultBaseURL = "http://localhost:8080"

// Client is the interface for API client
type Client interface {
	// Health Check
	HealthCheck(ctx context.Context) (map[string]string, error)

	// Job Endpoints
	StartJob(ctx context.Context, req StartJobRequest) (string, error)
	GetJob(ctx context.Context, jobID string) (types.JobStatus, error)
	GetJobEvents(ctx context.Context, jobID string) ([]types.ProgressEvent, error)
	CancelJob(ctx context.Context, jobID string) error
	ListJobs(ctx context.Context, params ListJobsParams) (types.ListJobsResponse, error)

	// Category Endpoints
	GetCategories(ctx context.Context) (types.CategoriesResponse, error)

	// Topic Research Endpoints
	SuggestTitles(ctx context.Context, topic string, count int) (types.TitleSuggestionsResponse, error)
	RelatedKeywords(ctx context.Context, keyword string) (types.RelatedKeywordsResponse, error)
	ImproveContent(ctx context.Context, content, instruction string) (string, error)
	CrawlReference(ctx context.Context, url string) (types.ReferencePage, error)
}

var _ Client = &APIClient{}

// StartJobRequest is the request body for starting a posting job. The option
// fields are pointers so an omitted option falls back to the server default.
type StartJobRequest struct {
	Category     string `json:"category"`
	Keyword      string `json:"keyword,omitempty"`
	ReferenceURL string `json:"reference_url,omitempty"`
	IncludeImage *bool  `json:"include_image,omitempty"`
	IncludeEmoji *bool  `json:"include_emoji,omitempty"`
}

// ListJobsParams are the query parameters for listing jobs
type ListJobsParams struct {
	Limit  int
	Offset int
	State  string
}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// Validate the base URL
	_, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: opts.Timeout,
	}, nil
}

// envelope is the response wrapper the API puts around every payload
type envelope struct {
	Slug  string          `json:"slug"`
	Error string          `json:"error"`
	Data  json.RawMessage `json:"data"`
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	case http.MethodDelete:
		agent = fiber.Delete(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")

	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// doRequest sends the HTTP request and decodes the envelope payload into v
func (c *APIClient) doRequest(agent *fiber.Agent, v interface{}) error {
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	if statusCode < 200 || statusCode >= 300 {
		// Surface the API error message when the envelope is readable
		var env envelope
		if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
			return &fiber.Error{Code: statusCode, Message: env.Error}
		}
		return &fiber.Error{
			Code:    statusCode,
			Message: string(body),
		}
	}

	if v == nil || len(body) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("error decoding response data: %w", err)
	}
	return nil
}

// executeRequest creates an agent, sends the request, and processes the response
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, response interface{}) error {
	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	return c.doRequest(agent, response)
}

// HealthCheck checks the health of the API server
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	agent, err := c.createAgent(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("error sending request: %w", errs[0])
	}
	if statusCode != http.StatusOK {
		return nil, &fiber.Error{Code: statusCode, Message: string(body)}
	}

	var health map[string]string
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	return health, nil
}

// StartJob starts a new posting job and returns its job ID
func (c *APIClient) StartJob(ctx context.Context, req StartJobRequest) (string, error) {
	var data struct {
		JobID string `json:"job_id"`
	}
	if err := c.executeRequest(ctx, http.MethodPost, "/api/v1/jobs/", req, &data); err != nil {
		return "", err
	}
	return data.JobID, nil
}

// GetJob retrieves the current status of a job
func (c *APIClient) GetJob(ctx context.Context, jobID string) (types.JobStatus, error) {
	var status types.JobStatus
	endpoint := "/api/v1/jobs/" + url.PathEscape(jobID)
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &status); err != nil {
		return types.JobStatus{}, err
	}
	return status, nil
}

// GetJobEvents retrieves the progress events recorded for a job
func (c *APIClient) GetJobEvents(ctx context.Context, jobID string) ([]types.ProgressEvent, error) {
	var events []types.ProgressEvent
	endpoint := "/api/v1/jobs/" + url.PathEscape(jobID) + "/events"
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CancelJob requests cancellation of the running job
func (c *APIClient) CancelJob(ctx context.Context, jobID string) error {
	endpoint := "/api/v1/jobs/" + url.PathEscape(jobID) + "/cancel"
	return c.executeRequest(ctx, http.MethodPost, endpoint, nil, nil)
}

// ListJobs retrieves persisted jobs, newest first
func (c *APIClient) ListJobs(ctx context.Context, params ListJobsParams) (types.ListJobsResponse, error) {
	query := url.Values{}
	if params.Limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", params.Limit))
	}
	if params.Offset > 0 {
		query.Set("offset", fmt.Sprintf("%d", params.Offset))
	}
	if params.State != "" {
		query.Set("state", params.State)
	}
	endpoint := "/api/v1/jobs/"
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var resp types.ListJobsResponse
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return types.ListJobsResponse{}, err
	}
	return resp, nil
}

// GetCategories retrieves the preset posting categories and option defaults
func (c *APIClient) GetCategories(ctx context.Context) (types.CategoriesResponse, error) {
	var resp types.CategoriesResponse
	if err := c.executeRequest(ctx, http.MethodGet, "/api/v1/categories", nil, &resp); err != nil {
		return types.CategoriesResponse{}, err
	}
	return resp, nil
}

// SuggestTitles retrieves candidate post titles for a topic
func (c *APIClient) SuggestTitles(ctx context.Context, topic string, count int) (types.TitleSuggestionsResponse, error) {
	query := url.Values{}
	query.Set("topic", topic)
	if count > 0 {
		query.Set("count", fmt.Sprintf("%d", count))
	}
	endpoint := "/api/v1/topics/suggestions?" + query.Encode()

	var resp types.TitleSuggestionsResponse
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return types.TitleSuggestionsResponse{}, err
	}
	return resp, nil
}

// RelatedKeywords retrieves related search keywords for a keyword
func (c *APIClient) RelatedKeywords(ctx context.Context, keyword string) (types.RelatedKeywordsResponse, error) {
	query := url.Values{}
	query.Set("keyword", keyword)
	endpoint := "/api/v1/topics/related?" + query.Encode()

	var resp types.RelatedKeywordsResponse
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return types.RelatedKeywordsResponse{}, err
	}
	return resp, nil
}

// ImproveContent sends a draft body for rework and returns the improved text
func (c *APIClient) ImproveContent(ctx context.Context, content, instruction string) (string, error) {
	body := map[string]string{"content": content, "instruction": instruction}
	var resp types.ImprovedContentResponse
	if err := c.executeRequest(ctx, http.MethodPost, "/api/v1/content/improve", body, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

// CrawlReference previews the extracted content of a reference article
func (c *APIClient) CrawlReference(ctx context.Context, refURL string) (types.ReferencePage, error) {
	body := map[string]string{"url": refURL}
	var resp types.ReferencePage
	if err := c.executeRequest(ctx, http.MethodPost, "/api/v1/reference/preview", body, &resp); err != nil {
		return types.ReferencePage{}, err
	}
	return resp, nil
}

// Package types defines the request, response and pipeline artifact types
// shared between the orchestrator, the stage services and the API layer.
package types

import (
	"time"

	"github.com/hanulsoft/blogpilot/internal/db/models"
)

// JobOptions are the per-job posting options
type JobOptions struct {
	IncludeImage bool `json:"include_image"`
	IncludeEmoji bool `json:"include_emoji"`
}

// JobRequest describes one posting job. It is immutable once the job starts.
type JobRequest struct {
	Category string     `json:"category"`
	Keyword  string     `json:"keyword"` // empty keyword triggers trend discovery
	Options  JobOptions `json:"options"`
	// ReferenceURL is an optional article to crawl and feed into content
	// generation as background material
	ReferenceURL string `json:"reference_url,omitempty"`
	// CredentialsRef is an opaque handle into the credential store.
	// Raw secrets never travel through the request.
	CredentialsRef string `json:"credentials_ref,omitempty"`
}

// Topic is the selected posting subject, produced by the trend/topic stages
type Topic struct {
	Title  string             `json:"title"`
	Source models.TopicSource `json:"source"`
}

// TrendKeyword is one collected trending keyword candidate
type TrendKeyword struct {
	Keyword string `json:"keyword"`
	Rank    int    `json:"rank"`
	Source  string `json:"source"` // blog_home, category_signal, seasonal
}

// ReferencePage is the extracted content of a crawled reference article
type ReferencePage struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Summary  string   `json:"summary,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// ImageBlob holds a generated image and its format tag
type ImageBlob struct {
	Data   []byte `json:"-"`
	Format string `json:"format"` // "png", "jpeg"
}

// DraftPost is the post under construction. The content stage fills in the
// text fields, the image stage attaches the image.
type DraftPost struct {
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Tags        []string   `json:"tags"`
	Summary     string     `json:"summary,omitempty"`
	ImagePrompt string     `json:"image_prompt,omitempty"`
	Image       *ImageBlob `json:"image,omitempty"`
}

// PublishResult is the outcome of the publish stage. The post fields feed
// the published-post archive.
type PublishResult struct {
	Success     bool               `json:"success"`
	PostURL     string             `json:"post_url,omitempty"`
	PostTitle   string             `json:"post_title,omitempty"`
	Topic       Topic              `json:"topic"`
	Tags        []string           `json:"tags,omitempty"`
	HasImage    bool               `json:"has_image"`
	FailureKind models.FailureKind `json:"failure_kind,omitempty"`
}

// Credentials are the decrypted platform credentials read from the store.
// They are read-only inputs and must never be logged or serialized into a
// DraftPost.
type Credentials struct {
	Username string
	Secret   string
	APIKeys  map[string]string
}

// ProgressEvent is emitted after each stage transition for UI display
type ProgressEvent struct {
	JobID       string             `json:"job_id"`
	State       models.JobState    `json:"state"`
	Message     string             `json:"message"`
	FailureKind models.FailureKind `json:"failure_kind,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// JobStatus is the API representation of a job's current state
type JobStatus struct {
	JobID       string             `json:"job_id"`
	State       models.JobState    `json:"state"`
	FailureKind models.FailureKind `json:"failure_kind,omitempty"`
	Error       string             `json:"error,omitempty"`
	PostURL     string             `json:"post_url,omitempty"`
	CreatedAt   string             `json:"created_at"`
}

// ListJobsResponse is the response from the list jobs endpoint
type ListJobsResponse struct {
	Jobs  []models.Job `json:"jobs"`
	Total int          `json:"total"`
}

// CategoriesResponse is the response from the categories endpoint
type CategoriesResponse struct {
	Categories []string   `json:"categories"`
	Defaults   JobOptions `json:"defaults"`
}

// TitleSuggestionsResponse is the response from the title suggestions endpoint
type TitleSuggestionsResponse struct {
	Topic  string   `json:"topic"`
	Titles []string `json:"titles"`
}

// RelatedKeywordsResponse is the response from the related keywords endpoint
type RelatedKeywordsResponse struct {
	Keyword  string   `json:"keyword"`
	Keywords []string `json:"keywords"`
}

// ImprovedContentResponse is the response from the content improvement endpoint
type ImprovedContentResponse struct {
	Content string `json:"content"`
}

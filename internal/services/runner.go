package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hanulsoft/blogpilot/config"
	"github.com/hanulsoft/blogpilot/internal/db/models"
	"github.com/hanulsoft/blogpilot/internal/db/repos"
	"github.com/hanulsoft/blogpilot/internal/events"
	"github.com/hanulsoft/blogpilot/internal/logger"
	"github.com/hanulsoft/blogpilot/internal/types"
)

var (
	// ErrBusy is returned when a job is requested while another one runs
	ErrBusy = errors.New("a posting job is already running")
	// ErrNotRunning is returned when cancelling a job that is not active
	ErrNotRunning = errors.New("job is not running")
)

// eventHistoryJobs bounds how many finished jobs keep their event history
// in memory for the events endpoint.
const eventHistoryJobs = 8

// RunFunc executes one job through the pipeline
type RunFunc func(ctx context.Context, jobID string, req types.JobRequest) (*types.PublishResult, error)

// JobRunner accepts posting jobs, runs them one at a time and records their
// lifecycle. A second Start while a job is active returns ErrBusy.
type JobRunner struct {
	jobs  *repos.JobRepository
	posts *repos.PostRepository
	run   RunFunc

	mu       sync.Mutex
	active   *activeJob
	history  map[string][]types.ProgressEvent
	recorded []string // job IDs in history, oldest first
}

type activeJob struct {
	jobID  string
	cancel context.CancelFunc
}

// NewJobRunner creates a new job runner service
func NewJobRunner(jobs *repos.JobRepository, posts *repos.PostRepository, run RunFunc) *JobRunner {
	return &JobRunner{
		jobs:    jobs,
		posts:   posts,
		run:     run,
		history: make(map[string][]types.ProgressEvent),
	}
}

// Start validates the request, assigns a job ID and launches the pipeline in
// the background. The job runs on its own context so it survives the
// request that started it.
func (s *JobRunner) Start(ctx context.Context, req types.JobRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return "", ErrBusy
	}
	jobID := uuid.New().String()
	jobCtx, cancel := context.WithCancel(context.Background())
	s.active = &activeJob{jobID: jobID, cancel: cancel}
	s.rememberLocked(jobID)
	s.mu.Unlock()

	now := time.Now()
	job := &models.Job{
		JobID:        jobID,
		Category:     req.Category,
		Keyword:      req.Keyword,
		IncludeImage: req.Options.IncludeImage,
		IncludeEmoji: req.Options.IncludeEmoji,
		State:        models.StateIdle,
		StartedAt:    now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		s.clearActive(jobID)
		cancel()
		return "", fmt.Errorf("failed to create job record: %w", err)
	}

	events.Publish(events.Event{Type: events.EventJobStarted, JobID: jobID})
	logger.InfoWithFields("job accepted", map[string]interface{}{
		"job_id":   jobID,
		"category": req.Category,
		"keyword":  req.Keyword,
	})

	go s.execute(jobCtx, jobID, req)
	return jobID, nil
}

func validateRequest(req types.JobRequest) error {
	if req.Category == "" && req.Keyword == "" {
		return fmt.Errorf("category or keyword is required")
	}
	if req.Category != "" && !config.ValidCategory(req.Category) {
		return fmt.Errorf("unknown category: %s", req.Category)
	}
	return nil
}

func (s *JobRunner) execute(ctx context.Context, jobID string, req types.JobRequest) {
	defer s.clearActive(jobID)

	result, err := s.run(ctx, jobID, req)

	// The job context may already be cancelled; persistence gets its own.
	bg := context.Background()
	switch {
	case err == nil:
		s.finishSucceeded(bg, jobID, req, result)
	case errors.Is(err, context.Canceled):
		if dbErr := s.jobs.UpdateState(bg, jobID, models.StateCancelled); dbErr != nil {
			logger.Errorf("failed to record cancellation for job %s: %v", jobID, dbErr)
		}
	default:
		svcErr := types.Classify(err)
		if dbErr := s.jobs.UpdateFailed(bg, jobID, svcErr.Kind, svcErr.Message); dbErr != nil {
			logger.Errorf("failed to record failure for job %s: %v", jobID, dbErr)
		}
	}
}

func (s *JobRunner) finishSucceeded(ctx context.Context, jobID string, req types.JobRequest, result *types.PublishResult) {
	if err := s.jobs.UpdateSucceeded(ctx, jobID, result.PostURL, result.PostTitle); err != nil {
		logger.Errorf("failed to record success for job %s: %v", jobID, err)
	}

	post := &models.Post{
		JobID:       jobID,
		Title:       result.PostTitle,
		URL:         result.PostURL,
		Category:    req.Category,
		Topic:       result.Topic.Title,
		TopicSource: result.Topic.Source,
		HasImage:    result.HasImage,
	}
	post.SetTags(result.Tags)
	if err := s.posts.Create(ctx, post); err != nil {
		logger.Errorf("failed to archive post for job %s: %v", jobID, err)
	}
}

func (s *JobRunner) clearActive(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.jobID == jobID {
		s.active.cancel()
		s.active = nil
	}
}

// Cancel requests cooperative cancellation of the active job. The job keeps
// running until it reaches the next stage boundary.
func (s *JobRunner) Cancel(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.jobID != jobID {
		return ErrNotRunning
	}
	s.active.cancel()
	logger.Infof("cancellation requested for job %s", jobID)
	return nil
}

// Active returns the ID of the running job, if any
func (s *JobRunner) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return "", false
	}
	return s.active.jobID, true
}

// Record receives a stage transition from the pipeline. It persists the new
// state, keeps the event for the events endpoint and forwards it to the
// event bus. Wired as the orchestrator's event sink.
func (s *JobRunner) Record(ev types.ProgressEvent) {
	s.mu.Lock()
	s.history[ev.JobID] = append(s.history[ev.JobID], ev)
	s.mu.Unlock()

	// Terminal states are written by execute with their full failure detail
	if !ev.State.Terminal() {
		if err := s.jobs.UpdateState(context.Background(), ev.JobID, ev.State); err != nil {
			logger.Errorf("failed to persist state %s for job %s: %v", ev.State, ev.JobID, err)
		}
	}

	events.Publish(events.Event{
		Type:     events.TypeForState(ev.State),
		JobID:    ev.JobID,
		Progress: ev,
	})
}

// rememberLocked tracks jobID in the event history and evicts the oldest
// finished job beyond the retention bound. Caller holds s.mu.
func (s *JobRunner) rememberLocked(jobID string) {
	s.recorded = append(s.recorded, jobID)
	for len(s.recorded) > eventHistoryJobs {
		delete(s.history, s.recorded[0])
		s.recorded = s.recorded[1:]
	}
}

// Events returns a snapshot of the progress events recorded for a job
func (s *JobRunner) Events(jobID string) []types.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := s.history[jobID]
	out := make([]types.ProgressEvent, len(evs))
	copy(out, evs)
	return out
}

// Status returns the API view of a job
func (s *JobRunner) Status(ctx context.Context, jobID string) (*types.JobStatus, error) {
	job, err := s.jobs.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &types.JobStatus{
		JobID:       job.JobID,
		State:       job.State,
		FailureKind: job.FailureKind,
		Error:       job.Error,
		PostURL:     job.PostURL,
		CreatedAt:   job.CreatedAt.Format(time.RFC3339),
	}, nil
}

// List returns persisted jobs, newest first
func (s *JobRunner) List(ctx context.Context, opts *models.ListOptions) ([]models.Job, error) {
	return s.jobs.List(ctx, opts)
}

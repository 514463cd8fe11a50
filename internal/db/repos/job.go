// Package repos provides database access for the blogpilot models
package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hanulsoft/blogpilot/internal/db/models"
)

// JobRepository provides access to job-related database operations
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository instance
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create creates a new job record
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if job.JobID == "" {
		return fmt.Errorf("job requires a job id")
	}
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByJobID retrieves a job by its public job id
func (r *JobRepository) GetByJobID(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).Where(&models.Job{JobID: jobID}).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("job not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// UpdateState updates the state of a job
func (r *JobRepository) UpdateState(ctx context.Context, jobID string, state models.JobState) error {
	updates := map[string]interface{}{"state": state}
	if state.Terminal() {
		now := time.Now()
		updates["finished_at"] = &now
	}
	return r.db.WithContext(ctx).Model(&models.Job{}).
		Where(&models.Job{JobID: jobID}).
		Updates(updates).Error
}

// UpdateFailed marks a job failed with its classification and message
func (r *JobRepository) UpdateFailed(ctx context.Context, jobID string, kind models.FailureKind, errMsg string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.Job{}).
		Where(&models.Job{JobID: jobID}).
		Updates(map[string]interface{}{
			"state":        models.StateFailed,
			"failure_kind": kind,
			"error":        errMsg,
			"finished_at":  &now,
		}).Error
}

// UpdateSucceeded marks a job succeeded with its published post details
func (r *JobRepository) UpdateSucceeded(ctx context.Context, jobID, postURL, postTitle string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.Job{}).
		Where(&models.Job{JobID: jobID}).
		Updates(map[string]interface{}{
			"state":       models.StateSucceeded,
			"post_url":    postURL,
			"post_title":  postTitle,
			"finished_at": &now,
		}).Error
}

// List retrieves jobs ordered by creation time, newest first
func (r *JobRepository) List(ctx context.Context, opts *models.ListOptions) ([]models.Job, error) {
	var jobs []models.Job
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if opts != nil {
		if opts.JobState != nil {
			q = q.Where("state = ?", *opts.JobState)
		}
		if opts.Limit > 0 {
			q = q.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			q = q.Offset(opts.Offset)
		}
	}
	if err := q.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

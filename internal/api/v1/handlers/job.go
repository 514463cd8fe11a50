package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hanulsoft/blogpilot/config"
	"github.com/hanulsoft/blogpilot/internal/db/models"
	"github.com/hanulsoft/blogpilot/internal/services"
	"github.com/hanulsoft/blogpilot/internal/types"
)

// JobHandler handles HTTP requests for posting job operations
type JobHandler struct {
	runner *services.JobRunner
}

// NewJobHandler creates a new job handler instance
func NewJobHandler(runner *services.JobRunner) *JobHandler {
	return &JobHandler{runner: runner}
}

// createJobRequest is the wire form of a job request. The option fields are
// pointers so an omitted option falls back to its default instead of false.
type createJobRequest struct {
	Category     string `json:"category"`
	Keyword      string `json:"keyword"`
	ReferenceURL string `json:"reference_url"`
	IncludeImage *bool  `json:"include_image"`
	IncludeEmoji *bool  `json:"include_emoji"`
}

func (r createJobRequest) toJobRequest() types.JobRequest {
	opts := types.JobOptions{
		IncludeImage: config.DefaultIncludeImage,
		IncludeEmoji: config.DefaultIncludeEmoji,
	}
	if r.IncludeImage != nil {
		opts.IncludeImage = *r.IncludeImage
	}
	if r.IncludeEmoji != nil {
		opts.IncludeEmoji = *r.IncludeEmoji
	}
	return types.JobRequest{
		Category:     r.Category,
		Keyword:      r.Keyword,
		ReferenceURL: r.ReferenceURL,
		Options:      opts,
	}
}

// CreateJob handles the request to start a new posting job
func (h *JobHandler) CreateJob(c *fiber.Ctx) error {
	var req createJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput(err.Error()))
	}

	jobID, err := h.runner.Start(c.Context(), req.toJobRequest())
	if err != nil {
		if errors.Is(err, services.ErrBusy) {
			return c.Status(fiber.StatusConflict).
				JSON(errBusy("a posting job is already running"))
		}
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput(err.Error()))
	}

	return c.Status(fiber.StatusAccepted).
		JSON(Response{
			Slug: SuccessSlug,
			Data: fiber.Map{"job_id": jobID},
		})
}

// GetJobStatus handles the request to get a job's status
func (h *JobHandler) GetJobStatus(c *fiber.Ctx) error {
	jobID := c.Params("id")
	if jobID == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput("invalid job id"))
	}

	status, err := h.runner.Status(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).
				JSON(errNotFound("job not found"))
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(errServer(err.Error()))
	}

	return c.JSON(Response{
		Slug: SuccessSlug,
		Data: status,
	})
}

// GetJobEvents handles the request to get a job's progress events
func (h *JobHandler) GetJobEvents(c *fiber.Ctx) error {
	jobID := c.Params("id")
	if jobID == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput("invalid job id"))
	}

	return c.JSON(Response{
		Slug: SuccessSlug,
		Data: h.runner.Events(jobID),
	})
}

// CancelJob handles the request to cancel the running job
func (h *JobHandler) CancelJob(c *fiber.Ctx) error {
	jobID := c.Params("id")
	if jobID == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput("invalid job id"))
	}

	if err := h.runner.Cancel(jobID); err != nil {
		if errors.Is(err, services.ErrNotRunning) {
			return c.Status(fiber.StatusNotFound).
				JSON(errNotFound("job is not running"))
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(errServer(err.Error()))
	}

	return c.JSON(Response{
		Slug: SuccessSlug,
		Data: "cancellation requested",
	})
}

// ListJobs handles the request to list jobs
func (h *JobHandler) ListJobs(c *fiber.Ctx) error {
	var (
		limit  = c.QueryInt("limit", 10)
		offset = c.QueryInt("offset", 0)
	)

	opts := &models.ListOptions{Limit: limit, Offset: offset}
	if raw := c.Query("state"); raw != "" {
		state, err := models.ParseJobState(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(errInvalidInput("invalid job state"))
		}
		opts.JobState = &state
	}

	jobs, err := h.runner.List(c.Context(), opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(errServer(err.Error()))
	}

	return c.JSON(Response{
		Slug: SuccessSlug,
		Data: types.ListJobsResponse{Jobs: jobs, Total: len(jobs)},
	})
}

// GetCategories handles the request to list the preset posting categories
func (h *JobHandler) GetCategories(c *fiber.Ctx) error {
	return c.JSON(Response{
		Slug: SuccessSlug,
		Data: types.CategoriesResponse{
			Categories: config.Categories,
			Defaults: types.JobOptions{
				IncludeImage: config.DefaultIncludeImage,
				IncludeEmoji: config.DefaultIncludeEmoji,
			},
		},
	})
}

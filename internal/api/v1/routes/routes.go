package v1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hanulsoft/blogpilot/internal/api/v1/handlers"
)

// SetupRoutes configures all the v1 routes
func SetupRoutes(router fiber.Router, jobs *handlers.JobHandler, topics *handlers.TopicHandler) {
	jobGroup := router.Group("/jobs")
	jobGroup.Post("/", jobs.CreateJob)
	jobGroup.Get("/", jobs.ListJobs)
	jobGroup.Get("/:id", jobs.GetJobStatus)
	jobGroup.Get("/:id/events", jobs.GetJobEvents)
	jobGroup.Post("/:id/cancel", jobs.CancelJob)

	router.Get("/categories", jobs.GetCategories)

	topicGroup := router.Group("/topics")
	topicGroup.Get("/suggestions", topics.SuggestTitles)
	topicGroup.Get("/related", topics.RelatedKeywords)

	router.Post("/content/improve", topics.ImproveContent)
	router.Post("/reference/preview", topics.CrawlReference)
}

// Register registers the v1 routes
func Register(app *fiber.App, jobs *handlers.JobHandler, topics *handlers.TopicHandler) {
	v1Group := app.Group("/api/v1")
	SetupRoutes(v1Group, jobs, topics)
}

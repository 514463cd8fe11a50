package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/hanulsoft/blogpilot/internal/db/models"
	"github.com/hanulsoft/blogpilot/internal/types"
)

// Title suggestion bounds
const (
	defaultSuggestionCount = 5
	maxSuggestionCount     = 10
)

// TitleSuggester generates candidate titles and reworks draft content
type TitleSuggester interface {
	GenerateTitleSuggestions(ctx context.Context, topic string, count int) ([]string, error)
	ImproveContent(ctx context.Context, content, instruction string) (string, error)
}

// KeywordSource expands a keyword into related search keywords
type KeywordSource interface {
	RelatedKeywords(ctx context.Context, keyword string, count int) ([]string, error)
}

// ReferenceCrawler extracts the content of a reference article
type ReferenceCrawler interface {
	Crawl(ctx context.Context, url string) (*types.ReferencePage, error)
}

// TopicHandler handles the topic research endpoints backing the pre-posting
// workflow: title brainstorming, keyword expansion, draft improvement and
// reference article preview
type TopicHandler struct {
	suggester TitleSuggester
	keywords  KeywordSource
	crawler   ReferenceCrawler
}

// NewTopicHandler creates a new topic handler instance
func NewTopicHandler(suggester TitleSuggester, keywords KeywordSource, crawler ReferenceCrawler) *TopicHandler {
	return &TopicHandler{suggester: suggester, keywords: keywords, crawler: crawler}
}

// topicErrorStatus maps a service failure to an HTTP status: configuration
// faults are the caller's input, everything else is an upstream failure
func topicErrorStatus(err error) int {
	if types.Classify(err).Kind == models.FailureConfiguration {
		return fiber.StatusBadRequest
	}
	return fiber.StatusBadGateway
}

// SuggestTitles handles the request for candidate post titles
func (h *TopicHandler) SuggestTitles(c *fiber.Ctx) error {
	topic := c.Query("topic")
	if topic == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput("topic is required"))
	}
	count := c.QueryInt("count", defaultSuggestionCount)
	if count < 1 || count > maxSuggestionCount {
		count = defaultSuggestionCount
	}

	titles, err := h.suggester.GenerateTitleSuggestions(c.Context(), topic, count)
	if err != nil {
		return c.Status(topicErrorStatus(err)).
			JSON(errServer(err.Error()))
	}

	return c.JSON(Response{
		Slug: SuccessSlug,
		Data: types.TitleSuggestionsResponse{Topic: topic, Titles: titles},
	})
}

// RelatedKeywords handles the request for related search keywords
func (h *TopicHandler) RelatedKeywords(c *fiber.Ctx) error {
	keyword := c.Query("keyword")
	if keyword == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput("keyword is required"))
	}
	count := c.QueryInt("count", maxSuggestionCount)

	keywords, err := h.keywords.RelatedKeywords(c.Context(), keyword, count)
	if err != nil {
		return c.Status(topicErrorStatus(err)).
			JSON(errServer(err.Error()))
	}

	return c.JSON(Response{
		Slug: SuccessSlug,
		Data: types.RelatedKeywordsResponse{Keyword: keyword, Keywords: keywords},
	})
}

// improveContentRequest is the wire form of a content improvement request
type improveContentRequest struct {
	Content     string `json:"content"`
	Instruction string `json:"instruction"`
}

// ImproveContent handles the request to rework a draft body
func (h *TopicHandler) ImproveContent(c *fiber.Ctx) error {
	var req improveContentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput(err.Error()))
	}
	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput("content is required"))
	}

	improved, err := h.suggester.ImproveContent(c.Context(), req.Content, req.Instruction)
	if err != nil {
		return c.Status(topicErrorStatus(err)).
			JSON(errServer(err.Error()))
	}

	return c.JSON(Response{
		Slug: SuccessSlug,
		Data: types.ImprovedContentResponse{Content: improved},
	})
}

// crawlReferenceRequest is the wire form of a reference preview request
type crawlReferenceRequest struct {
	URL string `json:"url"`
}

// CrawlReference handles the request to preview a reference article before
// attaching it to a posting job
func (h *TopicHandler) CrawlReference(c *fiber.Ctx) error {
	var req crawlReferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput(err.Error()))
	}
	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput("url is required"))
	}

	page, err := h.crawler.Crawl(c.Context(), req.URL)
	if err != nil {
		return c.Status(topicErrorStatus(err)).
			JSON(errServer(err.Error()))
	}

	return c.JSON(Response{
		Slug: SuccessSlug,
		Data: page,
	})
}

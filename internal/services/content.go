package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/hanulsoft/blogpilot/internal/constants"
	"github.com/hanulsoft/blogpilot/internal/db/models"
	"github.com/hanulsoft/blogpilot/internal/logger"
	"github.com/hanulsoft/blogpilot/internal/ratelimit"
	"github.com/hanulsoft/blogpilot/internal/types"
)

// Content generation defaults
const (
	// DefaultGeminiModel is the model used for blog content generation
	DefaultGeminiModel = "gemini-2.0-flash"
	// geminiBaseURL is the Gemini REST endpoint
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// minPostLength and maxPostLength bound the generated body in runes
	minPostLength = 1500
	maxPostLength = 3000
	// summaryLength is how much of the body becomes the preview summary
	summaryLength = 200
)

// GeminiService generates blog content through the Gemini REST API
type GeminiService struct {
	apiKey  func() string
	model   string
	baseURL string
	http    *http.Client
	limiter *ratelimit.Limiter
	retry   retryPolicy
}

// NewGeminiService creates a content generator backed by Gemini. The key
// function is called per request, so a key configured after startup is
// picked up without restarting the service.
func NewGeminiService(apiKey func() string, limiter *ratelimit.Limiter) *GeminiService {
	return &GeminiService{
		apiKey:  apiKey,
		model:   DefaultGeminiModel,
		baseURL: geminiBaseURL,
		http:    &http.Client{Timeout: 2 * time.Minute},
		limiter: limiter,
		retry:   defaultRetryPolicy(),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// generate sends one prompt and returns the raw model text. Every attempt,
// including retries, acquires a rate limit slot first.
func (s *GeminiService) generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := s.retry.do(ctx, "gemini.generate", func() error {
		if err := s.limiter.Acquire(ctx, constants.ServiceGemini); err != nil {
			return types.NewTransient("요청 대기 중 작업이 중단되었습니다", err)
		}
		text, err := s.generateOnce(ctx, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	return out, err
}

func (s *GeminiService) generateOnce(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", types.NewTransient("콘텐츠 생성 서비스에 연결할 수 없습니다", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyGeminiStatus(resp)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", types.NewTransient("콘텐츠 생성 응답을 읽을 수 없습니다", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", types.NewTransient("콘텐츠 생성 결과가 비어 있습니다", nil)
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func classifyGeminiStatus(resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	err := fmt.Errorf("gemini status %d: %s", resp.StatusCode, string(detail))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return types.NewAuthFailure("Gemini API 키가 유효하지 않습니다", err)
	case resp.StatusCode == http.StatusTooManyRequests:
		return types.NewTransient("콘텐츠 생성 요청 한도를 초과했습니다", err)
	case resp.StatusCode >= 500:
		return types.NewTransient("콘텐츠 생성 서비스 오류가 발생했습니다", err)
	default:
		return &types.ServiceError{
			Kind:    models.FailureConfiguration,
			Message: "콘텐츠 생성 요청이 거부되었습니다",
			Err:     err,
		}
	}
}

// GenerateBlogPost generates a full blog draft for the topic. A crawled
// reference page, when provided, is passed to the model as background
// material to rework rather than copy.
func (s *GeminiService) GenerateBlogPost(ctx context.Context, topic types.Topic, category string, opts types.JobOptions, ref *types.ReferencePage) (*types.DraftPost, error) {
	emojiInstruction := "이모지 없이"
	if opts.IncludeEmoji {
		emojiInstruction = "이모지를 적절히 사용해서"
	}

	referenceBlock := ""
	if ref != nil && ref.Content != "" {
		referenceBlock = fmt.Sprintf(`
[참고 자료]
제목: %s
내용:
%s

참고 자료의 정보를 활용하되, 문장을 그대로 옮기지 말고 자신의 글로 재구성해주세요.
`, ref.Title, ref.Content)
	}

	prompt := fmt.Sprintf(`당신은 네이버 블로그 전문 작가입니다.
다음 조건에 맞는 블로그 글을 작성해주세요:

[주제] %s
[카테고리] %s
%s
[작성 조건]
1. %s 친근하고 읽기 쉬운 문체로 작성
2. 글 길이: %d~%d자
3. 서론, 본론, 결론 구조로 작성
4. 소제목(##)을 3-5개 사용하여 가독성 높이기
5. 실용적인 정보와 팁 포함
6. 마지막에 독자 참여를 유도하는 질문 추가

[출력 형식]
제목: (흥미로운 제목)

(본문 내용)

태그: (쉼표로 구분된 5-7개 태그)
`, topic.Title, category, referenceBlock, emojiInstruction, minPostLength, maxPostLength)

	logger.Infof("generating blog content for topic %q", topic.Title)
	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseBlogResponse(raw, topic.Title), nil
}

// GenerateImagePrompt generates an English image prompt for the topic
func (s *GeminiService) GenerateImagePrompt(ctx context.Context, topic types.Topic) (string, error) {
	prompt := fmt.Sprintf(`Create an English image generation prompt for the following topic.
The prompt should describe a visually appealing blog header image.

Topic: %s
Style: modern minimalist blog illustration

Requirements:
- Write in English only
- Be descriptive but concise (under 100 words)
- Focus on visual elements, colors, and composition
- No text or words in the image

Output only the prompt, nothing else.`, topic.Title)

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// defaultImproveInstruction is used when the caller gives no direction
const defaultImproveInstruction = "더 자연스럽고 읽기 쉽게"

// ImproveContent reworks a draft body according to the instruction and
// returns only the improved text
func (s *GeminiService) ImproveContent(ctx context.Context, content, instruction string) (string, error) {
	if instruction == "" {
		instruction = defaultImproveInstruction
	}

	prompt := fmt.Sprintf(`다음 블로그 글을 개선해주세요.

[개선 방향]
%s

[원본 글]
%s

[출력]
개선된 글만 출력 (설명 없이)`, instruction, content)

	logger.Info("improving draft content")
	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// GenerateTitleSuggestions generates candidate titles for the topic
func (s *GeminiService) GenerateTitleSuggestions(ctx context.Context, topic string, count int) ([]string, error) {
	prompt := fmt.Sprintf(`다음 주제에 대한 네이버 블로그 제목을 %d개 제안해주세요.
클릭을 유도하는 매력적인 제목으로 작성해주세요.

주제: %s

형식: 번호. 제목
`, count, topic)

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var titles []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !unicode.IsDigit(rune(line[0])) {
			continue
		}
		if _, title, found := strings.Cut(line, "."); found {
			titles = append(titles, strings.TrimSpace(title))
		}
	}
	if len(titles) > count {
		titles = titles[:count]
	}
	return titles, nil
}

// parseBlogResponse splits the model output into title, body and tags using
// the 제목:/태그: markers requested by the prompt
func parseBlogResponse(raw, defaultTitle string) *types.DraftPost {
	title := defaultTitle
	var tags []string
	var bodyLines []string
	inBody := false

	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "제목:"):
			title = strings.TrimSpace(strings.TrimPrefix(trimmed, "제목:"))
		case strings.HasPrefix(trimmed, "태그:"):
			for _, t := range strings.Split(strings.TrimPrefix(trimmed, "태그:"), ",") {
				t = strings.TrimSpace(strings.ReplaceAll(t, "#", ""))
				if t != "" {
					tags = append(tags, t)
				}
			}
		case trimmed == "":
			if inBody {
				bodyLines = append(bodyLines, "")
			}
		default:
			inBody = true
			bodyLines = append(bodyLines, line)
		}
	}

	body := strings.TrimSpace(strings.Join(bodyLines, "\n"))
	if len(tags) == 0 {
		tags = []string{defaultTitle}
	}

	summary := body
	if runes := []rune(body); len(runes) > summaryLength {
		summary = string(runes[:summaryLength]) + "..."
	}

	return &types.DraftPost{
		Title:   title,
		Body:    body,
		Tags:    tags,
		Summary: summary,
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hanulsoft/blogpilot/internal/constants"
	"github.com/hanulsoft/blogpilot/internal/logger"
	"github.com/hanulsoft/blogpilot/internal/ratelimit"
	"github.com/hanulsoft/blogpilot/internal/types"
)

// ImageType selects the dimensions of a generated image
type ImageType string

// Image type presets
const (
	// ImageHeader is the wide blog header format
	ImageHeader ImageType = "header"
	// ImageThumbnail is the square thumbnail format
	ImageThumbnail ImageType = "thumbnail"
	// ImageContent is the in-article illustration format
	ImageContent ImageType = "content"
)

// imageSizes maps an image type to width and height
var imageSizes = map[ImageType][2]int{
	ImageHeader:    {1200, 630},
	ImageThumbnail: {800, 800},
	ImageContent:   {1024, 768},
}

// categoryStyles maps a posting category to an image style suffix
var categoryStyles = map[string]string{
	"의료/약학":   "medical healthcare clean professional blue white",
	"IT/테크":   "technology digital modern blue purple gradient",
	"여행":      "travel landscape scenic beautiful nature",
	"맛집/요리":   "food delicious appetizing warm cozy restaurant",
	"육아/교육":   "education children family warm friendly",
	"재테크/경제":  "finance business professional green growth",
	"뷰티/패션":   "beauty fashion elegant stylish pink pastel",
	"운동/다이어트": "fitness exercise healthy active energetic",
	"반려동물":    "pets cute adorable warm friendly animals",
	"자기계발":    "personal growth success motivation inspiring",
}

const (
	// pollinationsBaseURL is the prompt-in-URL generation endpoint
	pollinationsBaseURL = "https://image.pollinations.ai/prompt"
	// DefaultImageModel is the generation model requested from Pollinations
	DefaultImageModel = "flux"
	// imageTimeout bounds a single generation request
	imageTimeout = 120 * time.Second
	// baseImageStyle is appended to every generated prompt
	baseImageStyle = "professional high quality blog illustration no text clean"
)

// PollinationsService generates images through the Pollinations URL API
type PollinationsService struct {
	baseURL string
	model   string
	http    *http.Client
	limiter *ratelimit.Limiter
	retry   retryPolicy
	now     func() time.Time
}

// NewPollinationsService creates an image generator backed by Pollinations
func NewPollinationsService(limiter *ratelimit.Limiter) *PollinationsService {
	return &PollinationsService{
		baseURL: pollinationsBaseURL,
		model:   DefaultImageModel,
		http:    &http.Client{Timeout: imageTimeout},
		limiter: limiter,
		retry:   defaultRetryPolicy(),
		now:     time.Now,
	}
}

// StylePrompt decorates a prompt with the category style and the base style
func StylePrompt(prompt, category string) string {
	style, ok := categoryStyles[category]
	if !ok {
		style = "modern minimalist"
	}
	return fmt.Sprintf("%s, %s %s", prompt, style, baseImageStyle)
}

// Generate requests one image for the prompt and returns the binary blob.
// Each attempt acquires a rate limit slot first.
func (s *PollinationsService) Generate(ctx context.Context, prompt string, imageType ImageType) (*types.ImageBlob, error) {
	size, ok := imageSizes[imageType]
	if !ok {
		size = imageSizes[ImageContent]
	}

	var blob *types.ImageBlob
	err := s.retry.do(ctx, "pollinations.generate", func() error {
		if err := s.limiter.Acquire(ctx, constants.ServicePollinations); err != nil {
			return types.NewTransient("요청 대기 중 작업이 중단되었습니다", err)
		}
		b, err := s.generateOnce(ctx, prompt, size[0], size[1])
		if err != nil {
			return err
		}
		blob = b
		return nil
	})
	return blob, err
}

// GenerateHeader produces the post header image with the category style applied
func (s *PollinationsService) GenerateHeader(ctx context.Context, prompt, category string) (*types.ImageBlob, error) {
	return s.Generate(ctx, StylePrompt(prompt, category), ImageHeader)
}

func (s *PollinationsService) generateOnce(ctx context.Context, prompt string, width, height int) (*types.ImageBlob, error) {
	params := url.Values{}
	params.Set("width", fmt.Sprintf("%d", width))
	params.Set("height", fmt.Sprintf("%d", height))
	params.Set("model", s.model)
	params.Set("enhance", "true")
	params.Set("nologo", "true")
	// cache buster so repeated prompts still produce fresh images
	params.Set("t", fmt.Sprintf("%d", s.now().Unix()))

	reqURL := fmt.Sprintf("%s/%s?%s", s.baseURL, url.PathEscape(prompt), params.Encode())

	logger.Infof("generating image (%dx%d): %.50s", width, height, prompt)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, types.NewTransient("이미지 생성 시간이 초과되었습니다", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		svcErr := fmt.Errorf("pollinations status %d: %s", resp.StatusCode, string(detail))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, types.NewTransient("이미지 생성 서비스 오류가 발생했습니다", svcErr)
		}
		return nil, types.NewTransient("이미지 생성 요청이 거부되었습니다", svcErr)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewTransient("이미지 다운로드에 실패했습니다", err)
	}
	if len(data) == 0 {
		return nil, types.NewTransient("이미지 생성 결과가 비어 있습니다", nil)
	}

	return &types.ImageBlob{
		Data:   data,
		Format: formatFromContentType(resp.Header.Get("Content-Type")),
	}, nil
}

func formatFromContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return "jpeg"
	default:
		return "png"
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hanulsoft/blogpilot/internal/logger"
	"github.com/hanulsoft/blogpilot/internal/types"
)

// Reference crawling limits
const (
	crawlTimeout = 10 * time.Second
	// maxReferenceRunes caps the extracted body so the content prompt
	// stays within model limits
	maxReferenceRunes = 5000
	// referenceSummaryLength bounds the preview summary in runes
	referenceSummaryLength = 300
	maxReferenceKeywords   = 10
)

// stripTags are removed before body extraction
const stripTags = "script, style, nav, footer, header, aside, iframe, noscript"

// contentSelectors are tried in priority order; the candidate with the most
// text wins. Naver blog containers come first, generic article markup after.
var contentSelectors = []string{
	"div.se-main-container",
	"div#postViewArea",
	"div.post-view",
	"article",
	"div[class*=content], div[class*=article], div[class*=post], div[class*=entry], div[class*=body]",
	"div[id*=content], div[id*=article], div[id*=post], div[id*=entry], div[id*=body]",
	"main",
}

// CrawlerService extracts the readable content of a reference article so it
// can be fed into content generation
type CrawlerService struct {
	http *http.Client
}

// NewCrawlerService creates a reference page crawler
func NewCrawlerService() *CrawlerService {
	return &CrawlerService{
		http: &http.Client{Timeout: crawlTimeout},
	}
}

// Crawl fetches the page and extracts its title, body text, summary and
// keywords
func (s *CrawlerService) Crawl(ctx context.Context, rawURL string) (*types.ReferencePage, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, types.NewConfiguration("유효하지 않은 참고 URL입니다: " + rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, types.NewConfiguration("참고 URL은 http 또는 https여야 합니다")
	}

	logger.Infof("crawling reference page %s", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", trendUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := s.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, types.NewTransient("참고 페이지를 불러올 수 없습니다", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewTransient(
			fmt.Sprintf("참고 페이지 요청이 실패했습니다 (HTTP %d)", resp.StatusCode), nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, types.NewTransient("참고 페이지를 해석할 수 없습니다", err)
	}

	page := &types.ReferencePage{
		URL:      rawURL,
		Title:    extractTitle(doc),
		Keywords: extractKeywords(doc),
	}

	doc.Find(stripTags).Remove()
	page.Content = extractBody(doc)
	page.Summary = leadingSentences(page.Content, referenceSummaryLength)

	logger.Infof("reference page crawled: %s", page.Title)
	return page, nil
}

// extractTitle prefers og:title, then the document title, then the first h1
func extractTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if title := strings.TrimSpace(og); title != "" {
			return title
		}
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func extractBody(doc *goquery.Document) string {
	var best string
	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			if text := sel.Text(); len(text) > len(best) {
				best = text
			}
		})
	}
	if len([]rune(cleanPageText(best))) < 100 {
		best = doc.Find("body").Text()
	}
	return cleanPageText(best)
}

// cleanPageText drops blank lines, collapses whitespace and caps the length
func cleanPageText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	out := strings.Join(lines, "\n")
	if runes := []rune(out); len(runes) > maxReferenceRunes {
		out = string(runes[:maxReferenceRunes]) + "..."
	}
	return out
}

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// leadingSentences returns the first sentences up to maxLen runes
func leadingSentences(content string, maxLen int) string {
	var summary strings.Builder
	for _, sentence := range sentenceEnd.Split(content, -1) {
		if summary.Len() > 0 && len([]rune(summary.String()))+len([]rune(sentence)) > maxLen {
			break
		}
		summary.WriteString(sentence)
		summary.WriteString(". ")
		if len([]rune(summary.String())) > maxLen {
			break
		}
	}
	return strings.TrimSpace(summary.String())
}

// extractKeywords collects meta keywords, article tags and tag-classed links
func extractKeywords(doc *goquery.Document) []string {
	var keywords []string

	appendSplit := func(raw string) {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
	}

	if content, ok := doc.Find(`meta[name="keywords"]`).Attr("content"); ok {
		appendSplit(content)
	}
	doc.Find(`meta[property*="keywords"], meta[property*="tag"]`).Each(func(_ int, sel *goquery.Selection) {
		if content, ok := sel.Attr("content"); ok {
			appendSplit(content)
		}
	})
	doc.Find(`a[class*="tag"], span[class*="tag"]`).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" && len([]rune(text)) < 30 {
			keywords = append(keywords, strings.ReplaceAll(text, "#", ""))
		}
	})

	seen := make(map[string]bool)
	var out []string
	for _, k := range keywords {
		if len([]rune(k)) < 2 || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
		if len(out) == maxReferenceKeywords {
			break
		}
	}
	return out
}

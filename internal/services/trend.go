package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/hanulsoft/blogpilot/internal/db/models"
	"github.com/hanulsoft/blogpilot/internal/logger"
	"github.com/hanulsoft/blogpilot/internal/types"
)

// Trend collection endpoints
const (
	blogHomeURL     = "https://section.blog.naver.com/BlogHome.naver"
	autocompleteURL = "https://ac.search.naver.com/nx/ac"
	trendUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// categorySignals maps each preset category to its signal keywords
var categorySignals = map[string][]string{
	"의료/약학":   {"건강", "영양제", "다이어트", "병원", "약국", "의사", "치료"},
	"IT/테크":   {"앱", "프로그램", "AI", "코딩", "개발", "스마트폰", "노트북"},
	"여행":      {"여행", "호텔", "항공", "관광", "맛집", "휴가", "펜션"},
	"맛집/요리":   {"맛집", "레시피", "요리", "카페", "디저트", "배달", "음식점"},
	"육아/교육":   {"육아", "교육", "학원", "공부", "아이", "유아", "학교"},
	"재테크/경제":  {"주식", "투자", "부동산", "금리", "경제", "재테크", "코인"},
	"뷰티/패션":   {"화장품", "패션", "옷", "뷰티", "메이크업", "스타일", "브랜드"},
	"운동/다이어트": {"운동", "헬스", "다이어트", "피트니스", "요가", "필라테스"},
	"반려동물":    {"강아지", "고양이", "펫", "반려동물", "동물병원", "사료"},
	"자기계발":    {"자기계발", "독서", "습관", "목표", "성공", "공부", "영어"},
}

// seasonalKeywords maps a month to its seasonal keywords
var seasonalKeywords = map[time.Month][]string{
	time.January:   {"신년", "새해", "다이어리", "계획"},
	time.February:  {"발렌타인", "졸업", "입학준비"},
	time.March:     {"봄", "벚꽃", "입학", "개강"},
	time.April:     {"봄나들이", "피크닉", "꽃구경"},
	time.May:       {"어버이날", "스승의날", "가정의달"},
	time.June:      {"여름준비", "휴가계획", "장마"},
	time.July:      {"휴가", "바캉스", "여름", "해수욕장"},
	time.August:    {"피서", "여름휴가", "물놀이"},
	time.September: {"가을", "추석", "단풍"},
	time.October:   {"할로윈", "가을여행", "단풍놀이"},
	time.November:  {"수능", "블랙프라이데이", "김장"},
	time.December:  {"크리스마스", "연말", "송년회", "겨울"},
}

// TrendService collects trending keywords and selects posting topics
type TrendService struct {
	http       *http.Client
	pace       *rate.Limiter
	homeURL    string
	relatedURL string
	now        func() time.Time
}

// NewTrendService creates a trend source scraping public Naver surfaces
func NewTrendService() *TrendService {
	return &TrendService{
		http:       &http.Client{Timeout: 10 * time.Second},
		pace:       rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		homeURL:    blogHomeURL,
		relatedURL: autocompleteURL,
		now:        time.Now,
	}
}

// TrendingKeywords collects and ranks trending keywords for a category.
// Scrape failures are tolerated: the category signal and seasonal keywords
// always provide a usable fallback.
func (s *TrendService) TrendingKeywords(ctx context.Context, category string, count int) ([]types.TrendKeyword, error) {
	var keywords []types.TrendKeyword

	scraped, err := s.scrapeBlogHome(ctx)
	if err != nil {
		logger.Warnf("blog home scrape failed, continuing with signal keywords: %v", err)
	}
	keywords = append(keywords, scraped...)

	if signals, ok := categorySignals[category]; ok {
		for _, signal := range signals[:3] {
			keywords = append(keywords, types.TrendKeyword{
				Keyword: signal,
				Rank:    len(keywords) + 1,
				Source:  "category_signal",
			})
		}
	}

	for i, kw := range seasonalKeywords[s.now().Month()] {
		keywords = append(keywords, types.TrendKeyword{Keyword: kw, Rank: 100 + i, Source: "seasonal"})
	}

	unique := dedupKeywords(keywords)
	if len(unique) == 0 {
		return nil, fmt.Errorf("no trending keywords collected for category %q", category)
	}
	if count > 0 && len(unique) > count {
		unique = unique[:count]
	}
	return unique, nil
}

// scrapeBlogHome extracts popular post titles from the Naver blog home page
func (s *TrendService) scrapeBlogHome(ctx context.Context) ([]types.TrendKeyword, error) {
	if err := s.pace.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.homeURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", trendUserAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blog home returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse blog home: %w", err)
	}

	var keywords []types.TrendKeyword
	doc.Find(".title_post, .post_title, .tit").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if len([]rune(text)) > 2 {
			if runes := []rune(text); len(runes) > 30 {
				text = string(runes[:30])
			}
			keywords = append(keywords, types.TrendKeyword{Keyword: text, Rank: i + 1, Source: "blog_home"})
		}
		return len(keywords) < 10
	})
	return keywords, nil
}

// RelatedKeywords fetches related search terms from the autocomplete API
func (s *TrendService) RelatedKeywords(ctx context.Context, keyword string, count int) ([]string, error) {
	if err := s.pace.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", keyword)
	params.Set("con", "1")
	params.Set("frm", "nv")
	params.Set("r_format", "json")
	params.Set("q_enc", "UTF-8")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.relatedURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", trendUserAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("autocomplete returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Items [][][]string `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse autocomplete response: %w", err)
	}

	var related []string
	if len(parsed.Items) > 0 {
		for _, item := range parsed.Items[0] {
			if len(item) > 0 && item[0] != "" {
				related = append(related, item[0])
			}
			if count > 0 && len(related) >= count {
				break
			}
		}
	}
	return related, nil
}

// SelectTopic picks the posting topic. A user keyword always wins, taking
// the first entry when several are comma separated; otherwise the top
// collected candidate is used, falling back to the category signal and
// finally the category name itself.
func (s *TrendService) SelectTopic(category, keyword string, candidates []types.TrendKeyword) types.Topic {
	if keyword != "" {
		first := keyword
		if parts := strings.Split(keyword, ","); len(parts) > 0 {
			first = strings.TrimSpace(parts[0])
		}
		if first != "" {
			return types.Topic{Title: first, Source: models.TopicUserProvided}
		}
	}

	if len(candidates) > 0 {
		return types.Topic{Title: candidates[0].Keyword, Source: models.TopicTrendDiscovered}
	}
	if signals, ok := categorySignals[category]; ok {
		return types.Topic{Title: signals[0], Source: models.TopicTrendDiscovered}
	}
	return types.Topic{Title: category, Source: models.TopicTrendDiscovered}
}

func dedupKeywords(keywords []types.TrendKeyword) []types.TrendKeyword {
	seen := make(map[string]struct{}, len(keywords))
	var unique []types.TrendKeyword
	for _, kw := range keywords {
		if _, ok := seen[kw.Keyword]; ok {
			continue
		}
		seen[kw.Keyword] = struct{}{}
		unique = append(unique, kw)
	}
	return unique
}

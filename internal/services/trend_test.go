package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanulsoft/blogpilot/internal/db/models"
	"github.com/hanulsoft/blogpilot/internal/types"
)

func testTrendService(homeURL, relatedURL string) *TrendService {
	svc := NewTrendService()
	if homeURL != "" {
		svc.homeURL = homeURL
	}
	if relatedURL != "" {
		svc.relatedURL = relatedURL
	}
	svc.now = func() time.Time { return time.Date(2025, time.December, 20, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestTrendingKeywordsMergesSources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<div class="title_post">크리스마스 홈파티 준비하기</div>
			<div class="title_post">연말 선물 추천 리스트</div>
		</body></html>`))
	}))
	defer server.Close()

	svc := testTrendService(server.URL, "")
	keywords, err := svc.TrendingKeywords(context.Background(), "맛집/요리", 0)
	require.NoError(t, err)

	bySource := map[string]int{}
	all := map[string]bool{}
	for _, kw := range keywords {
		bySource[kw.Source]++
		all[kw.Keyword] = true
	}
	assert.Equal(t, 2, bySource["blog_home"])
	assert.Equal(t, 3, bySource["category_signal"], "top three signal keywords included")
	assert.True(t, bySource["seasonal"] > 0)
	assert.True(t, all["크리스마스 홈파티 준비하기"])
	assert.True(t, all["맛집"])
	assert.True(t, all["크리스마스"], "December seasonal keyword present")
}

func TestTrendingKeywordsSurvivesScrapeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := testTrendService(server.URL, "")
	keywords, err := svc.TrendingKeywords(context.Background(), "반려동물", 5)
	require.NoError(t, err, "signal keywords cover for a failed scrape")
	require.NotEmpty(t, keywords)
	assert.LessOrEqual(t, len(keywords), 5)
	assert.Equal(t, "강아지", keywords[0].Keyword)
}

func TestTrendingKeywordsDeduplicates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<div class="title_post">강아지</div>
			<div class="post_title">강아지</div>
		</body></html>`))
	}))
	defer server.Close()

	svc := testTrendService(server.URL, "")
	keywords, err := svc.TrendingKeywords(context.Background(), "반려동물", 0)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, kw := range keywords {
		seen[kw.Keyword]++
	}
	for kw, n := range seen {
		assert.Equal(t, 1, n, "keyword %q duplicated", kw)
	}
}

func TestRelatedKeywords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "캠핑", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"items":[[["캠핑장 추천"],["캠핑 용품"],["캠핑 요리"]]]}`))
	}))
	defer server.Close()

	svc := testTrendService("", server.URL)
	related, err := svc.RelatedKeywords(context.Background(), "캠핑", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"캠핑장 추천", "캠핑 용품"}, related)
}

func TestSelectTopicPrefersUserKeyword(t *testing.T) {
	svc := NewTrendService()
	candidates := []types.TrendKeyword{{Keyword: "트렌드 키워드", Rank: 1, Source: "blog_home"}}

	topic := svc.SelectTopic("여행", "제주도 맛집, 제주 여행", candidates)
	assert.Equal(t, "제주도 맛집", topic.Title, "first comma-separated keyword wins")
	assert.Equal(t, models.TopicUserProvided, topic.Source)
}

func TestSelectTopicFallsBackToCandidates(t *testing.T) {
	svc := NewTrendService()
	candidates := []types.TrendKeyword{{Keyword: "트렌드 키워드", Rank: 1, Source: "blog_home"}}

	topic := svc.SelectTopic("여행", "", candidates)
	assert.Equal(t, "트렌드 키워드", topic.Title)
	assert.Equal(t, models.TopicTrendDiscovered, topic.Source)
}

func TestSelectTopicFallsBackToCategorySignal(t *testing.T) {
	svc := NewTrendService()

	topic := svc.SelectTopic("자기계발", "", nil)
	assert.Equal(t, "자기계발", topic.Title, "first signal keyword for the category")
	assert.Equal(t, models.TopicTrendDiscovered, topic.Source)
}

func TestSelectTopicLastResortIsCategoryName(t *testing.T) {
	svc := NewTrendService()

	topic := svc.SelectTopic("등록되지 않은 카테고리", "", nil)
	assert.Equal(t, "등록되지 않은 카테고리", topic.Title)
}

package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanulsoft/blogpilot/internal/types"
)

func TestSuggestTitlesCommand(t *testing.T) {
	var gotTopic string
	var gotCount int
	withMockClient(t, &mockClient{
		SuggestTitlesFn: func(_ context.Context, topic string, count int) (types.TitleSuggestionsResponse, error) {
			gotTopic = topic
			gotCount = count
			return types.TitleSuggestionsResponse{
				Topic:  topic,
				Titles: []string{"환절기 꿀팁", "면역력 관리법"},
			}, nil
		},
	})

	cmd := suggestTitlesCmd
	require.NoError(t, cmd.Flags().Set("topic", "환절기"))
	require.NoError(t, cmd.Flags().Set("count", "2"))
	require.NoError(t, cmd.RunE(cmd, nil))

	assert.Equal(t, "환절기", gotTopic)
	assert.Equal(t, 2, gotCount)
}

func TestRelatedKeywordsCommand(t *testing.T) {
	var gotKeyword string
	withMockClient(t, &mockClient{
		RelatedKeywordsFn: func(_ context.Context, keyword string) (types.RelatedKeywordsResponse, error) {
			gotKeyword = keyword
			return types.RelatedKeywordsResponse{
				Keyword:  keyword,
				Keywords: []string{"강아지 간식"},
			}, nil
		},
	})

	cmd := relatedKeywordsCmd
	require.NoError(t, cmd.Flags().Set("keyword", "강아지"))
	require.NoError(t, cmd.RunE(cmd, nil))

	assert.Equal(t, "강아지", gotKeyword)
}

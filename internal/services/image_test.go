package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanulsoft/blogpilot/internal/ratelimit"
	"github.com/hanulsoft/blogpilot/internal/types"
)

func testPollinationsService(serverURL string) *PollinationsService {
	svc := NewPollinationsService(ratelimit.New(nil))
	svc.baseURL = serverURL
	svc.retry = instantRetry()
	return svc
}

func TestGenerateRequestsHeaderDimensions(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	defer server.Close()

	svc := testPollinationsService(server.URL)
	blob, err := svc.Generate(context.Background(), "a cozy pharmacy interior", ImageHeader)
	require.NoError(t, err)

	assert.Equal(t, "1200", gotQuery["width"][0])
	assert.Equal(t, "630", gotQuery["height"][0])
	assert.Equal(t, DefaultImageModel, gotQuery["model"][0])
	assert.Equal(t, "true", gotQuery["nologo"][0])
	assert.Equal(t, "jpeg", blob.Format)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, blob.Data)
}

func TestGenerateHeaderAppliesCategoryStyle(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	defer server.Close()

	svc := testPollinationsService(server.URL)
	blob, err := svc.GenerateHeader(context.Background(), "a doctor's desk", "의료/약학")
	require.NoError(t, err)

	assert.Contains(t, gotPath, "medical healthcare")
	assert.Contains(t, gotPath, baseImageStyle)
	assert.Equal(t, "png", blob.Format)
}

func TestGenerateRetriesOnServerError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89})
	}))
	defer server.Close()

	svc := testPollinationsService(server.URL)
	blob, err := svc.Generate(context.Background(), "prompt", ImageThumbnail)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.NotEmpty(t, blob.Data)
}

func TestGenerateEmptyBodyIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
	}))
	defer server.Close()

	svc := testPollinationsService(server.URL)
	_, err := svc.Generate(context.Background(), "prompt", ImageContent)
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
}

func TestStylePromptUnknownCategoryFallsBack(t *testing.T) {
	styled := StylePrompt("a quiet library", "없는카테고리")
	assert.Contains(t, styled, "a quiet library")
	assert.Contains(t, styled, "modern minimalist")
}

func TestFormatFromContentType(t *testing.T) {
	assert.Equal(t, "jpeg", formatFromContentType("image/jpeg"))
	assert.Equal(t, "jpeg", formatFromContentType("image/jpg; charset=binary"))
	assert.Equal(t, "png", formatFromContentType("image/png"))
	assert.Equal(t, "png", formatFromContentType(""))
}

package huggingface

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hubwatch/internal/domain"
)

func TestListRecentParsesListing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/models", r.URL.Path)
		assert.Equal(t, "Qwen", r.URL.Query().Get("author"))
		assert.Equal(t, "lastModified", r.URL.Query().Get("sort"))
		assert.Equal(t, "-1", r.URL.Query().Get("direction"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"modelId":"Qwen/Qwen3-32B","lastModified":"2026-08-28T10:00:00.000Z","downloads":1200,"likes":80,"tags":["moe"]},
			{"id":"Qwen/Qwen3-8B","lastModified":"2026-08-27T10:00:00.000Z"},
			{"private":true}
		]`))
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, server.Client(), 0)

	models, err := client.ListRecent(context.Background(), "Qwen")
	require.NoError(t, err)

	require.Len(t, models, 2, "entries without identifier are dropped")
	assert.Equal(t, domain.ModelID("Qwen/Qwen3-32B"), models[0].ID)
	assert.Equal(t, int64(1200), models[0].Downloads)
	assert.Equal(t, domain.ModelID("Qwen/Qwen3-8B"), models[1].ID)
}

func TestListRecentFollowsLinkHeader(t *testing.T) {
	t.Parallel()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("cursor")
		w.Header().Set("Content-Type", "application/json")

		if page == "" {
			w.Header().Set("Link", fmt.Sprintf(`<%s/api/models?cursor=2>; rel="next"`, server.URL))
			// A full page signals more results.
			entries := make([]string, pageSize)
			for i := range entries {
				entries[i] = fmt.Sprintf(`{"modelId":"org/m%d"}`, i)
			}
			_, _ = fmt.Fprintf(w, "[%s]", strings.Join(entries, ","))
			return
		}

		_, _ = w.Write([]byte(`[{"modelId":"org/last"}]`))
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, server.Client(), 0)

	models, err := client.ListRecent(context.Background(), "org")
	require.NoError(t, err)

	assert.Len(t, models, pageSize+1)
	assert.Equal(t, domain.ModelID("org/last"), models[len(models)-1].ID)
}

func TestListRecentEmptyListingIsNotAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, server.Client(), 0)

	models, err := client.ListRecent(context.Background(), "org")
	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestListRecentServerErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, server.Client(), 0)

	_, err := client.ListRecent(context.Background(), "org")
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestListRecentMalformedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, server.Client(), 0)

	_, err := client.ListRecent(context.Background(), "org")
	require.ErrorIs(t, err, domain.ErrSourceMalformed)
}

func TestListRecentTimeoutIsUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, server.Client(), 20*time.Millisecond)

	_, err := client.ListRecent(context.Background(), "org")
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestModelInfo(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/models/deepseek-ai/DeepSeek-V3", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"modelId":"deepseek-ai/DeepSeek-V3",
			"downloads":99000,"likes":4200,
			"pipeline_tag":"text-generation",
			"safetensors":{"parameters":{"BF16":685000000000}}
		}`))
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, server.Client(), 0)

	model, err := client.ModelInfo(context.Background(), "deepseek-ai/DeepSeek-V3")
	require.NoError(t, err)

	assert.Equal(t, int64(99000), model.Downloads)
	assert.Equal(t, "text-generation", model.PipelineTag)
	assert.Equal(t, int64(685000000000), model.Safetensors["BF16"])
}

func TestModelInfoNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, server.Client(), 0)

	_, err := client.ModelInfo(context.Background(), "org/missing")
	require.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestReadmeTruncatesLongCards(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/org/model/raw/main/README.md", r.URL.Path)
		_, _ = w.Write([]byte(strings.Repeat("x", maxReadmeRunes+500)))
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, server.Client(), 0)

	readme, err := client.Readme(context.Background(), "org/model")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(readme, "[...truncated...]"))
	assert.Less(t, len(readme), maxReadmeRunes+100)
}

func TestReadmeMissingReturnsEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, server.Client(), 0)

	readme, err := client.Readme(context.Background(), "org/model")
	require.NoError(t, err)
	assert.Empty(t, readme)
}

func TestModelCount(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"modelId":"org/a"},{"modelId":"org/b"},{"modelId":"org/c"}]`))
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, server.Client(), 0)

	count, err := client.ModelCount(context.Background(), "org")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

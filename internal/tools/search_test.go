package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/llm/llmtest"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
)

func tavilyServer(t *testing.T, results []searchResult, seen *searchRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(searchResponse{Results: results})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type stubSummarizer struct {
	fail map[string]bool
}

func (s stubSummarizer) Summarize(_ context.Context, content string) (string, error) {
	if s.fail[content] {
		return "", errors.New("summarizer down")
	}
	return "summary of " + content, nil
}

func TestTavilySearchFormatsResults(t *testing.T) {
	var seen searchRequest
	srv := tavilyServer(t, []searchResult{
		{Title: "Blue Bottle", URL: "https://a.example", Content: "snippet a", RawContent: "page a"},
		{Title: "Blue Bottle dup", URL: "https://a.example", Content: "dup"},
		{Title: "Sightglass", URL: "https://b.example", Content: "snippet b", RawContent: "page b"},
	}, &seen)

	s := NewTavilySearch(SearchConfig{APIKey: "tvly-test", BaseURL: srv.URL}, nil, nil,
		stubSummarizer{fail: map[string]bool{"page b": true}}, zaptest.NewLogger(t))

	out, err := s.Invoke(context.Background(), map[string]interface{}{
		"query":       "best coffee SF",
		"max_results": float64(5),
		"topic":       "news",
	})
	require.NoError(t, err)

	assert.Equal(t, "best coffee SF", seen.Query)
	assert.Equal(t, 5, seen.MaxResults)
	assert.Equal(t, "news", seen.Topic)
	assert.True(t, seen.IncludeRawContent)

	assert.True(t, strings.HasPrefix(out, "Search results: \n\n"))
	assert.Contains(t, out, "--- SOURCE 1: Blue Bottle ---\nURL: https://a.example\n\nSUMMARY:\nsummary of page a")
	assert.Contains(t, out, "--- SOURCE 2: Sightglass ---")
	assert.Contains(t, out, "SUMMARY:\nsnippet b", "failed summary falls back to snippet")
	assert.NotContains(t, out, "dup")
}

func TestTavilySearchDefaultsAndEmpty(t *testing.T) {
	var seen searchRequest
	srv := tavilyServer(t, nil, &seen)
	s := NewTavilySearch(SearchConfig{APIKey: "tvly-test", BaseURL: srv.URL}, nil, nil, nil, nil)

	out, err := s.Invoke(context.Background(), map[string]interface{}{"query": "anything"})
	require.NoError(t, err)
	assert.Equal(t, NoResultsMessage, out)
	assert.Equal(t, 3, seen.MaxResults)
	assert.Equal(t, "general", seen.Topic)
	assert.False(t, seen.IncludeRawContent)
}

func TestTavilySearchArgumentErrors(t *testing.T) {
	s := NewTavilySearch(SearchConfig{APIKey: "tvly-test", BaseURL: "http://127.0.0.1:0"}, nil, nil, nil, nil)

	_, err := s.Invoke(context.Background(), map[string]interface{}{})
	assert.Error(t, err)

	_, err = s.Invoke(context.Background(), map[string]interface{}{"query": "q", "topic": "sports"})
	assert.Error(t, err)
}

func TestTavilySearchMissingKey(t *testing.T) {
	s := NewTavilySearch(SearchConfig{}, nil, nil, nil, nil)
	_, err := s.Invoke(context.Background(), map[string]interface{}{"query": "q"})
	var cfgErr *models.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestTavilySearchServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewTavilySearch(SearchConfig{APIKey: "tvly-test", BaseURL: srv.URL}, nil, nil, nil, nil)
	_, err := s.Invoke(context.Background(), map[string]interface{}{"query": "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestModelSummarizer(t *testing.T) {
	backend := llmtest.New().On("WebpageSummary", llmtest.Reply(WebpageSummary{
		Summary:     "Cafe overview",
		KeyExcerpts: "\"best pour-over\"",
	}))
	s := NewModelSummarizer(backend, func(content string) (string, error) {
		return "Summarize: " + content, nil
	})

	out, err := s.Summarize(context.Background(), "raw page")
	require.NoError(t, err)
	assert.Equal(t, "<summary>\nCafe overview\n</summary>\n\n<key_excerpts>\n\"best pour-over\"\n</key_excerpts>", out)

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Summarize: raw page", calls[0].Messages[0].Content)
}

func TestTruncateUTF8KeepsRunesWhole(t *testing.T) {
	s := "abé世" // 'é' is 2 bytes, '世' is 3
	assert.Equal(t, s, truncateUTF8(s, len(s)))
	assert.Equal(t, "ab", truncateUTF8(s, 3))
	assert.Equal(t, "abé", truncateUTF8(s, 5))
	assert.Equal(t, "abé", truncateUTF8(s, 6))
	assert.Equal(t, "", truncateUTF8("世", 2))

	long := strings.Repeat("a", maxSummarizedContent-1) + "世"
	cut := truncateUTF8(long, maxSummarizedContent)
	assert.True(t, utf8.ValidString(cut))
	assert.Len(t, cut, maxSummarizedContent-1)
}

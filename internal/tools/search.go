package tools

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
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/circuitbreaker"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/llm"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tracing"
)

const (
	SearchToolName = "tavily_search"

	SearchDescription = "Fetch results from the Tavily search API with content summarization. " +
		`Arguments: {"query": string, "max_results": integer (optional, default 3), ` +
		`"topic": "general" | "news" | "finance" (optional, default "general")}.`

	DefaultSearchURL = "https://api.tavily.com"

	// NoResultsMessage is returned when a search yields nothing usable.
	NoResultsMessage = "No valid search results found. Please try different search queries or use a different search API."

	maxSummarizedContent = 250000
	summaryConcurrency   = 3
)

var validTopics = map[string]bool{"general": true, "news": true, "finance": true}

// SearchConfig configures the Tavily capability.
type SearchConfig struct {
	APIKey     string
	BaseURL    string
	MaxResults int
	Timeout    time.Duration
}

// Summarizer condenses raw page content before it is shown to a researcher.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// TavilySearch is the web search capability.
type TavilySearch struct {
	cfg        SearchConfig
	http       *circuitbreaker.HTTPWrapper
	limiter    *rate.Limiter
	summarizer Summarizer
	logger     *zap.Logger
}

// NewTavilySearch builds the capability. summarizer and limiter may be nil.
func NewTavilySearch(cfg SearchConfig, hw *circuitbreaker.HTTPWrapper, limiter *rate.Limiter, summarizer Summarizer, logger *zap.Logger) *TavilySearch {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSearchURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if hw == nil {
		hw = circuitbreaker.NewHTTPWrapper(&http.Client{Timeout: cfg.Timeout}, SearchToolName, circuitbreaker.DefaultConfig(), logger)
	}
	return &TavilySearch{cfg: cfg, http: hw, limiter: limiter, summarizer: summarizer, logger: logger}
}

type searchRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	Topic             string `json:"topic"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type searchResult struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	RawContent string  `json:"raw_content"`
	Score      float64 `json:"score"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Invoke implements Capability.
func (s *TavilySearch) Invoke(ctx context.Context, args map[string]interface{}) (out string, err error) {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("missing required argument \"query\"")
	}
	maxResults := s.cfg.MaxResults
	if v, ok := args["max_results"].(float64); ok && v > 0 {
		maxResults = int(v)
	}
	topic := "general"
	if v, ok := args["topic"].(string); ok && v != "" {
		if !validTopics[v] {
			return "", fmt.Errorf("invalid topic %q", v)
		}
		topic = v
	}

	ctx, span := tracing.StartSpan(ctx, "tools.tavily_search",
		attribute.String("search.topic", topic),
		attribute.Int("search.max_results", maxResults),
	)
	defer func() { tracing.End(span, err) }()

	results, err := s.search(ctx, searchRequest{
		Query:             query,
		MaxResults:        maxResults,
		Topic:             topic,
		IncludeRawContent: s.summarizer != nil,
	})
	if err != nil {
		return "", err
	}
	results = dedupeByURL(results)
	if len(results) == 0 {
		return NoResultsMessage, nil
	}

	summaries := s.summarize(ctx, results)
	return formatSearchOutput(results, summaries), nil
}

func (s *TavilySearch) search(ctx context.Context, body searchRequest) ([]searchResult, error) {
	if s.cfg.APIKey == "" {
		return nil, &models.ConfigurationError{Setting: "search.api_key", Reason: "no Tavily API key configured"}
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.cfg.BaseURL, "/")+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return decoded.Results, nil
}

// summarize condenses raw content per result. A failed summary falls back to
// the snippet Tavily returned.
func (s *TavilySearch) summarize(ctx context.Context, results []searchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Content
	}
	if s.summarizer == nil {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryConcurrency)
	for i, r := range results {
		if strings.TrimSpace(r.RawContent) == "" {
			continue
		}
		i, raw := i, truncateUTF8(r.RawContent, maxSummarizedContent)
		g.Go(func() error {
			summary, err := s.summarizer.Summarize(gctx, raw)
			if err != nil {
				s.logger.Warn("Page summarization failed, using snippet",
					zap.String("url", results[i].URL),
					zap.Error(err),
				)
				return nil
			}
			out[i] = summary
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func dedupeByURL(results []searchResult) []searchResult {
	seen := make(map[string]bool, len(results))
	out := make([]searchResult, 0, len(results))
	for _, r := range results {
		if r.URL != "" && seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}

func formatSearchOutput(results []searchResult, summaries []string) string {
	var b strings.Builder
	b.WriteString("Search results: \n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n\n--- SOURCE %d: %s ---\n", i+1, r.Title)
		fmt.Fprintf(&b, "URL: %s\n\n", r.URL)
		fmt.Fprintf(&b, "SUMMARY:\n%s\n\n", summaries[i])
		b.WriteString(strings.Repeat("-", 80))
		b.WriteString("\n")
	}
	return b.String()
}

// WebpageSummary is the structured output of page summarization.
type WebpageSummary struct {
	Summary     string `json:"summary" jsonschema_description:"Concise summary of the webpage content"`
	KeyExcerpts string `json:"key_excerpts" jsonschema_description:"Important quotes and excerpts from the content"`
}

// ModelSummarizer summarizes pages with a structured model call.
type ModelSummarizer struct {
	backend llm.Backend
	prompt  func(content string) (string, error)
}

// NewModelSummarizer builds a Summarizer. prompt renders the user message for
// a page.
func NewModelSummarizer(backend llm.Backend, prompt func(content string) (string, error)) *ModelSummarizer {
	return &ModelSummarizer{backend: backend, prompt: prompt}
}

func (m *ModelSummarizer) Summarize(ctx context.Context, content string) (string, error) {
	text, err := m.prompt(content)
	if err != nil {
		return "", err
	}
	out, err := llm.Call[WebpageSummary](ctx, m.backend, []models.Message{models.NewUserMessage(text)})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("<summary>\n%s\n</summary>\n\n<key_excerpts>\n%s\n</key_excerpts>", out.Summary, out.KeyExcerpts), nil
}

package pitch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	TavilyBaseURL     = "https://api.tavily.com"
	tavilySearchPath  = "/search"
	DefaultMaxResults = 5
)

type SearchCategory string

const (
	CategoryMarketSize  SearchCategory = "market_size"
	CategoryCompetitors SearchCategory = "competitors"
	CategoryTrends      SearchCategory = "trends"
	CategoryFunding     SearchCategory = "funding"
)

var SearchCategories = []SearchCategory{CategoryMarketSize, CategoryCompetitors, CategoryTrends, CategoryFunding}

type SearchResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Searcher is the web-search collaborator. An empty result slice is a valid
// answer, not an error.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

type TavilyConfig struct {
	APIKey     string
	BaseURL    string
	MaxResults int
	HTTPClient *http.Client
}

type TavilyClient struct {
	cfg TavilyConfig
}

func NewTavilyClient(cfg TavilyConfig) (*TavilyClient, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("TAVILY_API_KEY not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = TavilyBaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &TavilyClient{cfg: cfg}, nil
}

type tavilyResponse struct {
	Results []SearchResult `json:"results"`
}

func (c *TavilyClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= 4; attempt++ {
		results, code, retryAfter, err := c.executeOnce(ctx, query)
		if err == nil {
			return results, nil
		}
		lastErr = err

		if code == http.StatusBadRequest || code == http.StatusUnauthorized || code == http.StatusForbidden {
			return nil, err
		}
		if attempt == 4 {
			break
		}
		if code == http.StatusTooManyRequests {
			sleep := retryAfter
			if sleep <= 0 {
				sleep = backoffDelay(attempt)
			}
			if err := sleepCtx(ctx, sleep); err != nil {
				return nil, err
			}
			continue
		}
		if code >= 500 || code == 0 {
			if err := sleepCtx(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (c *TavilyClient) executeOnce(ctx context.Context, query string) ([]SearchResult, int, time.Duration, error) {
	payload, _ := json.Marshal(map[string]any{
		"api_key":     c.cfg.APIKey,
		"query":       query,
		"max_results": c.cfg.MaxResults,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+tavilySearchPath, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<20))

	retryAfter := parseRetryAfter(res.Header.Get("Retry-After"))
	if res.StatusCode >= 400 {
		return nil, res.StatusCode, retryAfter, fmt.Errorf("status code: %d body=%s", res.StatusCode, string(b))
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(b, &parsed); err != nil {
		return nil, res.StatusCode, retryAfter, err
	}
	if parsed.Results == nil {
		parsed.Results = []SearchResult{}
	}
	return parsed.Results, res.StatusCode, retryAfter, nil
}

func parseRetryAfter(v string) time.Duration {
	if strings.TrimSpace(v) == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// categoryQuery builds the fixed query for one search category from the
// profile's leading domain and innovation.
func categoryQuery(category SearchCategory, research ResearchAnalysis) string {
	domain := "technology"
	if len(research.Domains) > 0 {
		domain = research.Domains[0]
	}
	innovation := domain
	if len(research.Innovations) > 0 {
		innovation = research.Innovations[0]
	}
	switch category {
	case CategoryMarketSize:
		return fmt.Sprintf("%s market size TAM SAM 2025", domain)
	case CategoryCompetitors:
		return fmt.Sprintf("%s companies competitors %s", domain, innovation)
	case CategoryTrends:
		return fmt.Sprintf("%s industry trends emerging technology", domain)
	case CategoryFunding:
		return fmt.Sprintf("%s startup funding investment rounds", domain)
	default:
		return domain
	}
}

// digestResults flattens search hits into a compact context block for the
// per-category summarization prompt.
func digestResults(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, r := range results {
		if i >= DefaultMaxResults {
			break
		}
		fmt.Fprintf(&sb, "- %s: %s\n", strings.TrimSpace(r.Title), truncate(strings.TrimSpace(r.Content), 400))
	}
	return sb.String()
}

// Package search provides the web-search collaborator used by market
// analysis and visualization enrichment.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jhartinger/conceptmine/internal/metrics"
)

// Result is one web search hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Snippet     string `json:"snippet,omitempty"`
	Source      string `json:"source,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// Request describes one search.
type Request struct {
	Query        string
	MaxResults   int
	AllowDomains []string
}

// Client is a Brave-style JSON search API client with retry on transient
// failures.
type Client struct {
	baseURL   string
	apiKey    string
	http      *http.Client
	retry     RetryConfig
	collector *metrics.Collector
}

// NewClient creates a search client. The collector is optional.
func NewClient(baseURL, apiKey string, collector *metrics.Collector) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		http:      &http.Client{Timeout: 30 * time.Second},
		retry:     DefaultRetryConfig(),
		collector: collector,
	}
}

// braveResponse is the subset of the API response we consume.
type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			Profile     struct {
				Name string `json:"name"`
			} `json:"profile"`
			PageAge string `json:"page_age"`
		} `json:"results"`
	} `json:"web"`
}

// Search executes one query. Validation failures (empty key, empty query)
// fail fast; 5xx and 429 responses retry with exponential backoff.
func (c *Client) Search(ctx context.Context, req Request) ([]Result, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if req.Query == "" {
		return nil, ErrEmptyQuery
	}

	start := time.Now()
	var results []Result
	err := WithRetry(ctx, c.retry, func() error {
		var err error
		results, err = c.doSearch(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", req.Query, err)
	}

	if c.collector != nil {
		c.collector.RecordTiming(metrics.OpSearchQuery, time.Since(start))
	}
	return results, nil
}

func (c *Client) doSearch(ctx context.Context, req Request) ([]Result, error) {
	q := url.Values{}
	q.Set("q", req.Query)
	if req.MaxResults > 0 {
		q.Set("count", strconv.Itoa(req.MaxResults))
	}
	for _, d := range req.AllowDomains {
		q.Add("site", d)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]Result, 0, len(decoded.Web.Results))
	for _, r := range decoded.Web.Results {
		results = append(results, Result{
			Title:       r.Title,
			URL:         r.URL,
			Snippet:     r.Description,
			Source:      r.Profile.Name,
			PublishedAt: r.PageAge,
		})
	}
	return results, nil
}

// DedupeByURL removes duplicate results by URL. The first occurrence wins
// and input order is preserved.
func DedupeByURL(results []Result) []Result {
	seen := make(map[string]struct{}, len(results))
	out := results[:0]
	for _, r := range results {
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}

package binder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Enricher answers research queries. Implementations must honour ctx.
type Enricher interface {
	Search(ctx context.Context, q Query) ([]Finding, error)
}

// EnricherFunc adapts a function to the Enricher interface.
type EnricherFunc func(ctx context.Context, q Query) ([]Finding, error)

// Search calls f.
func (f EnricherFunc) Search(ctx context.Context, q Query) ([]Finding, error) {
	return f(ctx, q)
}

// SearchEnricher queries an HTTP search endpoint that returns
// {"results":[{"title","content"|"snippet","url","relevance"}]}.
type SearchEnricher struct {
	endpoint   string
	apiKey     string
	maxResults int
	client     *http.Client
}

type searchResponse struct {
	Results []struct {
		Title     string   `json:"title"`
		Content   string   `json:"content"`
		Snippet   string   `json:"snippet"`
		URL       string   `json:"url"`
		Relevance *float64 `json:"relevance"`
	} `json:"results"`
	Error string `json:"error,omitempty"`
}

// NewSearchEnricher creates a search client. maxResults <= 0 selects 5.
func NewSearchEnricher(endpoint, apiKey string, maxResults int) (*SearchEnricher, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid search endpoint %q", endpoint)
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &SearchEnricher{
		endpoint:   endpoint,
		apiKey:     apiKey,
		maxResults: maxResults,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Search issues a GET request with q and max_results parameters.
func (s *SearchEnricher) Search(ctx context.Context, q Query) ([]Finding, error) {
	u, _ := url.Parse(s.endpoint)
	params := u.Query()
	params.Set("q", q.Term)
	params.Set("max_results", strconv.Itoa(s.maxResults))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp searchResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("search error: %s", errResp.Error)
		}
		return nil, fmt.Errorf("http error %d: %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	findings := make([]Finding, 0, len(sr.Results))
	for _, r := range sr.Results {
		f := Finding{Title: r.Title, Content: r.Content, URL: r.URL, Relevance: 0.7}
		if f.Content == "" {
			f.Content = r.Snippet
		}
		if r.Relevance != nil {
			f.Relevance = *r.Relevance
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// StaticEnricher returns canned guidance per focus area. It needs no network
// and is used when no search endpoint is configured.
type StaticEnricher struct{}

// Search returns one finding shaped by the query focus.
func (StaticEnricher) Search(ctx context.Context, q Query) ([]Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch q.Focus {
	case FocusBestPractices:
		return []Finding{{
			Title:     "Latest " + q.Term + " Best Practices",
			Content:   "Current industry standards for " + q.Term + " include proper error handling, comprehensive testing, and performance optimization.",
			Relevance: 0.9,
		}}, nil
	case FocusTechnologyUpdates:
		return []Finding{{
			Title:     q.Term + " Latest Updates",
			Content:   "Recent updates include improved performance, new features, and security enhancements.",
			Relevance: 0.85,
		}}, nil
	default:
		return []Finding{{
			Title:     "Research Results for " + q.Term,
			Content:   "General research findings related to " + q.Term,
			Relevance: 0.7,
		}}, nil
	}
}

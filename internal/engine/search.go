package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"

	stealth "github.com/anatolykoptev/go-stealth"
)

// searxngResult is one hit of the SearXNG JSON API.
type searxngResult struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
}

type searxngResponse struct {
	Results []searxngResult `json:"results"`
}

// SearXNGProvider queries a self-hosted SearXNG instance. A failing instance
// is switched off for the run.
type SearXNGProvider struct {
	baseURL   string
	language  string
	client    *http.Client
	validator *Validator
	inactive  atomic.Bool
}

// NewSearXNGProvider creates the provider for the instance at baseURL.
func NewSearXNGProvider(baseURL, language string, client *http.Client, v *Validator) *SearXNGProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &SearXNGProvider{baseURL: baseURL, language: language, client: client, validator: v}
}

func (p *SearXNGProvider) Name() string { return ProviderSearXNG }

func (p *SearXNGProvider) Exhausted() bool { return p.inactive.Load() }

func (p *SearXNGProvider) Search(ctx context.Context, q Query) (Result, bool) {
	if p.Exhausted() {
		return Result{}, false
	}
	results, err := p.search(ctx, q.SearchString())
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, false
		}
		if p.inactive.CompareAndSwap(false, true) {
			slog.Warn("searxng failed, disabling provider", slog.Any("error", err))
		}
		return Result{}, false
	}
	spec := q.Network.Spec()
	for _, r := range results {
		// some engines return highlighted titles
		title := CleanHTML(r.Title)
		if p.validator.Valid(spec, r.URL, title, q.Text) {
			return Result{URL: r.URL, Title: title}, true
		}
		metrics.ValidationRejects.Add(1)
	}
	return Result{}, false
}

// search queries the SearXNG instance and returns raw results.
func (p *SearXNGProvider) search(ctx context.Context, query string) ([]searxngResult, error) {
	u, err := url.Parse(p.baseURL + "/search")
	if err != nil {
		return nil, err
	}
	params := u.Query()
	params.Set("q", query)
	params.Set("format", "json")
	if p.language != "" && p.language != "all" {
		params.Set("language", p.language)
	}
	u.RawQuery = params.Encode()

	metrics.SearxngRequests.Add(1)

	resp, err := stealth.RetryHTTP(ctx, stealth.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
		if err != nil {
			return nil, err
		}
		return p.client.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng status %d", resp.StatusCode)
	}

	var data searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode searxng response: %w", err)
	}
	return data.Results, nil
}

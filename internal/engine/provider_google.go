package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
)

const googleSearchURL = "https://www.google.com/search"

// GoogleWebProvider scrapes the Google results page directly. It is the last
// resort of the chain: Google blocks it quickly, and once it does (429 or the
// /sorry/ interstitial) it stays off for the run. Other failures only lose
// the current post.
type GoogleWebProvider struct {
	endpoint  string
	fetcher   Fetcher
	validator *Validator
	language  string
	quota     atomic.Bool
}

// NewGoogleWebProvider creates the provider.
func NewGoogleWebProvider(f Fetcher, v *Validator, language string) *GoogleWebProvider {
	return &GoogleWebProvider{
		endpoint:  googleSearchURL,
		fetcher:   f,
		validator: v,
		language:  language,
	}
}

func (p *GoogleWebProvider) Name() string { return ProviderGoogle }

// Exhausted reports whether Google signalled a quota block.
func (p *GoogleWebProvider) Exhausted() bool { return p.quota.Load() }

func (p *GoogleWebProvider) Search(ctx context.Context, q Query) (Result, bool) {
	if p.Exhausted() {
		return Result{}, false
	}

	params := url.Values{}
	params.Set("q", q.SearchString())
	params.Set("num", "10")
	params.Set("safe", "off")
	if p.language != "" {
		params.Set("hl", p.language)
	}
	headers := searchHeaders()
	headers["accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	metrics.GoogleRequests.Add(1)
	data, status, err := p.fetcher.Fetch(ctx, "GET", p.endpoint+"?"+params.Encode(), headers, nil)
	if err != nil {
		slog.Warn("google search failed", slog.String("post", q.PostID), slog.Any("error", err))
		return Result{}, false
	}
	if isGoogleQuota(status, data) {
		if p.quota.CompareAndSwap(false, true) {
			slog.Warn("google quota exceeded, disabling provider", slog.Int("status", status))
		}
		return Result{}, false
	}
	if status != 200 {
		slog.Warn("google search failed", slog.String("post", q.PostID), slog.Int("status", status))
		return Result{}, false
	}

	results, err := parseGoogleHTML(data)
	if err != nil {
		slog.Debug("google parse failed", slog.Any("error", err))
		return Result{}, false
	}
	spec := q.Network.Spec()
	for _, r := range results {
		if p.validator.Valid(spec, r.URL, r.Title, q.Text) {
			return r, true
		}
		metrics.ValidationRejects.Add(1)
	}
	return Result{}, false
}

func isGoogleQuota(status int, data []byte) bool {
	if status == 429 || (status >= 300 && status < 400) {
		return true
	}
	return bytes.Contains(data, []byte("/sorry/")) || bytes.Contains(bytes.ToLower(data), []byte("unusual traffic"))
}

// parseGoogleHTML returns the organic results: anchors wrapping an h3 title.
func parseGoogleHTML(data []byte) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	var results []Result
	doc.Find("a:has(h3)").Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		link := googleUnwrapURL(href)
		if link == "" {
			return
		}
		title := strings.TrimSpace(s.Find("h3").First().Text())
		results = append(results, Result{URL: link, Title: title})
	})
	return results, nil
}

// googleUnwrapURL resolves "/url?q=<target>&sa=..." redirects and drops
// links back into Google.
func googleUnwrapURL(href string) string {
	if strings.HasPrefix(href, "/url?") {
		u, err := url.Parse(href)
		if err != nil {
			return ""
		}
		href = u.Query().Get("q")
	}
	if !strings.HasPrefix(href, "http") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil || strings.Contains(u.Host, "google.") {
		return ""
	}
	return href
}

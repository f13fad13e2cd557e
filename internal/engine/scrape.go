package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"
)

// scrapeRequest is one HTTP exchange against a search page.
type scrapeRequest struct {
	method  string
	url     string
	headers map[string]string
	body    string
}

// scrapeTarget is one HTML search page the scrape provider can query.
type scrapeTarget struct {
	name    string
	request func(query, language string) scrapeRequest
	parse   func(data []byte) ([]Result, error)
	// blocked holds lowercase body markers of a captcha or block page.
	blocked []string
}

// scrapeTargets lists every scrapeable search page by name.
var scrapeTargets = map[string]scrapeTarget{
	ProviderBing:       bingTarget,
	ProviderDuckDuckGo: ddgTarget,
	ProviderStartpage:  startpageTarget,
}

var errScrapeBlocked = errors.New("blocked")

// ScrapeProvider resolves posts by scraping HTML search pages. Targets are
// tried in order within one call, with a random pause between them. Any hard
// failure deactivates the provider for the rest of the run.
type ScrapeProvider struct {
	name      string
	targets   []scrapeTarget
	fetcher   Fetcher
	validator *Validator
	language  string
	delayMin  time.Duration
	delayMax  time.Duration
	inactive  atomic.Bool
}

// NewScrapeProvider creates a provider over the named targets.
func NewScrapeProvider(name string, targets []string, f Fetcher, v *Validator, c Config) (*ScrapeProvider, error) {
	p := &ScrapeProvider{
		name:      name,
		fetcher:   f,
		validator: v,
		language:  c.SearchLanguage,
		delayMin:  c.ScrapeDelayMin,
		delayMax:  c.ScrapeDelayMax,
	}
	for _, t := range targets {
		st, ok := scrapeTargets[t]
		if !ok {
			return nil, fmt.Errorf("%w: scrape target %q", ErrUnknownProvider, t)
		}
		p.targets = append(p.targets, st)
	}
	if len(p.targets) == 0 {
		return nil, fmt.Errorf("scrape provider %q has no targets", name)
	}
	return p, nil
}

func (p *ScrapeProvider) Name() string { return p.name }

// Exhausted reports whether the provider was deactivated.
func (p *ScrapeProvider) Exhausted() bool { return p.inactive.Load() }

func (p *ScrapeProvider) Search(ctx context.Context, q Query) (Result, bool) {
	if p.Exhausted() {
		return Result{}, false
	}
	spec := q.Network.Spec()
	query := q.SearchString()

	for i, t := range p.targets {
		if i > 0 && !p.pause(ctx) {
			return Result{}, false
		}
		results, err := p.fetch(ctx, t, query)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, false
			}
			var perr *parseError
			if errors.As(err, &perr) {
				slog.Debug("scrape parse failed", slog.String("target", t.name), slog.Any("error", err))
				continue
			}
			p.deactivate(t.name, err)
			return Result{}, false
		}
		slog.Debug("scrape results", slog.String("target", t.name), slog.Int("count", len(results)))
		for _, r := range results {
			if p.validator.Valid(spec, r.URL, r.Title, q.Text) {
				return r, true
			}
			metrics.ValidationRejects.Add(1)
		}
	}
	return Result{}, false
}

type parseError struct{ err error }

func (e *parseError) Error() string { return "parse: " + e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

func (p *ScrapeProvider) fetch(ctx context.Context, t scrapeTarget, query string) ([]Result, error) {
	req := t.request(query, p.language)
	if req.headers == nil {
		req.headers = searchHeaders()
	}

	var body io.Reader
	if req.body != "" {
		body = strings.NewReader(req.body)
	}

	metrics.ScrapeRequests.Add(1)
	data, status, err := p.fetcher.Fetch(ctx, req.method, req.url, req.headers, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.name, err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%s: status %d", t.name, status)
	}
	if isBlockedPage(data, t.blocked) {
		return nil, fmt.Errorf("%s: %w", t.name, errScrapeBlocked)
	}
	results, err := t.parse(data)
	if err != nil {
		return nil, &parseError{err: err}
	}
	return results, nil
}

func (p *ScrapeProvider) deactivate(target string, err error) {
	if p.inactive.CompareAndSwap(false, true) {
		slog.Warn("scrape provider deactivated",
			slog.String("provider", p.name),
			slog.String("target", target),
			slog.Any("error", err),
		)
	}
}

// pause sleeps a random duration in [delayMin, delayMax]. It returns false
// if ctx was cancelled first.
func (p *ScrapeProvider) pause(ctx context.Context) bool {
	d := p.delayMin
	if span := p.delayMax - p.delayMin; span > 0 {
		d += rand.N(span + 1)
	}
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func isBlockedPage(data []byte, markers []string) bool {
	if len(markers) == 0 {
		return false
	}
	lower := bytes.ToLower(data)
	for _, m := range markers {
		if bytes.Contains(lower, []byte(m)) {
			return true
		}
	}
	return false
}

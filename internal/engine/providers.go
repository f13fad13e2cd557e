package engine

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// BuildProviders instantiates the providers named in c.ProviderOrder.
// SearXNG is left out silently when no instance URL is configured.
func BuildProviders(c Config, f Fetcher, v *Validator) ([]Provider, error) {
	client := c.HTTPClient
	if client == nil {
		timeout := c.FetchTimeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	targets := c.ScrapeTargets
	if len(targets) == 0 {
		targets = DefaultScrapeTargets
	}

	var out []Provider
	for _, name := range c.ProviderOrder {
		switch name {
		case ProviderCSE:
			pool := NewCredentialPool(c.CSEKeys, c.CSERequestLimit)
			out = append(out, NewCSEProvider(c.CSEID, pool, client, v,
				WithCSELanguage(c.SearchLanguage),
				WithCSERate(c.CSEQPS),
			))
		case ProviderScrape:
			p, err := NewScrapeProvider(ProviderScrape, targets, f, v, c)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		case ProviderBing, ProviderDuckDuckGo, ProviderStartpage:
			p, err := NewScrapeProvider(name, []string{name}, f, v, c)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		case ProviderSearXNG:
			if c.SearxngURL == "" {
				slog.Debug("SEARXNG_URL not set, skipping searxng provider")
				continue
			}
			out = append(out, NewSearXNGProvider(c.SearxngURL, c.SearchLanguage, client, v))
		case ProviderGoogle:
			out = append(out, NewGoogleWebProvider(f, v, c.SearchLanguage))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable provider in order %v", c.ProviderOrder)
	}
	return out, nil
}

// NewOrchestratorFromConfig wires the fetcher, validator and providers of c.
func NewOrchestratorFromConfig(c Config) (*Orchestrator, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	v := NewValidator(c.SimilarityThreshold, c.ValidationMode)
	providers, err := BuildProviders(c, NewFetcher(c), v)
	if err != nil {
		return nil, err
	}
	return NewOrchestrator(providers...), nil
}

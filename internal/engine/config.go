package engine

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/RenanCampista/post-link-finder/internal/network"
)

// Provider names accepted in Config.ProviderOrder.
const (
	ProviderCSE        = "cse"
	ProviderScrape     = "scrape"
	ProviderBing       = "bing"
	ProviderDuckDuckGo = "duckduckgo"
	ProviderStartpage  = "startpage"
	ProviderSearXNG    = "searxng"
	ProviderGoogle     = "google"
)

// DefaultProviderOrder is the fallback chain: official API first, scrapers
// next, library-style web search last.
var DefaultProviderOrder = []string{ProviderCSE, ProviderScrape, ProviderSearXNG, ProviderGoogle}

// DefaultScrapeTargets are the targets of the "scrape" provider, in order.
var DefaultScrapeTargets = []string{ProviderBing, ProviderDuckDuckGo, ProviderStartpage}

// Config holds all engine configuration, built by main and passed to
// NewOrchestratorFromConfig.
type Config struct {
	CSEID               string
	CSEKeys             []string
	CSERequestLimit     int     // soft per-key ceiling
	CSEQPS              float64 // 0 = unpaced
	SearchLanguage      string
	SimilarityThreshold float64
	ValidationMode      network.ValidationMode // "" = per-network default
	ProviderOrder       []string
	ScrapeTargets       []string
	ScrapeDelayMin      time.Duration
	ScrapeDelayMax      time.Duration
	SearxngURL          string
	FetchTimeout        time.Duration
	HTTPClient          *http.Client
	BrowserClient       *BrowserClient // nil = plain net/http fetcher
}

var (
	// ErrUnknownProvider is returned for a provider name outside the fixed set.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrDuplicateProvider is returned when a name repeats in the provider
	// order or the scrape targets.
	ErrDuplicateProvider = errors.New("duplicate provider")
	// ErrMissingCredentials is returned when the CSE provider is enabled
	// without keys or engine id.
	ErrMissingCredentials = errors.New("missing CSE credentials")
)

var knownProviders = []string{
	ProviderCSE, ProviderScrape, ProviderBing, ProviderDuckDuckGo,
	ProviderStartpage, ProviderSearXNG, ProviderGoogle,
}

// Validate reports configuration errors that must stop the run before it
// begins.
func (c Config) Validate() error {
	if len(c.ProviderOrder) == 0 {
		return errors.New("provider order is empty")
	}
	for i, name := range c.ProviderOrder {
		if !slices.Contains(knownProviders, name) {
			return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
		}
		// exhaustion is tracked by name, so a repeat would share state
		if slices.Contains(c.ProviderOrder[:i], name) {
			return fmt.Errorf("%w: %q", ErrDuplicateProvider, name)
		}
	}
	for i, name := range c.ScrapeTargets {
		if _, ok := scrapeTargets[name]; !ok {
			return fmt.Errorf("%w: scrape target %q", ErrUnknownProvider, name)
		}
		if slices.Contains(c.ScrapeTargets[:i], name) {
			return fmt.Errorf("%w: scrape target %q", ErrDuplicateProvider, name)
		}
	}
	if slices.Contains(c.ProviderOrder, ProviderCSE) {
		if c.CSEID == "" {
			return fmt.Errorf("%w: CSE_ID is not set", ErrMissingCredentials)
		}
		if len(c.CSEKeys) == 0 {
			return fmt.Errorf("%w: no CSE API keys", ErrMissingCredentials)
		}
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold %.2f outside [0,1]", c.SimilarityThreshold)
	}
	if c.ScrapeDelayMax < c.ScrapeDelayMin {
		return fmt.Errorf("scrape delay max %s below min %s", c.ScrapeDelayMax, c.ScrapeDelayMin)
	}
	return nil
}

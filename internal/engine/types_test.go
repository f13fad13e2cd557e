package engine

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/RenanCampista/post-link-finder/internal/network"
)

func TestFilterBMP(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello 🎉 world", "hello  world"},
		{"ação", "ação"},
		{"😀😀", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FilterBMP(tt.in); got != tt.want {
			t.Errorf("FilterBMP(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewQuery(t *testing.T) {
	q := NewQuery("7", "  Festa 🎉 na praça  ", " prefeitura_x ", network.Facebook)
	if q.Text != "Festa  na praça" {
		t.Errorf("Text = %q", q.Text)
	}
	if q.Identity != "prefeitura_x" {
		t.Errorf("Identity = %q", q.Identity)
	}
	want := "site: facebook.com username: prefeitura_x Festa  na praça"
	if got := q.SearchString(); got != want {
		t.Errorf("SearchString() = %q, want %q", got, want)
	}
}

func TestSearchStringCapped(t *testing.T) {
	q := NewQuery("1", strings.Repeat("palavra ", 200), "u", network.Instagram)
	if n := len([]rune(q.SearchString())); n > maxQueryRunes+3 {
		t.Errorf("SearchString() has %d runes, want about %d", n, maxQueryRunes)
	}
}

func validConfig() Config {
	return Config{
		CSEID:          "cx",
		CSEKeys:        []string{"k"},
		ProviderOrder:  DefaultProviderOrder,
		ScrapeTargets:  DefaultScrapeTargets,
		ScrapeDelayMin: time.Second,
		ScrapeDelayMax: 3 * time.Second,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"unknown provider", func(c *Config) { c.ProviderOrder = []string{"cse", "yahoo"} }, ErrUnknownProvider},
		{"unknown target", func(c *Config) { c.ScrapeTargets = []string{"yandex"} }, ErrUnknownProvider},
		{"duplicate provider", func(c *Config) { c.ProviderOrder = []string{"bing", "cse", "bing"} }, ErrDuplicateProvider},
		{"duplicate target", func(c *Config) { c.ScrapeTargets = []string{"bing", "bing"} }, ErrDuplicateProvider},
		{"no cse id", func(c *Config) { c.CSEID = "" }, ErrMissingCredentials},
		{"no keys", func(c *Config) { c.CSEKeys = nil }, ErrMissingCredentials},
		{"no keys without cse", func(c *Config) {
			c.CSEKeys = nil
			c.ProviderOrder = []string{ProviderScrape}
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	c := validConfig()
	c.ScrapeDelayMax = 0
	if c.Validate() == nil {
		t.Error("Validate() accepted max delay below min")
	}
	c = validConfig()
	c.SimilarityThreshold = 1.5
	if c.Validate() == nil {
		t.Error("Validate() accepted threshold above 1")
	}
}

func TestBuildProviders(t *testing.T) {
	c := validConfig()
	c.ProviderOrder = []string{ProviderCSE, ProviderScrape, ProviderSearXNG, ProviderBing, ProviderGoogle}

	providers, err := BuildProviders(c, &fakeFetcher{}, NewValidator(0, ""))
	if err != nil {
		t.Fatalf("BuildProviders() error = %v", err)
	}
	var names []string
	for _, p := range providers {
		names = append(names, p.Name())
	}
	want := []string{ProviderCSE, ProviderScrape, ProviderBing, ProviderGoogle}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("providers = %v, want %v (searxng skipped without URL)", names, want)
	}

	c.SearxngURL = "http://localhost:8888"
	providers, err = BuildProviders(c, &fakeFetcher{}, NewValidator(0, ""))
	if err != nil {
		t.Fatalf("BuildProviders() error = %v", err)
	}
	if len(providers) != 5 || providers[2].Name() != ProviderSearXNG {
		t.Errorf("searxng not built at its position")
	}
}

func TestMetricsFormat(t *testing.T) {
	out := FormatMetrics()
	for _, k := range []string{"cse_requests", "resolve_calls", "resolve_found", "validation_rejects"} {
		if !strings.Contains(out, k+" ") {
			t.Errorf("FormatMetrics() lacks %s", k)
		}
	}
}

package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	CSERequests       atomic.Int64
	CSERateLimited    atomic.Int64
	ScrapeRequests    atomic.Int64
	SearxngRequests   atomic.Int64
	GoogleRequests    atomic.Int64
	ValidationRejects atomic.Int64
	ResolveCalls      atomic.Int64
	ResolveFound      atomic.Int64
	CacheHits         atomic.Int64
	CacheMisses       atomic.Int64
}

// GetMetrics returns a snapshot of all metrics.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"cse_requests":       metrics.CSERequests.Load(),
		"cse_rate_limited":   metrics.CSERateLimited.Load(),
		"scrape_requests":    metrics.ScrapeRequests.Load(),
		"searxng_requests":   metrics.SearxngRequests.Load(),
		"google_requests":    metrics.GoogleRequests.Load(),
		"validation_rejects": metrics.ValidationRejects.Load(),
		"resolve_calls":      metrics.ResolveCalls.Load(),
		"resolve_found":      metrics.ResolveFound.Load(),
		"cache_hits":         metrics.CacheHits.Load(),
		"cache_misses":       metrics.CacheMisses.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"cse_requests", "cse_rate_limited",
		"scrape_requests", "searxng_requests", "google_requests",
		"validation_rejects",
		"resolve_calls", "resolve_found",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

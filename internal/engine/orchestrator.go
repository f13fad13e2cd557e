package engine

import (
	"context"
	"log/slog"
	"maps"
	"sync"
)

// Resolution is a discovered post URL and the provider that found it.
type Resolution struct {
	URL      string
	Provider string
}

// Stats are the run counters of an Orchestrator.
type Stats struct {
	Attempts          int
	Resolved          int
	SuccessByProvider map[string]int
}

// Orchestrator tries its providers in priority order and returns the first
// validated hit. A provider seen exhausted once is never called again.
type Orchestrator struct {
	mu        sync.Mutex
	providers []Provider
	exhausted map[string]bool
	stats     Stats
}

// NewOrchestrator creates an orchestrator over providers, highest priority
// first.
func NewOrchestrator(providers ...Provider) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		exhausted: make(map[string]bool),
		stats:     Stats{SuccessByProvider: make(map[string]int)},
	}
}

// Providers returns the provider names in priority order.
func (o *Orchestrator) Providers() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return names
}

// Resolve looks up the canonical URL of the post in q.
func (o *Orchestrator) Resolve(ctx context.Context, q Query) (Resolution, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	metrics.ResolveCalls.Add(1)
	o.stats.Attempts++

	for _, p := range o.providers {
		if ctx.Err() != nil {
			return Resolution{}, false
		}
		if o.skip(p) {
			continue
		}
		r, ok := p.Search(ctx, q)
		if !ok {
			o.skip(p)
			continue
		}
		link := CanonicalURL(r.URL)
		if link == "" {
			slog.Debug("discarding result without canonical form",
				slog.String("provider", p.Name()), slog.String("url", r.URL))
			continue
		}
		o.stats.Resolved++
		o.stats.SuccessByProvider[p.Name()]++
		metrics.ResolveFound.Add(1)
		return Resolution{URL: link, Provider: p.Name()}, true
	}
	return Resolution{}, false
}

// skip reports whether p is exhausted, recording the transition once.
// Callers hold o.mu.
func (o *Orchestrator) skip(p Provider) bool {
	name := p.Name()
	if o.exhausted[name] {
		return true
	}
	if !p.Exhausted() {
		return false
	}
	o.exhausted[name] = true
	slog.Warn("provider exhausted, skipping for the rest of the run", slog.String("provider", name))
	return true
}

// AllExhausted reports whether no provider can serve queries any more.
func (o *Orchestrator) AllExhausted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, p := range o.providers {
		if !o.skip(p) {
			return false
		}
	}
	return true
}

// Stats returns a copy of the run counters.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.stats
	s.SuccessByProvider = maps.Clone(o.stats.SuccessByProvider)
	return s
}

// ProviderState describes one provider for reporting.
type ProviderState struct {
	Name       string `json:"name"`
	Exhausted  bool   `json:"exhausted"`
	KeysTotal  int    `json:"keys_total,omitempty"`
	KeysActive int    `json:"keys_active,omitempty"`
}

// ProviderStates reports every provider in priority order.
func (o *Orchestrator) ProviderStates() []ProviderState {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ProviderState, 0, len(o.providers))
	for _, p := range o.providers {
		st := ProviderState{Name: p.Name(), Exhausted: o.skip(p)}
		if pp, ok := p.(interface{ Pool() *CredentialPool }); ok {
			for _, c := range pp.Pool().Snapshot() {
				st.KeysTotal++
				if c.Active {
					st.KeysActive++
				}
			}
		}
		out = append(out, st)
	}
	return out
}

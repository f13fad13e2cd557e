package engine

import (
	"log/slog"
	"sync"
)

// DefaultRequestLimit is the per-key soft ceiling of the free CSE tier.
const DefaultRequestLimit = 100

// Credential is one API key with its usage in the current run.
type Credential struct {
	Token    string
	Requests int
	Active   bool
}

// CredentialPool holds the keys of one rate-limited provider.
// The current key is always the first active one in insertion order;
// deactivated keys are never reused within a run.
type CredentialPool struct {
	mu    sync.Mutex
	creds []*Credential
	limit int
}

// NewCredentialPool creates a pool with every token active.
// limit <= 0 selects DefaultRequestLimit.
func NewCredentialPool(tokens []string, limit int) *CredentialPool {
	if limit <= 0 {
		limit = DefaultRequestLimit
	}
	p := &CredentialPool{limit: limit}
	for _, t := range tokens {
		p.creds = append(p.creds, &Credential{Token: t, Active: true})
	}
	return p
}

// Next returns the first active credential.
func (p *CredentialPool) Next() (*Credential, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.creds {
		if c.Active {
			return c, true
		}
	}
	return nil, false
}

// RecordUse counts one request against c and deactivates it once the
// ceiling is passed.
func (p *CredentialPool) RecordUse(c *Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c.Requests++
	if c.Active && c.Requests > p.limit {
		c.Active = false
		slog.Warn("credential reached request limit, deactivated",
			slog.String("key", maskToken(c.Token)),
			slog.Int("requests", c.Requests),
		)
	}
}

// Deactivate disables c for the rest of the run (backend rate limit).
func (p *CredentialPool) Deactivate(c *Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !c.Active {
		return
	}
	c.Active = false
	slog.Warn("credential rate limited, deactivated",
		slog.String("key", maskToken(c.Token)),
		slog.Int("requests", c.Requests),
	)
}

// Exhausted reports whether no active credential remains.
func (p *CredentialPool) Exhausted() bool {
	_, ok := p.Next()
	return !ok
}

// Len returns the number of credentials, active or not.
func (p *CredentialPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}

// Snapshot returns a copy of the credentials for reporting.
func (p *CredentialPool) Snapshot() []Credential {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Credential, len(p.creds))
	for i, c := range p.creds {
		out[i] = *c
	}
	return out
}

func maskToken(t string) string {
	if len(t) <= 6 {
		return "***"
	}
	return t[:4] + "…" + t[len(t)-2:]
}

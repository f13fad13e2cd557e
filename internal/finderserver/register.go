// Package finderserver exposes the post URL finder as MCP tools.
package finderserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/RenanCampista/post-link-finder/internal/engine"
	"github.com/RenanCampista/post-link-finder/internal/network"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FindInput is the find_post_url tool input.
type FindInput struct {
	Text     string `json:"text" jsonschema:"Post text or caption to look up"`
	Username string `json:"username,omitempty" jsonschema:"Author username, narrows the search"`
	Network  string `json:"network" jsonschema:"instagram or facebook"`
	PostID   string `json:"post_id,omitempty" jsonschema:"Optional id echoed in the logs"`
}

// FindOutput is the find_post_url tool result.
type FindOutput struct {
	URL        string `json:"url"`
	Found      bool   `json:"found"`
	Provider   string `json:"provider,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
}

// StatsInput is the (empty) provider_stats tool input.
type StatsInput struct{}

// StatsOutput is the provider_stats tool result.
type StatsOutput struct {
	Attempts          int                    `json:"attempts"`
	Resolved          int                    `json:"resolved"`
	SuccessByProvider map[string]int         `json:"success_by_provider"`
	Providers         []engine.ProviderState `json:"providers"`
	Counters          map[string]int64       `json:"counters"`
}

// RegisterTools registers find_post_url and provider_stats on server,
// both backed by o. cache may be nil.
func RegisterTools(server *mcp.Server, o *engine.Orchestrator, cache *engine.LookupCache) {
	h := &handlers{orch: o, cache: cache}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_post_url",
		Description: "Find the permalink of an Instagram or Facebook post from its text and author username. Tries the Google Custom Search API first, then search-page scrapers, SearXNG and Google web search. Returns the canonical post URL, or found=false with the author's profile URL.",
	}, h.findPostURL)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "provider_stats",
		Description: "Report lookup counters, successes per search provider, and which providers are exhausted (CSE keys active/total).",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.providerStats)
}

type handlers struct {
	orch  *engine.Orchestrator
	cache *engine.LookupCache
}

func (h *handlers) findPostURL(ctx context.Context, _ *mcp.CallToolRequest, input FindInput) (*mcp.CallToolResult, FindOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, FindOutput{}, errors.New("text is required")
	}
	id, err := network.Parse(input.Network)
	if err != nil {
		return nil, FindOutput{}, err
	}
	q := engine.NewQuery(input.PostID, input.Text, input.Username, id)
	if h.cache != nil {
		if res, ok := h.cache.Get(q); ok {
			return nil, FindOutput{URL: res.URL, Found: true, Provider: res.Provider}, nil
		}
	}
	if h.orch.AllExhausted() {
		return nil, FindOutput{}, errors.New("every search provider is exhausted")
	}

	res, ok := h.orch.Resolve(ctx, q)
	if err := ctx.Err(); err != nil {
		return nil, FindOutput{}, err
	}
	if ok && h.cache != nil {
		h.cache.Set(q, res)
	}
	out := FindOutput{URL: res.URL, Found: ok, Provider: res.Provider}
	if !ok && q.Identity != "" {
		out.ProfileURL = id.Spec().ProfileURL(q.Identity)
	}
	slog.Info("find_post_url",
		slog.String("network", id.String()),
		slog.Bool("found", ok),
		slog.String("provider", res.Provider),
	)
	return nil, out, nil
}

func (h *handlers) providerStats(_ context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	s := h.orch.Stats()
	return nil, StatsOutput{
		Attempts:          s.Attempts,
		Resolved:          s.Resolved,
		SuccessByProvider: s.SuccessByProvider,
		Providers:         h.orch.ProviderStates(),
		Counters:          engine.GetMetrics(),
	}, nil
}

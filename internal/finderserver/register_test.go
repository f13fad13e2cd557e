package finderserver

import (
	"context"
	"testing"
	"time"

	"github.com/RenanCampista/post-link-finder/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	url       string
	exhausted bool
	got       []engine.Query
}

func (s *stubProvider) Name() string    { return "stub" }
func (s *stubProvider) Exhausted() bool { return s.exhausted }

func (s *stubProvider) Search(_ context.Context, q engine.Query) (engine.Result, bool) {
	s.got = append(s.got, q)
	if s.url == "" {
		return engine.Result{}, false
	}
	return engine.Result{URL: s.url}, true
}

func TestFindPostURL(t *testing.T) {
	p := &stubProvider{url: "https://www.instagram.com/p/abc123/?igsh=x"}
	h := &handlers{orch: engine.NewOrchestrator(p)}

	_, out, err := h.findPostURL(context.Background(), nil, FindInput{
		Text: "Dia de festa 🎉", Username: "perfil", Network: "instagram",
	})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, "https://www.instagram.com/p/abc123/", out.URL)
	assert.Equal(t, "stub", out.Provider)
	assert.Empty(t, out.ProfileURL)
	require.Len(t, p.got, 1)
	assert.Equal(t, "Dia de festa", p.got[0].Text)
}

func TestFindPostURLNotFound(t *testing.T) {
	h := &handlers{orch: engine.NewOrchestrator(&stubProvider{})}

	_, out, err := h.findPostURL(context.Background(), nil, FindInput{
		Text: "texto", Username: "pagina", Network: "fb",
	})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Empty(t, out.URL)
	assert.Equal(t, "https://www.facebook.com/pagina", out.ProfileURL)
}

func TestFindPostURLInvalidInput(t *testing.T) {
	h := &handlers{orch: engine.NewOrchestrator(&stubProvider{})}
	tests := []struct {
		name  string
		input FindInput
	}{
		{"empty text", FindInput{Text: "  ", Network: "instagram"}},
		{"unknown network", FindInput{Text: "x", Network: "tiktok"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := h.findPostURL(context.Background(), nil, tt.input)
			assert.Error(t, err)
		})
	}
}

func TestFindPostURLExhausted(t *testing.T) {
	p := &stubProvider{exhausted: true}
	h := &handlers{orch: engine.NewOrchestrator(p)}

	_, _, err := h.findPostURL(context.Background(), nil, FindInput{Text: "x", Network: "instagram"})
	assert.Error(t, err)
	assert.Empty(t, p.got)
}

func TestFindPostURLCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &stubProvider{url: "https://www.facebook.com/page/posts/7"}
	h := &handlers{
		orch:  engine.NewOrchestrator(p),
		cache: engine.NewLookupCache(ctx, time.Minute, 10, time.Minute),
	}
	in := FindInput{Text: "mesmo texto", Username: "page", Network: "facebook"}

	for range 2 {
		_, out, err := h.findPostURL(ctx, nil, in)
		require.NoError(t, err)
		assert.True(t, out.Found)
		assert.Equal(t, "https://www.facebook.com/page/posts/7", out.URL)
	}
	assert.Len(t, p.got, 1, "second lookup served from cache")
}

func TestProviderStats(t *testing.T) {
	o := engine.NewOrchestrator(&stubProvider{url: "https://www.facebook.com/page/posts/1"})
	h := &handlers{orch: o}
	_, _, err := h.findPostURL(context.Background(), nil, FindInput{Text: "x", Network: "facebook"})
	require.NoError(t, err)

	_, out, err := h.providerStats(context.Background(), nil, StatsInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 1, out.Resolved)
	assert.Equal(t, 1, out.SuccessByProvider["stub"])
	require.Len(t, out.Providers, 1)
	assert.False(t, out.Providers[0].Exhausted)
	assert.Contains(t, out.Counters, "resolve_calls")
}

func TestRegisterTools(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "dev"}, nil)
	assert.NotPanics(t, func() {
		RegisterTools(server, engine.NewOrchestrator(&stubProvider{}), nil)
	})
}

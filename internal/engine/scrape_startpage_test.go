package engine

import (
	"net/url"
	"strings"
	"testing"
)

func TestParseStartpageHTML(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		wantCount int
	}{
		{
			name: "standard results",
			html: `<html><body>
				<div class="w-gl__result">
					<a class="w-gl__result-title" href="https://example.com/1">First Result</a>
					<p class="w-gl__description">First description text.</p>
				</div>
				<div class="w-gl__result">
					<a class="w-gl__result-title" href="https://example.com/2">Second Result</a>
					<p class="w-gl__description">Second description text.</p>
				</div>
			</body></html>`,
			wantCount: 2,
		},
		{
			name: "fallback selectors",
			html: `<html><body>
				<div class="result">
					<h3><a href="https://example.com/3">Third Result</a></h3>
					<p class="result-description">Third description.</p>
				</div>
			</body></html>`,
			wantCount: 1,
		},
		{
			name: "skip empty href",
			html: `<html><body>
				<div class="w-gl__result">
					<a class="w-gl__result-title" href="">No URL</a>
				</div>
			</body></html>`,
			wantCount: 0,
		},
		{
			name: "skip startpage internal links",
			html: `<html><body>
				<div class="w-gl__result">
					<a class="w-gl__result-title" href="https://www.startpage.com/do/something">Internal</a>
				</div>
			</body></html>`,
			wantCount: 0,
		},
		{
			name:      "no results",
			html:      `<html><body><p>No results found</p></body></html>`,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := parseStartpageHTML([]byte(tt.html))
			if err != nil {
				t.Fatalf("parseStartpageHTML() error = %v", err)
			}
			if len(results) != tt.wantCount {
				t.Errorf("parseStartpageHTML() returned %d results, want %d", len(results), tt.wantCount)
			}
			for i, r := range results {
				if r.Title == "" {
					t.Errorf("result[%d] has no title", i)
				}
			}
		})
	}
}

func TestStartpageRequestLanguage(t *testing.T) {
	tests := []struct {
		lang string
		want string
	}{
		{"pt-BR", "language=portugues"},
		{"en", "language=english"},
		{"", "language=english"},
		{"xx-YY", "language=english"},
	}
	for _, tt := range tests {
		req := startpageRequest("hello world", tt.lang)
		if !strings.Contains(req.body, tt.want) {
			t.Errorf("startpageRequest(%q).body = %q, want %q", tt.lang, req.body, tt.want)
		}
		if !strings.Contains(req.body, "query=hello+world") {
			t.Errorf("startpageRequest body = %q", req.body)
		}
	}
}

func TestStartpageRequestEscapesQuery(t *testing.T) {
	tests := []string{
		"50% off",
		"a&b=c",
		"1+1 = 2",
		"Promoção #verão 100%",
	}
	for _, query := range tests {
		req := startpageRequest(query, "pt-BR")
		form, err := url.ParseQuery(req.body)
		if err != nil {
			t.Fatalf("startpageRequest(%q) body %q is not a valid form: %v", query, req.body, err)
		}
		if got := form.Get("query"); got != query {
			t.Errorf("decoded query = %q, want %q", got, query)
		}
		if got := form.Get("cat"); got != "web" {
			t.Errorf("decoded cat = %q, want web", got)
		}
	}
}

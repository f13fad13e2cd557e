package engine

import (
	"context"
	"strings"

	"github.com/RenanCampista/post-link-finder/internal/network"
)

// maxQueryRunes caps the search string; long captions blow past the
// query length limits of every backend.
const maxQueryRunes = 400

// Query is one post to resolve.
type Query struct {
	PostID   string
	Text     string
	Identity string
	Network  network.ID
}

// NewQuery builds a Query, dropping astral-plane characters from text.
func NewQuery(postID, text, identity string, id network.ID) Query {
	return Query{
		PostID:   postID,
		Text:     strings.TrimSpace(FilterBMP(text)),
		Identity: strings.TrimSpace(identity),
		Network:  id,
	}
}

// SearchString is the query sent to search backends.
func (q Query) SearchString() string {
	return TruncateRunes(q.Network.Spec().Query(q.Text, q.Identity), maxQueryRunes, "")
}

// Result is a candidate search hit.
type Result struct {
	URL   string
	Title string
}

// Provider is one search backend in the fallback chain.
// Search returns false when the backend has no validated result; backend
// errors are handled (logged) inside the provider and never returned.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) (Result, bool)
	Exhausted() bool
}

package engine

import (
	"net/url"
	"strings"

	"github.com/RenanCampista/post-link-finder/internal/network"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/unicode/norm"
)

// DefaultSimilarityThreshold is the minimum title/post ratio accepted by
// the similarity rule.
const DefaultSimilarityThreshold = 0.45

// Validator decides whether a search hit is the post being looked for.
type Validator struct {
	threshold float64
	override  network.ValidationMode
}

// NewValidator returns a validator. threshold <= 0 selects the default;
// a non-empty mode overrides the per-network table.
func NewValidator(threshold float64, mode network.ValidationMode) *Validator {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Validator{threshold: threshold, override: mode}
}

// Mode returns the rule applied to spec.
func (v *Validator) Mode(spec network.Spec) network.ValidationMode {
	if v.override != "" {
		return v.override
	}
	if spec.Validation != "" {
		return spec.Validation
	}
	return network.ModeSimilarity
}

// Valid reports whether link (with its result title) matches postText on
// the given network.
func (v *Validator) Valid(spec network.Spec, link, title, postText string) bool {
	if link == "" || strings.TrimSpace(postText) == "" {
		return false
	}
	u, err := url.Parse(link)
	if err != nil || !strings.Contains(strings.ToLower(u.Host), spec.BaseDomain) {
		return false
	}
	switch v.Mode(spec) {
	case network.ModePathMarkers:
		return hasPathMarker(u.Path, spec.PathMarkers)
	default:
		title = strings.TrimSpace(title)
		if title == "" {
			return false
		}
		return TitleSimilarity(title, postText) >= v.threshold
	}
}

func hasPathMarker(path string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(path, m) {
			return true
		}
	}
	return false
}

// TitleSimilarity compares title with the prefix of postText of the same
// length in runes, after NFC normalization. It is case-sensitive.
func TitleSimilarity(title, postText string) float64 {
	t := []rune(normalizeText(title))
	p := []rune(normalizeText(postText))
	if len(p) > len(t) {
		p = p[:len(t)]
	}
	return Similarity(string(t), string(p))
}

// Similarity returns the sequence-matching ratio 2·M/T of a and b in [0,1].
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(runeSeq(a), runeSeq(b)).Ratio()
}

// normalizeText composes accents so "é" typed either way compares equal.
// Case is kept: the ratio is taken over the text as published.
func normalizeText(s string) string {
	return norm.NFC.String(s)
}

func runeSeq(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

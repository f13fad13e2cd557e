package posts

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/RenanCampista/post-link-finder/internal/network"
)

// DefaultMinTextChars is the shortest post text kept by Clean.
const DefaultMinTextChars = 100

// Content Library export columns used by Clean.
const (
	exportIDColumn   = "id"
	exportTextColumn = "text"
)

// Report summarizes a Clean pass.
type Report struct {
	Read       int
	Duplicates int
	TooShort   int
	Kept       int
}

func (r Report) String() string {
	return fmt.Sprintf("read=%d duplicates=%d short=%d kept=%d", r.Read, r.Duplicates, r.TooShort, r.Kept)
}

var textReplacer = strings.NewReplacer(",", " ", "\r", " ", "\n", " ")

// Clean drops rows with a repeated id and rows whose text is shorter than
// minChars, then replaces commas and line breaks in the text with spaces.
// It works on a raw Content Library export (columns "id" and "text").
func Clean(t *Table, minChars int) (*Table, Report, error) {
	if minChars <= 0 {
		minChars = DefaultMinTextChars
	}
	idCol, err := t.Lookup(exportIDColumn)
	if err != nil {
		return nil, Report{}, err
	}
	textCol, err := t.Lookup(exportTextColumn)
	if err != nil {
		return nil, Report{}, err
	}

	out := t.Clone()
	rep := Report{Read: t.Len()}
	seen := make(map[string]bool, t.Len())
	for _, row := range t.Rows {
		id := row[idCol]
		if seen[id] {
			rep.Duplicates++
			continue
		}
		seen[id] = true
		if utf8.RuneCountInString(row[textCol]) < minChars {
			rep.TooShort++
			continue
		}
		r := append([]string(nil), row...)
		r[textCol] = textReplacer.Replace(r[textCol])
		out.Rows = append(out.Rows, r)
	}
	rep.Kept = out.Len()
	return out, rep, nil
}

// Format maps a Content Library export onto the schema of spec and fills
// the profile URL column from the username. Source columns missing from the
// export are left empty, except the text column, which is required.
func Format(t *Table, spec network.Spec) (*Table, error) {
	header := make([]string, len(spec.Columns))
	src := make([]int, len(spec.Columns))
	for i, c := range spec.Columns {
		header[i] = c.Target
		src[i] = -1
		if c.Source == "" {
			continue
		}
		col, ok := t.Col(c.Source)
		if !ok {
			if c.Target == spec.TextColumn {
				return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c.Source)
			}
			slog.Debug("export column absent, left empty", slog.String("column", c.Source))
			continue
		}
		src[i] = col
	}

	out := NewTable(header)
	userCol, hasUser := out.Col(spec.UsernameColumn)
	profileCol, hasProfile := out.Col("profileUrl")
	for _, row := range t.Rows {
		r := make([]string, len(header))
		for i, c := range spec.Columns {
			if src[i] >= 0 {
				r[i] = row[src[i]]
			} else {
				r[i] = c.Default
			}
		}
		if hasUser && hasProfile && r[userCol] != "" {
			r[profileCol] = spec.ProfileURL(r[userCol])
		}
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/RenanCampista/post-link-finder/internal/engine"
	"github.com/RenanCampista/post-link-finder/internal/journal"
	"github.com/RenanCampista/post-link-finder/internal/network"
)

// Policy decides what happens to a row whose URL could not be found.
type Policy string

const (
	// PolicyProfile writes the author's profile URL in place of the post URL.
	PolicyProfile Policy = "profile"
	// PolicyKeep leaves the URL column empty.
	PolicyKeep Policy = "keep"
	// PolicyDrop omits the row from the output.
	PolicyDrop Policy = "drop"
	// PolicySplit moves the row to a separate unresolved file.
	PolicySplit Policy = "split"
)

// ParsePolicy parses a policy name; empty selects PolicyProfile.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyProfile, nil
	case PolicyProfile, PolicyKeep, PolicyDrop, PolicySplit:
		return p, nil
	}
	return "", fmt.Errorf("unknown unresolved policy %q (want profile, keep, drop or split)", s)
}

// Resolver finds post URLs. *engine.Orchestrator implements it.
type Resolver interface {
	Resolve(ctx context.Context, q engine.Query) (engine.Resolution, bool)
	AllExhausted() bool
}

// Summary counts the outcome of a batch run.
type Summary struct {
	Total        int
	AlreadyFound int // rows that came in with a post URL
	AlreadyOpen  int // rows that came in with a profile URL only
	Found        int
	NotFound     int
	Pending      int // rows never attempted (interrupt or exhaustion)
	Interrupted  bool
	Exhausted    bool
}

// Successes is the number of rows that end with a post URL.
func (s Summary) Successes() int { return s.AlreadyFound + s.Found }

// Outcome is the result of Batch.Run.
type Outcome struct {
	Resolved   *Table
	Unresolved *Table // only filled under PolicySplit
	Summary    Summary
}

// Batch resolves the missing URLs of one table, one post at a time.
type Batch struct {
	Spec     network.Spec
	Resolver Resolver
	Policy   Policy
	Journal  journal.Journal // optional
	RunID    string
}

type rowState int

const (
	statePending rowState = iota
	stateDone
	stateNotFound
)

type columns struct {
	text, user, url, id int
}

func (b *Batch) columns(t *Table) (columns, error) {
	var c columns
	var err error
	if c.text, err = t.Lookup(b.Spec.TextColumn, "message", "Caption", "text"); err != nil {
		return c, err
	}
	if c.user, err = t.Lookup(b.Spec.UsernameColumn, "username", "Username", "nickName"); err != nil {
		c.user = -1
	}
	if c.id, err = t.Lookup("id", "postId"); err != nil {
		c.id = -1
	}
	if c.url, err = t.Lookup(b.Spec.URLColumn, "url", "URL", "postUrl"); err != nil {
		c.url = t.EnsureColumn(b.Spec.URLColumn)
	}
	return c, nil
}

// Run resolves every row of t that has no URL yet. It stops early, keeping
// every result found so far, when ctx is cancelled or every provider is
// exhausted; unattempted rows are returned untouched.
func (b *Batch) Run(ctx context.Context, t *Table) (*Outcome, error) {
	if b.Resolver == nil {
		return nil, errors.New("batch: no resolver")
	}
	policy := b.Policy
	if policy == "" {
		policy = PolicyProfile
	}
	cols, err := b.columns(t)
	if err != nil {
		return nil, err
	}

	sum := Summary{Total: t.Len()}
	states := make([]rowState, t.Len())

rows:
	for i, row := range t.Rows {
		line := i + 2
		user := cell(row, cols.user)
		profile := ""
		if user != "" {
			profile = b.Spec.ProfileURL(user)
		}

		if existing := strings.TrimSpace(row[cols.url]); existing != "" {
			states[i] = stateDone
			if existing != profile {
				sum.AlreadyFound++
			} else {
				sum.AlreadyOpen++
			}
			slog.Debug("row already has a url", slog.Int("line", line))
			continue
		}

		switch {
		case ctx.Err() != nil:
			sum.Interrupted = true
			break rows
		case b.Resolver.AllExhausted():
			sum.Exhausted = true
			slog.Error("every search provider is exhausted, stopping")
			break rows
		}

		postID := cell(row, cols.id)
		if postID == "" {
			postID = strconv.Itoa(line)
		}
		q := engine.NewQuery(postID, row[cols.text], user, b.Spec.ID)
		res, ok := b.Resolver.Resolve(ctx, q)
		if !ok && ctx.Err() != nil {
			sum.Interrupted = true
			break rows
		}

		if ok {
			row[cols.url] = res.URL
			states[i] = stateDone
			sum.Found++
			slog.Info("url found", slog.Int("line", line), slog.String("provider", res.Provider), slog.String("url", res.URL))
		} else {
			states[i] = stateNotFound
			sum.NotFound++
			slog.Info("url not found", slog.Int("line", line))
		}
		b.record(ctx, journal.Entry{
			RunID:    b.RunID,
			Network:  b.Spec.Name,
			PostID:   postID,
			Row:      line,
			Found:    ok,
			URL:      res.URL,
			Provider: res.Provider,
		})
	}

	out := &Outcome{Resolved: t.Clone(), Summary: sum}
	if policy == PolicySplit {
		out.Unresolved = t.Clone()
	}
	for i, row := range t.Rows {
		switch states[i] {
		case statePending:
			if cell(row, cols.url) == "" {
				out.Summary.Pending++
			}
		case stateNotFound:
			switch policy {
			case PolicyDrop:
				continue
			case PolicySplit:
				out.Unresolved.Rows = append(out.Unresolved.Rows, row)
				continue
			case PolicyProfile:
				if user := cell(row, cols.user); user != "" {
					row[cols.url] = b.Spec.ProfileURL(user)
				}
			}
		}
		out.Resolved.Rows = append(out.Resolved.Rows, row)
	}
	return out, nil
}

func (b *Batch) record(ctx context.Context, e journal.Entry) {
	if b.Journal == nil {
		return
	}
	// The outcome is recorded even when ctx was just cancelled.
	if err := b.Journal.Record(context.WithoutCancel(ctx), e); err != nil {
		slog.Warn("journal record failed", slog.String("post", e.PostID), slog.Any("error", err))
	}
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// OutputPaths returns the resolved and unresolved file names for input.
func OutputPaths(input string) (resolved, unresolved string) {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "_with_urls.csv", base + "_unresolved.csv"
}

// RunFile resolves the CSV at in and writes the result to out (default
// <in>_with_urls.csv). The output is written even when the run stops early,
// so an interrupted run can be resumed by feeding the output back in.
func (b *Batch) RunFile(ctx context.Context, in, out string) (Summary, error) {
	t, err := ReadFile(in)
	if err != nil {
		return Summary{}, err
	}
	res, err := b.Run(ctx, t)
	if err != nil {
		return Summary{}, fmt.Errorf("%s: %w", in, err)
	}

	resolvedPath, unresolvedPath := OutputPaths(in)
	if out != "" {
		resolvedPath = out
		unresolvedPath = strings.TrimSuffix(out, filepath.Ext(out)) + "_unresolved.csv"
	}
	if err := res.Resolved.WriteFile(resolvedPath); err != nil {
		return res.Summary, err
	}
	slog.Info("results written", slog.String("path", resolvedPath), slog.Int("rows", res.Resolved.Len()))
	if res.Unresolved != nil && res.Unresolved.Len() > 0 {
		if err := res.Unresolved.WriteFile(unresolvedPath); err != nil {
			return res.Summary, err
		}
		slog.Info("unresolved rows written", slog.String("path", unresolvedPath), slog.Int("rows", res.Unresolved.Len()))
	}
	return res.Summary, nil
}

// Package journal records the outcome of every resolved post so a run can be
// audited afterwards. Two backends exist: a local SQLite file and PostgreSQL.
package journal

import (
	"context"
	"strings"
	"time"
)

// Entry is the outcome of one post lookup.
type Entry struct {
	RunID      string
	Network    string
	PostID     string
	Row        int
	Found      bool
	URL        string
	Provider   string
	ResolvedAt time.Time
}

// Journal persists entries.
type Journal interface {
	Record(ctx context.Context, e Entry) error
	Close() error
}

// Open selects the backend from dsn: postgres:// and postgresql:// URLs
// use PostgreSQL, anything else is a SQLite file path.
func Open(ctx context.Context, dsn string) (Journal, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		pg, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := OpenSQLite(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return lite, nil
}

func stamp(e Entry) Entry {
	if e.ResolvedAt.IsZero() {
		e.ResolvedAt = time.Now().UTC()
	}
	return e
}

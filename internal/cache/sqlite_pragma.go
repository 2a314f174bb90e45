package cache

import (
	"context"
	"database/sql"
	"errors"
	"log"
)

// SQLiteOption adjusts how OpenSQLite prepares the database.
type SQLiteOption func(*sqliteOptions)

type sqliteOptions struct {
	tune bool
}

// WithTuning applies the read-heavy pragma set after the schema is in place.
func WithTuning(on bool) SQLiteOption {
	return func(o *sqliteOptions) { o.tune = on }
}

// Cache slots are small and rewritten often; a lost write only costs a refetch.
var tuningPragmas = []string{
	"PRAGMA synchronous=NORMAL;",
	"PRAGMA busy_timeout=5000;",
	"PRAGMA cache_size=-8000;",
	"PRAGMA temp_store=MEMORY;",
	"PRAGMA mmap_size=67108864;",
}

func tuneSQLite(ctx context.Context, db *sql.DB) map[string]any {
	applied := make(map[string]any, len(tuningPragmas))
	for _, pragma := range tuningPragmas {
		value, err := pragmaValue(ctx, db, pragma)
		if err != nil {
			log.Printf("cache: sqlite %s failed: %v", pragma, err)
			continue
		}
		applied[pragma] = value
	}
	return applied
}

// pragmaValue runs a pragma that may or may not report a row.
func pragmaValue(ctx context.Context, db *sql.DB, pragma string) (any, error) {
	var value any
	err := db.QueryRowContext(ctx, pragma).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return nil, err
		}
		return "ok", nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

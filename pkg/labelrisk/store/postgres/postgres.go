// Package postgres opens the dataset and scan history on PostgreSQL through
// the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rotisserie/eris"

	"github.com/cognicore/labelrisk/pkg/labelrisk/store"
	"github.com/cognicore/labelrisk/pkg/labelrisk/store/sqldb"
)

var dialect = sqldb.Dialect{
	Name:     "postgres",
	Numbered: true,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS ingredient_dataset (
	id BIGSERIAL PRIMARY KEY,
	ingredient_name TEXT UNIQUE NOT NULL,
	risk_level TEXT NOT NULL CHECK (risk_level IN ('LOW','MEDIUM','HIGH')),
	reason TEXT NOT NULL DEFAULT '',
	aliases TEXT NOT NULL DEFAULT '',
	updated_at TEXT
)`,
		`CREATE TABLE IF NOT EXISTS scans (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	source TEXT NOT NULL,
	raw_text TEXT,
	overall_risk TEXT NOT NULL,
	safe_count INTEGER NOT NULL DEFAULT 0,
	risky_count INTEGER NOT NULL DEFAULT 0,
	restricted_count INTEGER NOT NULL DEFAULT 0,
	unknown_count INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_user ON scans(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS scan_ingredients (
	scan_id TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	risk TEXT NOT NULL,
	explanation TEXT,
	match_source TEXT,
	PRIMARY KEY (scan_id, position)
)`,
	},
}

// Open connects to dsn and initializes the schema.
func Open(ctx context.Context, dsn string) (store.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "ping postgres")
	}
	s, err := sqldb.New(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

package sqlite

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/cognicore/labelrisk/pkg/labelrisk/store"
	"github.com/cognicore/labelrisk/pkg/labelrisk/store/sqldb"
)

var dialect = sqldb.Dialect{
	Name: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS ingredient_dataset (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ingredient_name TEXT UNIQUE NOT NULL,
	risk_level TEXT NOT NULL CHECK(risk_level IN ('LOW','MEDIUM','HIGH')),
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
	scan_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	risk TEXT NOT NULL,
	explanation TEXT,
	match_source TEXT,
	PRIMARY KEY (scan_id, position),
	FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
)`,
	},
}

// Open opens a SQLite database with WAL mode enabled and initializes the
// dataset and scan history schema.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "open sqlite %s", path)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "enable wal")
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "enable foreign keys")
	}

	s, err := sqldb.New(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

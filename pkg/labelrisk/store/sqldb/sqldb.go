// Package sqldb implements store.Store on database/sql. The sqlite and
// postgres packages open a driver and hand it here with their dialect.
package sqldb

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cognicore/labelrisk/pkg/labelrisk/store"
)

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Dialect captures what differs between SQL backends.
type Dialect struct {
	Name string
	// Schema statements, executed one at a time in order.
	Schema []string
	// Numbered rewrites ? placeholders as $1, $2, ...
	Numbered bool
}

// DB implements store.Store.
type DB struct {
	db      *sql.DB
	dialect Dialect
}

// New initializes the schema and wraps db.
func New(ctx context.Context, db *sql.DB, d Dialect) (*DB, error) {
	s := &DB{db: db, dialect: d}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *DB) Close() error {
	return s.db.Close()
}

func (s *DB) initSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "%s: init schema", s.dialect.Name)
		}
	}
	return nil
}

// q rewrites placeholders for the dialect.
func (s *DB) q(query string) string {
	if !s.dialect.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CountDataset returns the number of dataset rows.
func (s *DB) CountDataset(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingredient_dataset`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "count dataset")
	}
	return n, nil
}

const datasetColumns = `id, ingredient_name, risk_level, reason, aliases, updated_at`

// FindByName matches the canonical name case-insensitively.
func (s *DB) FindByName(ctx context.Context, name string) (store.DatasetRow, bool, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
SELECT `+datasetColumns+`
FROM ingredient_dataset
WHERE LOWER(ingredient_name) = LOWER(?)
ORDER BY id
LIMIT 1;
`), name)
	r, err := scanDatasetRow(row)
	if err == sql.ErrNoRows {
		return store.DatasetRow{}, false, nil
	}
	if err != nil {
		return store.DatasetRow{}, false, eris.Wrapf(err, "find dataset row %q", name)
	}
	return r, true, nil
}

// FindAliasCandidates returns rows whose alias list contains token anywhere.
// It is a coarse prefilter; callers must check whole alias elements.
func (s *DB) FindAliasCandidates(ctx context.Context, token string) ([]store.DatasetRow, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(token))) + "%"
	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT `+datasetColumns+`
FROM ingredient_dataset
WHERE LOWER(aliases) LIKE ? ESCAPE '\'
ORDER BY id;
`), pattern)
	if err != nil {
		return nil, eris.Wrapf(err, "find alias candidates %q", token)
	}
	defer rows.Close()

	var out []store.DatasetRow
	for rows.Next() {
		r, err := scanDatasetRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "scan dataset row")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertDatasetRows inserts or updates rows keyed by ingredient name in a
// single transaction.
func (s *DB) UpsertDatasetRows(ctx context.Context, rows []store.DatasetRow) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "begin dataset import")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.q(`
INSERT INTO ingredient_dataset (ingredient_name, risk_level, reason, aliases, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(ingredient_name) DO UPDATE SET
	risk_level=excluded.risk_level,
	reason=excluded.reason,
	aliases=excluded.aliases,
	updated_at=excluded.updated_at;
`))
	if err != nil {
		return 0, eris.Wrap(err, "prepare dataset upsert")
	}
	defer stmt.Close()

	n := 0
	for _, r := range rows {
		if strings.TrimSpace(r.IngredientName) == "" {
			continue
		}
		updated := r.UpdatedAt
		if updated.IsZero() {
			updated = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, r.IngredientName, r.RiskLevel, r.Reason, r.Aliases, formatTime(updated)); err != nil {
			return 0, eris.Wrapf(err, "upsert dataset row %q", r.IngredientName)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "commit dataset import")
	}
	return n, nil
}

// SaveScan writes a scan and its ingredient rows atomically.
func (s *DB) SaveScan(ctx context.Context, sc store.Scan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "begin save scan")
	}
	defer tx.Rollback()

	created := sc.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO scans (id, user_id, source, raw_text, overall_risk, safe_count, risky_count, restricted_count, unknown_count, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`), sc.ID, sc.UserID, sc.Source, sc.RawText, sc.OverallRisk,
		sc.SafeCount, sc.RiskyCount, sc.RestrictedCount, sc.UnknownCount, formatTime(created)); err != nil {
		return eris.Wrapf(err, "insert scan %s", sc.ID)
	}

	if len(sc.Ingredients) > 0 {
		stmt, err := tx.PrepareContext(ctx, s.q(`
INSERT INTO scan_ingredients (scan_id, position, name, risk, explanation, match_source)
VALUES (?, ?, ?, ?, ?, ?);
`))
		if err != nil {
			return eris.Wrap(err, "prepare scan ingredients")
		}
		defer stmt.Close()
		for i, ing := range sc.Ingredients {
			if _, err := stmt.ExecContext(ctx, sc.ID, i, ing.Name, ing.Risk, ing.Explanation, ing.MatchSource); err != nil {
				return eris.Wrapf(err, "insert scan ingredient %q", ing.Name)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "commit scan")
	}
	return nil
}

const scanColumns = `id, user_id, source, raw_text, overall_risk, safe_count, risky_count, restricted_count, unknown_count, created_at`

// GetScan loads a scan with its ingredients.
func (s *DB) GetScan(ctx context.Context, id string) (store.Scan, bool, error) {
	sc, err := scanScanRow(s.db.QueryRowContext(ctx, s.q(`SELECT `+scanColumns+` FROM scans WHERE id = ?;`), id))
	if err == sql.ErrNoRows {
		return store.Scan{}, false, nil
	}
	if err != nil {
		return store.Scan{}, false, eris.Wrapf(err, "get scan %s", id)
	}
	sc.Ingredients, err = s.loadIngredients(ctx, id)
	if err != nil {
		return store.Scan{}, false, err
	}
	return sc, true, nil
}

// ListScans returns a user's scans, newest first.
func (s *DB) ListScans(ctx context.Context, userID string, limit int) ([]store.Scan, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT `+scanColumns+`
FROM scans
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;
`), userID, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "list scans for %s", userID)
	}

	var scans []store.Scan
	for rows.Next() {
		sc, err := scanScanRow(rows)
		if err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "scan scans row")
		}
		scans = append(scans, sc)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, eris.Wrap(err, "iterate scans")
	}

	// Ingredients are loaded after the cursor is closed; sqlite runs with a
	// single connection.
	for i := range scans {
		scans[i].Ingredients, err = s.loadIngredients(ctx, scans[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return scans, nil
}

func (s *DB) loadIngredients(ctx context.Context, scanID string) ([]store.ScanIngredient, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT position, name, risk, explanation, match_source
FROM scan_ingredients
WHERE scan_id = ?
ORDER BY position;
`), scanID)
	if err != nil {
		return nil, eris.Wrapf(err, "load ingredients for %s", scanID)
	}
	defer rows.Close()

	var out []store.ScanIngredient
	for rows.Next() {
		var ing store.ScanIngredient
		var explanation, source sql.NullString
		if err := rows.Scan(&ing.Position, &ing.Name, &ing.Risk, &explanation, &source); err != nil {
			return nil, eris.Wrap(err, "scan ingredient row")
		}
		ing.Explanation = explanation.String
		ing.MatchSource = source.String
		out = append(out, ing)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDatasetRow(r rowScanner) (store.DatasetRow, error) {
	var (
		row     store.DatasetRow
		reason  sql.NullString
		aliases sql.NullString
		updated sql.NullString
	)
	if err := r.Scan(&row.ID, &row.IngredientName, &row.RiskLevel, &reason, &aliases, &updated); err != nil {
		return store.DatasetRow{}, err
	}
	row.Reason = reason.String
	row.Aliases = aliases.String
	row.UpdatedAt = parseTime(updated.String)
	return row, nil
}

func scanScanRow(r rowScanner) (store.Scan, error) {
	var (
		sc      store.Scan
		raw     sql.NullString
		created string
	)
	if err := r.Scan(&sc.ID, &sc.UserID, &sc.Source, &raw, &sc.OverallRisk,
		&sc.SafeCount, &sc.RiskyCount, &sc.RestrictedCount, &sc.UnknownCount, &created); err != nil {
		return store.Scan{}, err
	}
	sc.RawText = raw.String
	sc.CreatedAt = parseTime(created)
	return sc, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timeLayout, v); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t
	}
	return time.Time{}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

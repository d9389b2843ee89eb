package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Index is a sqlite table of saved runs for querying without reading every
// run directory.
type Index struct {
	db *sql.DB
}

func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs(
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			variant TEXT NOT NULL,
			ts TEXT NOT NULL,
			seed INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			success INTEGER NOT NULL,
			welfare REAL NOT NULL,
			iterations INTEGER NOT NULL,
			evaluations INTEGER NOT NULL,
			elapsed REAL NOT NULL,
			message TEXT
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Index{db: db}, nil
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

func (ix *Index) Record(meta RunMetadata) error {
	_, err := ix.db.Exec(`
		INSERT OR REPLACE INTO runs(id, name, variant, ts, seed, steps, success, welfare, iterations, evaluations, elapsed, message)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Name, meta.Variant, meta.Timestamp.UTC().Format(time.RFC3339Nano),
		meta.Seed, meta.Steps, meta.Success, meta.Welfare,
		meta.Iterations, meta.Evaluations, meta.Elapsed, meta.Message,
	)
	return err
}

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	Variant     string
	SuccessOnly bool
	Limit       int
}

// Query returns matching runs, newest first.
func (ix *Index) Query(f Filter) ([]RunMetadata, error) {
	var (
		where []string
		args  []any
	)
	if f.Variant != "" {
		where = append(where, "variant = ?")
		args = append(args, f.Variant)
	}
	if f.SuccessOnly {
		where = append(where, "success = 1")
	}
	q := `SELECT id, name, variant, ts, seed, steps, success, welfare, iterations, evaluations, elapsed, message FROM runs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY ts DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	return ix.query(q, args...)
}

// Best returns the converged run of the variant with the highest welfare, or
// nil when there is none.
func (ix *Index) Best(variant string) (*RunMetadata, error) {
	runs, err := ix.query(`
		SELECT id, name, variant, ts, seed, steps, success, welfare, iterations, evaluations, elapsed, message
		FROM runs WHERE variant = ? AND success = 1 ORDER BY welfare DESC LIMIT 1`, variant)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

func (ix *Index) query(q string, args ...any) ([]RunMetadata, error) {
	rows, err := ix.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunMetadata
	for rows.Next() {
		var (
			meta    RunMetadata
			ts      string
			message sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.Name, &meta.Variant, &ts, &meta.Seed, &meta.Steps,
			&meta.Success, &meta.Welfare, &meta.Iterations, &meta.Evaluations, &meta.Elapsed, &message); err != nil {
			return nil, err
		}
		if meta.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("run %s timestamp: %w", meta.Name, err)
		}
		meta.Message = message.String
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

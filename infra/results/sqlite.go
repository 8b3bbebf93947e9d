package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/optses/core/model"
)

// ErrNotFound is returned when no result is stored for a scenario.
var ErrNotFound = errors.New("result not found")

// SQLiteStore keeps every scenario in one database, one row per value.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// workers save concurrently; serialise writers on one connection
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS results (
        scenario TEXT NOT NULL,
        ts INTEGER NOT NULL,
        series TEXT NOT NULL,
        value REAL,
        PRIMARY KEY(scenario, ts, series)
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Save replaces the rows of scenario name in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, name string, t *model.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE scenario = ?`, name); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO results (scenario, ts, series, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for i, ts := range t.Index {
		for j, v := range t.Row(i) {
			if _, err := stmt.ExecContext(ctx, name, ts.Unix(), t.Columns[j], v); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// Columns lists the stored columns of scenario name in save order.
func (s *SQLiteStore) Columns(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT series, MIN(rowid) AS first FROM results WHERE scenario = ? GROUP BY series ORDER BY first`, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var c string
		var first int64
		if err := rows.Scan(&c, &first); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Load reads back the table of scenario name with the given columns, or
// every stored column when none are given. An unknown scenario is
// ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, name string, columns ...string) (*model.Table, error) {
	if len(columns) == 0 {
		all, err := s.Columns(ctx, name)
		if err != nil {
			return nil, err
		}
		columns = all
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, series, value FROM results WHERE scenario = ? ORDER BY ts`, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	t := model.NewTable(columns...)
	var (
		cur  int64
		vals []float64
		have bool
	)
	flush := func() error {
		if !have {
			return nil
		}
		return t.Append(time.Unix(cur, 0).UTC(), vals...)
	}
	for rows.Next() {
		var ts int64
		var series string
		var v float64
		if err := rows.Scan(&ts, &series, &v); err != nil {
			return nil, err
		}
		if !have || ts != cur {
			if err := flush(); err != nil {
				return nil, err
			}
			cur, vals, have = ts, make([]float64, len(columns)), true
		}
		if i, ok := pos[series]; ok {
			vals[i] = v
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if !have {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return t, nil
}

// Scenarios lists the stored scenario names.
func (s *SQLiteStore) Scenarios(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT scenario FROM results ORDER BY scenario`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

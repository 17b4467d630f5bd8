package diagnostics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS diagnostics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	method TEXT,
	request_id TEXT,
	direction TEXT NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_diagnostics_date ON diagnostics(date);
`

// SQLiteSink appends rows to a diagnostics table
type SQLiteSink struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteSink opens (and creates if needed) the database at path.
// ":memory:" is accepted.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create diagnostics dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create diagnostics schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Write(ctx context.Context, rows []Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO diagnostics (date, method, request_id, direction, payload) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.Date.UTC().Format(time.RFC3339Nano),
			nullString(row.Method),
			idString(row.ID),
			string(row.Direction),
			row.Payload,
		); err != nil {
			return fmt.Errorf("insert diagnostic row: %w", err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit rows, newest first
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, err := s.db.QueryContext(ctx,
		`SELECT date, method, request_id, direction, payload FROM diagnostics ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []Row
	for rs.Next() {
		var (
			date            string
			method, reqID   sql.NullString
			direction, body string
		)
		if err := rs.Scan(&date, &method, &reqID, &direction, &body); err != nil {
			return nil, err
		}
		row := Row{Method: method.String, Direction: Direction(direction), Payload: body}
		row.Date, _ = time.Parse(time.RFC3339Nano, date)
		if reqID.Valid {
			row.ID = reqID.String
		}
		out = append(out, row)
	}
	return out, rs.Err()
}

// Close closes the database
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func idString(id interface{}) sql.NullString {
	switch v := id.(type) {
	case nil:
		return sql.NullString{}
	case string:
		return sql.NullString{String: v, Valid: true}
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return sql.NullString{String: fmt.Sprint(v), Valid: true}
		}
		return sql.NullString{String: string(b), Valid: true}
	}
}

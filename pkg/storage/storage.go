// Package storage persists the call ledger and briefing history in a
// local SQLite database, so quota accounting survives restarts.
package storage

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/calmackay/commutecast/pkg/quota"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS api_calls (
  id        INTEGER PRIMARY KEY,
  day       TEXT NOT NULL,
  kind      TEXT NOT NULL CHECK (kind IN ('auto','manual','auto_empty')),
  called_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_api_calls_day ON api_calls(day);
CREATE TABLE IF NOT EXISTS briefings (
  id            INTEGER PRIMARY KEY,
  generated_at  DATETIME NOT NULL,
  source        TEXT NOT NULL,
  stop_code     TEXT NOT NULL,
  route         TEXT,
  due_mins      INTEGER,
  traffic_delay INTEGER NOT NULL DEFAULT 0,
  message       TEXT
);
CREATE INDEX IF NOT EXISTS idx_briefings_time ON briefings(generated_at);
	`); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// RecordCall appends one metered API call to the ledger log.
func (d *DB) RecordCall(day string, kind quota.CallKind, at time.Time) error {
	_, err := d.sql.Exec(
		"INSERT INTO api_calls(day, kind, called_at) VALUES(?,?,?)",
		day, string(kind), at.UTC(),
	)
	return err
}

// CallsForDay counts recorded calls for one calendar day, total and
// automatic.
func (d *DB) CallsForDay(day string) (total, auto int, err error) {
	row := d.sql.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(kind = 'auto'), 0) FROM api_calls WHERE day = ?",
		day,
	)
	if err := row.Scan(&total, &auto); err != nil {
		return 0, 0, err
	}
	return total, auto, nil
}

// Briefing is one delivered briefing, kept for history.
type Briefing struct {
	GeneratedAt  time.Time
	Source       string
	StopCode     string
	Route        string
	DueMins      *int
	TrafficDelay int
	Message      string
}

func (d *DB) RecordBriefing(ctx context.Context, b Briefing) error {
	var due any
	if b.DueMins != nil {
		due = *b.DueMins
	}
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO briefings(generated_at, source, stop_code, route, due_mins, traffic_delay, message) VALUES(?,?,?,?,?,?,?)",
		b.GeneratedAt.UTC(), b.Source, b.StopCode, nullIfEmpty(b.Route), due, b.TrafficDelay, nullIfEmpty(b.Message),
	)
	return err
}

// RecentBriefings returns up to limit briefings, newest first.
func (d *DB) RecentBriefings(ctx context.Context, limit int) ([]Briefing, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT generated_at, source, stop_code, route, due_mins, traffic_delay, message FROM briefings ORDER BY generated_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Briefing
	for rows.Next() {
		var (
			b     Briefing
			route sql.NullString
			due   sql.NullInt64
			msg   sql.NullString
		)
		if err := rows.Scan(&b.GeneratedAt, &b.Source, &b.StopCode, &route, &due, &b.TrafficDelay, &msg); err != nil {
			return nil, err
		}
		b.Route = route.String
		b.Message = msg.String
		if due.Valid {
			n := int(due.Int64)
			b.DueMins = &n
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

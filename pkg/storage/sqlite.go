package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/homeflux/homeflux/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS constraints (
	household     TEXT NOT NULL,
	id            TEXT NOT NULL,
	device_id     TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	superseded    INTEGER NOT NULL DEFAULT 0,
	superseded_by TEXT NOT NULL DEFAULT '',
	body          TEXT NOT NULL,
	PRIMARY KEY (household, id)
);
CREATE INDEX IF NOT EXISTS constraints_by_household
	ON constraints (household, created_at);

CREATE TABLE IF NOT EXISTS days (
	household TEXT PRIMARY KEY,
	solved_at TEXT NOT NULL,
	body      TEXT NOT NULL
);
`

// SQLite is the on-disk Database backend.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database file and applies the schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// the driver is file-backed; a single writer avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) InsertConstraint(ctx context.Context, household string, c types.UsageConstraint) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode constraint %s: %w", c.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO constraints (household, id, device_id, created_at, superseded, superseded_by, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		household, c.ID, c.DeviceID, c.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000000Z"),
		boolInt(c.Superseded), c.SupersededBy, string(body))
	if err != nil {
		return fmt.Errorf("failed to insert constraint %s: %w", c.ID, err)
	}
	return nil
}

func (s *SQLite) MarkSuperseded(ctx context.Context, household, id, byID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE constraints
		 SET superseded = 1,
		     superseded_by = ?,
		     body = json_set(body, '$.superseded', json('true'), '$.supersededBy', ?)
		 WHERE household = ? AND id = ?`,
		byID, byID, household, id)
	if err != nil {
		return fmt.Errorf("failed to supersede constraint %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: constraint %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLite) ListConstraints(ctx context.Context, household string) ([]types.UsageConstraint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM constraints WHERE household = ? ORDER BY created_at, id`,
		household)
	if err != nil {
		return nil, fmt.Errorf("failed to list constraints: %w", err)
	}
	defer rows.Close()

	var out []types.UsageConstraint
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var c types.UsageConstraint
		if err := json.Unmarshal([]byte(body), &c); err != nil {
			return nil, fmt.Errorf("failed to decode stored constraint: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) UpsertDay(ctx context.Context, household string, d Day) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode day: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO days (household, solved_at, body) VALUES (?, ?, ?)
		 ON CONFLICT (household) DO UPDATE SET solved_at = excluded.solved_at, body = excluded.body`,
		household, d.Schedule.SolvedAt.UTC().Format("2006-01-02T15:04:05.000000000Z"), string(body))
	if err != nil {
		return fmt.Errorf("failed to store day: %w", err)
	}
	return nil
}

func (s *SQLite) GetDay(ctx context.Context, household string) (Day, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM days WHERE household = ?`, household).Scan(&body)
	if err == sql.ErrNoRows {
		return Day{}, fmt.Errorf("%w: no day for household %s", ErrNotFound, household)
	}
	if err != nil {
		return Day{}, fmt.Errorf("failed to load day: %w", err)
	}
	var d Day
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return Day{}, fmt.Errorf("failed to decode stored day: %w", err)
	}
	return d, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package localstore keeps client-side state in a SQLite file: the per-user
// blacklist and the last roster snapshot.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS blacklist (
	user_id      TEXT    NOT NULL,
	candidate_id INTEGER NOT NULL,
	banned_at    INTEGER NOT NULL,
	PRIMARY KEY (user_id, candidate_id)
);
CREATE TABLE IF NOT EXISTS roster_snapshot (
	user_id    TEXT PRIMARY KEY,
	state      TEXT    NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Store is one user's view of the local database.
type Store struct {
	db   *sql.DB
	user string
	now  func() time.Time
}

// Open creates or opens the database at path for user.
func Open(path, user string) (*Store, error) {
	if user == "" {
		user = "default"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One writer; SQLite serialises anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	log.Debug().Str("path", path).Str("user", user).Msg("Local store opened")
	return &Store{db: db, user: user, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Blacklist returns the banned candidate ids, oldest ban first.
func (s *Store) Blacklist(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT candidate_id FROM blacklist WHERE user_id = ? ORDER BY banned_at, candidate_id`, s.user)
	if err != nil {
		return nil, fmt.Errorf("list blacklist: %w", err)
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan blacklist: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ban adds id to the blacklist. Banning twice keeps the first timestamp.
func (s *Store) Ban(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blacklist (user_id, candidate_id, banned_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, candidate_id) DO NOTHING`,
		s.user, id, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("ban %d: %w", id, err)
	}
	return nil
}

// Unban removes id and reports whether it was present.
func (s *Store) Unban(ctx context.Context, id int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blacklist WHERE user_id = ? AND candidate_id = ?`, s.user, id)
	if err != nil {
		return false, fmt.Errorf("unban %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ClearBlacklist removes every ban and returns how many there were.
func (s *Store) ClearBlacklist(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blacklist WHERE user_id = ?`, s.user)
	if err != nil {
		return 0, fmt.Errorf("clear blacklist: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SaveSnapshot stores v as the user's roster snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO roster_snapshot (user_id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		s.user, string(raw), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot decodes the user's snapshot into v. It returns false when
// none has been saved.
func (s *Store) LoadSnapshot(ctx context.Context, v any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM roster_snapshot WHERE user_id = ?`, s.user).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode snapshot: %w", err)
	}
	return true, nil
}

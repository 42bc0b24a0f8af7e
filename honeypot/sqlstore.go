package honeypot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDriver is the database/sql driver OpenSQLStore uses when none is
// given.
const DefaultDriver = "sqlite"

const schema = `CREATE TABLE IF NOT EXISTS niforms_honeypot (
	session_id  TEXT NOT NULL,
	form_id     TEXT NOT NULL,
	honeypot_id TEXT NOT NULL,
	token       TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (session_id, form_id, honeypot_id)
)`

// SQLStore keeps tokens in the niforms_honeypot table so they survive
// restarts and are shared between processes.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLStore opens dsn with driver and creates the table if needed.
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if driver == "" {
		driver = DefaultDriver
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("honeypot: open %s: %w", driver, err)
	}
	s, err := NewSQLStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore uses an already open database.
func NewSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("honeypot: create table: %w", err)
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Save(ctx context.Context, key Key, token string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO niforms_honeypot (session_id, form_id, honeypot_id, token, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		key.Session, key.FormID, key.HoneypotID, token, s.now().Unix())
	if err != nil {
		return fmt.Errorf("honeypot: save token: %w", err)
	}
	return nil
}

func (s *SQLStore) Token(ctx context.Context, key Key) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT token FROM niforms_honeypot WHERE session_id = ? AND form_id = ? AND honeypot_id = ?`,
		key.Session, key.FormID, key.HoneypotID).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("honeypot: read token: %w", err)
	}
	return token, nil
}

func (s *SQLStore) Delete(ctx context.Context, key Key) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM niforms_honeypot WHERE session_id = ? AND form_id = ? AND honeypot_id = ?`,
		key.Session, key.FormID, key.HoneypotID)
	if err != nil {
		return fmt.Errorf("honeypot: delete token: %w", err)
	}
	return nil
}

func (s *SQLStore) Evict(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM niforms_honeypot WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("honeypot: evict: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

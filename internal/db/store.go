package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updatedAt REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS credentials (
		providerId TEXT PRIMARY KEY,
		secret TEXT NOT NULL,
		updatedAt REAL NOT NULL
	);
`

// Store provides access to the dictate SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database in read-write mode with WAL
// and applies the schema.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing database without write access. Used by
// tools that only inspect history while the app is running.
func OpenReadOnly(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key, or nil when the key is absent.
func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(key string, value []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updatedAt) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = excluded.updatedAt
	`, key, value, unixNow())
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Entry returns the full kv row for key, or nil when absent.
func (s *Store) Entry(key string) (*Entry, error) {
	var e Entry
	var updatedAt float64
	err := s.db.QueryRow(`SELECT key, value, updatedAt FROM kv WHERE key = ?`, key).
		Scan(&e.Key, &e.Value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	e.UpdatedAt = timeFromUnix(updatedAt)
	return &e, nil
}

// Credential returns the secret for a provider. ok is false when none is stored.
func (s *Store) Credential(providerID string) (secret string, ok bool, err error) {
	err = s.db.QueryRow(`SELECT secret FROM credentials WHERE providerId = ?`, providerID).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get credential: %w", err)
	}
	return secret, true, nil
}

// SetCredential stores or replaces the secret for a provider.
func (s *Store) SetCredential(providerID, secret string) error {
	_, err := s.db.Exec(`
		INSERT INTO credentials (providerId, secret, updatedAt) VALUES (?, ?, ?)
		ON CONFLICT(providerId) DO UPDATE SET secret = excluded.secret, updatedAt = excluded.updatedAt
	`, providerID, secret, unixNow())
	if err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	return nil
}

// DeleteCredential removes the secret for a provider. Missing rows are not an error.
func (s *Store) DeleteCredential(providerID string) error {
	if _, err := s.db.Exec(`DELETE FROM credentials WHERE providerId = ?`, providerID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// Credentials lists stored credentials ordered by provider id. Secrets are
// included; callers decide what to display.
func (s *Store) Credentials() ([]Credential, error) {
	rows, err := s.db.Query(`
		SELECT providerId, secret, updatedAt
		FROM credentials
		ORDER BY providerId ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	var creds []Credential
	for rows.Next() {
		var c Credential
		var updatedAt float64
		if err := rows.Scan(&c.ProviderID, &c.Secret, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		c.UpdatedAt = timeFromUnix(updatedAt)
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

func unixNow() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// Package users provides SQLite-backed user accounts with bcrypt password
// hashes.
package users

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/veleda/ansuz/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const bcryptCost = 12

// badPassword is the reference signup policy: a stand-in for real password
// validation, rejected as unauthorized.
const badPassword = "badpass"

// DB wraps a sql.DB with account operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("users: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("users: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("users: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Create registers a new account. It returns apperr.ErrAlreadyExists for a
// taken username and apperr.ErrUnauthorized when the password fails the
// signup policy.
func (db *DB) Create(username, password string) error {
	if username == "" || password == "" || password == badPassword {
		return fmt.Errorf("users: create %q: %w", username, apperr.ErrUnauthorized)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("users: hash password: %w", err)
	}

	_, err = db.conn.Exec(`INSERT INTO users (username, password_hash) VALUES (?, ?)`, username, string(hash))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("users: create %q: %w", username, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("users: create %q: %w", username, err)
	}
	return nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords are indistinguishable: both return apperr.ErrUnauthorized.
func (db *DB) Authenticate(username, password string) error {
	var hash string
	err := db.conn.QueryRow(`SELECT password_hash FROM users WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("users: authenticate %q: %w", username, apperr.ErrUnauthorized)
	}
	if err != nil {
		return fmt.Errorf("users: authenticate %q: %w", username, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return fmt.Errorf("users: authenticate %q: %w", username, apperr.ErrUnauthorized)
	}
	return nil
}

// Exists reports whether a username is taken.
func (db *DB) Exists(username string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`SELECT 1 FROM users WHERE username = ?`, username).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("users: exists %q: %w", username, err)
	}
	return true, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budgetbuddy/internal/log"
	"budgetbuddy/internal/session"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB is the durable session store backed by sqlite.
type DB struct {
	conn   *sql.DB
	sealer *Sealer
	logger *log.Logger
}

var _ session.Store = (*DB)(nil)

// Option customizes a DB.
type Option func(*DB)

// WithSealer seals the token at rest.
func WithSealer(s *Sealer) Option {
	return func(db *DB) { db.sealer = s }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(db *DB) { db.logger = log.OrDiscard(l) }
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string, opts ...Option) (*DB, error) {
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: the slot has a single writer, and :memory: databases
	// are per-connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, logger: log.Discard()}
	for _, opt := range opts {
		opt(db)
	}

	if err := migrateUp(conn); err != nil {
		conn.Close()
		return nil, err
	}
	db.logger.Debug("session store ready", log.FieldOperation, log.OpMigrate, "path", path, "sealed", db.sealer != nil)

	return db, nil
}

// Get returns the stored session token.
func (db *DB) Get(ctx context.Context) (string, bool, error) {
	value, ok, err := db.readSlot(ctx, session.SlotName)
	if err != nil || !ok {
		return "", false, err
	}
	token, err := db.open(value)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// Set overwrites the stored session token.
func (db *DB) Set(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return session.ErrEmptyToken
	}
	value, err := db.seal(token)
	if err != nil {
		return err
	}
	return db.writeSlot(ctx, session.SlotName, value)
}

// Clear removes the stored session token.
func (db *DB) Clear(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM session_slots WHERE name = ?", session.SlotName)
	if err != nil {
		return fmt.Errorf("clear slot: %w", err)
	}
	return nil
}

// UpdatedAt returns when the token slot was last written.
func (db *DB) UpdatedAt(ctx context.Context) (time.Time, bool, error) {
	var updated time.Time
	err := db.conn.QueryRowContext(ctx,
		"SELECT updated_at FROM session_slots WHERE name = ?", session.SlotName,
	).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read slot time: %w", err)
	}
	return updated, true, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) readSlot(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := db.conn.QueryRowContext(ctx, "SELECT value FROM session_slots WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read slot: %w", err)
	}
	return value, true, nil
}

func (db *DB) writeSlot(ctx context.Context, name, value string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO session_slots (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, name, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	return nil
}

func (db *DB) seal(token string) (string, error) {
	if db.sealer == nil {
		return token, nil
	}
	return db.sealer.Seal(token)
}

func (db *DB) open(value string) (string, error) {
	if db.sealer == nil {
		if IsSealed(value) {
			return "", ErrSealedSlot
		}
		return value, nil
	}
	return db.sealer.Open(value)
}

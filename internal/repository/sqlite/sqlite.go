// Package sqlite implements the repository interfaces on SQLite via the
// pure-Go modernc.org/sqlite driver (no CGo, cross-compiles anywhere Go
// does; ":memory:" gives tests a throwaway database).
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements both repository
// interfaces. The server owns the lifecycle: New at startup, Close during
// graceful shutdown.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight — a must for a
	// request/response server sharing one database file.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys stay OFF here on purpose. poems.author_id references
	// users, but deleting an account must NOT cascade or be blocked:
	// orphaned poems are expected state, purged lazily by the poem service
	// on the next listing read.
	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it safe to
// run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			first_name    TEXT NOT NULL,
			last_name     TEXT NOT NULL,
			nick_name     TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			photo         TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'user',
			github_id     INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_users_github_id ON users(github_id);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS poems (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			poem       TEXT NOT NULL,
			author_id  TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_poems_author_id ON poems(author_id);
		CREATE INDEX IF NOT EXISTS idx_poems_created_at ON poems(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating poems table: %w", err)
	}

	// The like-set. The composite primary key is the set semantics: one
	// row per (poem, user), so INSERT OR IGNORE is an idempotent set-add
	// and a keyed DELETE is an exact set-remove.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS poem_likes (
			poem_id  TEXT NOT NULL,
			user_id  TEXT NOT NULL,
			liked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (poem_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_poem_likes_user_id ON poem_likes(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating poem_likes table: %w", err)
	}

	return nil
}

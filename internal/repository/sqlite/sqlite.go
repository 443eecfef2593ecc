// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside the Go binary as a single
// file. No separate database server to install, configure, or manage, and
// ":memory:" gives tests a throwaway instance per test.
//
// WHY modernc.org/sqlite INSTEAD OF mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// the SQLite sources — works everywhere Go works.
//
// UNIQUE CONSTRAINTS AS THE CONCURRENCY MECHANISM:
// The unique indexes declared in migrate() are not just data hygiene — they
// are the only thing that serializes concurrent writers. Two requests
// accepting the same invitation race to insert the same resource_access
// triple; the database rejects the second insert and isUniqueViolation
// translates that into a typed conflict the caller can report cleanly.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	// Importing the driver registers it with database/sql under the name
	// "sqlite" (drivers register themselves in init()). The import is named
	// because isUniqueViolation also needs the driver's Error type.
	sqlite3 "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and hands out the per-entity stores.
//
// All stores share the single pool; the accessor methods exist so each
// repository interface is implemented by a small focused type instead of
// piling thirty methods onto one struct.
type DB struct {
	conn *sql.DB
}

// New creates a SQLite database connection pool and runs migrations.
//
// dbPath examples:
//   - "data/taskboard.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time; a single pooled connection avoids
	// SQLITE_BUSY errors under write contention and keeps ":memory:"
	// databases (one per connection) coherent.
	conn.SetMaxOpenConns(1)

	// sql.Open only creates the pool manager; Ping forces a real connection
	// so a bad path or permissions problem surfaces here, not on the first
	// query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in flight — required for
	// a server where every request hits the database.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. The cascade behaviour the
	// schema declares (project delete removing its tasks, ideas, votes)
	// only happens with this pragma on.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Defer this next to New — it flushes the
// WAL and releases the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Per-entity store accessors. Each returned value implements one interface
// from the repository package.

func (db *DB) Users() *UserDB             { return &UserDB{db: db} }
func (db *DB) Projects() *ProjectDB       { return &ProjectDB{db: db} }
func (db *DB) Tasks() *TaskDB             { return &TaskDB{db: db} }
func (db *DB) Ideas() *IdeaDB             { return &IdeaDB{db: db} }
func (db *DB) Access() *AccessDB          { return &AccessDB{db: db} }
func (db *DB) Invitations() *InvitationDB { return &InvitationDB{db: db} }
func (db *DB) Documents() *DocumentDB     { return &DocumentDB{db: db} }

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent;
// for this project's scale that beats carrying a migration tool.
//
// UUID primary keys are stored as TEXT (their canonical string form) —
// SQLite has no native UUID type and TEXT keys keep the rows debuggable
// with a plain sqlite3 shell.
func (db *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			name          TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			privileges    TEXT NOT NULL DEFAULT 'user',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS projects (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'active',
			visibility  TEXT NOT NULL DEFAULT 'private',
			created_by  INTEGER NOT NULL REFERENCES users(id),
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT PRIMARY KEY,
			project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			number      INTEGER NOT NULL,
			type        TEXT NOT NULL DEFAULT '',
			priority    TEXT NOT NULL DEFAULT '',
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'active',
			created_by  INTEGER NOT NULL REFERENCES users(id),
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (project_id, number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id)`,

		`CREATE TABLE IF NOT EXISTS task_assignees (
			task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			PRIMARY KEY (task_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS ideas (
			id               TEXT PRIMARY KEY,
			project_id       TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			number           INTEGER NOT NULL,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			category         TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL DEFAULT 'pending',
			priority         TEXT NOT NULL DEFAULT 'medium',
			implementability TEXT NOT NULL DEFAULT 'medium',
			impact           TEXT NOT NULL DEFAULT 'medium',
			votes            INTEGER NOT NULL DEFAULT 0,
			created_by       INTEGER REFERENCES users(id) ON DELETE SET NULL,
			created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (project_id, number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ideas_project ON ideas(project_id)`,

		`CREATE TABLE IF NOT EXISTS idea_votes (
			id         TEXT PRIMARY KEY,
			idea_id    TEXT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			value      INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (idea_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS resource_access (
			id            TEXT PRIMARY KEY,
			user_id       INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			resource_type TEXT NOT NULL,
			resource_id   TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'viewer',
			UNIQUE (user_id, resource_type, resource_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_access_resource ON resource_access(resource_type, resource_id)`,

		`CREATE TABLE IF NOT EXISTS invitations (
			id             TEXT PRIMARY KEY,
			sender_id      INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			receiver_id    INTEGER REFERENCES users(id) ON DELETE CASCADE,
			receiver_email TEXT NOT NULL DEFAULT '',
			resource_type  TEXT NOT NULL,
			resource_id    TEXT NOT NULL,
			role           TEXT NOT NULL DEFAULT 'viewer',
			status         TEXT NOT NULL DEFAULT 'pending',
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invitations_receiver ON invitations(receiver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_invitations_email ON invitations(receiver_email)`,

		`CREATE TABLE IF NOT EXISTS document_files (
			id                   TEXT PRIMARY KEY,
			user_id              INTEGER NOT NULL REFERENCES users(id),
			code                 TEXT NOT NULL,
			company              TEXT NOT NULL,
			name                 TEXT NOT NULL,
			classification_chart TEXT NOT NULL DEFAULT '[]',
			retention_schedule   TEXT NOT NULL DEFAULT '[]',
			entry_register       TEXT NOT NULL DEFAULT '[]',
			exit_register        TEXT NOT NULL DEFAULT '[]',
			loan_register        TEXT NOT NULL DEFAULT '[]',
			transfer_list        TEXT NOT NULL DEFAULT '[]',
			topographic_register TEXT NOT NULL DEFAULT '[]',
			created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS organization_charts (
			file_id TEXT PRIMARY KEY REFERENCES document_files(id) ON DELETE CASCADE,
			data    TEXT NOT NULL DEFAULT '{}'
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is SQLite rejecting a write that
// would break a UNIQUE or PRIMARY KEY constraint.
//
// modernc's driver surfaces these as *sqlite3.Error with extended result
// codes 2067 (SQLITE_CONSTRAINT_UNIQUE) and 1555
// (SQLITE_CONSTRAINT_PRIMARYKEY).
func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	if errors.As(err, &se) {
		return se.Code() == 2067 || se.Code() == 1555
	}
	return false
}

// isForeignKeyViolation reports whether err is SQLite refusing a write
// because a foreign key still references the row — extended result code 787
// (SQLITE_CONSTRAINT_FOREIGNKEY).
func isForeignKeyViolation(err error) bool {
	var se *sqlite3.Error
	if errors.As(err, &se) {
		return se.Code() == 787
	}
	return false
}

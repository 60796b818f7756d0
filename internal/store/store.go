// Package store persists canonical scan data in an embedded SQLite
// database. Collections are tables keyed by a string id with
// secondary indexes on server, name and the scan payload hash. The
// handle is opened once at process start and passed around; nothing
// reopens it mid-import.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Store wraps the sqlite handle with application-specific helpers.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates (or opens) the database at path and applies the
// schema. Use ":memory:" for an ephemeral store in tests.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite allows a single writer; one connection keeps every
	// transaction serialized and makes :memory: stores coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// HealthCheck runs a trivial query to verify the database is usable.
func (s *Store) HealthCheck(ctx context.Context) error {
	var n int
	return s.db.QueryRowContext(ctx, "SELECT 1").Scan(&n)
}

// schema is the collection layout: one table per named collection,
// secondary indexes matching the store contract (server, name, and a
// unique index on the scan payload hash for dedup lookups).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS players (
		key        TEXT PRIMARY KEY,
		server     TEXT NOT NULL,
		player_id  TEXT NOT NULL,
		name       TEXT,
		class      INTEGER,
		level      INTEGER,
		guild_key  TEXT,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_players_server ON players(server)`,
	`CREATE INDEX IF NOT EXISTS idx_players_name ON players(name)`,

	`CREATE TABLE IF NOT EXISTS guilds (
		key          TEXT PRIMARY KEY,
		server       TEXT NOT NULL,
		guild_id     TEXT NOT NULL,
		name         TEXT,
		member_count INTEGER,
		member_names TEXT,
		updated_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_guilds_server ON guilds(server)`,
	`CREATE INDEX IF NOT EXISTS idx_guilds_name ON guilds(name)`,

	`CREATE TABLE IF NOT EXISTS scans (
		id           TEXT PRIMARY KEY,
		server       TEXT NOT NULL,
		player_key   TEXT,
		guild_key    TEXT,
		payload_hash TEXT NOT NULL,
		created_at   TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_scans_payload_hash ON scans(payload_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_scans_server ON scans(server)`,

	`CREATE TABLE IF NOT EXISTS metadata (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS links (
		key        TEXT PRIMARY KEY,
		player_key TEXT NOT NULL,
		guild_key  TEXT NOT NULL,
		source     TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_guild ON links(guild_key)`,
}

// nilEmpty returns nil for empty strings (maps to SQL NULL), the same
// convention the ingestion upserts rely on for COALESCE merging.
func nilEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nilInt maps an absent optional number to SQL NULL.
func nilInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ScanRecord is one persisted import event. PayloadHash is the dedup
// key: a second record with the same hash must never be created.
type ScanRecord struct {
	ID          string
	Server      string
	PlayerKey   string
	GuildKey    string
	PayloadHash string
	CreatedAt   time.Time
}

// HasScanWithHash reports whether a scan with this payload hash was
// already stored. Callers check this before writing anything so a
// duplicate import stays free of side effects.
func (s *Store) HasScanWithHash(ctx context.Context, hash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM scans WHERE payload_hash = ? LIMIT 1`, hash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup scan hash: %w", err)
	}
	return true, nil
}

// InsertScan writes a new scan record. The unique hash index is the
// backstop for the dedup contract; a racing duplicate surfaces as a
// constraint error rather than a second row.
func (s *Store) InsertScan(ctx context.Context, rec ScanRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (id, server, player_key, guild_key, payload_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Server, nilEmpty(rec.PlayerKey), nilEmpty(rec.GuildKey),
		rec.PayloadHash, rec.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert scan %s: %w", rec.ID, err)
	}
	return nil
}

// RecordImport updates the import bookkeeping in the metadata
// collection: last import timestamp and a monotonic sequence number.
func (s *Store) RecordImport(ctx context.Context, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metadata tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE key = 'import_seq'`).Scan(&seq)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read import seq: %w", err)
	}

	now := at.UTC().Format(time.RFC3339)
	for key, value := range map[string]string{
		"import_seq":     strconv.FormatInt(seq+1, 10),
		"last_import_at": now,
	} {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now)
		if err != nil {
			return fmt.Errorf("write metadata %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit metadata tx: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Read surface for the UI collaborator
// --------------------------------------------------------------------------

// PlayerRow mirrors one stored player record.
type PlayerRow struct {
	Key      string
	Server   string
	PlayerID string
	Name     string
	Class    *int
	Level    *int
	GuildKey string
}

// Counts returns row counts per collection.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	for _, table := range []string{"players", "guilds", "scans", "links"} {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// PlayersByServer returns every stored player for one server, using
// the server index.
func (s *Store) PlayersByServer(ctx context.Context, server string) ([]PlayerRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, server, player_id, COALESCE(name, ''), class, level, COALESCE(guild_key, '')
		FROM players WHERE server = ? ORDER BY key`, server)
	if err != nil {
		return nil, fmt.Errorf("query players by server: %w", err)
	}
	defer rows.Close()
	return scanPlayerRows(rows)
}

// FindPlayersByName returns every stored player with this exact name,
// using the name index.
func (s *Store) FindPlayersByName(ctx context.Context, name string) ([]PlayerRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, server, player_id, COALESCE(name, ''), class, level, COALESCE(guild_key, '')
		FROM players WHERE name = ? ORDER BY key`, name)
	if err != nil {
		return nil, fmt.Errorf("query players by name: %w", err)
	}
	defer rows.Close()
	return scanPlayerRows(rows)
}

// GetPlayer fetches one player by composite key.
func (s *Store) GetPlayer(ctx context.Context, key string) (*PlayerRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, server, player_id, COALESCE(name, ''), class, level, COALESCE(guild_key, '')
		FROM players WHERE key = ?`, key)
	var p PlayerRow
	err := row.Scan(&p.Key, &p.Server, &p.PlayerID, &p.Name, &p.Class, &p.Level, &p.GuildKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get player %s: %w", key, err)
	}
	return &p, nil
}

func scanPlayerRows(rows *sql.Rows) ([]PlayerRow, error) {
	var out []PlayerRow
	for rows.Next() {
		var p PlayerRow
		if err := rows.Scan(&p.Key, &p.Server, &p.PlayerID, &p.Name, &p.Class, &p.Level, &p.GuildKey); err != nil {
			return nil, fmt.Errorf("scan player row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SFDataHub/scanhub/internal/scan"
)

// UpsertPlayers writes slim player records inside one transaction.
// Records without a usable id are silently skipped, not errors. The
// write is idempotent: a repeat import with the same composite key
// overwrites scalar fields instead of creating a second row, keeping
// older values where the new record has none (COALESCE on the new
// side).
func (s *Store) UpsertPlayers(ctx context.Context, players []scan.SlimPlayer) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin players tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO players (key, server, player_id, name, class, level, guild_key, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name       = COALESCE(excluded.name, players.name),
			class      = COALESCE(excluded.class, players.class),
			level      = COALESCE(excluded.level, players.level),
			guild_key  = COALESCE(excluded.guild_key, players.guild_key),
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare players upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	written := 0
	for _, p := range players {
		if p.ID == "" {
			continue
		}
		var guildKey any
		if p.GuildID != "" {
			guildKey = scan.CompositeKey(p.Server, p.GuildID)
		}
		_, err := stmt.ExecContext(ctx,
			p.Key(), p.Server, p.ID, nilEmpty(p.Name), nilInt(p.Class), nilInt(p.Level), guildKey, now)
		if err != nil {
			return 0, fmt.Errorf("upsert player %s: %w", p.Key(), err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit players tx: %w", err)
	}
	return written, nil
}

// UpsertGuilds writes slim guild records inside one transaction, with
// the same skip/overwrite semantics as UpsertPlayers. The member-name
// list is stored as JSON.
func (s *Store) UpsertGuilds(ctx context.Context, guilds []scan.SlimGuild) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin guilds tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO guilds (key, server, guild_id, name, member_count, member_names, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name         = COALESCE(excluded.name, guilds.name),
			member_count = COALESCE(excluded.member_count, guilds.member_count),
			member_names = COALESCE(excluded.member_names, guilds.member_names),
			updated_at   = excluded.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare guilds upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	written := 0
	for _, g := range guilds {
		if g.ID == "" {
			continue
		}
		var names any
		if len(g.Names) > 0 {
			b, err := json.Marshal(g.Names)
			if err != nil {
				return 0, fmt.Errorf("marshal member names for %s: %w", g.Key(), err)
			}
			names = string(b)
		}
		_, err := stmt.ExecContext(ctx,
			g.Key(), g.Server, g.ID, nilEmpty(g.Name), nilInt(g.MemberCount), names, now)
		if err != nil {
			return 0, fmt.Errorf("upsert guild %s: %w", g.Key(), err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit guilds tx: %w", err)
	}
	return written, nil
}

// LinkMembers records player-to-guild membership links for every
// player carrying an explicit guild reference. Idempotent by link
// key; repeat imports refresh the timestamp.
func (s *Store) LinkMembers(ctx context.Context, players []scan.SlimPlayer) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin links tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO links (key, player_key, guild_key, source, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET updated_at = excluded.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare links upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	written := 0
	for _, p := range players {
		if p.ID == "" || p.GuildID == "" {
			continue
		}
		playerKey := p.Key()
		guildKey := scan.CompositeKey(p.Server, p.GuildID)
		_, err := stmt.ExecContext(ctx,
			playerKey+"->"+guildKey, playerKey, guildKey, "scan", now)
		if err != nil {
			return 0, fmt.Errorf("upsert link %s: %w", playerKey, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit links tx: %w", err)
	}
	return written, nil
}

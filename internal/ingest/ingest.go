// Package ingest is the public entry point of the import pipeline:
// shape detection, slimming, dedup bookkeeping and the upsert into
// the local store, reported back as a single Report per call.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SFDataHub/scanhub/internal/scan"
	"github.com/SFDataHub/scanhub/internal/store"
)

// Importer runs imports against one store handle. Safe to call
// repeatedly on the same input: a repeat either dedupes at the scan
// level or re-upserts idempotently.
type Importer struct {
	store      *store.Store
	strategies []scan.Strategy
	logger     *slog.Logger
}

// New builds an Importer. nodeLimit bounds the deep-scan fallback;
// zero uses the default.
func New(st *store.Store, nodeLimit int, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		store:      st,
		strategies: scan.Registry(nodeLimit),
		logger:     logger,
	}
}

// Import runs the full pipeline on one raw document. It never
// returns an error and never panics outward: everything that goes
// wrong lands in the report, and DurationMs is always set.
func (imp *Importer) Import(ctx context.Context, doc any) (report *Report) {
	start := time.Now()
	report = newReport()
	defer func() {
		if r := recover(); r != nil {
			report.AddErrorf("import panicked: %v", r)
		}
		report.DurationMs = time.Since(start).Milliseconds()
	}()

	payload := scan.DetectAndParse(doc, imp.strategies, imp.logger)
	if payload == nil {
		report.AddError("document type not recognized")
		return report
	}
	report.DetectedType = string(payload.Type)

	hash, err := PayloadHash(payload)
	if err != nil {
		report.AddErrorf("hash payload: %v", err)
		return report
	}

	// Dedup check happens before any write: a duplicate import has no
	// side effects at all.
	seen, err := imp.store.HasScanWithHash(ctx, hash)
	if err != nil {
		report.AddErrorf("dedup lookup: %v", err)
		return report
	}
	if seen {
		report.Deduped = true
		report.AddWarnf("duplicate scan detected, nothing imported")
		imp.logger.Info("duplicate payload skipped", "type", payload.Type, "server", payload.Server)
		return report
	}

	rec := store.ScanRecord{
		ID:          uuid.NewString(),
		Server:      payload.Server,
		PayloadHash: hash,
		CreatedAt:   time.Now(),
	}

	switch payload.Type {
	case scan.TypePlayers:
		n, err := imp.store.UpsertPlayers(ctx, payload.Players)
		if err != nil {
			report.AddErrorf("upsert players: %v", err)
			return report
		}
		report.Counts["players"] = n
		links, err := imp.store.LinkMembers(ctx, payload.Players)
		if err != nil {
			report.AddErrorf("write membership links: %v", err)
			return report
		}
		if links > 0 {
			report.Counts["links"] = links
		}

	case scan.TypeGuilds:
		n, err := imp.store.UpsertGuilds(ctx, payload.Guilds)
		if err != nil {
			report.AddErrorf("upsert guilds: %v", err)
			return report
		}
		report.Counts["guilds"] = n

	case scan.TypeScan:
		if payload.Player != nil {
			n, err := imp.store.UpsertPlayers(ctx, []scan.SlimPlayer{*payload.Player})
			if err != nil {
				report.AddErrorf("upsert player: %v", err)
				return report
			}
			report.Counts["players"] = n
			rec.PlayerKey = payload.Player.Key()
			links, err := imp.store.LinkMembers(ctx, []scan.SlimPlayer{*payload.Player})
			if err != nil {
				report.AddErrorf("write membership links: %v", err)
				return report
			}
			if links > 0 {
				report.Counts["links"] = links
			}
		}
		if payload.Guild != nil {
			n, err := imp.store.UpsertGuilds(ctx, []scan.SlimGuild{*payload.Guild})
			if err != nil {
				report.AddErrorf("upsert guild: %v", err)
				return report
			}
			report.Counts["guilds"] = n
			rec.GuildKey = payload.Guild.Key()
		}
	}

	if err := imp.store.InsertScan(ctx, rec); err != nil {
		report.AddErrorf("record scan: %v", err)
		return report
	}
	report.Counts["scans"] = 1

	if err := imp.store.RecordImport(ctx, rec.CreatedAt); err != nil {
		// Bookkeeping only; the entities are already safely written.
		report.AddWarnf("update import metadata: %v", err)
	}

	imp.logger.Info("import complete",
		"type", payload.Type, "server", payload.Server, "summary", report.Summary())
	return report
}

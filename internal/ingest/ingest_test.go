package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SFDataHub/scanhub/internal/scan"
	"github.com/SFDataHub/scanhub/internal/store"
)

func newTestImporter(t *testing.T) (*Importer, *store.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, 0, logger), st
}

func mustDoc(t *testing.T, raw string) any {
	t.Helper()
	var doc any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestImportBarePlayersList(t *testing.T) {
	importer, _ := newTestImporter(t)
	report := importer.Import(context.Background(),
		mustDoc(t, `{"players":[{"identifier":"eu1_p1","name":"Nox"},{"identifier":"eu1_p2","name":"Ari"}]}`))

	assert.Equal(t, "players", report.DetectedType)
	assert.Equal(t, 2, report.Counts["players"])
	assert.Equal(t, 1, report.Counts["scans"])
	assert.Empty(t, report.Errors)
	assert.False(t, report.Deduped)
}

func TestImportUnknownShape(t *testing.T) {
	importer, _ := newTestImporter(t)
	report := importer.Import(context.Background(), mustDoc(t, `{"foo":"bar"}`))

	assert.Empty(t, report.DetectedType)
	assert.Empty(t, report.Counts)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "not recognized")
}

func TestIdempotentReimport(t *testing.T) {
	importer, _ := newTestImporter(t)
	doc := `{"players":[{"identifier":"eu1_p1","name":"Nox"}]}`

	first := importer.Import(context.Background(), mustDoc(t, doc))
	require.Empty(t, first.Errors)
	assert.False(t, first.Deduped)

	second := importer.Import(context.Background(), mustDoc(t, doc))
	assert.True(t, second.Deduped)
	assert.Empty(t, second.Counts)
	assert.Empty(t, second.Errors)
	require.Len(t, second.Warnings, 1)
	assert.Contains(t, second.Warnings[0], "duplicate")
}

func TestDedupIgnoresFormattingDifferences(t *testing.T) {
	importer, _ := newTestImporter(t)

	first := importer.Import(context.Background(),
		mustDoc(t, `{"players":[{"identifier":"eu1_p1","name":"Nox"}]}`))
	require.Empty(t, first.Errors)

	// Different whitespace and key order, identical content.
	second := importer.Import(context.Background(),
		mustDoc(t, `{  "players" : [ {"name":"Nox", "identifier":"eu1_p1"} ]  }`))
	assert.True(t, second.Deduped)

	// Any field difference is a new payload.
	third := importer.Import(context.Background(),
		mustDoc(t, `{"players":[{"identifier":"eu1_p1","name":"Ari"}]}`))
	assert.False(t, third.Deduped)
	assert.Empty(t, third.Errors)
}

func TestReimportOverwritesScalarFields(t *testing.T) {
	importer, st := newTestImporter(t)
	ctx := context.Background()

	r1 := importer.Import(ctx, mustDoc(t, `{"players":[{"identifier":"eu1_p1","name":"Nox"}]}`))
	require.Empty(t, r1.Errors)
	r2 := importer.Import(ctx, mustDoc(t, `{"players":[{"identifier":"eu1_p1","name":"Ari"}]}`))
	require.Empty(t, r2.Errors)

	row, err := st.GetPlayer(ctx, scan.CompositeKey("UNKNOWN", "eu1_p1"))
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Ari", row.Name)

	counts, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["players"])
	assert.Equal(t, 2, counts["scans"])
}

func TestImportGuildsDocument(t *testing.T) {
	importer, _ := newTestImporter(t)
	report := importer.Import(context.Background(), mustDoc(t,
		`{"type":"guilds","server":"eu1","groups":[{"identifier":"eu1_g1","name":"Knights","member_count":5}]}`))

	assert.Equal(t, "guilds", report.DetectedType)
	assert.Equal(t, 1, report.Counts["guilds"])
	assert.Equal(t, 1, report.Counts["scans"])
	assert.Empty(t, report.Errors)
}

func TestImportScanDocument(t *testing.T) {
	importer, st := newTestImporter(t)
	ctx := context.Background()
	report := importer.Import(ctx, mustDoc(t,
		`{"type":"scan","server":"eu1","player":{"identifier":"eu1_p9","name":"Zed"},"group":{"identifier":"eu1_g2","name":"Order"}}`))

	assert.Equal(t, "scan", report.DetectedType)
	assert.Equal(t, 1, report.Counts["players"])
	assert.Equal(t, 1, report.Counts["guilds"])
	assert.Equal(t, 1, report.Counts["scans"])
	assert.Empty(t, report.Errors)

	row, err := st.GetPlayer(ctx, scan.CompositeKey("EU1", "eu1_p9"))
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Zed", row.Name)
}

func TestImportWritesMembershipLinks(t *testing.T) {
	importer, st := newTestImporter(t)
	ctx := context.Background()
	report := importer.Import(ctx, mustDoc(t,
		`{"players":[{"identifier":"eu1_p1","name":"Nox","group":"eu1_g7"}]}`))

	require.Empty(t, report.Errors)
	assert.Equal(t, 1, report.Counts["links"])

	counts, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["links"])
}

func TestImportScanDocumentWritesMembershipLink(t *testing.T) {
	importer, st := newTestImporter(t)
	ctx := context.Background()
	report := importer.Import(ctx, mustDoc(t,
		`{"type":"scan","server":"eu1","player":{"identifier":"eu1_p9","name":"Zed","group":"eu1_g2"},"group":{"identifier":"eu1_g2","name":"Order"}}`))

	require.Empty(t, report.Errors)
	assert.Equal(t, 1, report.Counts["links"])

	counts, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["links"])
}

func TestImportAlwaysSetsDuration(t *testing.T) {
	importer, _ := newTestImporter(t)
	report := importer.Import(context.Background(), mustDoc(t, `{"foo":"bar"}`))
	assert.GreaterOrEqual(t, report.DurationMs, int64(0))
}

func TestPayloadHashDeterministic(t *testing.T) {
	level := 5
	p1 := &scan.Payload{
		Type:    scan.TypePlayers,
		Server:  "EU1",
		Players: []scan.SlimPlayer{{ID: "eu1_p1", Name: "Nox", Level: &level, Server: "EU1"}},
	}
	h1, err := PayloadHash(p1)
	require.NoError(t, err)
	h2, err := PayloadHash(p1)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	p2 := &scan.Payload{
		Type:    scan.TypePlayers,
		Server:  "EU1",
		Players: []scan.SlimPlayer{{ID: "eu1_p1", Name: "Ari", Level: &level, Server: "EU1"}},
	}
	h3, err := PayloadHash(p2)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

package summary

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, raw string) any {
	t.Helper()
	var doc any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestSummarizeGuildWithMemberNames(t *testing.T) {
	doc := mustDoc(t, `{
		"players": [
			{"identifier":"eu1_p1","name":"Nox"},
			{"identifier":"eu1_p2","name":"Ari"}
		],
		"groups": [
			{"identifier":"eu1_g9","names":["Nox","Ari"],"member_count":2}
		]
	}`)
	s := Summarize(doc, 0)
	assert.Equal(t, 2, s.UniquePlayers)
	assert.Equal(t, 1, s.UniqueGuilds)
	require.Len(t, s.Guilds, 1)
	g := s.Guilds[0]
	assert.Equal(t, "eu1_g9", g.ID)
	assert.Equal(t, 2, g.PlayersCount)
	require.NotNil(t, g.DeclaredCount)
	assert.Equal(t, 2, *g.DeclaredCount)
	assert.True(t, g.FullyScanned)
	assert.Empty(t, s.Warnings)
}

func TestSummarizeIncompleteGuild(t *testing.T) {
	doc := mustDoc(t, `{
		"players": [{"identifier":"eu1_p1","name":"Nox"}],
		"groups":  [{"identifier":"eu1_g9","names":["Nox"],"member_count":5}]
	}`)
	s := Summarize(doc, 0)
	require.Len(t, s.Guilds, 1)
	assert.Equal(t, 1, s.Guilds[0].PlayersCount)
	assert.False(t, s.Guilds[0].FullyScanned)
	assert.Empty(t, s.Warnings)
}

func TestSummarizeOvercountedGuildWarns(t *testing.T) {
	doc := mustDoc(t, `{
		"players": [
			{"identifier":"eu1_p1","name":"Nox"},
			{"identifier":"eu1_p2","name":"Ari"}
		],
		"groups": [{"identifier":"eu1_g9","names":["Nox","Ari"],"member_count":1}]
	}`)
	s := Summarize(doc, 0)
	require.Len(t, s.Guilds, 1)
	assert.Equal(t, 2, s.Guilds[0].PlayersCount)
	assert.False(t, s.Guilds[0].FullyScanned)
	require.Len(t, s.Warnings, 1)
	assert.Contains(t, s.Warnings[0], "eu1_g9")
}

func TestSummarizeNoDeclaredCountNote(t *testing.T) {
	doc := mustDoc(t, `{
		"groups": [{"identifier":"eu1_g9","names":["Nox"]}]
	}`)
	s := Summarize(doc, 0)
	require.Len(t, s.Notes, 1)
	assert.Contains(t, s.Notes[0], "completeness")
	// A guild with a roster but no matched players is still listed.
	require.Len(t, s.Guilds, 1)
	assert.Equal(t, 0, s.Guilds[0].PlayersCount)
	assert.Nil(t, s.Guilds[0].DeclaredCount)
}

func TestSummarizeExplicitGuildReference(t *testing.T) {
	doc := mustDoc(t, `{
		"players": [{"identifier":"eu1_p1","name":"Nox","group":"eu1_g9"}],
		"groups":  [{"identifier":"eu1_g9","member_count":1,"names":["unrelated"]}]
	}`)
	s := Summarize(doc, 0)
	require.Len(t, s.Guilds, 1)
	assert.Equal(t, 1, s.Guilds[0].PlayersCount)
	assert.True(t, s.Guilds[0].FullyScanned)
}

func TestSummarizeUnionOfBothSignals(t *testing.T) {
	// One member known by explicit reference, another only via the
	// roster; the counted set is the union.
	doc := mustDoc(t, `{
		"players": [
			{"identifier":"eu1_p1","name":"Nox","group":"eu1_g9"},
			{"identifier":"eu1_p2","name":"Ari"}
		],
		"groups": [{"identifier":"eu1_g9","names":["Ari"],"member_count":2}]
	}`)
	s := Summarize(doc, 0)
	require.Len(t, s.Guilds, 1)
	assert.Equal(t, 2, s.Guilds[0].PlayersCount)
	assert.True(t, s.Guilds[0].FullyScanned)
}

func TestSummarizeUniqueAcrossNestedArrays(t *testing.T) {
	// The same player appears in two arrays; unique counting must
	// collapse it, keeping the first sighting.
	doc := mustDoc(t, `{
		"players": [{"identifier":"eu1_p1","name":"Nox","server":"eu1"}],
		"nested": {
			"again": [{"identifier":"eu1_p1","name":"Renamed","server":"eu1"}]
		}
	}`)
	s := Summarize(doc, 0)
	assert.Equal(t, 1, s.UniquePlayers)
	assert.Equal(t, map[string]int{"EU1": 1}, s.PlayersPerServer)
}

func TestSummarizePlayersWithoutIdentityExcluded(t *testing.T) {
	doc := mustDoc(t, `{
		"players": [
			{"identifier":"eu1_p1","name":"Nox"},
			{"name":"NoID"},
			{"junk":true}
		]
	}`)
	s := Summarize(doc, 0)
	assert.Equal(t, 1, s.UniquePlayers)
}

func TestSummarizeIDShapeDiscrimination(t *testing.T) {
	// Entities sort by id shape no matter which array carried them.
	doc := mustDoc(t, `{
		"players": [
			{"identifier":"eu1_p42","name":"Nox"},
			{"identifier":"eu1_g7","name":"Knights"}
		]
	}`)
	s := Summarize(doc, 0)
	assert.Equal(t, 1, s.UniquePlayers)
	assert.Equal(t, 1, s.UniqueGuilds)
}

func TestSummarizeOwnPlayersAndServers(t *testing.T) {
	doc := mustDoc(t, `{
		"players": [
			{"identifier":"eu1_p1","name":"Nox","server":"eu1","own":true},
			{"identifier":"eu2_p2","name":"Ari","server":"eu2"}
		]
	}`)
	s := Summarize(doc, 0)
	assert.Equal(t, 1, s.OwnPlayers)
	assert.Equal(t, map[string]int{"EU1": 1, "EU2": 1}, s.PlayersPerServer)
}

func TestSummarizeAccentInsensitiveNameMatch(t *testing.T) {
	doc := mustDoc(t, `{
		"players": [{"identifier":"eu1_p1","name":"Jose"}],
		"groups":  [{"identifier":"eu1_g1","names":["José"],"member_count":1}]
	}`)
	s := Summarize(doc, 0)
	require.Len(t, s.Guilds, 1)
	assert.Equal(t, 1, s.Guilds[0].PlayersCount)
	assert.True(t, s.Guilds[0].FullyScanned)
}

func TestSummarizeEmptyDocument(t *testing.T) {
	s := Summarize(mustDoc(t, `{"foo":"bar"}`), 0)
	assert.Zero(t, s.UniquePlayers)
	assert.Zero(t, s.UniqueGuilds)
	assert.Empty(t, s.Guilds)
	assert.Empty(t, s.Notes)
}

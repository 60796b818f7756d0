// Package summary computes read-only aggregate statistics over a raw
// scan document. It is independent of storage: the UI layer shows the
// result for immediate feedback before or alongside persistence, and
// it deliberately consumes the raw document rather than the slimmed
// import payload.
package summary

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/SFDataHub/scanhub/internal/scan"
)

// GuildStat is the per-guild membership reconciliation result.
type GuildStat struct {
	Key           string `json:"key"`
	ID            string `json:"id"`
	Server        string `json:"server"`
	Name          string `json:"name,omitempty"`
	DeclaredCount *int   `json:"declaredCount,omitempty"`
	PlayersCount  int    `json:"playersCount"`
	FullyScanned  bool   `json:"fullyScanned"`
}

// Summary is the aggregate view of one raw document. All counts run
// over unique composite keys, never raw array lengths: the same
// entity routinely appears in several nested arrays of one export.
type Summary struct {
	UniquePlayers    int            `json:"uniquePlayers"`
	UniqueGuilds     int            `json:"uniqueGuilds"`
	OwnPlayers       int            `json:"ownPlayers"`
	PlayersPerServer map[string]int `json:"playersPerServer"`
	GuildsPerServer  map[string]int `json:"guildsPerServer"`
	Guilds           []GuildStat    `json:"guilds"`
	Notes            []string       `json:"notes,omitempty"`
	Warnings         []string       `json:"warnings,omitempty"`
}

// guildAcc accumulates everything known about one guild across all
// sightings in the document.
type guildAcc struct {
	guild   scan.SlimGuild
	members map[string]struct{}
}

// Summarize reconciles every player-like and guild-like array in the
// document into unique entity counts and per-guild completeness.
// Guild membership is counted from two independent signals, explicit
// guild references on player records and declared member-name lists
// on guild records; the union of both is what a guild's counted size
// means. nodeLimit bounds the structural traversal; zero uses the
// collect default.
func Summarize(doc any, nodeLimit int) *Summary {
	s := &Summary{
		PlayersPerServer: map[string]int{},
		GuildsPerServer:  map[string]int{},
	}

	players := map[string]scan.SlimPlayer{} // composite key -> first sighting
	nameIndex := map[string][]string{}      // server + folded name -> player keys
	guilds := map[string]*guildAcc{}

	addPlayer := func(p scan.SlimPlayer) {
		if p.Server == "" {
			p.Server = scan.ServerUnknown
		}
		if p.ID == "" {
			// Still player-shaped, but without an id it cannot enter
			// any unique count or membership set.
			return
		}
		key := p.Key()
		if _, seen := players[key]; seen {
			return
		}
		players[key] = p
		if p.Name != "" {
			idx := nameFoldKey(p.Server, p.Name)
			nameIndex[idx] = append(nameIndex[idx], key)
		}
	}

	addGuild := func(g scan.SlimGuild) {
		if g.Server == "" {
			g.Server = scan.ServerUnknown
		}
		if g.ID == "" {
			return
		}
		key := g.Key()
		acc, ok := guilds[key]
		if !ok {
			guilds[key] = &guildAcc{guild: g, members: map[string]struct{}{}}
			return
		}
		// Merge repeat sightings: best-known declared count, union of
		// member names, first non-empty display name.
		if g.MemberCount != nil {
			if acc.guild.MemberCount == nil || *g.MemberCount > *acc.guild.MemberCount {
				acc.guild.MemberCount = g.MemberCount
			}
		}
		acc.guild.Names = unionNames(acc.guild.Names, g.Names)
		if acc.guild.Name == "" {
			acc.guild.Name = g.Name
		}
	}

	for _, found := range collectArrays(doc, nodeLimit) {
		for _, record := range found.Records {
			// Per-record discrimination: the id shape decides what a
			// record is, regardless of which array carried it.
			if g := scan.SlimGuildFromGroup(record); g != nil {
				addGuild(*g)
				continue
			}
			p := scan.SlimPlayerFromRaw(record)
			if p.HasIdentity() && scan.IDKind(p.ID) != scan.KindGuild {
				addPlayer(p)
			}
		}
	}

	s.UniquePlayers = len(players)
	s.UniqueGuilds = len(guilds)
	for _, p := range players {
		s.PlayersPerServer[p.Server]++
		if p.Own {
			s.OwnPlayers++
		}
	}
	for _, acc := range guilds {
		s.GuildsPerServer[acc.guild.Server]++
	}

	// Membership signal (a): explicit guild references on players.
	for key, p := range players {
		if p.GuildID == "" {
			continue
		}
		if acc := resolveGuild(guilds, p.Server, p.GuildID); acc != nil {
			acc.members[key] = struct{}{}
		}
	}

	// Membership signal (b): declared member-name lists, matched
	// case- and accent-insensitively against id-bearing players on
	// the guild's server.
	for _, acc := range guilds {
		for _, name := range acc.guild.Names {
			for _, key := range nameIndex[nameFoldKey(acc.guild.Server, name)] {
				acc.members[key] = struct{}{}
			}
		}
	}

	guildKeys := make([]string, 0, len(guilds))
	for key := range guilds {
		guildKeys = append(guildKeys, key)
	}
	sort.Strings(guildKeys)

	anyDeclared := false
	for _, key := range guildKeys {
		acc := guilds[key]
		stat := GuildStat{
			Key:           key,
			ID:            acc.guild.ID,
			Server:        acc.guild.Server,
			Name:          acc.guild.Name,
			DeclaredCount: acc.guild.MemberCount,
			PlayersCount:  len(acc.members),
		}
		if acc.guild.MemberCount != nil {
			anyDeclared = true
			declared := *acc.guild.MemberCount
			stat.FullyScanned = stat.PlayersCount == declared
			if stat.PlayersCount > declared {
				s.Warnings = append(s.Warnings, fmt.Sprintf(
					"guild %s: counted %d unique members but scan declares %d",
					acc.guild.ID, stat.PlayersCount, declared))
			}
		}
		s.Guilds = append(s.Guilds, stat)
	}
	if !anyDeclared && len(guilds) > 0 {
		s.Notes = append(s.Notes, "no declared member count found; guild completeness cannot be determined")
	}

	return s
}

// collectArrays gathers every entity-shaped array: the exhaustive
// deep scan plus any top-level players/groups arrays the scan may
// have classified differently.
func collectArrays(doc any, nodeLimit int) []scan.FoundArray {
	found := scan.DeepCollectEntities(doc, nodeLimit)
	if m, ok := doc.(map[string]any); ok {
		if arr, ok := m["players"].([]any); ok {
			if recs := objectRecordsOf(arr); recs != nil {
				found = append(found, scan.FoundArray{Kind: scan.KindPlayer, Records: recs})
			}
		}
		if arr, ok := m["groups"].([]any); ok {
			if recs := objectRecordsOf(arr); recs != nil {
				found = append(found, scan.FoundArray{Kind: scan.KindGuild, Records: recs})
			}
		}
	}
	return found
}

func objectRecordsOf(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// resolveGuild finds the guild a player reference points at: first by
// composite key on the player's server, then by raw id on any server.
func resolveGuild(guilds map[string]*guildAcc, server, guildID string) *guildAcc {
	if acc, ok := guilds[scan.CompositeKey(server, guildID)]; ok {
		return acc
	}
	for _, acc := range guilds {
		if acc.guild.ID == guildID {
			return acc
		}
	}
	return nil
}

func unionNames(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a))
	for _, n := range a {
		seen[foldName(n)] = struct{}{}
	}
	for _, n := range b {
		if _, ok := seen[foldName(n)]; !ok {
			seen[foldName(n)] = struct{}{}
			a = append(a, n)
		}
	}
	return a
}

func nameFoldKey(server, name string) string {
	return strings.ToLower(server) + ":" + foldName(name)
}

// foldName lower-cases a name and strips diacritics (NFD decompose,
// drop combining marks) so roster names match player names across
// exporters with different accent handling.
func foldName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

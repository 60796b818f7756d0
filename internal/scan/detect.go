package scan

import (
	"fmt"
	"log/slog"
	"strings"
)

// Strategy recognizes one known export shape. Detect must stay cheap
// (no deep traversal; the fallback is the only exception). Parse
// either returns a valid payload or an error; it never panics through
// the registry.
type Strategy struct {
	Name   string
	Detect func(doc any) bool
	Parse  func(doc any) (*Payload, error)
}

// Registry returns the built-in strategies in priority order. More
// specific shapes come first; the deep structural fallback is always
// registered last.
func Registry(nodeLimit int) []Strategy {
	return []Strategy{
		barePlayersStrategy(),
		taggedPlayersStrategy(),
		taggedGuildsStrategy(),
		taggedScanStrategy(),
		deepFallbackStrategy(nodeLimit),
	}
}

// DetectAndParse runs the registry against a raw document. The first
// strategy whose detector matches and whose parse step yields a valid
// payload wins. A failing parse is recoverable: the loop falls
// through to the next strategy instead of aborting. Returns nil when
// no strategy succeeds.
func DetectAndParse(doc any, strategies []Strategy, logger *slog.Logger) *Payload {
	if logger == nil {
		logger = slog.Default()
	}
	for _, s := range strategies {
		if !s.Detect(doc) {
			continue
		}
		payload, err := safeParse(s, doc)
		if err != nil {
			logger.Debug("parse strategy failed", "strategy", s.Name, "error", err)
			continue
		}
		if err := payload.Validate(); err != nil {
			logger.Debug("parse strategy produced invalid payload", "strategy", s.Name, "error", err)
			continue
		}
		logger.Debug("document shape detected", "strategy", s.Name, "type", payload.Type, "server", payload.Server)
		return payload
	}
	return nil
}

// safeParse shields the registry from a panicking strategy.
func safeParse(s Strategy, doc any) (payload *Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = fmt.Errorf("strategy %s panicked: %v", s.Name, r)
		}
	}()
	return s.Parse(doc)
}

// --------------------------------------------------------------------------
// Built-in strategies
// --------------------------------------------------------------------------

func docMap(doc any) (map[string]any, bool) {
	m, ok := doc.(map[string]any)
	return m, ok
}

func docType(doc any) string {
	if m, ok := docMap(doc); ok {
		if t, ok := m["type"].(string); ok {
			return strings.ToLower(strings.TrimSpace(t))
		}
	}
	return ""
}

func arrayField(m map[string]any, keys ...string) []any {
	for _, k := range keys {
		if arr, ok := m[k].([]any); ok {
			return arr
		}
	}
	return nil
}

// barePlayersStrategy matches documents that carry a player list
// without any explicit type tag: either a top-level array of
// player-classified objects, or an object with such an array under
// "players" and no "type" field. Guild-signaled records are left for
// the structural fallback.
func barePlayersStrategy() Strategy {
	return Strategy{
		Name: "bare-players",
		Detect: func(doc any) bool {
			if arr, ok := doc.([]any); ok {
				records := objectRecords(arr)
				return records != nil && classifyRecords(records) == KindPlayer
			}
			if m, ok := docMap(doc); ok {
				if docType(doc) != "" {
					return false
				}
				records := objectRecords(arrayField(m, "players"))
				return records != nil && classifyRecords(records) == KindPlayer
			}
			return false
		},
		Parse: func(doc any) (*Payload, error) {
			arr, _ := doc.([]any)
			server := ""
			if m, ok := docMap(doc); ok {
				arr = arrayField(m, "players")
				server = GuessServer(m)
			}
			players := slimPlayerArray(arr)
			if len(players) == 0 {
				return nil, fmt.Errorf("no usable player records")
			}
			if server == "" {
				server = players[0].Server
			}
			return playersPayload(server, players), nil
		},
	}
}

func taggedPlayersStrategy() Strategy {
	return Strategy{
		Name: "tagged-players",
		Detect: func(doc any) bool {
			return docType(doc) == "players"
		},
		Parse: func(doc any) (*Payload, error) {
			m, _ := docMap(doc)
			arr := arrayField(m, "players", "data", "list")
			if arr == nil {
				return nil, fmt.Errorf("players document without players array")
			}
			players := slimPlayerArray(arr)
			if len(players) == 0 {
				return nil, fmt.Errorf("no usable player records")
			}
			server := GuessServer(m)
			if server == "" {
				server = players[0].Server
			}
			return playersPayload(server, players), nil
		},
	}
}

func taggedGuildsStrategy() Strategy {
	return Strategy{
		Name: "tagged-guilds",
		Detect: func(doc any) bool {
			return docType(doc) == "guilds"
		},
		Parse: func(doc any) (*Payload, error) {
			m, _ := docMap(doc)
			arr := arrayField(m, "guilds", "groups", "data", "list")
			if arr == nil {
				return nil, fmt.Errorf("guilds document without guilds array")
			}
			server := GuessServer(m)
			guilds := slimGuildArray(arr, server)
			if len(guilds) == 0 {
				return nil, fmt.Errorf("no usable guild records")
			}
			if server == "" {
				server = guilds[0].Server
			}
			return guildsPayload(server, guilds), nil
		},
	}
}

func taggedScanStrategy() Strategy {
	return Strategy{
		Name: "tagged-scan",
		Detect: func(doc any) bool {
			if docType(doc) != "scan" {
				return false
			}
			m, _ := docMap(doc)
			s, ok := m["server"].(string)
			return ok && strings.TrimSpace(s) != ""
		},
		Parse: func(doc any) (*Payload, error) {
			m, _ := docMap(doc)
			server := strings.ToUpper(strings.TrimSpace(m["server"].(string)))
			payload := &Payload{Type: TypeScan, Server: server}

			if raw, ok := m["player"].(map[string]any); ok {
				p := SlimPlayerFromRaw(raw)
				if p.Server == "" {
					p.Server = server
				}
				if p.HasIdentity() {
					payload.Player = &p
				}
			}
			for _, key := range []string{"group", "guild"} {
				raw, ok := m[key].(map[string]any)
				if !ok {
					continue
				}
				if g := SlimGuildFromGroup(raw); g != nil {
					if g.Server == "" {
						g.Server = server
					}
					payload.Guild = g
					break
				}
			}
			if payload.Player == nil && payload.Guild == nil {
				return nil, fmt.Errorf("scan document carries no usable entity")
			}
			return payload, nil
		},
	}
}

// deepFallbackStrategy is the bounded structural search used when no
// named shape matched. Its detector always fires; the cost lives in
// the parse step.
func deepFallbackStrategy(nodeLimit int) Strategy {
	return Strategy{
		Name: "deep-fallback",
		Detect: func(doc any) bool {
			return true
		},
		Parse: func(doc any) (*Payload, error) {
			found := DeepFindEntities(doc, nodeLimit)
			if found == nil {
				return nil, fmt.Errorf("no entity-shaped arrays found")
			}
			server := ""
			if m, ok := docMap(doc); ok {
				server = GuessServer(m)
			}
			switch found.Kind {
			case KindGuild:
				guilds := slimGuildRecords(found.Records, server)
				if len(guilds) == 0 {
					return nil, fmt.Errorf("guild-like array had no usable records")
				}
				if server == "" {
					server = guilds[0].Server
				}
				return guildsPayload(server, guilds), nil
			default:
				players := slimPlayerRecords(found.Records)
				if len(players) == 0 {
					return nil, fmt.Errorf("player-like array had no usable records")
				}
				if server == "" {
					server = players[0].Server
				}
				return playersPayload(server, players), nil
			}
		},
	}
}

// --------------------------------------------------------------------------
// Shared parse helpers
// --------------------------------------------------------------------------

func playersPayload(server string, players []SlimPlayer) *Payload {
	server = normalizeServer(server)
	for i := range players {
		if players[i].Server == "" {
			players[i].Server = server
		}
	}
	return &Payload{Type: TypePlayers, Server: server, Players: players}
}

func guildsPayload(server string, guilds []SlimGuild) *Payload {
	server = normalizeServer(server)
	for i := range guilds {
		if guilds[i].Server == "" {
			guilds[i].Server = server
		}
	}
	return &Payload{Type: TypeGuilds, Server: server, Guilds: guilds}
}

func normalizeServer(server string) string {
	server = strings.ToUpper(strings.TrimSpace(server))
	if server == "" {
		return ServerUnknown
	}
	return server
}

func slimPlayerArray(arr []any) []SlimPlayer {
	return slimPlayerRecords(objectRecords(arr))
}

func slimPlayerRecords(records []map[string]any) []SlimPlayer {
	out := make([]SlimPlayer, 0, len(records))
	for _, r := range records {
		p := SlimPlayerFromRaw(r)
		if p.HasIdentity() {
			out = append(out, p)
		}
	}
	return out
}

func slimGuildArray(arr []any, server string) []SlimGuild {
	return slimGuildRecords(objectRecords(arr), server)
}

func slimGuildRecords(records []map[string]any, server string) []SlimGuild {
	out := make([]SlimGuild, 0, len(records))
	for _, r := range records {
		g := SlimGuildFromGroup(r)
		if g == nil {
			continue
		}
		if g.Server == "" {
			g.Server = server
		}
		out = append(out, *g)
	}
	return out
}

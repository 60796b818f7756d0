package scan

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Kind classifies what an identifier or an array of records refers to.
type Kind int

const (
	KindUnknown Kind = iota
	KindPlayer
	KindGuild
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "players"
	case KindGuild:
		return "guilds"
	default:
		return "unknown"
	}
}

// SlimPlayer is the canonical subset of a raw player record. Every
// field except Server may be absent; Server falls back to the payload
// server during parsing.
type SlimPlayer struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Class   *int   `json:"class,omitempty"`
	Level   *int   `json:"level,omitempty"`
	GuildID string `json:"guildId,omitempty"`
	Server  string `json:"server"`
	Own     bool   `json:"own,omitempty"`
}

// HasIdentity reports whether the record carries at least an id or a
// name. Records without either are dropped from every count.
func (p SlimPlayer) HasIdentity() bool {
	return p.ID != "" || p.Name != ""
}

// Key returns the composite storage key, or empty when the record has
// no id.
func (p SlimPlayer) Key() string {
	if p.ID == "" {
		return ""
	}
	return CompositeKey(p.Server, p.ID)
}

// SlimGuild is the canonical subset of a raw guild record.
// MemberCount is the count the scan declares, not what was counted.
type SlimGuild struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Server      string   `json:"server,omitempty"`
	MemberCount *int     `json:"memberCount,omitempty"`
	Names       []string `json:"names,omitempty"`
}

// Key returns the composite storage key.
func (g SlimGuild) Key() string {
	return CompositeKey(g.Server, g.ID)
}

// CompositeKey builds the store identity for an entity: lower-cased
// server, raw id.
func CompositeKey(server, id string) string {
	return strings.ToLower(server) + ":" + id
}

// IDKind reports whether an identifier looks like a player or a guild
// id. Exporters encode the entity type in the last underscore token:
// "eu1_p42" is a player, "eu1_g7" a guild. This is the only way to
// disambiguate otherwise identical identifier strings when the array
// carries no type tag, so the convention must hold exactly.
func IDKind(id string) Kind {
	idx := strings.LastIndex(id, "_")
	if idx < 0 || idx == len(id)-1 {
		return KindUnknown
	}
	last := id[idx+1:]
	if last == "" {
		return KindUnknown
	}
	switch unicode.ToLower(rune(last[0])) {
	case 'p':
		return KindPlayer
	case 'g':
		return KindGuild
	default:
		return KindUnknown
	}
}

// SlimPlayerFromRaw reduces a raw heterogeneous record to a
// SlimPlayer. It always succeeds; fields that cannot be identified
// are simply left zero.
func SlimPlayerFromRaw(record map[string]any) SlimPlayer {
	p := SlimPlayer{
		ID:      PickString(record, idKeys),
		Name:    PickString(record, nameKeys),
		GuildID: guildRef(record),
		Server:  GuessServer(record),
	}
	if v, ok := Pick(record, classKeys); ok {
		p.Class = looseInt(v)
	}
	if v, ok := Pick(record, levelKeys); ok {
		p.Level = looseInt(v)
	}
	if v, ok := Pick(record, ownFlagKeys); ok {
		p.Own = truthy(v)
	}
	return p
}

// guildRef extracts an explicit guild reference from a player record.
// Only values that pass the guild id shape count; a "group" field
// holding a server hint or a display name is not a reference.
func guildRef(record map[string]any) string {
	for _, key := range guildRefKeys {
		for _, variant := range keyVariants(key) {
			v, ok := record[variant]
			if !ok {
				continue
			}
			if s := Stringify(v); s != "" && IDKind(s) == KindGuild {
				return s
			}
		}
	}
	return ""
}

// SlimGuildFromGroup reduces a raw record to a SlimGuild, or returns
// nil when the record does not look like a guild. The id must pass
// the guild id shape check; a member-name list is accepted as the
// guild signal only when the id does not look like a player id. This
// gate keeps player records out of guild arrays when scanning
// generically shaped arrays.
func SlimGuildFromGroup(record map[string]any) *SlimGuild {
	id := PickString(record, idKeys)
	names := PickStringList(record, memberNamesKeys)
	kind := IDKind(id)
	if kind != KindGuild && !(len(names) > 0 && kind == KindUnknown) {
		return nil
	}

	g := &SlimGuild{
		ID:     id,
		Name:   PickString(record, guildNameKeys),
		Server: GuessServer(record),
		Names:  names,
	}
	if v, ok := Pick(record, memberCountKeys); ok {
		g.MemberCount = looseInt(v)
	}
	// A guild "name" alias can collide with the id field in flat
	// exports; never keep the raw id as a display name.
	if g.Name == g.ID {
		g.Name = ""
	}
	return g
}

var nonNumericRe = regexp.MustCompile(`[^0-9.\-]`)

// looseInt coerces a messy scalar to an int. Non-numeric characters
// are stripped before parsing; anything non-finite is discarded.
// Malformed input yields nil, never an error.
func looseInt(v any) *int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		cleaned := nonNumericRe.ReplaceAllString(t, "")
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}

// truthy interprets the loose boolean encodings exporters use for
// own/flagged markers: true, 1, "1", "true", "yes".
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "1" || s == "true" || s == "yes"
	default:
		return false
	}
}

package scan

import (
	"fmt"
	"strings"
)

// PayloadType tags the normalized result of parsing a raw document.
type PayloadType string

const (
	TypePlayers PayloadType = "players"
	TypeGuilds  PayloadType = "guilds"
	TypeScan    PayloadType = "scan"
)

// ServerUnknown stands in when no server hint exists anywhere in the
// document. It still satisfies the "server always present" invariant.
const ServerUnknown = "UNKNOWN"

// Payload is the normalized, typed outcome of a successful parse.
// Exactly one of the entity fields matching Type is populated:
// Players for TypePlayers, Guilds for TypeGuilds, Player/Guild
// (either optional) for TypeScan.
type Payload struct {
	Type    PayloadType  `json:"type"`
	Server  string       `json:"server"`
	Players []SlimPlayer `json:"players,omitempty"`
	Guilds  []SlimGuild  `json:"guilds,omitempty"`
	Player  *SlimPlayer  `json:"player,omitempty"`
	Guild   *SlimGuild   `json:"guild,omitempty"`
}

// Validate checks the payload invariants. A strategy whose parse
// output fails validation is treated as a parse failure, not
// propagated.
func (p *Payload) Validate() error {
	if p == nil {
		return fmt.Errorf("nil payload")
	}
	if p.Server == "" {
		return fmt.Errorf("payload missing server")
	}
	if p.Server != strings.ToUpper(p.Server) {
		return fmt.Errorf("payload server %q not upper-cased", p.Server)
	}
	switch p.Type {
	case TypePlayers:
		for i, pl := range p.Players {
			if !pl.HasIdentity() {
				return fmt.Errorf("player %d has neither id nor name", i)
			}
		}
	case TypeGuilds:
		for i, g := range p.Guilds {
			if g.ID == "" && len(g.Names) == 0 {
				return fmt.Errorf("guild %d has neither id nor member names", i)
			}
		}
	case TypeScan:
		if p.Player == nil && p.Guild == nil {
			return fmt.Errorf("scan payload carries neither player nor guild")
		}
	default:
		return fmt.Errorf("unknown payload type %q", p.Type)
	}
	return nil
}

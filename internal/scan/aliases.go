// Package scan turns arbitrary community scan exports into canonical
// player and guild records.
//
// The tools that produce these exports never agreed on a schema: the
// same logical field arrives as "identifier", "id", "playerId" or
// "pid" depending on the exporter, and the entity type of an array is
// often not tagged at all. All detection and slimming therefore goes
// through ordered alias tables plus the Pick field picker, so
// supporting a new export format is a data change, not a code change.
package scan

// Alias tables map one logical field to its known spellings, most
// specific and most common first. Order matters: Pick returns the
// first hit, so earlier entries win when an exporter emits several.
var (
	idKeys = []string{
		"identifier", "id", "player_id", "playerid", "pid", "uid",
	}

	nameKeys = []string{
		"name", "player_name", "playername", "character", "char_name", "charname",
	}

	classKeys = []string{
		"class", "class_id", "classid", "player_class",
	}

	levelKeys = []string{
		"level", "lvl", "player_level",
	}

	guildRefKeys = []string{
		"group", "guild", "group_id", "guild_id", "groupid", "guildid",
		"group_identifier", "guild_identifier",
	}

	guildNameKeys = []string{
		"name", "group_name", "groupname", "guild_name", "guildname",
	}

	memberCountKeys = []string{
		"member_count", "membercount", "members", "size", "count",
	}

	memberNamesKeys = []string{
		"names", "members", "member_names", "membernames", "roster",
	}

	serverKeys = []string{
		"server", "prefix", "world", "realm", "srv", "shard",
	}

	ownFlagKeys = []string{
		"own", "flagged", "is_own", "isown", "favorite", "fav",
	}
)

package scan

// Node-visit limits for the structural traversals. The bound is the
// primary safeguard against pathological or cyclic-looking documents;
// hitting it stops the walk silently with whatever was found so far.
const (
	DefaultNodeLimit    = 20000
	DefaultCollectLimit = 50000
)

// FoundArray is one entity-shaped array discovered by a deep scan.
type FoundArray struct {
	Kind    Kind
	Records []map[string]any
}

// DeepFindEntities walks an unknown document looking for the first
// array of object records that classifies as player-like or
// guild-like. The walk is iterative and depth-first in stack-pop
// order, which is not guaranteed stable; when several equally shaped
// arrays exist, which one wins is unspecified. At most nodeLimit
// nodes are visited. Returns nil when nothing classifiable was found.
//
// This is the import-path variant: it stops at the first hit. The
// summary path uses DeepCollectEntities, which is exhaustive, so the
// two can disagree about what a document contains.
func DeepFindEntities(root any, nodeLimit int) *FoundArray {
	if nodeLimit <= 0 {
		nodeLimit = DefaultNodeLimit
	}
	var found *FoundArray
	walk(root, nodeLimit, func(fa FoundArray) bool {
		found = &fa
		return false
	})
	return found
}

// DeepCollectEntities walks the whole document (up to nodeLimit
// nodes) and returns every entity-shaped array it finds, including
// arrays nested inside records of other arrays.
func DeepCollectEntities(root any, nodeLimit int) []FoundArray {
	if nodeLimit <= 0 {
		nodeLimit = DefaultCollectLimit
	}
	var out []FoundArray
	walk(root, nodeLimit, func(fa FoundArray) bool {
		out = append(out, fa)
		return true
	})
	return out
}

// walk drives the bounded traversal. onFound returns false to stop
// after the first classified array. Accumulation is confined to the
// local stack; nothing is shared across calls.
func walk(root any, nodeLimit int, onFound func(FoundArray) bool) {
	stack := []any{root}
	visited := 0

	for len(stack) > 0 && visited < nodeLimit {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visited++

		switch t := node.(type) {
		case map[string]any:
			for _, v := range t {
				stack = append(stack, v)
			}
		case []any:
			records := objectRecords(t)
			if records != nil {
				if kind := classifyRecords(records); kind != KindUnknown {
					if !onFound(FoundArray{Kind: kind, Records: records}) {
						return
					}
				}
				// Entity records can hold nested arrays (a guild
				// embedding its member list of objects).
				for _, r := range records {
					for _, v := range r {
						stack = append(stack, v)
					}
				}
				continue
			}
			for _, v := range t {
				stack = append(stack, v)
			}
		}
	}
}

// objectRecords returns the array as object records when its first
// element is a plain object, else nil.
func objectRecords(arr []any) []map[string]any {
	if len(arr) == 0 {
		return nil
	}
	if _, ok := arr[0].(map[string]any); !ok {
		return nil
	}
	records := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			records = append(records, m)
		}
	}
	return records
}

// classifyRecords decides what an array of object records represents.
// Guild signals (a guild-shaped id or a member-name list) are checked
// before the generic id/name/class presence test; otherwise every
// guild export would classify as player-like, since guilds also carry
// ids and names.
func classifyRecords(records []map[string]any) Kind {
	playerLike := false
	for _, r := range records {
		id := PickString(r, idKeys)
		if IDKind(id) == KindGuild || len(PickStringList(r, memberNamesKeys)) > 0 {
			return KindGuild
		}
		if id != "" || PickString(r, nameKeys) != "" || PickString(r, classKeys) != "" {
			playerLike = true
		}
	}
	if playerLike {
		return KindPlayer
	}
	return KindUnknown
}

package scan

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Pick returns the first non-empty value for any of the candidate
// keys. For each candidate it tries the literal spelling, then the
// lower-cased, upper-cased, and underscores-as-spaces variants. A
// value counts as present when it is non-nil and its string form is
// non-empty. Absence is not an error; the second return is false.
func Pick(record map[string]any, keys []string) (any, bool) {
	for _, key := range keys {
		for _, variant := range keyVariants(key) {
			v, ok := record[variant]
			if !ok || v == nil {
				continue
			}
			if Stringify(v) == "" {
				continue
			}
			return v, true
		}
	}
	return nil, false
}

// PickString is Pick with the result flattened to a trimmed string.
func PickString(record map[string]any, keys []string) string {
	v, ok := Pick(record, keys)
	if !ok {
		return ""
	}
	return Stringify(v)
}

// PickStringList returns the first candidate value that is an array,
// flattened to its non-empty scalar elements. Nested objects and
// arrays are skipped; a roster of member objects yields no entries
// rather than their printed form.
func PickStringList(record map[string]any, keys []string) []string {
	for _, key := range keys {
		for _, variant := range keyVariants(key) {
			arr, ok := record[variant].([]any)
			if !ok || len(arr) == 0 {
				continue
			}
			out := make([]string, 0, len(arr))
			for _, el := range arr {
				switch el.(type) {
				case map[string]any, []any:
					continue
				}
				if s := Stringify(el); s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func keyVariants(key string) []string {
	variants := []string{key}
	if lower := strings.ToLower(key); lower != key {
		variants = append(variants, lower)
	}
	if upper := strings.ToUpper(key); upper != key {
		variants = append(variants, upper)
	}
	if spaced := strings.ReplaceAll(key, "_", " "); spaced != key {
		variants = append(variants, spaced)
	}
	return variants
}

// Stringify renders a scalar JSON value as a trimmed string. Arrays
// and objects render non-empty so Pick treats them as present.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// GuessServer infers the server prefix of a record or document.
// Precedence: explicit server-like fields first, then values derived
// from compound fields ("group" keeps its first two underscore-joined
// tokens, "groupname" its first space-separated token). The result is
// upper-cased; empty means no hint was found.
func GuessServer(record map[string]any) string {
	if s := PickString(record, serverKeys); s != "" {
		return strings.ToUpper(s)
	}
	// A "group" value that is itself an entity id ("eu1_g7") is a
	// guild reference, not a server hint.
	if g := PickString(record, []string{"group"}); g != "" && IDKind(g) == KindUnknown {
		tokens := strings.Split(g, "_")
		if len(tokens) >= 2 && tokens[0] != "" && tokens[1] != "" {
			return strings.ToUpper(tokens[0] + "_" + tokens[1])
		}
	}
	if gn := PickString(record, []string{"groupname"}); gn != "" {
		if first := strings.Fields(gn); len(first) > 0 {
			return strings.ToUpper(first[0])
		}
	}
	return ""
}

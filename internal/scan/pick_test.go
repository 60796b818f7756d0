package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickKeyVariants(t *testing.T) {
	cases := []struct {
		name   string
		record map[string]any
		keys   []string
		want   string
	}{
		{"literal", map[string]any{"identifier": "eu1_p1"}, []string{"identifier"}, "eu1_p1"},
		{"upper-cased", map[string]any{"PLAYER_ID": "eu1_p2"}, []string{"player_id"}, "eu1_p2"},
		{"underscores as spaces", map[string]any{"player id": "eu1_p3"}, []string{"player_id"}, "eu1_p3"},
		{"first candidate wins", map[string]any{"identifier": "a", "id": "b"}, []string{"identifier", "id"}, "a"},
		{"empty value falls through", map[string]any{"identifier": "  ", "id": "b"}, []string{"identifier", "id"}, "b"},
		{"nil value falls through", map[string]any{"identifier": nil, "id": "b"}, []string{"identifier", "id"}, "b"},
		{"numeric value", map[string]any{"level": 42.0}, []string{"level"}, "42"},
		{"absent", map[string]any{"x": "y"}, []string{"identifier", "id"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PickString(tc.record, tc.keys))
		})
	}
}

func TestPickNeverErrors(t *testing.T) {
	v, ok := Pick(nil, []string{"id"})
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestPickStringList(t *testing.T) {
	record := map[string]any{
		"names": []any{"Nox", " Ari ", "", nil},
	}
	assert.Equal(t, []string{"Nox", "Ari"}, PickStringList(record, memberNamesKeys))
	assert.Nil(t, PickStringList(record, []string{"roster"}))
	assert.Nil(t, PickStringList(map[string]any{"names": "Nox"}, memberNamesKeys))
}

func TestPickStringListSkipsObjectElements(t *testing.T) {
	// Rosters sometimes hold member objects instead of plain names.
	// Those must not leak in as their printed map form.
	record := map[string]any{
		"members": []any{map[string]any{"name": "Nox"}, "Ari", []any{"nested"}},
	}
	assert.Equal(t, []string{"Ari"}, PickStringList(record, memberNamesKeys))

	objectsOnly := map[string]any{
		"members": []any{map[string]any{"name": "Nox"}},
	}
	assert.Nil(t, PickStringList(objectsOnly, memberNamesKeys))
}

func TestGuessServer(t *testing.T) {
	cases := []struct {
		name   string
		record map[string]any
		want   string
	}{
		{"explicit server", map[string]any{"server": "eu1"}, "EU1"},
		{"prefix alias", map[string]any{"prefix": "s1_net"}, "S1_NET"},
		{"world alias", map[string]any{"world": "w4"}, "W4"},
		{"server wins over group", map[string]any{"server": "eu1", "group": "f1_net_Knights"}, "EU1"},
		{"group compound", map[string]any{"group": "f1_net_Knights"}, "F1_NET"},
		{"group holding a guild id is no hint", map[string]any{"group": "eu1_g7"}, ""},
		{"groupname first token", map[string]any{"groupname": "EU1 Knights"}, "EU1"},
		{"no hint", map[string]any{"name": "Nox"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GuessServer(tc.record))
		})
	}
}

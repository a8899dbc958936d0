package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortedKeys_RFC8785Order(t *testing.T) {
	// UTF-16 code unit ordering differs from UTF-8 byte ordering for
	// characters outside the BMP. "\U0001F600" (EMOJI, surrogate pair
	// starting 0xD83D) sorts before "דּ" (HEBREW LETTER DALET
	// WITH DAGESH, U+FB33): 0xD83D < 0xFB33 as code units.
	obj := Object{
		"\U0001F600": Int(1),
		"דּ":     Int(2),
		"b":          Int(3),
		"a":          Int(4),
	}

	keys := obj.SortedKeys()
	assert.Equal(t, []string{"a", "b", "\U0001F600", "דּ"}, keys)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null equals null", Null{}, Null{}, true},
		{"int equals int", Int(5), Int(5), true},
		{"int not float", Int(5), Float(5), false},
		{"nested objects", Object{"a": Array{Int(1)}}, Object{"a": Array{Int(1)}}, true},
		{"nested mismatch", Object{"a": Array{Int(1)}}, Object{"a": Array{Int(2)}}, false},
		{"missing key", Object{"a": Int(1)}, Object{"b": Int(1)}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Equal(tc.a, tc.b))
		})
	}
}

func TestClone_DoesNotAlias(t *testing.T) {
	orig := Object{"inner": Object{"n": Int(1)}, "arr": Array{Int(1), Int(2)}}
	copied := orig.Clone()

	copied["inner"].(Object)["n"] = Int(99)
	copied["arr"].(Array)[0] = Int(99)

	assert.Equal(t, Int(1), orig["inner"].(Object)["n"])
	assert.Equal(t, Int(1), orig["arr"].(Array)[0])
}

func TestFromGo_RoundTrip(t *testing.T) {
	raw := map[string]any{
		"message": "hi",
		"count":   float64(2), // JSON numbers decode as float64
		"ratio":   1.5,
		"flag":    true,
		"nothing": nil,
		"items":   []any{"a", "b"},
	}

	v, err := FromGo(raw)
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, String("hi"), obj["message"])
	assert.Equal(t, Int(2), obj["count"]) // integral float narrows to Int
	assert.Equal(t, Float(1.5), obj["ratio"])
	assert.Equal(t, Bool(true), obj["flag"])
	assert.Equal(t, Null{}, obj["nothing"])
	assert.Equal(t, Array{String("a"), String("b")}, obj["items"])

	back := ToGo(v).(map[string]any)
	assert.Equal(t, "hi", back["message"])
	assert.Equal(t, int64(2), back["count"])
}

func TestFromGo_UnsupportedType(t *testing.T) {
	_, err := FromGo(struct{ X int }{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestParseJSON(t *testing.T) {
	v, err := ParseJSON([]byte(`{"message":"hi","count":2}`))
	require.NoError(t, err)
	assert.True(t, Equal(v, Object{"message": String("hi"), "count": Int(2)}))
}

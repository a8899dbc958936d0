package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	obj := Object{"b": Int(2), "a": Int(1)}

	out, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, string(out))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	out, err := MarshalCanonical(String("<a> & </a>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a> & </a>"`, string(out))
}

func TestMarshalCanonical_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"null", Null{}, "null"},
		{"true", Bool(true), "true"},
		{"int", Int(-42), "-42"},
		{"float", Float(1.5), "1.5"},
		{"string", String("hi"), `"hi"`},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := MarshalCanonical(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(out))
		})
	}
}

func TestMarshalCanonical_NonFiniteFloatsRejected(t *testing.T) {
	nan := Float(0)
	nan = Float(float64(nan) / float64(nan)) // NaN without importing math

	_, err := MarshalCanonical(nan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NaN")
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	obj := Object{
		"z":     Array{Int(1), String("two"), Object{"k": Bool(false)}},
		"a":     Float(0.25),
		"emoji": String("\U0001F600"),
	}

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestMarshalCanonical_U2028NotEscaped(t *testing.T) {
	out, err := MarshalCanonical(String("a b"))
	require.NoError(t, err)
	assert.Equal(t, "\"a b\"", string(out))
}

func TestMarshalCanonical_LiteralBackslashU2028Preserved(t *testing.T) {
	// A literal backslash followed by the text "u2028" must stay escaped.
	out, err := MarshalCanonical(String(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(out))
}

package demo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makisuo/confect-plus/internal/funcs"
	"github.com/Makisuo/confect-plus/internal/vecindex"
)

func TestRegister_AllFunctions(t *testing.T) {
	reg := funcs.NewRegistry()
	require.NoError(t, Register(reg))

	names := reg.Names()
	assert.Equal(t, []string{
		RefEcho,
		RefListMessages,
		RefMessageCount,
		RefNotifySimilar,
		RefRecordNotification,
		RefSendMessage,
	}, names)
}

func TestRegister_Visibility(t *testing.T) {
	reg := funcs.NewRegistry()
	require.NoError(t, Register(reg))

	public := map[string]bool{
		RefEcho:          true,
		RefListMessages:  true,
		RefSendMessage:   true,
		RefNotifySimilar: true,
	}
	for _, name := range reg.Names() {
		desc, ok := reg.Lookup(name)
		require.True(t, ok)
		if public[name] {
			assert.Equal(t, funcs.Public, desc.Visibility, name)
		} else {
			assert.Equal(t, funcs.Internal, desc.Visibility, name)
		}
	}
}

func TestTables_DeclaresIndexes(t *testing.T) {
	tables := Tables()
	for _, name := range []string{"users", "messages", "notifications"} {
		_, ok := tables.Lookup(name)
		assert.True(t, ok, name)
	}
}

func TestEmbed_Deterministic(t *testing.T) {
	a := Embed("hello world")
	b := Embed("hello world")
	assert.Equal(t, a, b)
}

func TestEmbed_UnitNorm(t *testing.T) {
	vec := Embed("The quick brown fox")
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestEmbed_IgnoresCaseAndPunctuation(t *testing.T) {
	assert.Equal(t, Embed("Hello, World!"), Embed("hello world"))
}

func TestEmbed_EmptyTextIsZeroVector(t *testing.T) {
	vec := Embed("12345 !?")
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestIndexMessage_SimilarTextsRankCloser(t *testing.T) {
	set := vecindex.NewSet(VectorIndex)
	require.NoError(t, IndexMessage(set, "m1", "deploy failed on staging"))
	require.NoError(t, IndexMessage(set, "m2", "lunch menu for friday"))

	matches, err := set.Search(VectorIndex, Embed("staging deploy failed again"), 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.EqualValues(t, "m1", matches[0].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

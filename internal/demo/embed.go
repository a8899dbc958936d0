package demo

import (
	"math"
	"unicode"

	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/vecindex"
)

// embedDims is one slot per latin letter.
const embedDims = 26

// Embed maps text to a unit-length letter-frequency vector. It is
// deterministic and needs no model, which is all the demo requires:
// texts sharing vocabulary score close under cosine similarity.
func Embed(text string) []float32 {
	vec := make([]float32, embedDims)
	for _, r := range text {
		r = unicode.ToLower(r)
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// IndexMessage upserts a message's embedding into the similarity index.
func IndexMessage(set *vecindex.Set, id schema.DocID, text string) error {
	return set.Upsert(VectorIndex, id, Embed(text))
}

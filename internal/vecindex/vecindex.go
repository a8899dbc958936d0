// Package vecindex provides the in-memory similarity indexes behind the
// vector search capability. Scoring is cosine similarity; results come
// back ranked best-first with deterministic id tiebreaks.
package vecindex

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/schema"
)

// Set is a named collection of vector indexes.
type Set struct {
	mu      sync.RWMutex
	indexes map[string]*index
}

// index pins its dimension on first upsert; every later vector must
// match it.
type index struct {
	mu   sync.RWMutex
	dim  int
	vecs map[schema.DocID][]float32
}

// NewSet declares the named indexes up front; searching or upserting
// into an undeclared index is an error, mirroring table declarations.
func NewSet(names ...string) *Set {
	s := &Set{indexes: make(map[string]*index, len(names))}
	for _, name := range names {
		s.indexes[name] = &index{vecs: make(map[schema.DocID][]float32)}
	}
	return s
}

func (s *Set) lookup(name string) (*index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[name]
	if !ok {
		return nil, fmt.Errorf("undeclared vector index %q", name)
	}
	return idx, nil
}

// Upsert stores or replaces a document's vector. The first upsert fixes
// the index dimension.
func (s *Set) Upsert(name string, id schema.DocID, vec []float32) error {
	if id == "" {
		return fmt.Errorf("vector index %q: empty document id", name)
	}
	if len(vec) == 0 {
		return fmt.Errorf("vector index %q: empty vector", name)
	}
	idx, err := s.lookup(name)
	if err != nil {
		return err
	}

	cp := append([]float32(nil), vec...)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.dim == 0 {
		idx.dim = len(cp)
	} else if len(cp) != idx.dim {
		return fmt.Errorf("vector index %q: dimension %d, want %d", name, len(cp), idx.dim)
	}
	idx.vecs[id] = cp
	return nil
}

// Delete drops a document's vector. Unknown ids are a no-op.
func (s *Set) Delete(name string, id schema.DocID) error {
	idx, err := s.lookup(name)
	if err != nil {
		return err
	}
	idx.mu.Lock()
	delete(idx.vecs, id)
	idx.mu.Unlock()
	return nil
}

// Search returns up to limit matches ranked by descending cosine
// similarity; ties break on id so identical indexes rank identically.
func (s *Set) Search(name string, vec []float32, limit int) ([]platform.VectorMatch, error) {
	idx, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	if idx.dim != 0 && len(vec) != idx.dim {
		idx.mu.RUnlock()
		return nil, fmt.Errorf("vector index %q: query dimension %d, want %d", name, len(vec), idx.dim)
	}
	matches := make([]platform.VectorMatch, 0, len(idx.vecs))
	for id, v := range idx.vecs {
		matches = append(matches, platform.VectorMatch{ID: id, Score: cosine(vec, v)})
	}
	idx.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

// cosine assumes equal-length inputs; Upsert and Search enforce the
// index dimension before any vector reaches it.
func cosine(a, b []float32) float32 {
	var dot, na, nb float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / float32(math.Sqrt(float64(na))*math.Sqrt(float64(nb)))
}

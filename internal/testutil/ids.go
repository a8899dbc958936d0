// Package testutil provides deterministic identifier generators and
// clocks. Production hosts mint UUIDv7 ids and read the wall clock;
// tests and the conformance harness swap these in so every run of a
// scenario produces byte-identical output.
package testutil

import (
	"fmt"
	"sync"

	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/schema"
)

// SeqDocIDs mints "<prefix>-1", "<prefix>-2", ... document ids.
//
// Thread-safe. Implements store.IDGenerator.
type SeqDocIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSeqDocIDs creates a generator with the given prefix. An empty
// prefix defaults to "doc".
func NewSeqDocIDs(prefix string) *SeqDocIDs {
	if prefix == "" {
		prefix = "doc"
	}
	return &SeqDocIDs{prefix: prefix}
}

// NewID returns the next id in sequence.
func (g *SeqDocIDs) NewID() (schema.DocID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return schema.DocID(fmt.Sprintf("%s-%d", g.prefix, g.n)), nil
}

// Reset restarts the sequence; the next id is "<prefix>-1" again.
func (g *SeqDocIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}

// SeqJobIDs mints "<prefix>-1", "<prefix>-2", ... job ids.
//
// Thread-safe. The Next method satisfies the queue's id function
// option.
type SeqJobIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSeqJobIDs creates a generator with the given prefix. An empty
// prefix defaults to "job".
func NewSeqJobIDs(prefix string) *SeqJobIDs {
	if prefix == "" {
		prefix = "job"
	}
	return &SeqJobIDs{prefix: prefix}
}

// Next returns the next id in sequence.
func (g *SeqJobIDs) Next() (platform.JobID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return platform.JobID(fmt.Sprintf("%s-%d", g.prefix, g.n)), nil
}

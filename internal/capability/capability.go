// Package capability defines the typed service contracts a handler
// programs against during one invocation.
//
// Every method returns a deferred effect: constructing a capability
// bundle, or calling a capability method, performs no platform operation.
// Only driving the returned effect does. Which contracts a handler is
// offered depends on its invocation kind; the per-kind bundle structs
// live in internal/funcs.
package capability

import (
	"time"

	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/wire"
)

// Document is a stored entity: its id, creation time, and declared
// fields.
type Document struct {
	ID           schema.DocID
	CreationTime time.Time
	Fields       wire.Object
}

// Page is one page of an indexed scan.
type Page struct {
	Documents []Document
	Cursor    string
	Done      bool
}

// ScanOptions narrows and paginates a table scan.
type ScanOptions struct {
	// Index names a declared index; empty scans in creation order.
	Index string
	// Equals constrains the indexed field (ignored without Index).
	Equals wire.Value
	// Cursor continues a previous page.
	Cursor string
	// Limit caps the page size; 0 means the host default.
	Limit int
}

// Reader is read-only document store access.
type Reader interface {
	// Get looks a document up by id. Missing documents resolve to nil,
	// not a failure.
	Get(table string, id schema.DocID) effect.Effect[*Document]

	// Scan reads one page of a table, optionally through an index.
	Scan(table string, opts ScanOptions) effect.Effect[Page]
}

// Writer is transactional document store access. A uniqueness violation
// on Insert or Patch resolves to the typed NOT_UNIQUE failure,
// distinguishable from any generic error.
type Writer interface {
	Reader

	// Insert stores a new document and resolves to its minted id.
	// The value is validated against the table's declared schema.
	Insert(table string, value wire.Object) effect.Effect[schema.DocID]

	// Patch merges fields into an existing document.
	Patch(id schema.DocID, patch wire.Object) effect.Effect[effect.Unit]

	// Delete removes a document. Deleting a missing document resolves to
	// the typed NOT_FOUND failure.
	Delete(id schema.DocID) effect.Effect[effect.Unit]
}

// Auth resolves the invocation's caller identity.
type Auth interface {
	// Identity resolves to nil when the invocation is unauthenticated.
	Identity() effect.Effect[*platform.Identity]
}

// StorageReader is read-only object storage access.
type StorageReader interface {
	Exists(id platform.FileID) effect.Effect[bool]
	// Metadata resolves to nil for unknown ids.
	Metadata(id platform.FileID) effect.Effect[*platform.FileMetadata]
	// URL resolves to a time-limited fetch URL for the object.
	URL(id platform.FileID) effect.Effect[string]
}

// Storage adds object storage writes.
type Storage interface {
	StorageReader

	Store(data []byte, contentType string) effect.Effect[platform.FileID]
	Remove(id platform.FileID) effect.Effect[effect.Unit]
}

// Scheduler enqueues future invocations. Write-only: a handler can
// schedule and cancel, never inspect.
type Scheduler interface {
	// RunAt schedules an invocation at an absolute time.
	RunAt(at time.Time, ref platform.FuncRef, args wire.Object) effect.Effect[platform.JobID]

	// RunAfter schedules an invocation relative to now.
	RunAfter(delay time.Duration, ref platform.FuncRef, args wire.Object) effect.Effect[platform.JobID]

	// Cancel withdraws a previously scheduled job.
	Cancel(id platform.JobID) effect.Effect[effect.Unit]
}

// QueryCaller runs registered queries from inside a handler.
type QueryCaller interface {
	RunQuery(ref platform.FuncRef, args wire.Object) effect.Effect[wire.Value]
}

// MutationCaller additionally runs registered mutations.
type MutationCaller interface {
	QueryCaller
	RunMutation(ref platform.FuncRef, args wire.Object) effect.Effect[wire.Value]
}

// ActionCaller additionally runs registered actions.
type ActionCaller interface {
	MutationCaller
	RunAction(ref platform.FuncRef, args wire.Object) effect.Effect[wire.Value]
}

// VectorSearch is similarity search over a named index, resolving to
// ranked ids with scores. Action-only.
type VectorSearch interface {
	Search(index string, vector []float32, limit int) effect.Effect[[]platform.VectorMatch]
}

// Package platform defines the raw invocation boundary: the untyped,
// per-invocation handles a host platform passes into compiled functions,
// and the leaf contract types those handles speak.
//
// Everything here is deliberately wire-shaped. The typed, capability-
// scoped view handlers program against lives in internal/capability; the
// factory in internal/funcs adapts one to the other per invocation.
package platform

import (
	"context"
	"time"

	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/wire"
)

// FuncRef names a registered function for cross-invocation calls and
// scheduled jobs.
type FuncRef string

// JobID is the handle of a scheduled job, usable for cancellation.
type JobID string

// FileID identifies a stored object in the platform's object storage.
type FileID string

// Identity is the resolved caller identity: the subject plus auxiliary
// claims. A nil *Identity means the invocation is unauthenticated.
type Identity struct {
	Subject string
	Issuer  string
	Claims  map[string]string
}

// FileMetadata describes a stored object.
type FileMetadata struct {
	ID          FileID
	Size        int64
	ContentType string
	SHA256      string
	CreatedAt   time.Time
}

// ScanRequest describes one page of an indexed scan.
// An empty Index scans the whole table in creation order. Equals
// constrains the indexed field when Index is set. Cursor continues a
// previous page; Limit caps the page size (0 means host default).
type ScanRequest struct {
	Index  string
	Equals wire.Value
	Cursor string
	Limit  int
}

// ScanResult is one page of documents. Documents carry their system
// fields ("_id", "_creationTime") alongside declared fields.
type ScanResult struct {
	Documents []wire.Object
	Cursor    string
	Done      bool
}

// VectorMatch is one ranked hit of a similarity search.
type VectorMatch struct {
	ID    schema.DocID
	Score float32
}

// Handle is the marker for raw invocation handles. A handle is scoped to
// exactly one invocation; compiled functions never retain one past the
// invocation's settlement.
type Handle interface {
	isHandle()
}

// HandleTag is embedded by host handle implementations to satisfy Handle.
type HandleTag struct{}

func (HandleTag) isHandle() {}

// IdentityOps resolves the invocation's caller identity.
type IdentityOps interface {
	UserIdentity(ctx context.Context) (*Identity, error)
}

// StoreReadOps is read access to the document store.
// Get returns wire.Null when no document has the id.
type StoreReadOps interface {
	Get(ctx context.Context, table string, id schema.DocID) (wire.Value, error)
	Scan(ctx context.Context, table string, req ScanRequest) (ScanResult, error)
}

// StoreWriteOps is write access to the document store, valid only inside
// the platform's transactional boundary.
type StoreWriteOps interface {
	Insert(ctx context.Context, table string, value wire.Object) (schema.DocID, error)
	Patch(ctx context.Context, id schema.DocID, patch wire.Object) error
	Delete(ctx context.Context, id schema.DocID) error
}

// StorageReadOps is read access to object storage.
type StorageReadOps interface {
	StorageExists(ctx context.Context, id FileID) (bool, error)
	StorageMetadata(ctx context.Context, id FileID) (*FileMetadata, error)
	StorageURL(ctx context.Context, id FileID) (string, error)
}

// StorageWriteOps is write access to object storage.
type StorageWriteOps interface {
	StorageStore(ctx context.Context, data []byte, contentType string) (FileID, error)
	StorageDelete(ctx context.Context, id FileID) error
}

// SchedulerOps enqueues future invocations. Write-only by design: there
// is no job introspection at this boundary, only enqueue and cancel.
type SchedulerOps interface {
	ScheduleAt(ctx context.Context, at time.Time, ref FuncRef, args wire.Value) (JobID, error)
	CancelJob(ctx context.Context, id JobID) error
}

// QueryCallOps invokes a registered query.
type QueryCallOps interface {
	RunQuery(ctx context.Context, ref FuncRef, args wire.Value) (wire.Value, error)
}

// MutationCallOps invokes a registered mutation.
type MutationCallOps interface {
	RunMutation(ctx context.Context, ref FuncRef, args wire.Value) (wire.Value, error)
}

// ActionCallOps invokes a registered action.
type ActionCallOps interface {
	RunAction(ctx context.Context, ref FuncRef, args wire.Value) (wire.Value, error)
}

// VectorOps is similarity search over a named index.
type VectorOps interface {
	VectorSearch(ctx context.Context, index string, vector []float32, limit int) ([]VectorMatch, error)
}

// QueryHandle is the raw handle for query invocations. It carries no
// write or schedule operations at all: the restriction is structural,
// not a runtime check.
type QueryHandle interface {
	Handle
	IdentityOps
	StoreReadOps
	StorageReadOps
	QueryCallOps
}

// MutationHandle is the raw handle for mutation invocations. It adds
// store writes, storage writes, and scheduling, but deliberately not
// RunAction or VectorSearch: actions can have externally visible side
// effects incompatible with the mutation's atomicity guarantee.
type MutationHandle interface {
	QueryHandle
	StoreWriteOps
	StorageWriteOps
	SchedulerOps
	MutationCallOps
}

// ActionHandle is the raw handle for action invocations. Actions run
// outside the transactional boundary, so there is no direct store access
// of any kind; reads and writes go through RunQuery/RunMutation.
type ActionHandle interface {
	Handle
	IdentityOps
	StorageReadOps
	StorageWriteOps
	SchedulerOps
	QueryCallOps
	MutationCallOps
	ActionCallOps
	VectorOps
}

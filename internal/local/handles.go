package local

import (
	"context"
	"time"

	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/funcs"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/store"
	"github.com/Makisuo/confect-plus/internal/wire"
)

// storeReader is satisfied by both the store and an open transaction,
// so queries called from a mutation observe the mutation's own writes.
type storeReader interface {
	Get(ctx context.Context, table string, id schema.DocID) (wire.Value, error)
	Scan(ctx context.Context, table string, req platform.ScanRequest) (platform.ScanResult, error)
}

// queryHandle is the raw handle behind query invocations.
type queryHandle struct {
	platform.HandleTag
	host  *Host
	ident *platform.Identity
	reads storeReader
}

func (q *queryHandle) UserIdentity(ctx context.Context) (*platform.Identity, error) {
	return q.ident, nil
}

func (q *queryHandle) Get(ctx context.Context, table string, id schema.DocID) (wire.Value, error) {
	return q.reads.Get(ctx, table, id)
}

func (q *queryHandle) Scan(ctx context.Context, table string, req platform.ScanRequest) (platform.ScanResult, error) {
	return q.reads.Scan(ctx, table, req)
}

func (q *queryHandle) StorageExists(ctx context.Context, id platform.FileID) (bool, error) {
	return q.host.storage.Exists(ctx, id)
}

func (q *queryHandle) StorageMetadata(ctx context.Context, id platform.FileID) (*platform.FileMetadata, error) {
	return q.host.storage.Metadata(ctx, id)
}

func (q *queryHandle) StorageURL(ctx context.Context, id platform.FileID) (string, error) {
	return q.host.storage.URL(ctx, id)
}

// RunQuery runs a sub-query against the same read view and identity as
// the caller, so a mutation's sub-queries see its uncommitted writes.
func (q *queryHandle) RunQuery(ctx context.Context, ref platform.FuncRef, args wire.Value) (wire.Value, error) {
	return q.host.call(ctx, ref, funcs.KindQuery, args, func(desc *funcs.Descriptor) (wire.Value, error) {
		sub := &queryHandle{host: q.host, ident: q.ident, reads: q.reads}
		return desc.Invoke(ctx, sub, args)
	})
}

// mutationHandle adds the transaction-scoped writes plus scheduling.
type mutationHandle struct {
	queryHandle
	txn *store.Txn
}

func (m *mutationHandle) Insert(ctx context.Context, table string, value wire.Object) (schema.DocID, error) {
	return m.txn.Insert(ctx, table, value)
}

func (m *mutationHandle) Patch(ctx context.Context, id schema.DocID, patch wire.Object) error {
	return m.txn.Patch(ctx, id, patch)
}

func (m *mutationHandle) Delete(ctx context.Context, id schema.DocID) error {
	return m.txn.Delete(ctx, id)
}

func (m *mutationHandle) StorageStore(ctx context.Context, data []byte, contentType string) (platform.FileID, error) {
	return m.host.storage.Store(ctx, data, contentType)
}

func (m *mutationHandle) StorageDelete(ctx context.Context, id platform.FileID) error {
	return m.host.storage.Delete(ctx, id)
}

func (m *mutationHandle) ScheduleAt(ctx context.Context, at time.Time, ref platform.FuncRef, args wire.Value) (platform.JobID, error) {
	return m.host.queue.Schedule(ctx, at, ref, args)
}

func (m *mutationHandle) CancelJob(ctx context.Context, id platform.JobID) error {
	return m.host.queue.Cancel(ctx, id)
}

// RunMutation joins the caller's transaction: a sub-mutation's writes
// commit or roll back with the parent, never on their own.
func (m *mutationHandle) RunMutation(ctx context.Context, ref platform.FuncRef, args wire.Value) (wire.Value, error) {
	return m.host.call(ctx, ref, funcs.KindMutation, args, func(desc *funcs.Descriptor) (wire.Value, error) {
		sub := &mutationHandle{
			queryHandle: queryHandle{host: m.host, ident: m.ident, reads: m.txn},
			txn:         m.txn,
		}
		return desc.Invoke(ctx, sub, args)
	})
}

// actionHandle is the raw handle behind action invocations: no direct
// store access, everything data-shaped goes through sub-invocations.
type actionHandle struct {
	platform.HandleTag
	host  *Host
	ident *platform.Identity
}

func (a *actionHandle) UserIdentity(ctx context.Context) (*platform.Identity, error) {
	return a.ident, nil
}

func (a *actionHandle) StorageExists(ctx context.Context, id platform.FileID) (bool, error) {
	return a.host.storage.Exists(ctx, id)
}

func (a *actionHandle) StorageMetadata(ctx context.Context, id platform.FileID) (*platform.FileMetadata, error) {
	return a.host.storage.Metadata(ctx, id)
}

func (a *actionHandle) StorageURL(ctx context.Context, id platform.FileID) (string, error) {
	return a.host.storage.URL(ctx, id)
}

func (a *actionHandle) StorageStore(ctx context.Context, data []byte, contentType string) (platform.FileID, error) {
	return a.host.storage.Store(ctx, data, contentType)
}

func (a *actionHandle) StorageDelete(ctx context.Context, id platform.FileID) error {
	return a.host.storage.Delete(ctx, id)
}

func (a *actionHandle) ScheduleAt(ctx context.Context, at time.Time, ref platform.FuncRef, args wire.Value) (platform.JobID, error) {
	return a.host.queue.Schedule(ctx, at, ref, args)
}

func (a *actionHandle) CancelJob(ctx context.Context, id platform.JobID) error {
	return a.host.queue.Cancel(ctx, id)
}

// settle drives a sub-invocation on its own goroutine through the
// promise bridge. Cancelling ctx abandons the await only: the
// sub-invocation keeps a detached context and settles independently.
func (a *actionHandle) settle(ctx context.Context, run func(context.Context) (wire.Value, error)) (wire.Value, error) {
	pending := effect.Async(context.WithoutCancel(ctx), effect.Func(run))
	return pending.Await(ctx)
}

func (a *actionHandle) RunQuery(ctx context.Context, ref platform.FuncRef, args wire.Value) (wire.Value, error) {
	return a.host.call(ctx, ref, funcs.KindQuery, args, func(desc *funcs.Descriptor) (wire.Value, error) {
		return a.settle(ctx, func(runCtx context.Context) (wire.Value, error) {
			sub := &queryHandle{host: a.host, ident: a.ident, reads: a.host.store}
			return desc.Invoke(runCtx, sub, args)
		})
	})
}

// RunMutation opens a fresh transaction per sub-mutation: an action is
// not transactional, so each mutation it runs commits independently,
// even when the awaiting action is abandoned mid-call.
func (a *actionHandle) RunMutation(ctx context.Context, ref platform.FuncRef, args wire.Value) (wire.Value, error) {
	return a.host.call(ctx, ref, funcs.KindMutation, args, func(desc *funcs.Descriptor) (wire.Value, error) {
		return a.settle(ctx, func(runCtx context.Context) (wire.Value, error) {
			txn, err := a.host.store.Begin(runCtx)
			if err != nil {
				return nil, err
			}
			sub := &mutationHandle{
				queryHandle: queryHandle{host: a.host, ident: a.ident, reads: txn},
				txn:         txn,
			}
			out, err := desc.Invoke(runCtx, sub, args)
			if err != nil {
				txn.Rollback()
				return nil, err
			}
			if err := txn.Commit(); err != nil {
				return nil, err
			}
			return out, nil
		})
	})
}

func (a *actionHandle) RunAction(ctx context.Context, ref platform.FuncRef, args wire.Value) (wire.Value, error) {
	return a.host.call(ctx, ref, funcs.KindAction, args, func(desc *funcs.Descriptor) (wire.Value, error) {
		return a.settle(ctx, func(runCtx context.Context) (wire.Value, error) {
			sub := &actionHandle{host: a.host, ident: a.ident}
			return desc.Invoke(runCtx, sub, args)
		})
	})
}

func (a *actionHandle) VectorSearch(ctx context.Context, index string, vector []float32, limit int) ([]platform.VectorMatch, error) {
	return a.host.vectors.Search(index, vector, limit)
}

var (
	_ platform.QueryHandle    = (*queryHandle)(nil)
	_ platform.MutationHandle = (*mutationHandle)(nil)
	_ platform.ActionHandle   = (*actionHandle)(nil)
)

package funcs

import (
	"context"
	"fmt"
	"time"

	"github.com/Makisuo/confect-plus/internal/capability"
	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/wire"
)

// QueryCtx is the capability bundle for query handlers: read-only store
// access, identity lookup, read-only storage, and query calls. There is
// no scheduler and no write capability of any kind - the restriction is
// carried by the bundle's shape, not checked at runtime.
//
// Bundles are built fresh per invocation, owned exclusively by that
// invocation, and discarded when it settles.
type QueryCtx struct {
	DB      capability.Reader
	Auth    capability.Auth
	Storage capability.StorageReader
	Caller  capability.QueryCaller
}

// MutationCtx is the capability bundle for mutation handlers. It adds
// store and storage writes plus the scheduler, and deliberately omits
// RunAction and vector search.
type MutationCtx struct {
	DB        capability.Writer
	Auth      capability.Auth
	Storage   capability.Storage
	Scheduler capability.Scheduler
	Caller    capability.MutationCaller
}

// ActionCtx is the capability bundle for action handlers: no direct
// store access (actions run outside the transactional boundary), full
// storage, scheduler, all three cross-invocation calls, and vector
// search.
type ActionCtx struct {
	Auth      capability.Auth
	Storage   capability.Storage
	Scheduler capability.Scheduler
	Caller    capability.ActionCaller
	Vector    capability.VectorSearch
}

// NewQueryCtx builds the query bundle over a raw handle. Construction
// performs no platform operation; every capability method defers its
// platform call until the returned effect is driven.
func NewQueryCtx(h platform.QueryHandle, tables *schema.Tables) *QueryCtx {
	return &QueryCtx{
		DB:      &readerAdapter{ops: h, tables: tables},
		Auth:    &authAdapter{ops: h},
		Storage: &storageReadAdapter{ops: h},
		Caller:  &callerAdapter{query: h},
	}
}

// NewMutationCtx builds the mutation bundle over a raw handle.
func NewMutationCtx(h platform.MutationHandle, tables *schema.Tables) *MutationCtx {
	return &MutationCtx{
		DB: &writerAdapter{
			readerAdapter: readerAdapter{ops: h, tables: tables},
			writes:        h,
		},
		Auth:      &authAdapter{ops: h},
		Storage:   &storageAdapter{storageReadAdapter: storageReadAdapter{ops: h}, writes: h},
		Scheduler: &schedulerAdapter{ops: h},
		Caller:    &callerAdapter{query: h, mutation: h},
	}
}

// NewActionCtx builds the action bundle over a raw handle. Actions never
// see the entity schema set: they have no direct store access to decode
// entities with.
func NewActionCtx(h platform.ActionHandle) *ActionCtx {
	return &ActionCtx{
		Auth:      &authAdapter{ops: h},
		Storage:   &storageAdapter{storageReadAdapter: storageReadAdapter{ops: h}, writes: h},
		Scheduler: &schedulerAdapter{ops: h},
		Caller:    &callerAdapter{query: h, mutation: h, action: h},
		Vector:    &vectorAdapter{ops: h},
	}
}

// documentFromWire parses a raw stored document (system fields plus
// declared fields) into a capability.Document. A stored document missing
// its system fields is a boundary contract violation.
func documentFromWire(w wire.Value) (capability.Document, error) {
	obj, ok := w.(wire.Object)
	if !ok {
		return capability.Document{}, fmt.Errorf("stored document is %T, not an object", w)
	}
	id, ok := obj["_id"].(wire.String)
	if !ok {
		return capability.Document{}, fmt.Errorf("stored document missing _id")
	}
	created, ok := obj["_creationTime"].(wire.Int)
	if !ok {
		return capability.Document{}, fmt.Errorf("stored document %s missing _creationTime", id)
	}

	fields := make(wire.Object, len(obj))
	for k, v := range obj {
		if k == "_id" || k == "_creationTime" {
			continue
		}
		fields[k] = v
	}
	return capability.Document{
		ID:           schema.DocID(id),
		CreationTime: time.UnixMilli(int64(created)).UTC(),
		Fields:       fields,
	}, nil
}

// readerAdapter adapts raw store reads to the typed Reader contract.
type readerAdapter struct {
	ops    platform.StoreReadOps
	tables *schema.Tables
}

func (r *readerAdapter) checkTable(table, index string) error {
	tbl, ok := r.tables.Lookup(table)
	if !ok {
		return effect.Defectf("undeclared table %q", table)
	}
	if index == "" {
		return nil
	}
	for _, idx := range tbl.Indexes {
		if idx.Name == index {
			return nil
		}
	}
	return effect.Defectf("table %q has no index %q", table, index)
}

func (r *readerAdapter) Get(table string, id schema.DocID) effect.Effect[*capability.Document] {
	return effect.Func(func(ctx context.Context) (*capability.Document, error) {
		if err := r.checkTable(table, ""); err != nil {
			return nil, err
		}
		raw, err := r.ops.Get(ctx, table, id)
		if err != nil {
			return nil, fmt.Errorf("get %s/%s: %w", table, id, err)
		}
		if _, isNull := raw.(wire.Null); isNull || raw == nil {
			return nil, nil
		}
		doc, err := documentFromWire(raw)
		if err != nil {
			return nil, effect.NewDefect(err)
		}
		return &doc, nil
	})
}

func (r *readerAdapter) Scan(table string, opts capability.ScanOptions) effect.Effect[capability.Page] {
	return effect.Func(func(ctx context.Context) (capability.Page, error) {
		if err := r.checkTable(table, opts.Index); err != nil {
			return capability.Page{}, err
		}
		res, err := r.ops.Scan(ctx, table, platform.ScanRequest{
			Index:  opts.Index,
			Equals: opts.Equals,
			Cursor: opts.Cursor,
			Limit:  opts.Limit,
		})
		if err != nil {
			return capability.Page{}, fmt.Errorf("scan %s: %w", table, err)
		}
		page := capability.Page{
			Documents: make([]capability.Document, len(res.Documents)),
			Cursor:    res.Cursor,
			Done:      res.Done,
		}
		for i, raw := range res.Documents {
			doc, err := documentFromWire(raw)
			if err != nil {
				return capability.Page{}, effect.NewDefect(err)
			}
			page.Documents[i] = doc
		}
		return page, nil
	})
}

// writerAdapter adds transactional writes. Insert and Patch validate the
// value against the table's declared schema first: a handler writing a
// document that violates its own schema is a programming bug, surfaced
// as a defect, never stored.
type writerAdapter struct {
	readerAdapter
	writes platform.StoreWriteOps
}

func (w *writerAdapter) Insert(table string, value wire.Object) effect.Effect[schema.DocID] {
	return effect.Func(func(ctx context.Context) (schema.DocID, error) {
		if err := w.checkTable(table, ""); err != nil {
			return "", err
		}
		v, _ := w.tables.Validator(table)
		if err := v.Validate(value); err != nil {
			return "", effect.Defectf("insert into %q: %v", table, err)
		}
		id, err := w.writes.Insert(ctx, table, value)
		if err != nil {
			return "", fmt.Errorf("insert into %q: %w", table, err)
		}
		return id, nil
	})
}

func (w *writerAdapter) Patch(id schema.DocID, patch wire.Object) effect.Effect[effect.Unit] {
	return effect.Func(func(ctx context.Context) (effect.Unit, error) {
		if err := w.writes.Patch(ctx, id, patch); err != nil {
			return effect.Unit{}, fmt.Errorf("patch %s: %w", id, err)
		}
		return effect.Unit{}, nil
	})
}

func (w *writerAdapter) Delete(id schema.DocID) effect.Effect[effect.Unit] {
	return effect.Func(func(ctx context.Context) (effect.Unit, error) {
		if err := w.writes.Delete(ctx, id); err != nil {
			return effect.Unit{}, fmt.Errorf("delete %s: %w", id, err)
		}
		return effect.Unit{}, nil
	})
}

type authAdapter struct {
	ops platform.IdentityOps
}

func (a *authAdapter) Identity() effect.Effect[*platform.Identity] {
	return effect.Func(func(ctx context.Context) (*platform.Identity, error) {
		ident, err := a.ops.UserIdentity(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve identity: %w", err)
		}
		return ident, nil
	})
}

type storageReadAdapter struct {
	ops platform.StorageReadOps
}

func (s *storageReadAdapter) Exists(id platform.FileID) effect.Effect[bool] {
	return effect.Func(func(ctx context.Context) (bool, error) {
		return s.ops.StorageExists(ctx, id)
	})
}

func (s *storageReadAdapter) Metadata(id platform.FileID) effect.Effect[*platform.FileMetadata] {
	return effect.Func(func(ctx context.Context) (*platform.FileMetadata, error) {
		return s.ops.StorageMetadata(ctx, id)
	})
}

func (s *storageReadAdapter) URL(id platform.FileID) effect.Effect[string] {
	return effect.Func(func(ctx context.Context) (string, error) {
		return s.ops.StorageURL(ctx, id)
	})
}

type storageAdapter struct {
	storageReadAdapter
	writes platform.StorageWriteOps
}

func (s *storageAdapter) Store(data []byte, contentType string) effect.Effect[platform.FileID] {
	return effect.Func(func(ctx context.Context) (platform.FileID, error) {
		return s.writes.StorageStore(ctx, data, contentType)
	})
}

func (s *storageAdapter) Remove(id platform.FileID) effect.Effect[effect.Unit] {
	return effect.Func(func(ctx context.Context) (effect.Unit, error) {
		if err := s.writes.StorageDelete(ctx, id); err != nil {
			return effect.Unit{}, err
		}
		return effect.Unit{}, nil
	})
}

type schedulerAdapter struct {
	ops platform.SchedulerOps
}

func (s *schedulerAdapter) RunAt(at time.Time, ref platform.FuncRef, args wire.Object) effect.Effect[platform.JobID] {
	return effect.Func(func(ctx context.Context) (platform.JobID, error) {
		return s.ops.ScheduleAt(ctx, at, ref, args)
	})
}

func (s *schedulerAdapter) RunAfter(delay time.Duration, ref platform.FuncRef, args wire.Object) effect.Effect[platform.JobID] {
	return effect.Func(func(ctx context.Context) (platform.JobID, error) {
		// The absolute time is computed when the effect is driven, not
		// when it is described.
		return s.ops.ScheduleAt(ctx, time.Now().Add(delay), ref, args)
	})
}

func (s *schedulerAdapter) Cancel(id platform.JobID) effect.Effect[effect.Unit] {
	return effect.Func(func(ctx context.Context) (effect.Unit, error) {
		if err := s.ops.CancelJob(ctx, id); err != nil {
			return effect.Unit{}, err
		}
		return effect.Unit{}, nil
	})
}

// callerAdapter exposes exactly the cross-invocation calls the bundle's
// kind allows; the unused fields stay nil and unreachable through the
// bundle's interface type.
type callerAdapter struct {
	query    platform.QueryCallOps
	mutation platform.MutationCallOps
	action   platform.ActionCallOps
}

func (c *callerAdapter) RunQuery(ref platform.FuncRef, args wire.Object) effect.Effect[wire.Value] {
	return effect.Func(func(ctx context.Context) (wire.Value, error) {
		return c.query.RunQuery(ctx, ref, args)
	})
}

func (c *callerAdapter) RunMutation(ref platform.FuncRef, args wire.Object) effect.Effect[wire.Value] {
	return effect.Func(func(ctx context.Context) (wire.Value, error) {
		return c.mutation.RunMutation(ctx, ref, args)
	})
}

func (c *callerAdapter) RunAction(ref platform.FuncRef, args wire.Object) effect.Effect[wire.Value] {
	return effect.Func(func(ctx context.Context) (wire.Value, error) {
		return c.action.RunAction(ctx, ref, args)
	})
}

type vectorAdapter struct {
	ops platform.VectorOps
}

func (v *vectorAdapter) Search(index string, vector []float32, limit int) effect.Effect[[]platform.VectorMatch] {
	return effect.Func(func(ctx context.Context) ([]platform.VectorMatch, error) {
		return v.ops.VectorSearch(ctx, index, vector, limit)
	})
}

// Package local is the single-process host platform: it wires the
// document store, job queue, object storage, vector indexes, and
// identity provider into the raw handles compiled functions run
// against, and drives the public invocation surface.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Makisuo/confect-plus/internal/blob"
	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/funcs"
	"github.com/Makisuo/confect-plus/internal/identity"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/sched"
	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/store"
	"github.com/Makisuo/confect-plus/internal/vecindex"
	"github.com/Makisuo/confect-plus/internal/wire"
)

// Config assembles a host.
type Config struct {
	// DataDir holds the SQLite databases (store.db, jobs.db).
	DataDir string
	// Tables is the deployment's entity schema set.
	Tables *schema.Tables
	// VectorIndexes declares the named similarity indexes.
	VectorIndexes []string
	// Identity resolves invocation tokens; nil means every invocation
	// is unauthenticated.
	Identity identity.Provider
	// Storage is the object store; nil means in-memory.
	Storage blob.Storage

	// StoreOptions and QueueOptions pass through to the underlying
	// stores, mainly for deterministic ids and clocks in tests.
	StoreOptions []store.Option
	QueueOptions []sched.Option
}

// Host is one running deployment.
type Host struct {
	registry *funcs.Registry
	store    *store.Store
	queue    *sched.Queue
	storage  blob.Storage
	vectors  *vecindex.Set
	idents   identity.Provider
}

// New opens the host's stores and prepares an empty function registry.
func New(cfg Config) (*Host, error) {
	if cfg.Tables == nil {
		return nil, fmt.Errorf("local: nil entity schema set")
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("local: empty data dir")
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "store.db"), cfg.Tables, cfg.StoreOptions...)
	if err != nil {
		return nil, fmt.Errorf("local: %w", err)
	}
	q, err := sched.Open(filepath.Join(cfg.DataDir, "jobs.db"), cfg.QueueOptions...)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("local: %w", err)
	}

	storage := cfg.Storage
	if storage == nil {
		storage = blob.NewMemory()
	}

	return &Host{
		registry: funcs.NewRegistry(),
		store:    st,
		queue:    q,
		storage:  storage,
		vectors:  vecindex.NewSet(cfg.VectorIndexes...),
		idents:   cfg.Identity,
	}, nil
}

// Close releases the host's stores.
func (h *Host) Close() error {
	return errors.Join(h.store.Close(), h.queue.Close())
}

// Registry is the host's function registry; register descriptors here
// before invoking.
func (h *Host) Registry() *funcs.Registry {
	return h.registry
}

// Vectors exposes the similarity indexes for out-of-band population.
func (h *Host) Vectors() *vecindex.Set {
	return h.vectors
}

// Storage exposes the object store.
func (h *Host) Storage() blob.Storage {
	return h.storage
}

// Queue exposes the job queue, mainly for introspection in tests.
func (h *Host) Queue() *sched.Queue {
	return h.queue
}

// Store exposes the document store for out-of-band inspection, such as
// conformance assertions over final state.
func (h *Host) Store() *store.Store {
	return h.store
}

// Invoke is the public invocation surface: resolve the caller's
// identity from the token, check the function exists and is public,
// validate the raw arguments, then dispatch by kind.
//
// Internal functions are invisible here - asking for one fails exactly
// like asking for a function that does not exist.
func (h *Host) Invoke(ctx context.Context, ref platform.FuncRef, token string, args wire.Value) (wire.Value, error) {
	desc, ok := h.registry.Lookup(string(ref))
	if !ok || desc.Visibility != funcs.Public {
		return nil, effect.Failf(effect.CodeNotFound, "no function %q", ref)
	}

	if args == nil {
		args = wire.NewObject()
	}
	if err := desc.Args.Validate(args); err != nil {
		return nil, effect.Failf(effect.CodeBadRequest, "%s: invalid arguments: %v", ref, err)
	}

	ident, err := h.resolveIdentity(ctx, token)
	if err != nil {
		return nil, err
	}

	slog.Debug("invoking function", "ref", ref, "kind", desc.Kind)
	out, err := h.dispatch(ctx, desc, ident, args)
	if err != nil {
		slog.Warn("invocation settled with error", "ref", ref, "error", err)
		return nil, err
	}
	slog.Debug("invocation settled", "ref", ref)
	return out, nil
}

func (h *Host) resolveIdentity(ctx context.Context, token string) (*platform.Identity, error) {
	if h.idents == nil {
		return nil, nil
	}
	ident, err := h.idents.Resolve(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	return ident, nil
}

// dispatch runs a resolved descriptor under the right handle kind.
// Mutations get one transaction for all their writes: commit on
// success, rollback on any error.
func (h *Host) dispatch(ctx context.Context, desc *funcs.Descriptor, ident *platform.Identity, args wire.Value) (wire.Value, error) {
	switch desc.Kind {
	case funcs.KindQuery:
		handle := &queryHandle{host: h, ident: ident, reads: h.store}
		return desc.Invoke(ctx, handle, args)

	case funcs.KindMutation:
		txn, err := h.store.Begin(ctx)
		if err != nil {
			return nil, err
		}
		handle := &mutationHandle{
			queryHandle: queryHandle{host: h, ident: ident, reads: txn},
			txn:         txn,
		}
		out, err := desc.Invoke(ctx, handle, args)
		if err != nil {
			txn.Rollback()
			return nil, err
		}
		if err := txn.Commit(); err != nil {
			return nil, fmt.Errorf("commit %s: %w", desc.Name, err)
		}
		return out, nil

	case funcs.KindAction:
		handle := &actionHandle{host: h, ident: ident}
		return desc.Invoke(ctx, handle, args)

	default:
		return nil, effect.Defectf("unknown function kind %q", desc.Kind)
	}
}

// call resolves and runs a registered function on behalf of another
// invocation. Visibility is not checked: internal functions exist
// precisely for these calls.
func (h *Host) call(ctx context.Context, ref platform.FuncRef, kind funcs.Kind, args wire.Value, invoke func(*funcs.Descriptor) (wire.Value, error)) (wire.Value, error) {
	desc, err := h.registry.Resolve(ref, kind)
	if err != nil {
		return nil, effect.Failf(effect.CodeNotFound, "%v", err)
	}
	if args == nil {
		args = wire.NewObject()
	}
	if err := desc.Args.Validate(args); err != nil {
		return nil, effect.Failf(effect.CodeBadRequest, "%s: invalid arguments: %v", ref, err)
	}
	return invoke(desc)
}

package funcs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/wire"
)

// InvokeFunc is a compiled invocation entry point. It receives the raw
// per-invocation handle and the raw arguments, and settles with the raw
// return value or an error (a typed *effect.Failure or an
// *effect.Defect, nothing else).
type InvokeFunc func(ctx context.Context, h platform.Handle, rawArgs wire.Value) (wire.Value, error)

// Descriptor is the unit the platform registration primitive consumes:
// compiled argument and return validators plus the invocation entry
// point.
//
// Descriptors are constructed once at module load by the per-kind
// compilers, invoked many times by the platform runtime, and never
// mutated after construction.
type Descriptor struct {
	Name       string
	Kind       Kind
	Visibility Visibility

	// Args and Returns are the platform-native validators the host runs
	// before and after Invoke.
	Args    *schema.Validator
	Returns *schema.Validator

	// Invoke is the compiled entry point.
	Invoke InvokeFunc
}

// Ref returns the function reference other invocations and scheduled
// jobs use to name this function.
func (d *Descriptor) Ref() platform.FuncRef {
	return platform.FuncRef(d.Name)
}

// Registry is the process-wide descriptor set. Registration happens at
// startup; afterwards the registry is read-only and safe for concurrent
// lookups.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Descriptor)}
}

// Register adds a descriptor. Duplicate names and nil descriptors are
// errors: every function reference must resolve unambiguously.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil {
		return fmt.Errorf("register: nil descriptor")
	}
	if d.Name == "" {
		return fmt.Errorf("register: descriptor with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[d.Name]; dup {
		return fmt.Errorf("register: duplicate function %q", d.Name)
	}
	r.byName[d.Name] = d
	return nil
}

// RegisterQuery registers a query descriptor, rejecting other kinds.
// The per-kind registration primitives are thin pass-throughs; they
// exist so a declaration site states its kind twice only when the two
// statements can be checked against each other.
func (r *Registry) RegisterQuery(d *Descriptor) error {
	return r.registerKind(d, KindQuery)
}

// RegisterMutation registers a mutation descriptor.
func (r *Registry) RegisterMutation(d *Descriptor) error {
	return r.registerKind(d, KindMutation)
}

// RegisterAction registers an action descriptor.
func (r *Registry) RegisterAction(d *Descriptor) error {
	return r.registerKind(d, KindAction)
}

func (r *Registry) registerKind(d *Descriptor, kind Kind) error {
	if d != nil && d.Kind != kind {
		return fmt.Errorf("register: %q is a %s, not a %s", d.Name, d.Kind, kind)
	}
	return r.Register(d)
}

// MustRegister registers descriptors, panicking on error. Intended for
// module-load-time declaration blocks.
func (r *Registry) MustRegister(ds ...*Descriptor) {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Lookup resolves a function by name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// Resolve resolves a function reference, restricted to a kind.
func (r *Registry) Resolve(ref platform.FuncRef, kind Kind) (*Descriptor, error) {
	d, ok := r.Lookup(string(ref))
	if !ok {
		return nil, fmt.Errorf("unknown function %q", ref)
	}
	if d.Kind != kind {
		return nil, fmt.Errorf("function %q is a %s, not a %s", ref, d.Kind, kind)
	}
	return d, nil
}

// Names returns registered function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

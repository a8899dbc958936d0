package schema

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/Makisuo/confect-plus/internal/wire"
)

// Validator is a compiled platform-native validator: the structural check
// the platform applies to raw arguments before calling in, and to raw
// returns on the way out.
//
// Validators are compiled once per function descriptor at module load and
// are safe for concurrent use afterwards.
type Validator struct {
	typ    Type
	source string

	// The CUE evaluator context is not documented as goroutine-safe, so
	// concurrent invocations serialize on mu.
	mu     sync.Mutex
	cctx   *cue.Context
	schema cue.Value
}

// Compile lowers a schema description to a platform validator.
// Compilation is total and deterministic: the same Type always produces
// the same validator source.
func Compile(t Type) (*Validator, error) {
	src := t.Source()
	cctx := cuecontext.New()
	schema := cctx.CompileString(src)
	if err := schema.Err(); err != nil {
		return nil, &CompileError{
			Source:  src,
			Message: cueerrors.Details(err, nil),
		}
	}
	return &Validator{typ: t, source: src, cctx: cctx, schema: schema}, nil
}

// MustCompile is Compile that panics on error, for declarations whose
// schemas are static program text.
func MustCompile(t Type) *Validator {
	v, err := Compile(t)
	if err != nil {
		panic(err)
	}
	return v
}

// Type returns the schema description the validator was compiled from.
func (v *Validator) Type() Type { return v.typ }

// Source returns the compiled validator source.
func (v *Validator) Source() string { return v.source }

// Validate checks a wire value against the schema. A nil error means the
// value is structurally admissible.
func (v *Validator) Validate(w wire.Value) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	var enc cue.Value
	if _, isNull := w.(wire.Null); isNull || w == nil {
		enc = v.cctx.CompileString("null")
	} else {
		enc = v.cctx.Encode(wire.ToGo(w))
	}
	if err := enc.Err(); err != nil {
		return &ValidationError{
			Source:  v.source,
			Message: fmt.Sprintf("value not encodable: %v", err),
		}
	}

	unified := v.schema.Unify(enc)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return &ValidationError{
			Source:  v.source,
			Message: cueerrors.Details(err, nil),
		}
	}
	return nil
}

// CompileError reports a schema description that could not be lowered.
type CompileError struct {
	Source  string
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile validator %s: %s", e.Source, e.Message)
}

// ValidationError reports a wire value rejected by a validator.
type ValidationError struct {
	Source  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("value does not match %s: %s", e.Source, e.Message)
}

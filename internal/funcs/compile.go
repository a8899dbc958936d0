package funcs

import (
	"context"
	"fmt"

	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/wire"
)

// QueryDef declares a query: independent argument and return codecs plus
// a handler. The handler is a pure description - it is not executed
// until the compiled descriptor is invoked with a concrete raw handle.
type QueryDef[A, R any] struct {
	Name       string
	Visibility Visibility
	Args       schema.Codec[A]
	Returns    schema.Codec[R]
	Handler    func(c *QueryCtx, args A) effect.Effect[R]
}

// MutationDef declares a mutation.
type MutationDef[A, R any] struct {
	Name       string
	Visibility Visibility
	Args       schema.Codec[A]
	Returns    schema.Codec[R]
	Handler    func(c *MutationCtx, args A) effect.Effect[R]
}

// ActionDef declares an action.
type ActionDef[A, R any] struct {
	Name       string
	Visibility Visibility
	Args       schema.Codec[A]
	Returns    schema.Codec[R]
	Handler    func(c *ActionCtx, args A) effect.Effect[R]
}

// Query compiles a query declaration into a platform-ready descriptor.
//
// Validators are compiled once, here. Each invocation then runs the full
// pipeline uniformly - decode, bundle construction, handler execution,
// encode - with no shortcut path for trivial handlers.
func Query[A, R any](tables *schema.Tables, def QueryDef[A, R]) (*Descriptor, error) {
	if def.Handler == nil {
		return nil, fmt.Errorf("compile query %q: missing handler", def.Name)
	}
	base, err := compileCommon(def.Name, KindQuery, def.Visibility, def.Args, def.Returns)
	if err != nil {
		return nil, err
	}
	base.Invoke = func(ctx context.Context, h platform.Handle, rawArgs wire.Value) (wire.Value, error) {
		qh, ok := h.(platform.QueryHandle)
		if !ok {
			return nil, effect.Defectf("%s: handle %T is not a query handle", def.Name, h)
		}
		return runPipeline(ctx, def.Name, def.Args, def.Returns, base.Returns, rawArgs,
			func(args A) effect.Effect[R] {
				return def.Handler(NewQueryCtx(qh, tables), args)
			})
	}
	return base, nil
}

// Mutation compiles a mutation declaration into a platform-ready
// descriptor.
func Mutation[A, R any](tables *schema.Tables, def MutationDef[A, R]) (*Descriptor, error) {
	if def.Handler == nil {
		return nil, fmt.Errorf("compile mutation %q: missing handler", def.Name)
	}
	base, err := compileCommon(def.Name, KindMutation, def.Visibility, def.Args, def.Returns)
	if err != nil {
		return nil, err
	}
	base.Invoke = func(ctx context.Context, h platform.Handle, rawArgs wire.Value) (wire.Value, error) {
		mh, ok := h.(platform.MutationHandle)
		if !ok {
			return nil, effect.Defectf("%s: handle %T is not a mutation handle", def.Name, h)
		}
		return runPipeline(ctx, def.Name, def.Args, def.Returns, base.Returns, rawArgs,
			func(args A) effect.Effect[R] {
				return def.Handler(NewMutationCtx(mh, tables), args)
			})
	}
	return base, nil
}

// Action compiles an action declaration into a platform-ready
// descriptor. Actions take no entity schema set: they have no direct
// store access to use it with.
func Action[A, R any](def ActionDef[A, R]) (*Descriptor, error) {
	if def.Handler == nil {
		return nil, fmt.Errorf("compile action %q: missing handler", def.Name)
	}
	base, err := compileCommon(def.Name, KindAction, def.Visibility, def.Args, def.Returns)
	if err != nil {
		return nil, err
	}
	base.Invoke = func(ctx context.Context, h platform.Handle, rawArgs wire.Value) (wire.Value, error) {
		ah, ok := h.(platform.ActionHandle)
		if !ok {
			return nil, effect.Defectf("%s: handle %T is not an action handle", def.Name, h)
		}
		return runPipeline(ctx, def.Name, def.Args, def.Returns, base.Returns, rawArgs,
			func(args A) effect.Effect[R] {
				return def.Handler(NewActionCtx(ah), args)
			})
	}
	return base, nil
}

// MustQuery is Query that panics on error, for module-load declarations.
func MustQuery[A, R any](tables *schema.Tables, def QueryDef[A, R]) *Descriptor {
	d, err := Query(tables, def)
	if err != nil {
		panic(err)
	}
	return d
}

// MustMutation is Mutation that panics on error.
func MustMutation[A, R any](tables *schema.Tables, def MutationDef[A, R]) *Descriptor {
	d, err := Mutation(tables, def)
	if err != nil {
		panic(err)
	}
	return d
}

// MustAction is Action that panics on error.
func MustAction[A, R any](def ActionDef[A, R]) *Descriptor {
	d, err := Action(def)
	if err != nil {
		panic(err)
	}
	return d
}

// compileCommon validates the declaration and compiles both validators.
func compileCommon[A, R any](name string, kind Kind, vis Visibility, args schema.Codec[A], returns schema.Codec[R]) (*Descriptor, error) {
	if name == "" {
		return nil, fmt.Errorf("compile %s: empty name", kind)
	}
	if args == nil || returns == nil {
		return nil, fmt.Errorf("compile %s %q: missing args or returns codec", kind, name)
	}
	visibility, err := ValidateVisibility(vis)
	if err != nil {
		return nil, fmt.Errorf("compile %s %q: %w", kind, name, err)
	}

	argsValidator, err := schema.Compile(args.Type())
	if err != nil {
		return nil, fmt.Errorf("compile %s %q args: %w", kind, name, err)
	}
	returnsValidator, err := schema.Compile(returns.Type())
	if err != nil {
		return nil, fmt.Errorf("compile %s %q returns: %w", kind, name, err)
	}

	return &Descriptor{
		Name:       name,
		Kind:       kind,
		Visibility: visibility,
		Args:       argsValidator,
		Returns:    returnsValidator,
	}, nil
}

// runPipeline is the per-call invocation pipeline shared by all kinds:
// decode raw args (defect on failure - the platform already validated
// them, so a decode failure is an internal schema mismatch, not user
// error), run the handler's effect, then encode and re-validate the
// result (defect on failure - a handler return violating its declared
// schema is a bug, never a typed failure).
func runPipeline[A, R any](
	ctx context.Context,
	name string,
	args schema.Codec[A],
	returns schema.Codec[R],
	returnsValidator *schema.Validator,
	rawArgs wire.Value,
	handle func(A) effect.Effect[R],
) (wire.Value, error) {
	decoded, err := args.Decode(rawArgs)
	if err != nil {
		return nil, effect.Defectf("%s: decode args: %v", name, err)
	}

	result, err := handle(decoded).Run(ctx)
	if err != nil {
		// Run already classified: *Failure or *Defect, nothing else.
		return nil, err
	}

	encoded, err := returns.Encode(result)
	if err != nil {
		return nil, effect.Defectf("%s: encode return: %v", name, err)
	}
	if err := returnsValidator.Validate(encoded); err != nil {
		return nil, effect.Defectf("%s: return violates declared schema: %v", name, err)
	}
	return encoded, nil
}

// Package effect provides deferred effect descriptions and the executor
// that drives them.
//
// An Effect[A] is a pure description of effectful work producing an A.
// Constructing or combining effects performs nothing; only Run executes
// the description. Failures are split into two disjoint channels: typed
// Failure values that handlers declare and callers can recover from, and
// Defects (contract violations, panics, undeclared errors) that abort the
// invocation unconditionally.
package effect

import (
	"context"
	"fmt"
)

// Unit is the result type of effects run only for their side effects.
type Unit struct{}

// Effect is a deferred description of effectful work producing an A.
//
// The zero value is invalid; construct effects with Succeed, FailWith,
// Die, or Func. Effects are values: immutable, reusable, and safe to
// share. Each Run drives an independent execution.
type Effect[A any] struct {
	run func(ctx context.Context) (A, error)
}

// Succeed lifts a pure value into an effect.
func Succeed[A any](a A) Effect[A] {
	return Effect[A]{run: func(context.Context) (A, error) {
		return a, nil
	}}
}

// Done is the unit success effect.
func Done() Effect[Unit] {
	return Succeed(Unit{})
}

// FailWith lifts a typed failure into an effect.
func FailWith[A any](f *Failure) Effect[A] {
	return Effect[A]{run: func(context.Context) (A, error) {
		var zero A
		return zero, f
	}}
}

// Die lifts an unrecoverable cause into an effect. The resulting effect
// always aborts with a Defect.
func Die[A any](cause error) Effect[A] {
	return Effect[A]{run: func(context.Context) (A, error) {
		var zero A
		return zero, NewDefect(cause)
	}}
}

// Func lifts a function into a deferred effect. The function is not
// called until the effect is driven; each Run calls it again.
//
// This is the bridge for platform operations: a capability method builds
// its effect with Func so that constructing a capability bundle never
// touches the platform.
func Func[A any](f func(ctx context.Context) (A, error)) Effect[A] {
	return Effect[A]{run: f}
}

// Run drives the effect to completion and observes the outcome.
//
// Run is the only executor: it converts panics to Defects and applies
// Classify so every returned error is either a *Failure or a *Defect.
// The context bounds the execution; platform operations lifted with Func
// receive it directly.
func (e Effect[A]) Run(ctx context.Context) (a A, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Defectf("panic in effect: %v", r)
		}
	}()
	a, err = e.exec(ctx)
	if err != nil {
		err = Classify(err)
		var zero A
		a = zero
	}
	return a, err
}

// exec executes without boundary classification. Combinators use exec so
// that classification and panic recovery happen exactly once, in Run.
func (e Effect[A]) exec(ctx context.Context) (A, error) {
	if e.run == nil {
		var zero A
		return zero, Defectf("uninitialized effect")
	}
	if err := ctx.Err(); err != nil {
		var zero A
		return zero, fmt.Errorf("context cancelled: %w", err)
	}
	return e.run(ctx)
}

package effect

import "context"

// Map transforms the success value of an effect with a pure function.
func Map[A, B any](e Effect[A], f func(A) B) Effect[B] {
	return Effect[B]{run: func(ctx context.Context) (B, error) {
		a, err := e.exec(ctx)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a), nil
	}}
}

// FlatMap sequences two effects: the second is described in terms of the
// first's result. Failure short-circuits.
func FlatMap[A, B any](e Effect[A], f func(A) Effect[B]) Effect[B] {
	return Effect[B]{run: func(ctx context.Context) (B, error) {
		a, err := e.exec(ctx)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a).exec(ctx)
	}}
}

// AndThen sequences two effects, discarding the first's result.
func AndThen[A, B any](e Effect[A], next Effect[B]) Effect[B] {
	return FlatMap(e, func(A) Effect[B] { return next })
}

// Zip runs two effects in sequence and pairs their results.
func Zip[A, B any](ea Effect[A], eb Effect[B]) Effect[Pair[A, B]] {
	return FlatMap(ea, func(a A) Effect[Pair[A, B]] {
		return Map(eb, func(b B) Pair[A, B] {
			return Pair[A, B]{First: a, Second: b}
		})
	})
}

// Pair holds the results of two zipped effects.
type Pair[A, B any] struct {
	First  A
	Second B
}

// All runs effects in order and collects their results.
// The first failure aborts the remainder.
func All[A any](effects []Effect[A]) Effect[[]A] {
	return Effect[[]A]{run: func(ctx context.Context) ([]A, error) {
		out := make([]A, 0, len(effects))
		for _, e := range effects {
			a, err := e.exec(ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}
		return out, nil
	}}
}

// Catch intercepts a typed failure with a specific code. Other failures,
// defects, and successes pass through untouched. Defects are never
// catchable: a contract violation must abort the invocation.
func Catch[A any](e Effect[A], code Code, handler func(*Failure) Effect[A]) Effect[A] {
	return CatchAll(e, func(f *Failure) Effect[A] {
		if f.Code != code {
			return FailWith[A](f)
		}
		return handler(f)
	})
}

// CatchAll intercepts any typed failure. Defects pass through.
func CatchAll[A any](e Effect[A], handler func(*Failure) Effect[A]) Effect[A] {
	return Effect[A]{run: func(ctx context.Context) (A, error) {
		a, err := e.exec(ctx)
		if err == nil {
			return a, nil
		}
		classified := Classify(err)
		if f, ok := AsFailure(classified); ok {
			return handler(f).exec(ctx)
		}
		var zero A
		return zero, classified
	}}
}

// MapFailure transforms a typed failure, leaving successes and defects alone.
func MapFailure[A any](e Effect[A], f func(*Failure) *Failure) Effect[A] {
	return CatchAll(e, func(fail *Failure) Effect[A] {
		return FailWith[A](f(fail))
	})
}

// Ensuring runs a finalizer after the effect settles, regardless of outcome.
// The finalizer cannot alter the result.
func Ensuring[A any](e Effect[A], finalizer func()) Effect[A] {
	return Effect[A]{run: func(ctx context.Context) (A, error) {
		a, err := e.exec(ctx)
		finalizer()
		return a, err
	}}
}

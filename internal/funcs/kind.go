// Package funcs is the function-compilation and capability-injection
// core: it turns user-declared handlers into platform-ready function
// descriptors, building a capability bundle scoped to the invocation
// kind on every call.
package funcs

import "fmt"

// Kind is the invocation kind of a compiled function. The kind decides
// which capability bundle the handler is offered and which registration
// primitive consumes the descriptor.
type Kind string

const (
	// KindQuery is a read-only invocation inside the transactional boundary.
	KindQuery Kind = "query"

	// KindMutation is a read-write invocation inside the transactional boundary.
	KindMutation Kind = "mutation"

	// KindAction is an externally-effectful invocation outside the
	// transactional boundary.
	KindAction Kind = "action"
)

// Visibility controls which callers may reach a compiled function.
type Visibility string

const (
	// Public functions are callable by external clients.
	Public Visibility = "public"

	// Internal functions are callable only by other functions and
	// scheduled jobs.
	Internal Visibility = "internal"
)

// ValidateVisibility checks v, defaulting empty to Public.
func ValidateVisibility(v Visibility) (Visibility, error) {
	switch v {
	case Public, Internal:
		return v, nil
	case "":
		return Public, nil
	default:
		return "", fmt.Errorf("invalid visibility %q: must be public or internal", v)
	}
}

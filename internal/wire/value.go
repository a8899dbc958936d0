package wire

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface representing the platform's value algebra.
// Only Null, Bool, Int, Float, String, Array, and Object implement it.
// These are the shapes that cross the raw invocation boundary in both
// directions; everything richer lives on the domain side of a codec.
type Value interface {
	wireValue() // Sealed - only these types implement it
}

// Null represents the platform null value.
// Using an explicit type ensures all Values satisfy the sealed interface.
type Null struct{}

func (Null) wireValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) wireValue() {}

// Int represents an integer value. Always int64.
type Int int64

func (Int) wireValue() {}

// Float represents a 64-bit floating point value.
// The platform's number type is IEEE 754 double; Int exists alongside it
// because stored ids, sequence numbers, and counts must not round-trip
// through floats.
type Float float64

func (Float) wireValue() {}

// String represents a string value.
type String string

func (String) wireValue() {}

// Array represents an array of Value elements.
type Array []Value

func (Array) wireValue() {}

// Object represents a map of string keys to Value elements.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) wireValue() {}

// Pair represents a key-value pair for typed Object construction.
type Pair struct {
	Key   string
	Value Value
}

// NewObject creates an Object from typed key-value pairs.
// Example: NewObject(F("message", String("hi")), F("count", Int(2)))
func NewObject(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// F is a shorthand Pair constructor for ergonomic Object literals.
func F(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// Clone returns a deep copy of the object.
// Used where one invocation's arguments must not alias another's.
func (obj Object) Clone() Object {
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	case Object:
		return val.Clone()
	default:
		// Scalars are immutable.
		return v
	}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ua) < len(ub):
		return -1
	case len(ua) > len(ub):
		return 1
	default:
		return 0
	}
}

// Equal reports deep structural equality of two Values.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, present := bv[k]
			if !present || !Equal(v, bvv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

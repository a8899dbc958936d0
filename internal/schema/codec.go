package schema

import (
	"fmt"

	"github.com/Makisuo/confect-plus/internal/wire"
)

// DocID identifies a stored document. Ids are opaque strings minted by
// the platform store.
type DocID string

// Codec is an explicit codec object: a bidirectional mapping between a
// domain representation D and a wire representation described by Type().
// Decode and Encode are independent per direction; argument and return
// schemas of a function never share a codec implicitly.
//
// Decode/Encode failures are reported as plain errors here; the function
// compiler decides their severity (both directions are boundary contract
// violations there, never typed failures).
type Codec[D any] interface {
	Type() Type
	Decode(wire.Value) (D, error)
	Encode(D) (wire.Value, error)
}

// String returns the codec for plain strings.
func String() Codec[string] { return stringCodec{} }

type stringCodec struct{}

func (stringCodec) Type() Type { return StringType{} }

func (stringCodec) Decode(w wire.Value) (string, error) {
	s, ok := w.(wire.String)
	if !ok {
		return "", decodeTypeError("string", w)
	}
	return string(s), nil
}

func (stringCodec) Encode(s string) (wire.Value, error) {
	return wire.String(s), nil
}

// Int returns the codec for 64-bit integers.
func Int() Codec[int64] { return intCodec{} }

type intCodec struct{}

func (intCodec) Type() Type { return IntType{} }

func (intCodec) Decode(w wire.Value) (int64, error) {
	n, ok := w.(wire.Int)
	if !ok {
		return 0, decodeTypeError("int", w)
	}
	return int64(n), nil
}

func (intCodec) Encode(n int64) (wire.Value, error) {
	return wire.Int(n), nil
}

// Float returns the codec for 64-bit floats. Integral wire values decode
// losslessly; the platform's number type does not distinguish them.
func Float() Codec[float64] { return floatCodec{} }

type floatCodec struct{}

func (floatCodec) Type() Type { return FloatType{} }

func (floatCodec) Decode(w wire.Value) (float64, error) {
	switch n := w.(type) {
	case wire.Float:
		return float64(n), nil
	case wire.Int:
		return float64(n), nil
	default:
		return 0, decodeTypeError("number", w)
	}
}

func (floatCodec) Encode(f float64) (wire.Value, error) {
	return wire.Float(f), nil
}

// Bool returns the codec for booleans.
func Bool() Codec[bool] { return boolCodec{} }

type boolCodec struct{}

func (boolCodec) Type() Type { return BoolType{} }

func (boolCodec) Decode(w wire.Value) (bool, error) {
	b, ok := w.(wire.Bool)
	if !ok {
		return false, decodeTypeError("bool", w)
	}
	return bool(b), nil
}

func (boolCodec) Encode(b bool) (wire.Value, error) {
	return wire.Bool(b), nil
}

// ID returns the codec for document ids of a named table.
func ID(table string) Codec[DocID] { return idCodec{table: table} }

type idCodec struct {
	table string
}

func (c idCodec) Type() Type { return IDType{Table: c.table} }

func (c idCodec) Decode(w wire.Value) (DocID, error) {
	s, ok := w.(wire.String)
	if !ok {
		return "", decodeTypeError(fmt.Sprintf("id(%s)", c.table), w)
	}
	return DocID(s), nil
}

func (c idCodec) Encode(id DocID) (wire.Value, error) {
	return wire.String(id), nil
}

// Array lifts an element codec to a slice codec.
func Array[D any](elem Codec[D]) Codec[[]D] {
	return arrayCodec[D]{elem: elem}
}

type arrayCodec[D any] struct {
	elem Codec[D]
}

func (c arrayCodec[D]) Type() Type { return ArrayType{Elem: c.elem.Type()} }

func (c arrayCodec[D]) Decode(w wire.Value) ([]D, error) {
	arr, ok := w.(wire.Array)
	if !ok {
		return nil, decodeTypeError("array", w)
	}
	out := make([]D, len(arr))
	for i, elem := range arr {
		d, err := c.elem.Decode(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

func (c arrayCodec[D]) Encode(ds []D) (wire.Value, error) {
	out := make(wire.Array, len(ds))
	for i, d := range ds {
		w, err := c.elem.Encode(d)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = w
	}
	return out, nil
}

// Optional lifts a codec to an optional codec. Absence and null both
// decode to nil; nil encodes to null.
func Optional[D any](elem Codec[D]) Codec[*D] {
	return optionalCodec[D]{elem: elem}
}

type optionalCodec[D any] struct {
	elem Codec[D]
}

func (c optionalCodec[D]) Type() Type { return OptionalType{Elem: c.elem.Type()} }

func (c optionalCodec[D]) Decode(w wire.Value) (*D, error) {
	if w == nil {
		return nil, nil
	}
	if _, isNull := w.(wire.Null); isNull {
		return nil, nil
	}
	d, err := c.elem.Decode(w)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c optionalCodec[D]) Encode(d *D) (wire.Value, error) {
	if d == nil {
		return wire.Null{}, nil
	}
	return c.elem.Encode(*d)
}

// AnyCodec is the type-erased form of Codec used in object field position,
// where a single record mixes field value types.
type AnyCodec interface {
	Type() Type
	DecodeAny(wire.Value) (any, error)
	EncodeAny(any) (wire.Value, error)
}

// Erase adapts a typed codec to AnyCodec. EncodeAny rejects values of the
// wrong dynamic type instead of panicking - an encode-side type mismatch
// is a handler bug the boundary reports as a defect.
func Erase[D any](c Codec[D]) AnyCodec {
	return erasedCodec[D]{c: c}
}

type erasedCodec[D any] struct {
	c Codec[D]
}

func (e erasedCodec[D]) Type() Type { return e.c.Type() }

func (e erasedCodec[D]) DecodeAny(w wire.Value) (any, error) {
	return e.c.Decode(w)
}

func (e erasedCodec[D]) EncodeAny(v any) (wire.Value, error) {
	d, ok := v.(D)
	if !ok {
		var zero D
		return nil, fmt.Errorf("expected %T, got %T", zero, v)
	}
	return e.c.Encode(d)
}

// Wire returns the identity codec: the domain representation IS the wire
// value. Used where a handler works with raw platform values (e.g. the
// results of cross-invocation calls).
func Wire() Codec[wire.Value] { return wireCodec{} }

type wireCodec struct{}

func (wireCodec) Type() Type { return AnyType{} }

func (wireCodec) Decode(w wire.Value) (wire.Value, error) {
	if w == nil {
		return wire.Null{}, nil
	}
	return w, nil
}

func (wireCodec) Encode(w wire.Value) (wire.Value, error) {
	if w == nil {
		return wire.Null{}, nil
	}
	return w, nil
}

func decodeTypeError(want string, got wire.Value) error {
	return fmt.Errorf("expected %s, got %T", want, got)
}

package schema

import (
	"fmt"

	"github.com/Makisuo/confect-plus/internal/wire"
)

// Record is the domain representation of an object schema: a string-keyed
// record of already-decoded field values.
type Record map[string]any

// Clone returns a shallow copy. Builder combinators merge into copies so
// a decoded argument record is never mutated in place.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ObjectField pairs a field name with its erased codec.
// Injected marks fields that callers need not supply at the wire because
// a builder combinator computes them before the handler runs.
type ObjectField struct {
	Name     string
	Codec    AnyCodec
	Injected bool
}

// Field declares a regular object field.
func Field(name string, c AnyCodec) ObjectField {
	return ObjectField{Name: name, Codec: c}
}

// InjectedField declares a combinator-supplied field: optional at the
// wire, always present in the record the handler observes.
func InjectedField(name string, c AnyCodec) ObjectField {
	return ObjectField{Name: name, Codec: c, Injected: true}
}

// ObjectCodec is the codec for closed records. It implements
// Codec[Record]. Field order is declaration order and is preserved
// through Merge, keeping compiled validator sources deterministic.
type ObjectCodec struct {
	fields []ObjectField
}

// Object builds an object codec from ordered fields.
// Duplicate field names panic: object declarations are static program
// text and a duplicate is always a bug.
func Object(fields ...ObjectField) *ObjectCodec {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name] {
			panic(fmt.Sprintf("schema: duplicate object field %q", f.Name))
		}
		seen[f.Name] = true
	}
	return &ObjectCodec{fields: fields}
}

// Fields returns the declared fields in order.
func (o *ObjectCodec) Fields() []ObjectField {
	out := make([]ObjectField, len(o.fields))
	copy(out, o.fields)
	return out
}

// Type implements Codec.
func (o *ObjectCodec) Type() Type {
	specs := make([]FieldSpec, len(o.fields))
	for i, f := range o.fields {
		specs[i] = FieldSpec{
			Name:         f.Name,
			Type:         f.Codec.Type(),
			WireOptional: f.Injected,
		}
	}
	return ObjectType{Fields: specs}
}

// Decode implements Codec. The wire object must be closed: unknown fields
// are errors, required fields must be present. Injected fields and fields
// with optional types may be absent.
func (o *ObjectCodec) Decode(w wire.Value) (Record, error) {
	obj, ok := w.(wire.Object)
	if !ok {
		return nil, decodeTypeError("object", w)
	}

	rec := make(Record, len(o.fields))
	for _, f := range o.fields {
		fw, present := obj[f.Name]
		if !present {
			if f.Injected || isOptional(f.Codec.Type()) {
				continue
			}
			return nil, fmt.Errorf("missing required field %q", f.Name)
		}
		d, err := f.Codec.DecodeAny(fw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		rec[f.Name] = d
	}

	for k := range obj {
		if _, declared := o.fieldNamed(k); !declared {
			return nil, fmt.Errorf("unknown field %q", k)
		}
	}

	return rec, nil
}

// Encode implements Codec. Fields absent from the record are omitted when
// optional or injected, and errors otherwise.
func (o *ObjectCodec) Encode(rec Record) (wire.Value, error) {
	obj := make(wire.Object, len(o.fields))
	for _, f := range o.fields {
		d, present := rec[f.Name]
		if !present {
			if f.Injected || isOptional(f.Codec.Type()) {
				continue
			}
			return nil, fmt.Errorf("missing required field %q", f.Name)
		}
		w, err := f.Codec.EncodeAny(d)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		obj[f.Name] = w
	}

	for k := range rec {
		if _, declared := o.fieldNamed(k); !declared {
			return nil, fmt.Errorf("unknown field %q", k)
		}
	}

	return obj, nil
}

// Merge unions this codec's fields with injected fields, with field-level
// precedence: an injected field replaces a same-named user field. All
// injected fields become optional at the wire.
//
// The result keeps the user's field order with injected replacements in
// place; net-new injected fields append in their declaration order.
func (o *ObjectCodec) Merge(injected *ObjectCodec) *ObjectCodec {
	replaced := make(map[string]ObjectField, len(injected.fields))
	for _, f := range injected.fields {
		f.Injected = true
		replaced[f.Name] = f
	}

	merged := make([]ObjectField, 0, len(o.fields)+len(injected.fields))
	for _, f := range o.fields {
		if inj, collides := replaced[f.Name]; collides {
			merged = append(merged, inj)
			delete(replaced, f.Name)
			continue
		}
		merged = append(merged, f)
	}
	for _, f := range injected.fields {
		if _, pending := replaced[f.Name]; pending {
			f.Injected = true
			merged = append(merged, f)
		}
	}

	return &ObjectCodec{fields: merged}
}

func (o *ObjectCodec) fieldNamed(name string) (ObjectField, bool) {
	for _, f := range o.fields {
		if f.Name == name {
			return f, true
		}
	}
	return ObjectField{}, false
}

func isOptional(t Type) bool {
	_, ok := t.(OptionalType)
	return ok
}

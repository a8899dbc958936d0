// Package schema defines the schema algebra shared by argument, return,
// and entity declarations, the explicit codec objects that pair a domain
// representation with its wire representation, and the compiler that
// lowers schema descriptions to platform-native validators.
package schema

import (
	"fmt"
	"strings"

	"github.com/Makisuo/confect-plus/internal/wire"
)

// Type is the sealed schema algebra. A Type describes the wire shape of a
// value; codecs attach the domain side.
type Type interface {
	schemaType()
	// Source returns the CUE expression the type lowers to. Lowering is a
	// total, deterministic function of the description.
	Source() string
}

// StringType matches any string.
type StringType struct{}

func (StringType) schemaType()    {}
func (StringType) Source() string { return "string" }

// IntType matches 64-bit integers.
type IntType struct{}

func (IntType) schemaType()    {}
func (IntType) Source() string { return "int" }

// FloatType matches any number.
type FloatType struct{}

func (FloatType) schemaType()    {}
func (FloatType) Source() string { return "number" }

// BoolType matches booleans.
type BoolType struct{}

func (BoolType) schemaType()    {}
func (BoolType) Source() string { return "bool" }

// AnyType matches any value.
type AnyType struct{}

func (AnyType) schemaType()    {}
func (AnyType) Source() string { return "_" }

// IDType matches a document id for a named table. Ids are strings at the
// wire; the table name is a domain-side discipline, not a wire constraint.
type IDType struct {
	Table string
}

func (IDType) schemaType()    {}
func (IDType) Source() string { return "string" }

// LiteralType matches exactly one scalar value.
type LiteralType struct {
	Value wire.Value
}

func (LiteralType) schemaType() {}

func (l LiteralType) Source() string {
	b, err := wire.MarshalCanonical(l.Value)
	if err != nil {
		// Literal construction is programmer-controlled; a non-serializable
		// literal is a bug surfaced at validator compile time.
		return "_|_"
	}
	return string(b)
}

// ArrayType matches arrays whose elements all match Elem.
type ArrayType struct {
	Elem Type
}

func (ArrayType) schemaType() {}

func (a ArrayType) Source() string {
	return fmt.Sprintf("[...%s]", a.Elem.Source())
}

// OptionalType marks a value that may be absent. In object field position
// it lowers to an optional field; standalone it additionally admits null.
type OptionalType struct {
	Elem Type
}

func (OptionalType) schemaType() {}

func (o OptionalType) Source() string {
	return fmt.Sprintf("(%s | null)", o.Elem.Source())
}

// UnionType matches a value matching any member.
type UnionType struct {
	Members []Type
}

func (UnionType) schemaType() {}

func (u UnionType) Source() string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = m.Source()
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

// FieldSpec is one field of an ObjectType. A field whose Type is
// OptionalType, or whose WireOptional flag is set, may be absent at the
// wire. WireOptional marks injected fields: callers need not supply them
// because a builder combinator computes them before the handler runs.
type FieldSpec struct {
	Name         string
	Type         Type
	WireOptional bool
}

// ObjectType matches closed records: exactly the declared fields, no
// extras.
type ObjectType struct {
	Fields []FieldSpec
}

func (ObjectType) schemaType() {}

func (o ObjectType) Source() string {
	var b strings.Builder
	b.WriteString("close({")
	for i, f := range o.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		typ := f.Type
		optional := f.WireOptional
		if opt, ok := typ.(OptionalType); ok {
			typ = opt.Elem
			optional = true
		}
		fmt.Fprintf(&b, "%q", f.Name)
		if optional {
			b.WriteString("?")
		}
		b.WriteString(": ")
		b.WriteString(typ.Source())
	}
	b.WriteString("})")
	return b.String()
}

// FieldNamed returns the field spec with the given name.
func (o ObjectType) FieldNamed(name string) (FieldSpec, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

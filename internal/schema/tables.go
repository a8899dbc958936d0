package schema

import (
	"fmt"
	"sort"
)

// Index declares a secondary index over a single document field.
// Unique indexes additionally enforce that no two documents of the table
// share the indexed value; violating writes surface as the distinguishable
// "not unique" failure, never a generic error.
type Index struct {
	Name   string
	Field  string
	Unique bool
}

// Table declares one named record shape: its document codec and indexes.
type Table struct {
	Name    string
	Doc     *ObjectCodec
	Indexes []Index
}

// Tables is the entity schema set: the declared collection of named record
// shapes plus their compiled document validators.
//
// A Tables value is established once per deployment, is immutable after
// construction, and is passed by reference into every capability context
// that decodes or encodes stored entities. It is safe for concurrent use.
type Tables struct {
	byName     map[string]Table
	validators map[string]*Validator
}

// NewTables constructs the entity schema set and compiles each table's
// document validator once. Duplicate table names, duplicate index names
// within a table, and indexes over undeclared fields are errors.
func NewTables(tables ...Table) (*Tables, error) {
	byName := make(map[string]Table, len(tables))
	validators := make(map[string]*Validator, len(tables))

	for _, tbl := range tables {
		if tbl.Name == "" {
			return nil, fmt.Errorf("table with empty name")
		}
		if tbl.Doc == nil {
			return nil, fmt.Errorf("table %q: missing document codec", tbl.Name)
		}
		if _, dup := byName[tbl.Name]; dup {
			return nil, fmt.Errorf("duplicate table %q", tbl.Name)
		}

		objType := tbl.Doc.Type().(ObjectType)
		seenIdx := make(map[string]bool, len(tbl.Indexes))
		for _, idx := range tbl.Indexes {
			if seenIdx[idx.Name] {
				return nil, fmt.Errorf("table %q: duplicate index %q", tbl.Name, idx.Name)
			}
			seenIdx[idx.Name] = true
			if _, ok := objType.FieldNamed(idx.Field); !ok {
				return nil, fmt.Errorf("table %q: index %q over undeclared field %q", tbl.Name, idx.Name, idx.Field)
			}
		}

		v, err := Compile(tbl.Doc.Type())
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", tbl.Name, err)
		}

		// Copy the index slice so later caller mutation cannot reach in.
		idxCopy := make([]Index, len(tbl.Indexes))
		copy(idxCopy, tbl.Indexes)
		tbl.Indexes = idxCopy

		byName[tbl.Name] = tbl
		validators[tbl.Name] = v
	}

	return &Tables{byName: byName, validators: validators}, nil
}

// MustNewTables is NewTables that panics on error, for schema sets that
// are static program text.
func MustNewTables(tables ...Table) *Tables {
	t, err := NewTables(tables...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the declaration of a named table.
func (t *Tables) Lookup(name string) (Table, bool) {
	tbl, ok := t.byName[name]
	return tbl, ok
}

// Validator returns the compiled document validator of a named table.
func (t *Tables) Validator(name string) (*Validator, bool) {
	v, ok := t.validators[name]
	return v, ok
}

// Names returns the declared table names in sorted order.
func (t *Tables) Names() []string {
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

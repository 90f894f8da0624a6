// Package value defines the closed value algebra carried in the registers
// of a cost register automaton, together with the closed set of pure
// operations (see ops.go) that update and output functions are built from.
//
// Values are immutable and structurally comparable. The set of kinds is
// deliberately closed: the compiler reasons about register types statically,
// and the chunk combiner relies on update functions being drawn from a
// finite, well-typed vocabulary rather than arbitrary code.
package value

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies one of the closed set of value kinds.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindString
	KindTuple
	KindRecord
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindTuple:
		return "tuple"
	case KindRecord:
		return "record"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Type is the static type of a Value or register.
// Tuple types carry element types; record types carry sorted field types.
type Type struct {
	Kind   Kind
	Elems  []Type      // tuple element types
	Fields []FieldType // record field types, sorted by name
}

// FieldType is one typed field of a record type.
type FieldType struct {
	Name string
	Type Type
}

// Scalar type singletons.
var (
	TInt    = Type{Kind: KindInt}
	TFloat  = Type{Kind: KindFloat}
	TBool   = Type{Kind: KindBool}
	TString = Type{Kind: KindString}
)

// TTuple builds a tuple type from element types.
func TTuple(elems ...Type) Type {
	return Type{Kind: KindTuple, Elems: elems}
}

// TRecord builds a record type from field types. Fields are sorted by name.
func TRecord(fields ...FieldType) Type {
	sorted := make([]FieldType, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return Type{Kind: KindRecord, Fields: sorted}
}

// Equal reports structural type equality.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindTuple:
		if len(t.Elems) != len(o.Elems) {
			return false
		}
		for i := range t.Elems {
			if !t.Elems[i].Equal(o.Elems[i]) {
				return false
			}
		}
	case KindRecord:
		if len(t.Fields) != len(o.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != o.Fields[i].Name || !t.Fields[i].Type.Equal(o.Fields[i].Type) {
				return false
			}
		}
	}
	return true
}

// Numeric reports whether the type is int or float.
func (t Type) Numeric() bool {
	return t.Kind == KindInt || t.Kind == KindFloat
}

// String returns a readable type description, e.g. "tuple(int, float)".
func (t Type) String() string {
	switch t.Kind {
	case KindTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "tuple(" + strings.Join(parts, ", ") + ")"
	case KindRecord:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Name + ": " + f.Type.String()
		}
		return "record(" + strings.Join(parts, ", ") + ")"
	default:
		return t.Kind.String()
	}
}

// Value is an immutable typed datum. Values never carry references to
// mutable external state, so structural equality is deterministic.
type Value struct {
	kind   Kind
	i      int64
	f      float64
	b      bool
	s      string
	elems  []Value
	fields []Field
}

// Field is one named value of a record.
type Field struct {
	Name  string
	Value Value
}

// Int builds an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float builds a float value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool builds a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Str builds a string value.
func Str(v string) Value { return Value{kind: KindString, s: v} }

// TupleOf builds a tuple value.
func TupleOf(elems ...Value) Value {
	vs := make([]Value, len(elems))
	copy(vs, elems)
	return Value{kind: KindTuple, elems: vs}
}

// RecordOf builds a record value. Fields are sorted by name.
func RecordOf(fields ...Field) Value {
	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return Value{kind: KindRecord, fields: sorted}
}

// Zero returns the zero value of a type.
func Zero(t Type) Value {
	switch t.Kind {
	case KindInt:
		return Int(0)
	case KindFloat:
		return Float(0)
	case KindBool:
		return Bool(false)
	case KindString:
		return Str("")
	case KindTuple:
		elems := make([]Value, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = Zero(e)
		}
		return Value{kind: KindTuple, elems: elems}
	case KindRecord:
		fields := make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = Field{Name: f.Name, Value: Zero(f.Type)}
		}
		return Value{kind: KindRecord, fields: fields}
	}
	return Int(0)
}

// Kind returns the value's kind tag.
func (v Value) Kind() Kind { return v.kind }

// Type returns the value's full static type.
func (v Value) Type() Type {
	switch v.kind {
	case KindTuple:
		elems := make([]Type, len(v.elems))
		for i, e := range v.elems {
			elems[i] = e.Type()
		}
		return Type{Kind: KindTuple, Elems: elems}
	case KindRecord:
		fields := make([]FieldType, len(v.fields))
		for i, f := range v.fields {
			fields[i] = FieldType{Name: f.Name, Type: f.Value.Type()}
		}
		return Type{Kind: KindRecord, Fields: fields}
	default:
		return Type{Kind: v.kind}
	}
}

// AsInt returns the int64 payload; ok is false for non-int values.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float64 payload; ok is false for non-float values.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool returns the bool payload; ok is false for non-bool values.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsStr returns the string payload; ok is false for non-string values.
func (v Value) AsStr() (string, bool) { return v.s, v.kind == KindString }

// Elems returns the tuple elements, or nil for non-tuples.
func (v Value) Elems() []Value {
	if v.kind != KindTuple {
		return nil
	}
	elems := make([]Value, len(v.elems))
	copy(elems, v.elems)
	return elems
}

// Fields returns the record fields, or nil for non-records.
func (v Value) Fields() []Field {
	if v.kind != KindRecord {
		return nil
	}
	fields := make([]Field, len(v.fields))
	copy(fields, v.fields)
	return fields
}

// FieldNamed returns the record field with the given name.
func (v Value) FieldNamed(name string) (Value, bool) {
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Equal reports structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindTuple:
		if len(v.elems) != len(o.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(o.elems[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Name != o.fields[i].Name || !v.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// String returns a readable rendering of the value.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindTuple:
		parts := make([]string, len(v.elems))
		for i, e := range v.elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindRecord:
		parts := make([]string, len(v.fields))
		for i, f := range v.fields {
			parts[i] = f.Name + "=" + f.Value.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}

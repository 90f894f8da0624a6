package value

import (
	"errors"
	"fmt"
	"strings"
)

// Errors reported by static op typing and application.
var (
	ErrArity    = errors.New("value: wrong number of arguments")
	ErrOperand  = errors.New("value: operand type mismatch")
	ErrNoField  = errors.New("value: no such tuple element or record field")
	ErrBadValue = errors.New("value: malformed value")
)

// OpKind identifies one of the closed set of operations.
type OpKind int

const (
	OpConst OpKind = iota
	OpIdentity
	OpLast
	OpAdd
	OpSub
	OpMul
	OpMin
	OpMax
	OpCat
	OpPack
	OpProj
	OpBuild
)

// Op is a pure, typed function over Values. Ops are the only vocabulary
// update and output functions are built from: they carry an explicit
// domain/codomain (via Result) so composition can be checked before any
// input is processed.
type Op struct {
	Kind  OpKind
	Lit   Value    // OpConst payload
	Index int      // OpProj element index
	Names []string // OpBuild field names, one per argument
}

// Const returns an op producing a fixed value. It accepts any number of
// arguments and ignores them, so it serves both as a literal and as the
// constant function (counting queries map each matched symbol to one).
func Const(v Value) Op { return Op{Kind: OpConst, Lit: v} }

// Identity returns the unary identity op.
func Identity() Op { return Op{Kind: OpIdentity} }

// Last returns the binary op selecting its second argument. It is
// associative, which makes it the canonical fold for latest-value and
// pass-through queries.
func Last() Op { return Op{Kind: OpLast} }

// Add returns binary numeric addition (int+int or float+float).
func Add() Op { return Op{Kind: OpAdd} }

// Sub returns binary numeric subtraction.
func Sub() Op { return Op{Kind: OpSub} }

// Mul returns binary numeric multiplication.
func Mul() Op { return Op{Kind: OpMul} }

// Min returns the binary numeric minimum.
func Min() Op { return Op{Kind: OpMin} }

// Max returns the binary numeric maximum.
func Max() Op { return Op{Kind: OpMax} }

// Cat returns binary string concatenation.
func Cat() Op { return Op{Kind: OpCat} }

// Pack returns the n-ary tuple constructor.
func Pack() Op { return Op{Kind: OpPack} }

// Proj returns the unary op projecting tuple element i.
func Proj(i int) Op { return Op{Kind: OpProj, Index: i} }

// Build returns the n-ary record constructor with one field name per
// argument.
func Build(names ...string) Op {
	ns := make([]string, len(names))
	copy(ns, names)
	return Op{Kind: OpBuild, Names: ns}
}

// Associative reports whether the op is an associative binary fold, the
// condition under which chunk-level results of an iteration can be
// combined in any reduction order.
func (o Op) Associative() bool {
	switch o.Kind {
	case OpAdd, OpMul, OpMin, OpMax, OpCat, OpLast:
		return true
	}
	return false
}

// Result computes the static result type for the given argument types.
func (o Op) Result(args []Type) (Type, error) {
	switch o.Kind {
	case OpConst:
		return o.Lit.Type(), nil
	case OpIdentity:
		if len(args) != 1 {
			return Type{}, fmt.Errorf("%w: identity takes 1 argument, got %d", ErrArity, len(args))
		}
		return args[0], nil
	case OpLast:
		if len(args) != 2 {
			return Type{}, fmt.Errorf("%w: last takes 2 arguments, got %d", ErrArity, len(args))
		}
		if !args[0].Equal(args[1]) {
			return Type{}, fmt.Errorf("%w: last over %s and %s", ErrOperand, args[0], args[1])
		}
		return args[0], nil
	case OpAdd, OpSub, OpMul, OpMin, OpMax:
		if len(args) != 2 {
			return Type{}, fmt.Errorf("%w: %s takes 2 arguments, got %d", ErrArity, o, len(args))
		}
		if !args[0].Numeric() || !args[0].Equal(args[1]) {
			return Type{}, fmt.Errorf("%w: %s over %s and %s", ErrOperand, o, args[0], args[1])
		}
		return args[0], nil
	case OpCat:
		if len(args) != 2 {
			return Type{}, fmt.Errorf("%w: cat takes 2 arguments, got %d", ErrArity, len(args))
		}
		if args[0].Kind != KindString || args[1].Kind != KindString {
			return Type{}, fmt.Errorf("%w: cat over %s and %s", ErrOperand, args[0], args[1])
		}
		return TString, nil
	case OpPack:
		return TTuple(args...), nil
	case OpProj:
		if len(args) != 1 {
			return Type{}, fmt.Errorf("%w: proj takes 1 argument, got %d", ErrArity, len(args))
		}
		if args[0].Kind != KindTuple {
			return Type{}, fmt.Errorf("%w: proj over %s", ErrOperand, args[0])
		}
		if o.Index < 0 || o.Index >= len(args[0].Elems) {
			return Type{}, fmt.Errorf("%w: element %d of %s", ErrNoField, o.Index, args[0])
		}
		return args[0].Elems[o.Index], nil
	case OpBuild:
		if len(args) != len(o.Names) {
			return Type{}, fmt.Errorf("%w: build takes %d arguments, got %d", ErrArity, len(o.Names), len(args))
		}
		fields := make([]FieldType, len(args))
		for i, t := range args {
			fields[i] = FieldType{Name: o.Names[i], Type: t}
		}
		return TRecord(fields...), nil
	}
	return Type{}, fmt.Errorf("%w: unknown op kind %d", ErrOperand, int(o.Kind))
}

// Apply evaluates the op. It is total on arguments matching the op's
// domain; mismatches report an error rather than producing a value.
func (o Op) Apply(args []Value) (Value, error) {
	switch o.Kind {
	case OpConst:
		return o.Lit, nil
	case OpIdentity:
		if len(args) != 1 {
			return Value{}, fmt.Errorf("%w: identity takes 1 argument, got %d", ErrArity, len(args))
		}
		return args[0], nil
	case OpLast:
		if len(args) != 2 {
			return Value{}, fmt.Errorf("%w: last takes 2 arguments, got %d", ErrArity, len(args))
		}
		return args[1], nil
	case OpAdd, OpSub, OpMul, OpMin, OpMax:
		return o.applyNumeric(args)
	case OpCat:
		if len(args) != 2 {
			return Value{}, fmt.Errorf("%w: cat takes 2 arguments, got %d", ErrArity, len(args))
		}
		a, aok := args[0].AsStr()
		b, bok := args[1].AsStr()
		if !aok || !bok {
			return Value{}, fmt.Errorf("%w: cat over %s and %s", ErrOperand, args[0].Kind(), args[1].Kind())
		}
		return Str(a + b), nil
	case OpPack:
		return TupleOf(args...), nil
	case OpProj:
		if len(args) != 1 {
			return Value{}, fmt.Errorf("%w: proj takes 1 argument, got %d", ErrArity, len(args))
		}
		elems := args[0].Elems()
		if elems == nil {
			return Value{}, fmt.Errorf("%w: proj over %s", ErrOperand, args[0].Kind())
		}
		if o.Index < 0 || o.Index >= len(elems) {
			return Value{}, fmt.Errorf("%w: element %d of %s", ErrNoField, o.Index, args[0])
		}
		return elems[o.Index], nil
	case OpBuild:
		if len(args) != len(o.Names) {
			return Value{}, fmt.Errorf("%w: build takes %d arguments, got %d", ErrArity, len(o.Names), len(args))
		}
		fields := make([]Field, len(args))
		for i, v := range args {
			fields[i] = Field{Name: o.Names[i], Value: v}
		}
		return RecordOf(fields...), nil
	}
	return Value{}, fmt.Errorf("%w: unknown op kind %d", ErrOperand, int(o.Kind))
}

func (o Op) applyNumeric(args []Value) (Value, error) {
	if len(args) != 2 {
		return Value{}, fmt.Errorf("%w: %s takes 2 arguments, got %d", ErrArity, o, len(args))
	}
	if ai, ok := args[0].AsInt(); ok {
		bi, ok := args[1].AsInt()
		if !ok {
			return Value{}, fmt.Errorf("%w: %s over int and %s", ErrOperand, o, args[1].Kind())
		}
		switch o.Kind {
		case OpAdd:
			return Int(ai + bi), nil
		case OpSub:
			return Int(ai - bi), nil
		case OpMul:
			return Int(ai * bi), nil
		case OpMin:
			if bi < ai {
				return Int(bi), nil
			}
			return Int(ai), nil
		case OpMax:
			if bi > ai {
				return Int(bi), nil
			}
			return Int(ai), nil
		}
	}
	if af, ok := args[0].AsFloat(); ok {
		bf, ok := args[1].AsFloat()
		if !ok {
			return Value{}, fmt.Errorf("%w: %s over float and %s", ErrOperand, o, args[1].Kind())
		}
		switch o.Kind {
		case OpAdd:
			return Float(af + bf), nil
		case OpSub:
			return Float(af - bf), nil
		case OpMul:
			return Float(af * bf), nil
		case OpMin:
			if bf < af {
				return Float(bf), nil
			}
			return Float(af), nil
		case OpMax:
			if bf > af {
				return Float(bf), nil
			}
			return Float(af), nil
		}
	}
	return Value{}, fmt.Errorf("%w: %s over %s", ErrOperand, o, args[0].Kind())
}

// String returns the op name.
func (o Op) String() string {
	switch o.Kind {
	case OpConst:
		return "const(" + o.Lit.String() + ")"
	case OpIdentity:
		return "id"
	case OpLast:
		return "last"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpMin:
		return "min"
	case OpMax:
		return "max"
	case OpCat:
		return "cat"
	case OpPack:
		return "pack"
	case OpProj:
		return fmt.Sprintf("proj(%d)", o.Index)
	case OpBuild:
		return "build(" + strings.Join(o.Names, ",") + ")"
	}
	return fmt.Sprintf("op(%d)", int(o.Kind))
}

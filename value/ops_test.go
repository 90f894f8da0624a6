package value

import (
	"errors"
	"testing"
)

func TestOpResult(t *testing.T) {
	cases := []struct {
		name    string
		op      Op
		args    []Type
		want    Type
		wantErr error
	}{
		{"const ignores args", Const(Int(1)), []Type{TString}, TInt, nil},
		{"identity", Identity(), []Type{TFloat}, TFloat, nil},
		{"identity arity", Identity(), []Type{TInt, TInt}, Type{}, ErrArity},
		{"add int", Add(), []Type{TInt, TInt}, TInt, nil},
		{"add mixed", Add(), []Type{TInt, TFloat}, Type{}, ErrOperand},
		{"add string", Add(), []Type{TString, TString}, Type{}, ErrOperand},
		{"min float", Min(), []Type{TFloat, TFloat}, TFloat, nil},
		{"cat", Cat(), []Type{TString, TString}, TString, nil},
		{"cat int", Cat(), []Type{TInt, TString}, Type{}, ErrOperand},
		{"last", Last(), []Type{TBool, TBool}, TBool, nil},
		{"last mixed", Last(), []Type{TBool, TInt}, Type{}, ErrOperand},
		{"pack", Pack(), []Type{TInt, TString}, TTuple(TInt, TString), nil},
		{"proj", Proj(1), []Type{TTuple(TInt, TString)}, TString, nil},
		{"proj range", Proj(2), []Type{TTuple(TInt, TString)}, Type{}, ErrNoField},
		{"proj non-tuple", Proj(0), []Type{TInt}, Type{}, ErrOperand},
		{"build", Build("n", "s"), []Type{TInt, TString},
			TRecord(FieldType{"n", TInt}, FieldType{"s", TString}), nil},
		{"build arity", Build("n"), []Type{TInt, TInt}, Type{}, ErrArity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.op.Result(tc.args)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Result error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Result: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("Result = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestOpApply(t *testing.T) {
	cases := []struct {
		name string
		op   Op
		args []Value
		want Value
	}{
		{"const", Const(Str("k")), []Value{Int(99)}, Str("k")},
		{"identity", Identity(), []Value{Int(5)}, Int(5)},
		{"last", Last(), []Value{Int(1), Int(2)}, Int(2)},
		{"add int", Add(), []Value{Int(2), Int(3)}, Int(5)},
		{"sub int", Sub(), []Value{Int(2), Int(3)}, Int(-1)},
		{"mul float", Mul(), []Value{Float(2), Float(3.5)}, Float(7)},
		{"min", Min(), []Value{Int(4), Int(2)}, Int(2)},
		{"max", Max(), []Value{Int(4), Int(2)}, Int(4)},
		{"cat", Cat(), []Value{Str("ab"), Str("cd")}, Str("abcd")},
		{"pack", Pack(), []Value{Int(1), Str("x")}, TupleOf(Int(1), Str("x"))},
		{"proj", Proj(0), []Value{TupleOf(Int(7), Int(8))}, Int(7)},
		{"build", Build("a"), []Value{Int(1)}, RecordOf(Field{"a", Int(1)})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.op.Apply(tc.args)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("Apply = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestOpApplyMismatch(t *testing.T) {
	if _, err := Add().Apply([]Value{Int(1), Float(2)}); !errors.Is(err, ErrOperand) {
		t.Fatalf("add int/float: err = %v, want %v", err, ErrOperand)
	}
	if _, err := Cat().Apply([]Value{Str("a"), Int(1)}); !errors.Is(err, ErrOperand) {
		t.Fatalf("cat string/int: err = %v, want %v", err, ErrOperand)
	}
}

func TestAssociative(t *testing.T) {
	assoc := []Op{Add(), Mul(), Min(), Max(), Cat(), Last()}
	for _, op := range assoc {
		if !op.Associative() {
			t.Errorf("%s should be associative", op)
		}
	}
	other := []Op{Sub(), Identity(), Const(Int(0)), Pack(), Proj(0), Build("a")}
	for _, op := range other {
		if op.Associative() {
			t.Errorf("%s should not be associative", op)
		}
	}
}

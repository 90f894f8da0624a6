package cra

import (
	"testing"

	"github.com/pflow-xyz/go-qre/value"
)

func TestPredMatch(t *testing.T) {
	cases := []struct {
		name string
		pred Pred
		sym  Symbol
		want bool
	}{
		{"any int", Any(), Sym(value.Int(1)), true},
		{"any string", Any(), Sym(value.Str("x")), true},
		{"number int", Number(), Sym(value.Int(1)), true},
		{"number float", Number(), Sym(value.Float(1)), true},
		{"number string", Number(), Sym(value.Str("x")), false},
		{"text", Text(), Sym(value.Str("x")), true},
		{"truth", Truth(), Sym(value.Bool(true)), true},
		{"truth int", Truth(), Sym(value.Int(0)), false},
		{"tag hit", Tag("price"), TaggedSym("price", value.Int(1)), true},
		{"tag miss", Tag("price"), TaggedSym("qty", value.Int(1)), false},
		{"proj left hit", Number().OnProj(ProjLeft), Left(Sym(value.Int(1))), true},
		{"proj left miss", Number().OnProj(ProjLeft), Right(Sym(value.Int(1))), false},
		{"proj none ignores", Number(), Left(Sym(value.Int(1))), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.pred.Match(tc.sym); got != tc.want {
				t.Fatalf("Match = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPredDisjoint(t *testing.T) {
	cases := []struct {
		name         string
		p, q         Pred
		disjoint, ok bool
	}{
		{"equal", Number(), Number(), false, true},
		{"number vs string", Number(), Text(), true, true},
		{"any vs number", Any(), Number(), false, false},
		{"tags differ", Tag("a"), Tag("b"), true, true},
		{"tag vs kind", Tag("a"), Number(), false, false},
		{"projections differ", Number().OnProj(ProjLeft), Number().OnProj(ProjRight), true, true},
		{"same proj same kind", Number().OnProj(ProjLeft), Number().OnProj(ProjLeft), false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			disjoint, ok := tc.p.Disjoint(tc.q)
			if disjoint != tc.disjoint || ok != tc.ok {
				t.Fatalf("Disjoint(%s, %s) = (%v, %v), want (%v, %v)",
					tc.p, tc.q, disjoint, ok, tc.disjoint, tc.ok)
			}
		})
	}
}

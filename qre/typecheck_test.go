package qre

import (
	"errors"
	"testing"

	"github.com/pflow-xyz/go-qre/cra"
	"github.com/pflow-xyz/go-qre/value"
)

func numAtom(reg string) *AtomNode {
	return Atom(cra.Number(), reg, value.TInt, value.Identity())
}

func TestTypecheckAccepts(t *testing.T) {
	cases := []struct {
		name    string
		node    Node
		regs    int
		outType value.Type
	}{
		{"atom", numAtom("x"), 1, value.TInt},
		{"map projects type", Map(numAtom("x"), value.Const(value.Str("n"))), 1, value.TString},
		{"iterate sum", Iterate(numAtom("x"), "total", value.Int(0), value.Add()), 2, value.TInt},
		{"concat with handoff",
			Concat(numAtom("a"),
				Iterate(numAtom("b"), "acc", value.Int(0), value.Add()),
				Handoff("acc", value.Identity(), "a")),
			3, value.TInt},
		{"split pair",
			Split(value.Pack(),
				Iterate(numAtom("x"), "sum", value.Int(0), value.Add()),
				Iterate(numAtom("y"), "max", value.Int(0), value.Max())),
			4, value.TTuple(value.TInt, value.TInt)},
		{"tensor",
			Tensor(numAtom("l"), numAtom("r")),
			2, value.TTuple(value.TInt, value.TInt)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			regs, out, err := Typecheck(tc.node)
			if err != nil {
				t.Fatalf("Typecheck: %v", err)
			}
			if len(regs) != tc.regs {
				t.Fatalf("got %d registers, want %d", len(regs), tc.regs)
			}
			if !out.Equal(tc.outType) {
				t.Fatalf("output type = %s, want %s", out, tc.outType)
			}
		})
	}
}

func TestTypecheckRejects(t *testing.T) {
	cases := []struct {
		name string
		node Node
	}{
		{"empty register name", Atom(cra.Number(), "", value.TInt, value.Identity())},
		{"reserved register name", Atom(cra.Number(), "x~y", value.TInt, value.Identity())},
		{"register collision", Concat(numAtom("x"), numAtom("x"))},
		{"accumulator collides with body", Iterate(numAtom("x"), "x", value.Int(0), value.Add())},
		{"ill-typed fold", Iterate(numAtom("x"), "acc", value.Str(""), value.Add())},
		{"fold changes type", Iterate(numAtom("x"), "acc", value.Int(0), value.Pack())},
		{"handoff unknown target",
			Concat(numAtom("a"), numAtom("b"), Handoff("nope", value.Identity(), "a"))},
		{"handoff unknown source",
			Concat(numAtom("a"), numAtom("b"), Handoff("b", value.Identity(), "nope"))},
		{"handoff ill-typed",
			Concat(Atom(cra.Text(), "s", value.TString, value.Identity()), numAtom("b"),
				Handoff("b", value.Identity(), "s"))},
		{"split without branches", Split(value.Pack())},
		{"split merge arity", Split(value.Add(), numAtom("x"))},
		{"nested tensor", Tensor(Tensor(numAtom("a"), numAtom("b")), numAtom("c"))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Typecheck(tc.node)
			if err == nil {
				t.Fatal("Typecheck accepted an ill-formed query")
			}
			var te *TypeError
			if !errors.As(err, &te) {
				t.Fatalf("error %T is not a TypeError: %v", err, err)
			}
		})
	}
}

func TestRegistersAndOutputType(t *testing.T) {
	q := Iterate(numAtom("x"), "total", value.Int(0), value.Add())
	regs, err := Registers(q)
	if err != nil {
		t.Fatalf("Registers: %v", err)
	}
	var acc *Register
	for i := range regs {
		if regs[i].Name == "total" {
			acc = &regs[i]
		}
	}
	if acc == nil {
		t.Fatal("accumulator register missing")
	}
	if acc.Fold == nil || acc.Fold.Kind != value.OpAdd {
		t.Fatal("accumulator must carry its fold op")
	}
	if !acc.Initial.Equal(value.Int(0)) {
		t.Fatalf("accumulator initial = %s, want 0", acc.Initial)
	}
	out, err := OutputType(q)
	if err != nil {
		t.Fatalf("OutputType: %v", err)
	}
	if !out.Equal(value.TInt) {
		t.Fatalf("output type = %s, want int", out)
	}
}

package chunk

import (
	"context"
	"errors"
	"testing"

	"github.com/pflow-xyz/go-qre/compile"
	"github.com/pflow-xyz/go-qre/cra"
	"github.com/pflow-xyz/go-qre/qre"
	"github.com/pflow-xyz/go-qre/value"
)

func sumMachine(t *testing.T) *cra.Machine {
	t.Helper()
	m, err := compile.Compile(
		qre.Iterate(
			qre.Atom(cra.Number(), "x", value.TInt, value.Identity()),
			"total", value.Int(0), value.Add()))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return m
}

func ints(vs ...int64) []cra.Symbol {
	syms := make([]cra.Symbol, len(vs))
	for i, v := range vs {
		syms[i] = cra.Sym(value.Int(v))
	}
	return syms
}

func sequential(t *testing.T, m *cra.Machine, syms []cra.Symbol) (value.Value, bool) {
	t.Helper()
	c := m.NewConfig()
	for _, s := range syms {
		m.Step(c, s)
	}
	return m.Emit(c)
}

func sameResult(t *testing.T, m *cra.Machine, a, b *RunResult) {
	t.Helper()
	if a.Len != b.Len {
		t.Fatalf("lengths differ: %d vs %d", a.Len, b.Len)
	}
	for q := range a.Effects {
		ea, eb := a.Effects[q], b.Effects[q]
		if ea.End != eb.End {
			t.Fatalf("start %s: end %s vs %s", m.States[q], m.States[ea.End], m.States[eb.End])
		}
		for i := range ea.Regs {
			if ea.Touched[i] != eb.Touched[i] {
				t.Fatalf("start %s: register %s touched %v vs %v",
					m.States[q], m.Registers[i].Name, ea.Touched[i], eb.Touched[i])
			}
			if !ea.Regs[i].Equal(eb.Regs[i]) {
				t.Fatalf("start %s: register %s = %s vs %s",
					m.States[q], m.Registers[i].Name, ea.Regs[i], eb.Regs[i])
			}
		}
	}
}

func TestChunkCombineMatchesSequential(t *testing.T) {
	m := sumMachine(t)
	stream := ints(1, 2, 3, 4)
	want, ok := sequential(t, m, stream)
	if !ok {
		t.Fatal("sequential run has no output")
	}
	if !want.Equal(value.Int(10)) {
		t.Fatalf("sequential output = %s, want 10", want)
	}

	for split := 0; split <= len(stream); split++ {
		a, err := Run(m, stream[:split])
		if err != nil {
			t.Fatalf("Run(A): %v", err)
		}
		b, err := Run(m, stream[split:])
		if err != nil {
			t.Fatalf("Run(B): %v", err)
		}
		ab, err := Compose(m, a, b)
		if err != nil {
			t.Fatalf("Compose: %v", err)
		}
		got, ok, err := ab.Emit(m)
		if err != nil {
			t.Fatalf("Emit: %v", err)
		}
		if !ok || !got.Equal(want) {
			t.Fatalf("split %d: output = %s (%v), want %s", split, got, ok, want)
		}
	}
}

func TestSequentialCombineViaApply(t *testing.T) {
	m := sumMachine(t)
	a := ints(1, 2)
	b := ints(3, 4)

	cfg := m.NewConfig()
	for _, s := range a {
		m.Step(cfg, s)
	}
	tb, err := Run(m, b)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	end, err := tb.Apply(m, cfg)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	out, ok := m.Emit(end)
	if !ok || !out.Equal(value.Int(10)) {
		t.Fatalf("output = %s (%v), want 10", out, ok)
	}
}

func TestReductionOrderIndependence(t *testing.T) {
	m := sumMachine(t)
	chunks := [][]cra.Symbol{ints(1), ints(2, 3), ints(), ints(4, 5, 6)}

	tables := make([]*RunResult, len(chunks))
	for i, ch := range chunks {
		var err error
		tables[i], err = Run(m, ch)
		if err != nil {
			t.Fatalf("Run(%d): %v", i, err)
		}
	}

	leftFold, err := Reduce(m, tables...)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	// right-leaning grouping: t0 · (t1 · (t2 · t3))
	right := tables[len(tables)-1]
	for i := len(tables) - 2; i >= 0; i-- {
		right, err = Compose(m, tables[i], right)
		if err != nil {
			t.Fatalf("Compose: %v", err)
		}
	}

	// balanced grouping: (t0 · t1) · (t2 · t3)
	l, err := Compose(m, tables[0], tables[1])
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	r, err := Compose(m, tables[2], tables[3])
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	balanced, err := Compose(m, l, r)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	sameResult(t, m, leftFold, right)
	sameResult(t, m, leftFold, balanced)

	out, ok, err := leftFold.Emit(m)
	if err != nil || !ok || !out.Equal(value.Int(21)) {
		t.Fatalf("output = %s (%v, %v), want 21", out, ok, err)
	}
}

func TestEmptyIsIdentity(t *testing.T) {
	m := sumMachine(t)
	a, err := Run(m, ints(5, 6))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	e, err := Empty(m)
	if err != nil {
		t.Fatalf("Empty: %v", err)
	}
	left, err := Compose(m, e, a)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	rightC, err := Compose(m, a, e)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	sameResult(t, m, a, left)
	sameResult(t, m, a, rightC)
}

func TestChunkAcrossReject(t *testing.T) {
	m := sumMachine(t)
	stream := []cra.Symbol{
		cra.Sym(value.Int(1)),
		cra.Sym(value.Str("oops")),
		cra.Sym(value.Int(2)),
	}
	a, err := Run(m, stream[:1])
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := Run(m, stream[1:])
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	ab, err := Compose(m, a, b)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if _, ok, _ := ab.Emit(m); ok {
		t.Fatal("a rejected stream must not produce an output")
	}
}

func TestParallelRun(t *testing.T) {
	m := sumMachine(t)
	var chunks [][]cra.Symbol
	var want int64
	for i := int64(1); i <= 40; i++ {
		want += i
	}
	for i := int64(0); i < 10; i++ {
		base := i * 4
		chunks = append(chunks, ints(base+1, base+2, base+3, base+4))
	}
	r, err := ParallelRun(context.Background(), m, chunks, 4)
	if err != nil {
		t.Fatalf("ParallelRun: %v", err)
	}
	out, ok, err := r.Emit(m)
	if err != nil || !ok || !out.Equal(value.Int(want)) {
		t.Fatalf("output = %s (%v, %v), want %d", out, ok, err, want)
	}
}

func TestParallelRunCancellation(t *testing.T) {
	m := sumMachine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chunks := [][]cra.Symbol{ints(1), ints(2), ints(3), ints(4)}
	if _, err := ParallelRun(ctx, m, chunks, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNonParallelMachineRefused(t *testing.T) {
	q := qre.Concat(
		qre.Concat(
			qre.Atom(cra.Number(), "a", value.TInt, value.Identity()),
			qre.Atom(cra.Number(), "b", value.TInt, value.Identity())),
		qre.Iterate(qre.Atom(cra.Number(), "c", value.TInt, value.Identity()),
			"acc", value.Int(0), value.Add()),
		qre.Handoff("acc", value.Identity(), "a"))
	m, err := compile.Compile(q)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := Run(m, ints(1, 2, 3)); !errors.Is(err, ErrNotParallel) {
		t.Fatalf("Run err = %v, want ErrNotParallel", err)
	}
}

func TestMachineMismatchRefused(t *testing.T) {
	m := sumMachine(t)
	other, err := compile.Compile(
		qre.Iterate(
			qre.Atom(cra.Number(), "x", value.TInt, value.Identity()),
			"total", value.Int(0), value.Mul()))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	a, err := Run(m, ints(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := Run(other, ints(2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := Compose(m, a, b); !errors.Is(err, ErrMismatch) {
		t.Fatalf("Compose err = %v, want ErrMismatch", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := sumMachine(t)
	r, err := Run(m, ints(1, 2, 3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := r.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(m, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	sameResult(t, m, r, got)

	other, err := compile.Compile(
		qre.Iterate(
			qre.Atom(cra.Number(), "y", value.TInt, value.Identity()),
			"p", value.Int(1), value.Mul()))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := Decode(other, data); !errors.Is(err, ErrMismatch) {
		t.Fatalf("Decode against wrong machine: err = %v, want ErrMismatch", err)
	}
}

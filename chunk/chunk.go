// Package chunk evaluates a machine over independent input chunks and
// composes the per-chunk results into the result for the concatenated
// stream without re-scanning any chunk.
//
// Because a machine's state trajectory depends only on its start state
// (never on register contents), a chunk's effect can be tabulated exactly:
// one entry per possible start state, recording the end state and the
// register values computed from declared initials. Registers whose writes
// are all fresh carry the later chunk's value whenever touched; registers
// whose writes are all associative self-folds carry a delta that folds
// across the boundary. Machines with any other register dataflow are
// rejected up front.
package chunk

import (
	"errors"
	"fmt"

	"github.com/pflow-xyz/go-qre/cra"
	"github.com/pflow-xyz/go-qre/value"
)

// Errors reported by table construction and composition.
var (
	ErrNotParallel = errors.New("chunk: machine register dataflow does not admit chunk composition")
	ErrMismatch    = errors.New("chunk: run results belong to different machines")
)

// Effect is what a chunk does to the machine when entered in one
// particular start state: the end state, the register values computed
// within the chunk from declared initials, and which registers were
// written at all.
type Effect struct {
	End     int
	Regs    []value.Value
	Touched []bool
}

// RunResult is the tabulated effect of one chunk, one Effect per start
// state. It is immutable once built; composition allocates fresh tables.
type RunResult struct {
	CID     string // machine identity the table was built against
	Len     uint64 // symbols covered
	Effects []Effect
}

// Run scans the chunk once per machine state and tabulates its effect.
// It fails with ErrNotParallel unless the machine's registers all carry
// exact combine rules.
func Run(m *cra.Machine, syms []cra.Symbol) (*RunResult, error) {
	if !m.Parallelizable() {
		return nil, ErrNotParallel
	}
	r := &RunResult{CID: m.CID(), Len: uint64(len(syms)), Effects: make([]Effect, len(m.States))}
	for q := range m.States {
		cfg := m.NewConfig()
		cfg.State = q
		touched := make([]bool, len(m.Registers))
		for _, sym := range syms {
			m.StepTrace(cfg, sym, touched)
		}
		r.Effects[q] = Effect{End: cfg.State, Regs: cfg.Registers, Touched: touched}
	}
	return r, nil
}

// Empty returns the identity table: the zero-length chunk, which leaves
// every configuration unchanged.
func Empty(m *cra.Machine) (*RunResult, error) {
	if !m.Parallelizable() {
		return nil, ErrNotParallel
	}
	r := &RunResult{CID: m.CID(), Effects: make([]Effect, len(m.States))}
	for q := range m.States {
		cfg := m.NewConfig()
		r.Effects[q] = Effect{End: q, Regs: cfg.Registers, Touched: make([]bool, len(m.Registers))}
	}
	return r, nil
}

// Compose combines the tables of two adjacent chunks into the table of
// their concatenation. Compose is associative, so a chunk sequence may be
// reduced in any grouping.
func Compose(m *cra.Machine, a, b *RunResult) (*RunResult, error) {
	if a.CID != b.CID || a.CID != m.CID() {
		return nil, ErrMismatch
	}
	out := &RunResult{CID: a.CID, Len: a.Len + b.Len, Effects: make([]Effect, len(a.Effects))}
	for q := range a.Effects {
		ea := &a.Effects[q]
		eb := &b.Effects[ea.End]
		regs := make([]value.Value, len(ea.Regs))
		touched := make([]bool, len(ea.Regs))
		for i := range regs {
			touched[i] = ea.Touched[i] || eb.Touched[i]
			v, err := combineRegister(&m.Registers[i], ea.Regs[i], ea.Touched[i], eb.Regs[i], eb.Touched[i])
			if err != nil {
				return nil, err
			}
			regs[i] = v
		}
		out.Effects[q] = Effect{End: eb.End, Regs: regs, Touched: touched}
	}
	return out, nil
}

func combineRegister(def *cra.RegisterDef, va value.Value, ta bool, vb value.Value, tb bool) (value.Value, error) {
	switch {
	case !tb:
		return va, nil
	case !ta:
		return vb, nil
	case def.Rule == cra.CombineFold:
		v, err := def.Fold.Apply([]value.Value{va, vb})
		if err != nil {
			return value.Value{}, fmt.Errorf("chunk: fold %s on %s: %w", def.Fold, def.Name, err)
		}
		return v, nil
	default:
		return vb, nil
	}
}

// Reduce composes a sequence of adjacent chunk tables left to right.
func Reduce(m *cra.Machine, parts ...*RunResult) (*RunResult, error) {
	if len(parts) == 0 {
		return Empty(m)
	}
	acc := parts[0]
	for _, p := range parts[1:] {
		var err error
		acc, err = Compose(m, acc, p)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// Apply advances a concrete configuration across the chunk: the end state
// is looked up, fresh registers take the chunk's value when touched, and
// fold registers fold the chunk's delta onto the incoming value.
func (r *RunResult) Apply(m *cra.Machine, c *cra.Config) (*cra.Config, error) {
	if r.CID != m.CID() {
		return nil, ErrMismatch
	}
	e := &r.Effects[c.State]
	regs := make([]value.Value, len(c.Registers))
	for i := range regs {
		v, err := combineRegister(&m.Registers[i], c.Registers[i], true, e.Regs[i], e.Touched[i])
		if err != nil {
			return nil, err
		}
		regs[i] = v
	}
	return &cra.Config{State: e.End, Registers: regs}, nil
}

// Emit applies the chunk to the machine's initial configuration and
// returns the machine output at the end of it, with ok=false when the
// final state has none. This is the whole-stream result when r covers the
// entire input.
func (r *RunResult) Emit(m *cra.Machine) (value.Value, bool, error) {
	cfg, err := r.Apply(m, m.NewConfig())
	if err != nil {
		return value.Value{}, false, err
	}
	v, ok := m.Emit(cfg)
	return v, ok, nil
}

package compile

import (
	"github.com/pflow-xyz/go-qre/cra"
	"github.com/pflow-xyz/go-qre/value"
)

// assemble prunes unreachable fragment states, appends the absorbing
// reject state, and runs the combine analysis that decides whether the
// machine's chunk-level results compose exactly.
func (c *compiler) assemble(f *frag, outType value.Type) *cra.Machine {
	keep := []int{f.initial}
	seen := map[int]bool{f.initial: true}
	for i := 0; i < len(keep); i++ {
		s := keep[i]
		for cls := 0; cls < len(f.classes); cls++ {
			e := f.edges[s][cls]
			if e != nil && !seen[e.target] {
				seen[e.target] = true
				keep = append(keep, e.target)
			}
		}
	}

	remap := make(map[int]int, len(keep))
	states := make([]string, 0, len(keep)+1)
	for i, s := range keep {
		remap[s] = i
		states = append(states, f.states[s])
	}
	reject := len(states)
	states = append(states, "reject")

	trans := make([][]*cra.Edge, len(states))
	for i := range trans {
		trans[i] = make([]*cra.Edge, len(f.classes))
	}
	for _, s := range keep {
		for cls, e := range f.edges[s] {
			trans[remap[s]][cls] = &cra.Edge{Target: remap[e.target], Update: e.update}
		}
	}
	outputs := make([]*cra.Output, len(states))
	for s, o := range f.accepts {
		if i, ok := remap[s]; ok {
			outputs[i] = o
		}
	}

	m := &cra.Machine{
		Name:      "qre",
		States:    states,
		Initial:   remap[f.initial],
		Reject:    reject,
		Registers: c.regs,
		Classes:   f.classes,
		Trans:     trans,
		Outputs:   outputs,
		OutType:   outType,
	}
	analyze(m)
	return m
}

type writeInfo struct {
	fresh    bool
	fold     bool
	foldOp   value.Op
	foldStr  string
	foldSet  bool
	conflict bool
	dirty    bool
}

// analyze classifies every register write across all edge programs and
// derives per-register combine rules.
//
// Within a program, W is the set of registers holding values computed
// entirely in the current step (from the symbol, literals, and other
// members of W). A write whose register arguments all lie in W is fresh:
// it erases the register's prior value, so chunk results compose by
// taking the later chunk's value whenever touched. A write of the shape
// r := op(r, safe...) with an associative op folds the prior value; its
// per-chunk deltas compose by applying the fold across the boundary. Any
// other read of prior-step state cannot be reconstructed from a
// per-start-state table, so it marks the machine non-parallelizable.
func analyze(m *cra.Machine) {
	info := make([]writeInfo, len(m.Registers))
	for _, row := range m.Trans {
		for _, e := range row {
			if e == nil {
				continue
			}
			analyzeProgram(e.Update, info)
		}
	}

	parallel := true
	for i := range m.Registers {
		ri := info[i]
		m.Registers[i].Rule = cra.CombineRightmost
		switch {
		case ri.dirty || ri.conflict || (ri.fresh && ri.fold):
			parallel = false
		case ri.fold:
			m.Registers[i].Rule = cra.CombineFold
			m.Registers[i].Fold = ri.foldOp
		}
	}
	m.Parallel = parallel
}

func analyzeProgram(p cra.Program, info []writeInfo) {
	w := make(map[int]bool)
	for _, a := range p {
		allW := true
		for _, arg := range a.Args {
			if arg.Kind == cra.OperandReg && !w[arg.Reg] {
				allW = false
			}
		}
		if allW {
			info[a.Dst].fresh = true
			w[a.Dst] = true
			continue
		}
		if isSelfFold(a, w) {
			ri := &info[a.Dst]
			ri.fold = true
			if ri.foldSet && ri.foldStr != a.Op.String() {
				ri.conflict = true
			}
			ri.foldOp = a.Op
			ri.foldStr = a.Op.String()
			ri.foldSet = true
			// the register now depends on prior-step state, so it
			// must not be read again in this program
			delete(w, a.Dst)
			continue
		}
		info[a.Dst].dirty = true
		delete(w, a.Dst)
	}
}

func isSelfFold(a cra.Assign, w map[int]bool) bool {
	if !a.Op.Associative() || len(a.Args) == 0 {
		return false
	}
	first := a.Args[0]
	if first.Kind != cra.OperandReg || first.Reg != a.Dst || w[a.Dst] {
		return false
	}
	for _, arg := range a.Args[1:] {
		if arg.Kind == cra.OperandReg && !w[arg.Reg] {
			return false
		}
	}
	return true
}

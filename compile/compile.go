// Package compile translates quantitative regular expressions into cost
// register automata. Compilation is purely structural: every failure mode
// (ill-typed composition, unreconcilable predicate partitions, indefinite
// sub-queries) is reported before any input symbol is processed, so the
// compiled machine's step and emit never fail at runtime.
package compile

import (
	"fmt"

	"github.com/pflow-xyz/go-qre/cra"
	"github.com/pflow-xyz/go-qre/qre"
	"github.com/pflow-xyz/go-qre/value"
)

// Error reports a structural compilation failure, naming the combinator
// that could not be translated. Type errors surface separately as
// qre.TypeError; both classes are fatal to the compilation attempt.
type Error struct {
	Node string
	Msg  string
}

func (e *Error) Error() string {
	return "compile: " + e.Node + ": " + e.Msg
}

// Compile typechecks the query and builds its cost register automaton.
// The machine is deterministic and total: its predicate classes partition
// the alphabet, unmatched symbols route to an absorbing reject state, and
// its registers carry the combine rules the chunk package needs for
// parallel evaluation.
func Compile(root qre.Node) (*cra.Machine, error) {
	regs, outType, err := qre.Typecheck(root)
	if err != nil {
		return nil, err
	}
	c := &compiler{regIx: make(map[string]int)}
	for _, r := range regs {
		c.regIx[r.Name] = len(c.regs)
		c.regs = append(c.regs, cra.RegisterDef{Name: r.Name, Type: r.Type, Initial: r.Initial})
	}
	f, err := c.compile(root)
	if err != nil {
		return nil, err
	}
	return c.assemble(f, outType), nil
}

type compiler struct {
	regs     []cra.RegisterDef
	regIx    map[string]int
	stateN   int
	scratchN int
}

func (c *compiler) stateName() string {
	n := fmt.Sprintf("q%d", c.stateN)
	c.stateN++
	return n
}

// addScratch declares a compiler-owned register. The '~' in the name
// keeps it out of the user's namespace (Typecheck rejects user registers
// containing it).
func (c *compiler) addScratch(base string, t value.Type) int {
	name := fmt.Sprintf("%s~out%d", base, c.scratchN)
	c.scratchN++
	i := len(c.regs)
	c.regs = append(c.regs, cra.RegisterDef{Name: name, Type: t, Initial: value.Zero(t)})
	c.regIx[name] = i
	return i
}

func (c *compiler) compile(n qre.Node) (*frag, error) {
	switch n := n.(type) {
	case *qre.AtomNode:
		return c.compileAtom(n)
	case *qre.MapNode:
		return c.compileMap(n)
	case *qre.ConcatNode:
		return c.compileConcat(n)
	case *qre.IterateNode:
		return c.compileIterate(n)
	case *qre.SplitNode:
		return c.compileSplit(n)
	case *qre.TensorNode:
		return c.compileTensor(n)
	}
	return nil, &Error{Node: "node", Msg: "unknown combinator"}
}

// compileAtom builds the two-state fragment matching one admitted symbol:
// the single edge initializes the atom's register from the symbol and the
// target state emits that register.
func (c *compiler) compileAtom(n *qre.AtomNode) (*frag, error) {
	ri := c.regIx[n.Reg]
	regType := c.regs[ri].Type

	f := c.newFrag([]cra.Pred{n.Pred})
	start := f.addState(c.stateName())
	done := f.addState(c.stateName())
	f.initial = start
	f.edge(start, 0, &fragEdge{
		target: done,
		update: cra.Program{{Dst: ri, Op: n.Init, Args: []cra.Operand{cra.SymArg()}}},
	})
	f.accepts[done] = &cra.Output{Op: value.Identity(), Args: []cra.Operand{cra.Reg(ri)}, Type: regType}
	f.outType = regType
	f.regs = []int{ri}
	return f, nil
}

// compileMap wraps every accepting output of the inner fragment with the
// unary op. The automaton shape is untouched.
func (c *compiler) compileMap(n *qre.MapNode) (*frag, error) {
	f, err := c.compile(n.Inner)
	if err != nil {
		return nil, err
	}
	outType, err := n.Op.Result([]value.Type{f.outType})
	if err != nil {
		return nil, &Error{Node: "map", Msg: err.Error()}
	}
	for s, o := range f.accepts {
		f.accepts[s] = &cra.Output{Op: n.Op, Kids: []*cra.Output{o}, Type: outType}
	}
	f.outType = outType
	return f, nil
}

// compileConcat sequences left before right. The handoff program is
// appended to every edge entering a left accepting state, so right-side
// registers are seeded the moment left completes; the right fragment's
// initial out-edges are then copied onto each left accepting state, which
// hands the next symbol to right without consuming one at the switch.
func (c *compiler) compileConcat(n *qre.ConcatNode) (*frag, error) {
	lf, err := c.compile(n.Left)
	if err != nil {
		return nil, err
	}
	if !definite(lf) {
		return nil, &Error{Node: "concat",
			Msg: "left side must be definite (terminal accepting states, non-accepting initial)"}
	}
	rf, err := c.compile(n.Right)
	if err != nil {
		return nil, err
	}
	classes, rmap, err := mergeClasses("concat", lf.classes, rf.classes)
	if err != nil {
		return nil, err
	}

	var handoff cra.Program
	for _, h := range n.Handoff {
		args := make([]cra.Operand, len(h.Args))
		for i, a := range h.Args {
			args[i] = cra.Reg(c.regIx[a])
		}
		handoff = append(handoff, cra.Assign{Dst: c.regIx[h.Dst], Op: h.Op, Args: args})
	}

	f := c.newFrag(classes)
	f.states = append(f.states, lf.states...)
	base := len(f.states)
	f.states = append(f.states, rf.states...)
	f.initial = lf.initial

	for s, row := range lf.edges {
		for cls, e := range row {
			ne := &fragEdge{target: e.target, update: e.update}
			if lf.accepts[e.target] != nil && len(handoff) > 0 {
				up := append(cra.Program{}, e.update...)
				ne.update = append(up, handoff...)
			}
			f.edge(s, cls, ne)
		}
	}
	for s, row := range rf.edges {
		for cls, e := range row {
			f.edge(s+base, rmap[cls], &fragEdge{target: e.target + base, update: e.update})
		}
	}
	rinit := rf.initial + base
	for a := range lf.accepts {
		for cls, e := range f.edges[rinit] {
			f.edge(a, cls, e)
		}
	}
	for s, o := range rf.accepts {
		f.accepts[s+base] = o
	}
	if ro := rf.accepts[rf.initial]; ro != nil {
		// right matches the empty remainder, so left's completion
		// already accepts with right's initial output
		for a := range lf.accepts {
			f.accepts[a] = ro
		}
	}
	f.outType = rf.outType
	f.regs = append(append([]int{}, lf.regs...), rf.regs...)
	return f, nil
}

// compileIterate loops the body back to its own initial state. Each edge
// into a body accepting state is rewritten to additionally fold the body
// output into the accumulator and reset the body's registers to their
// initial values, so every iteration starts clean and only the
// accumulator survives across loop-backs.
func (c *compiler) compileIterate(n *qre.IterateNode) (*frag, error) {
	bf, err := c.compile(n.Body)
	if err != nil {
		return nil, err
	}
	if !definite(bf) {
		return nil, &Error{Node: "iterate",
			Msg: "body must be definite (terminal accepting states, non-accepting initial)"}
	}
	accIx := c.regIx[n.Acc]
	accType := c.regs[accIx].Type

	firstScratch := len(c.regs)
	type tail struct {
		prog cra.Program
		out  int
	}
	tails := make(map[int]tail)
	for _, row := range bf.edges {
		for cls, e := range row {
			o := bf.accepts[e.target]
			if o == nil {
				continue
			}
			t, ok := tails[e.target]
			if !ok {
				prog, out := c.flatten(o, n.Acc)
				t = tail{prog: prog, out: out}
				tails[e.target] = t
			}
			up := append(cra.Program{}, e.update...)
			up = append(up, t.prog...)
			up = append(up, cra.Assign{
				Dst:  accIx,
				Op:   n.Fold,
				Args: []cra.Operand{cra.Reg(accIx), cra.Reg(t.out)},
			})
			for _, r := range bf.regs {
				up = append(up, cra.Assign{Dst: r, Op: value.Const(c.regs[r].Initial)})
			}
			row[cls] = &fragEdge{target: bf.initial, update: up}
		}
	}

	bf.accepts = map[int]*cra.Output{
		bf.initial: {Op: value.Identity(), Args: []cra.Operand{cra.Reg(accIx)}, Type: accType},
	}
	bf.outType = accType
	bf.regs = append(bf.regs, accIx)
	for i := firstScratch; i < len(c.regs); i++ {
		bf.regs = append(bf.regs, i)
	}
	return bf, nil
}

// compileSplit runs all branches in lockstep over a reconciled alphabet.
// A class outside a branch's alphabet rejects the whole split: once any
// branch can no longer output, neither can the merge.
func (c *compiler) compileSplit(n *qre.SplitNode) (*frag, error) {
	frags := make([]*frag, len(n.Branches))
	outs := make([]value.Type, len(n.Branches))
	var classes []cra.Pred
	maps := make([][]int, len(n.Branches))
	for i, b := range n.Branches {
		bf, err := c.compile(b)
		if err != nil {
			return nil, err
		}
		frags[i] = bf
		outs[i] = bf.outType
		classes, maps[i], err = mergeClasses("split", classes, bf.classes)
		if err != nil {
			return nil, err
		}
	}
	mergedType, err := n.Merge.Result(outs)
	if err != nil {
		return nil, &Error{Node: "split", Msg: err.Error()}
	}

	f := c.product(frags, classes, invert(maps, len(classes)), false,
		func(kids []*cra.Output) *cra.Output {
			return &cra.Output{Op: n.Merge, Kids: kids, Type: mergedType}
		})
	f.outType = mergedType
	for _, bf := range frags {
		f.regs = append(f.regs, bf.regs...)
	}
	return f, nil
}

// compileTensor restricts each side's classes to its projection and
// interleaves the two automata: a symbol advances exactly the side whose
// projection it carries, the other side holds its state.
func (c *compiler) compileTensor(n *qre.TensorNode) (*frag, error) {
	lf, err := c.compile(n.Left)
	if err != nil {
		return nil, err
	}
	rf, err := c.compile(n.Right)
	if err != nil {
		return nil, err
	}
	if err := project(lf, cra.ProjLeft); err != nil {
		return nil, err
	}
	if err := project(rf, cra.ProjRight); err != nil {
		return nil, err
	}

	classes := append(append([]cra.Pred{}, lf.classes...), rf.classes...)
	invs := [][]int{make([]int, len(classes)), make([]int, len(classes))}
	for mc := range classes {
		if mc < len(lf.classes) {
			invs[0][mc], invs[1][mc] = mc, -1
		} else {
			invs[0][mc], invs[1][mc] = -1, mc-len(lf.classes)
		}
	}
	outType := value.TTuple(lf.outType, rf.outType)

	f := c.product([]*frag{lf, rf}, classes, invs, true,
		func(kids []*cra.Output) *cra.Output {
			return &cra.Output{Op: value.Pack(), Kids: kids, Type: outType}
		})
	f.outType = outType
	f.regs = append(append([]int{}, lf.regs...), rf.regs...)
	return f, nil
}

func project(f *frag, proj cra.Proj) error {
	for i, p := range f.classes {
		if p.Proj != cra.ProjNone && p.Proj != proj {
			return &Error{Node: "tensor",
				Msg: "predicate " + p.String() + " conflicts with the side's projection"}
		}
		f.classes[i] = p.OnProj(proj)
	}
	return nil
}

func invert(maps [][]int, classes int) [][]int {
	invs := make([][]int, len(maps))
	for i, m := range maps {
		inv := make([]int, classes)
		for j := range inv {
			inv[j] = -1
		}
		for lc, mc := range m {
			inv[mc] = lc
		}
		invs[i] = inv
	}
	return invs
}

// flatten lowers an output expression tree into straight-line assignments
// and returns the register holding the result. A bare register read needs
// no assignment; everything else lands in a scratch register.
func (c *compiler) flatten(o *cra.Output, base string) (cra.Program, int) {
	if len(o.Kids) == 0 {
		if o.Op.Kind == value.OpIdentity && len(o.Args) == 1 && o.Args[0].Kind == cra.OperandReg {
			return nil, o.Args[0].Reg
		}
		r := c.addScratch(base, o.Type)
		return cra.Program{{Dst: r, Op: o.Op, Args: o.Args}}, r
	}
	var prog cra.Program
	args := make([]cra.Operand, len(o.Kids))
	for i, kid := range o.Kids {
		p, kr := c.flatten(kid, base)
		prog = append(prog, p...)
		args[i] = cra.Reg(kr)
	}
	r := c.addScratch(base, o.Type)
	prog = append(prog, cra.Assign{Dst: r, Op: o.Op, Args: args})
	return prog, r
}

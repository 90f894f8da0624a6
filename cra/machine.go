package cra

import (
	"github.com/pflow-xyz/go-qre/value"
)

// CombineRule says how a register's value at a chunk boundary composes
// with the value computed independently for the following chunk.
type CombineRule int

const (
	// CombineRightmost: every write to the register is fresh (reads no
	// register state from before the current symbol), so the later
	// chunk's value wins whenever the register was touched.
	CombineRightmost CombineRule = iota
	// CombineFold: every write folds the register with an associative
	// op, so chunk values combine by applying the fold across the
	// boundary.
	CombineFold
)

// RegisterDef declares one register of a machine: its name, fixed type,
// initial value, and how chunk-level values of it combine.
type RegisterDef struct {
	Name    string
	Type    value.Type
	Initial value.Value
	Rule    CombineRule
	Fold    value.Op // meaningful only when Rule == CombineFold
}

// OperandKind discriminates update-function operands.
type OperandKind int

const (
	OperandReg OperandKind = iota
	OperandSym
	OperandLit
)

// Operand is one argument of an update assignment: a register, the
// consumed symbol's value, or a literal.
type Operand struct {
	Kind OperandKind
	Reg  int
	Lit  value.Value
}

// Reg returns a register operand.
func Reg(i int) Operand { return Operand{Kind: OperandReg, Reg: i} }

// SymArg returns the consumed-symbol operand.
func SymArg() Operand { return Operand{Kind: OperandSym} }

// Lit returns a literal operand.
func Lit(v value.Value) Operand { return Operand{Kind: OperandLit, Lit: v} }

// Assign is one straight-line register assignment: dst := op(args...).
// Assignments in a Program execute in order; later assignments observe
// earlier results. There is no branching and no iteration.
type Assign struct {
	Dst  int
	Op   value.Op
	Args []Operand
}

// Program is the update function attached to a transition.
type Program []Assign

// Edge is one transition: the successor state and the update to run while
// taking it.
type Edge struct {
	Target int
	Update Program
}

// Output is the partial output function of a state, as an expression tree
// over registers and literals. A leaf applies Op to Args; an inner node
// applies Op to its children's results.
type Output struct {
	Op   value.Op
	Args []Operand // leaf operands; nil for inner nodes
	Kids []*Output
	Type value.Type
}

// Machine is a compiled cost register automaton. It is deterministic:
// the classes partition the input alphabet, and each state has at most
// one edge per class. Symbols matching no class, and states with no edge
// for a class, route to the absorbing reject state, which keeps Step
// total. A Machine is immutable once built.
type Machine struct {
	Name      string
	States    []string
	Initial   int
	Reject    int
	Registers []RegisterDef
	Classes   []Pred
	Trans     [][]*Edge // Trans[state][class]; nil routes to Reject
	Outputs   []*Output // per state; nil means no output
	OutType   value.Type

	Parallel bool // see Parallelizable
}

// RegisterIndex returns the index of the named register, or -1.
func (m *Machine) RegisterIndex(name string) int {
	for i, r := range m.Registers {
		if r.Name == name {
			return i
		}
	}
	return -1
}

// StateIndex returns the index of the named state, or -1.
func (m *Machine) StateIndex(name string) int {
	for i, s := range m.States {
		if s == name {
			return i
		}
	}
	return -1
}

// Classify returns the index of the predicate class admitting the symbol,
// or -1 if no class matches.
func (m *Machine) Classify(s Symbol) int {
	for i, p := range m.Classes {
		if p.Match(s) {
			return i
		}
	}
	return -1
}

// Step consumes one symbol, committing the successor state and updated
// registers into the config. It is total: unmatched symbols, missing
// edges, and (unreachable for compiled machines) ill-typed updates all
// route to the absorbing reject state.
func (m *Machine) Step(c *Config, s Symbol) {
	m.StepTrace(c, s, nil)
}

// StepTrace is Step with write tracking: when touched is non-nil, the
// index of every register assigned during this step is marked true.
// Used by the chunk combiner to build per-start-state effect tables.
func (m *Machine) StepTrace(c *Config, s Symbol, touched []bool) {
	if c.State == m.Reject {
		return
	}
	class := m.Classify(s)
	if class < 0 {
		c.State = m.Reject
		return
	}
	edge := m.Trans[c.State][class]
	if edge == nil {
		c.State = m.Reject
		return
	}
	for _, a := range edge.Update {
		args := make([]value.Value, len(a.Args))
		for i, op := range a.Args {
			switch op.Kind {
			case OperandReg:
				args[i] = c.Registers[op.Reg]
			case OperandSym:
				args[i] = s.Value
			case OperandLit:
				args[i] = op.Lit
			}
		}
		v, err := a.Op.Apply(args)
		if err != nil {
			c.State = m.Reject
			return
		}
		c.Registers[a.Dst] = v
		if touched != nil {
			touched[a.Dst] = true
		}
	}
	c.State = edge.Target
}

// Emit returns the machine's output for the current configuration, or
// ok=false when the state has no output yet. It never fails: emission is
// a total partial-function lookup.
func (m *Machine) Emit(c *Config) (value.Value, bool) {
	out := m.Outputs[c.State]
	if out == nil {
		return value.Value{}, false
	}
	v, err := m.evalOutput(out, c.Registers)
	if err != nil {
		return value.Value{}, false
	}
	return v, true
}

func (m *Machine) evalOutput(o *Output, regs []value.Value) (value.Value, error) {
	var args []value.Value
	if len(o.Kids) > 0 {
		args = make([]value.Value, len(o.Kids))
		for i, kid := range o.Kids {
			v, err := m.evalOutput(kid, regs)
			if err != nil {
				return value.Value{}, err
			}
			args[i] = v
		}
	} else {
		args = make([]value.Value, len(o.Args))
		for i, op := range o.Args {
			switch op.Kind {
			case OperandReg:
				args[i] = regs[op.Reg]
			case OperandLit:
				args[i] = op.Lit
			}
		}
	}
	return o.Op.Apply(args)
}

// Parallelizable reports whether chunk-level run results of this machine
// compose exactly, i.e. whether every register's writes are all fresh or
// all associative self-folds. Set by the compiler.
func (m *Machine) Parallelizable() bool { return m.Parallel }

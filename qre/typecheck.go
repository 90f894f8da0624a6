package qre

import (
	"fmt"
	"strings"

	"github.com/pflow-xyz/go-qre/value"
)

// TypeError reports an ill-typed composition, naming the offending node
// and, where relevant, the register involved. It is raised only before
// automaton construction; a query that typechecks cannot fail at runtime.
type TypeError struct {
	Node     string
	Register string
	Msg      string
}

func (e *TypeError) Error() string {
	s := "qre: " + e.Node
	if e.Register != "" {
		s += " register " + e.Register
	}
	return s + ": " + e.Msg
}

// Register describes one statically-declared register of a query: its
// name, fixed type, initial value, and, for iteration accumulators, the
// fold op applied across iterations.
type Register struct {
	Name    string
	Type    value.Type
	Initial value.Value
	Fold    *value.Op
}

// Typecheck validates the query and returns its full register set and
// output type. It fails when register names collide across
// sub-expressions, a handoff references an undeclared register, a fold
// or merge is ill-typed, or tensor sides are not over independent
// projections.
func Typecheck(n Node) ([]Register, value.Type, error) {
	regs, out, err := check(n)
	if err != nil {
		return nil, value.Type{}, err
	}
	return regs, out, nil
}

// Registers returns the statically-determined register set of a query.
func Registers(n Node) ([]Register, error) {
	regs, _, err := Typecheck(n)
	return regs, err
}

// OutputType returns the statically-determined output type of a query.
func OutputType(n Node) (value.Type, error) {
	_, out, err := Typecheck(n)
	return out, err
}

func check(n Node) ([]Register, value.Type, error) {
	switch n := n.(type) {
	case *AtomNode:
		if err := checkName(n, n.Reg); err != nil {
			return nil, value.Type{}, err
		}
		regType, err := n.Init.Result([]value.Type{n.SymType})
		if err != nil {
			return nil, value.Type{}, &TypeError{Node: describe(n), Register: n.Reg, Msg: err.Error()}
		}
		reg := Register{Name: n.Reg, Type: regType, Initial: value.Zero(regType)}
		return []Register{reg}, regType, nil

	case *MapNode:
		regs, inner, err := check(n.Inner)
		if err != nil {
			return nil, value.Type{}, err
		}
		out, err := n.Op.Result([]value.Type{inner})
		if err != nil {
			return nil, value.Type{}, &TypeError{Node: describe(n), Msg: err.Error()}
		}
		return regs, out, nil

	case *ConcatNode:
		left, _, err := check(n.Left)
		if err != nil {
			return nil, value.Type{}, err
		}
		right, out, err := check(n.Right)
		if err != nil {
			return nil, value.Type{}, err
		}
		regs, err := disjointUnion(n, left, right)
		if err != nil {
			return nil, value.Type{}, err
		}
		for _, h := range n.Handoff {
			dst := find(right, h.Dst)
			if dst == nil {
				return nil, value.Type{}, &TypeError{Node: describe(n), Register: h.Dst,
					Msg: "handoff target is not a register of the right side"}
			}
			argTypes := make([]value.Type, len(h.Args))
			for i, a := range h.Args {
				src := find(left, a)
				if src == nil {
					return nil, value.Type{}, &TypeError{Node: describe(n), Register: a,
						Msg: "handoff source is not a register of the left side"}
				}
				argTypes[i] = src.Type
			}
			got, err := h.Op.Result(argTypes)
			if err != nil {
				return nil, value.Type{}, &TypeError{Node: describe(n), Register: h.Dst, Msg: err.Error()}
			}
			if !got.Equal(dst.Type) {
				return nil, value.Type{}, &TypeError{Node: describe(n), Register: h.Dst,
					Msg: fmt.Sprintf("handoff produces %s, register holds %s", got, dst.Type)}
			}
		}
		return regs, out, nil

	case *IterateNode:
		if err := checkName(n, n.Acc); err != nil {
			return nil, value.Type{}, err
		}
		body, bodyOut, err := check(n.Body)
		if err != nil {
			return nil, value.Type{}, err
		}
		accType := n.Initial.Type()
		got, err := n.Fold.Result([]value.Type{accType, bodyOut})
		if err != nil {
			return nil, value.Type{}, &TypeError{Node: describe(n), Register: n.Acc, Msg: err.Error()}
		}
		if !got.Equal(accType) {
			return nil, value.Type{}, &TypeError{Node: describe(n), Register: n.Acc,
				Msg: fmt.Sprintf("fold produces %s, accumulator holds %s", got, accType)}
		}
		fold := n.Fold
		acc := Register{Name: n.Acc, Type: accType, Initial: n.Initial, Fold: &fold}
		regs, err := disjointUnion(n, body, []Register{acc})
		if err != nil {
			return nil, value.Type{}, err
		}
		return regs, accType, nil

	case *SplitNode:
		if len(n.Branches) == 0 {
			return nil, value.Type{}, &TypeError{Node: describe(n), Msg: "split needs at least one branch"}
		}
		var regs []Register
		outs := make([]value.Type, len(n.Branches))
		for i, b := range n.Branches {
			bregs, bout, err := check(b)
			if err != nil {
				return nil, value.Type{}, err
			}
			regs, err = disjointUnion(n, regs, bregs)
			if err != nil {
				return nil, value.Type{}, err
			}
			outs[i] = bout
		}
		out, err := n.Merge.Result(outs)
		if err != nil {
			return nil, value.Type{}, &TypeError{Node: describe(n), Msg: err.Error()}
		}
		return regs, out, nil

	case *TensorNode:
		if hasTensor(n.Left) || hasTensor(n.Right) {
			return nil, value.Type{}, &TypeError{Node: describe(n),
				Msg: "tensor sides must not contain a nested tensor: projections would not be independent"}
		}
		left, lout, err := check(n.Left)
		if err != nil {
			return nil, value.Type{}, err
		}
		right, rout, err := check(n.Right)
		if err != nil {
			return nil, value.Type{}, err
		}
		regs, err := disjointUnion(n, left, right)
		if err != nil {
			return nil, value.Type{}, err
		}
		return regs, value.TTuple(lout, rout), nil
	}
	return nil, value.Type{}, &TypeError{Node: "node", Msg: "unknown combinator"}
}

func checkName(n Node, name string) error {
	if name == "" {
		return &TypeError{Node: describe(n), Msg: "register name must not be empty"}
	}
	if strings.Contains(name, "~") {
		return &TypeError{Node: describe(n), Register: name,
			Msg: "register names must not contain '~' (reserved for compiler scratch registers)"}
	}
	return nil
}

func find(regs []Register, name string) *Register {
	for i := range regs {
		if regs[i].Name == name {
			return &regs[i]
		}
	}
	return nil
}

func disjointUnion(n Node, a, b []Register) ([]Register, error) {
	for _, r := range b {
		if find(a, r.Name) != nil {
			return nil, &TypeError{Node: describe(n), Register: r.Name,
				Msg: "register declared by more than one sub-expression"}
		}
	}
	out := make([]Register, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out, nil
}

func hasTensor(n Node) bool {
	switch n := n.(type) {
	case *AtomNode:
		return false
	case *MapNode:
		return hasTensor(n.Inner)
	case *ConcatNode:
		return hasTensor(n.Left) || hasTensor(n.Right)
	case *IterateNode:
		return hasTensor(n.Body)
	case *SplitNode:
		for _, b := range n.Branches {
			if hasTensor(b) {
				return true
			}
		}
		return false
	case *TensorNode:
		return true
	}
	return false
}

// Package qre defines the combinator algebra of quantitative regular
// expressions: the declarative source language that the compile package
// translates into cost register automata.
//
// A query is built directly from the constructors here (there is no
// surface syntax): atoms match single symbols and initialize registers,
// and the remaining combinators compose sub-queries by concatenation,
// iteration, lockstep split, and projection tensor. Typecheck rejects
// ill-formed compositions before any automaton is constructed.
package qre

import (
	"github.com/pflow-xyz/go-qre/cra"
	"github.com/pflow-xyz/go-qre/value"
)

// Node is one combinator of the closed QRE algebra.
type Node interface {
	isNode()
}

// AtomNode matches a single symbol admitted by Pred and initializes its
// register from the symbol: reg := Init(sym). SymType declares the value
// type of the symbols the predicate is used with; the register's type is
// Init's result over it.
type AtomNode struct {
	Pred    cra.Pred
	Reg     string
	SymType value.Type
	Init    value.Op
}

// MapNode post-processes the output of Inner with a unary op.
type MapNode struct {
	Inner Node
	Op    value.Op
}

// ConcatNode evaluates Left to completion, then feeds the remaining
// input to Right. The handoff assignments run at the switch point,
// initializing right-side registers from left-side ones; right-side
// registers without a handoff start from their declared initial values.
type ConcatNode struct {
	Left    Node
	Right   Node
	Handoff []HandoffAssign
}

// HandoffAssign is one register handoff: Dst := Op(Args...), where Dst
// is a right-side register and Args are left-side registers.
type HandoffAssign struct {
	Dst  string
	Op   value.Op
	Args []string
}

// IterateNode repeats Body zero or more times, folding successive body
// outputs into the accumulator register: Acc := Fold(Acc, body output).
// Body registers reset to their initial values on every loop-back; only
// the accumulator carries across iterations. Initial must be an identity
// of Fold for chunk-parallel evaluation to be exact.
type IterateNode struct {
	Body    Node
	Acc     string
	Initial value.Value
	Fold    value.Op
}

// SplitNode evaluates all branches in lockstep on the same input and
// merges their outputs. A merged output exists only when every branch
// currently has one.
type SplitNode struct {
	Branches []Node
	Merge    value.Op
}

// TensorNode evaluates Left and Right on independent projections of the
// input (left- and right-tagged symbols) and pairs their outputs once
// both have produced one.
type TensorNode struct {
	Left  Node
	Right Node
}

func (*AtomNode) isNode()    {}
func (*MapNode) isNode()     {}
func (*ConcatNode) isNode()  {}
func (*IterateNode) isNode() {}
func (*SplitNode) isNode()   {}
func (*TensorNode) isNode()  {}

// Atom matches one symbol admitted by pred and sets reg := init(sym).
func Atom(pred cra.Pred, reg string, symType value.Type, init value.Op) *AtomNode {
	return &AtomNode{Pred: pred, Reg: reg, SymType: symType, Init: init}
}

// Map applies a unary op to the output of inner.
func Map(inner Node, op value.Op) *MapNode {
	return &MapNode{Inner: inner, Op: op}
}

// Concat sequences left before right with the given register handoff.
func Concat(left, right Node, handoff ...HandoffAssign) *ConcatNode {
	hs := make([]HandoffAssign, len(handoff))
	copy(hs, handoff)
	return &ConcatNode{Left: left, Right: right, Handoff: hs}
}

// Handoff declares one handoff assignment for Concat.
func Handoff(dst string, op value.Op, args ...string) HandoffAssign {
	as := make([]string, len(args))
	copy(as, args)
	return HandoffAssign{Dst: dst, Op: op, Args: as}
}

// Iterate repeats body, folding outputs into the acc register.
func Iterate(body Node, acc string, initial value.Value, fold value.Op) *IterateNode {
	return &IterateNode{Body: body, Acc: acc, Initial: initial, Fold: fold}
}

// Split evaluates branches in lockstep and merges their outputs.
func Split(merge value.Op, branches ...Node) *SplitNode {
	bs := make([]Node, len(branches))
	copy(bs, branches)
	return &SplitNode{Branches: bs, Merge: merge}
}

// Tensor pairs left and right over independent input projections.
func Tensor(left, right Node) *TensorNode {
	return &TensorNode{Left: left, Right: right}
}

// describe names a node for error reporting.
func describe(n Node) string {
	switch n := n.(type) {
	case *AtomNode:
		return "atom(" + n.Reg + ")"
	case *MapNode:
		return "map"
	case *ConcatNode:
		return "concat"
	case *IterateNode:
		return "iterate(" + n.Acc + ")"
	case *SplitNode:
		return "split"
	case *TensorNode:
		return "tensor"
	}
	return "node"
}

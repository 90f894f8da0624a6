// Package cra implements cost register automata: the deterministic
// compilation target for quantitative regular expressions. A machine is
// built once by the compile package, is immutable afterwards, and is
// instantiated per stream or per chunk as a Config holding the current
// state and register values.
package cra

import "github.com/pflow-xyz/go-qre/value"

// Proj identifies which logical projection of a combined stream a symbol
// belongs to. Plain streams use ProjNone; tensor queries route left- and
// right-tagged symbols to their respective sides.
type Proj int

const (
	ProjNone Proj = iota
	ProjLeft
	ProjRight
)

// String returns the projection name.
func (p Proj) String() string {
	switch p {
	case ProjLeft:
		return "left"
	case ProjRight:
		return "right"
	}
	return "none"
}

// Symbol is one input item: a typed value, an optional application tag
// used by tagged predicates, and an optional projection.
type Symbol struct {
	Value value.Value
	Tag   string
	Proj  Proj
}

// Sym builds an untagged symbol.
func Sym(v value.Value) Symbol { return Symbol{Value: v} }

// TaggedSym builds a symbol carrying a discriminant tag.
func TaggedSym(tag string, v value.Value) Symbol { return Symbol{Value: v, Tag: tag} }

// Left marks a symbol as belonging to the left projection of a tensor
// stream.
func Left(s Symbol) Symbol {
	s.Proj = ProjLeft
	return s
}

// Right marks a symbol as belonging to the right projection of a tensor
// stream.
func Right(s Symbol) Symbol {
	s.Proj = ProjRight
	return s
}

package cra

import (
	"fmt"

	"github.com/pflow-xyz/go-qre/value"
)

// PredKind identifies one of the closed set of symbol predicates.
type PredKind int

const (
	PredAny PredKind = iota
	PredNumber
	PredString
	PredBool
	PredTag
)

// Pred is a predicate over symbols. Predicates come from a closed set so
// that pairwise disjointness is decidable: the compiler must partition the
// input alphabet into classes before any input is processed.
type Pred struct {
	Kind PredKind
	Tag  string // PredTag discriminant
	Proj Proj   // ProjNone matches symbols of any projection
}

// Any matches every symbol.
func Any() Pred { return Pred{Kind: PredAny} }

// Number matches int and float symbols.
func Number() Pred { return Pred{Kind: PredNumber} }

// Text matches string symbols.
func Text() Pred { return Pred{Kind: PredString} }

// Truth matches bool symbols.
func Truth() Pred { return Pred{Kind: PredBool} }

// Tag matches symbols carrying the given discriminant tag.
func Tag(tag string) Pred { return Pred{Kind: PredTag, Tag: tag} }

// OnProj restricts the predicate to symbols of the given projection.
func (p Pred) OnProj(proj Proj) Pred {
	p.Proj = proj
	return p
}

// Match reports whether the predicate admits the symbol.
func (p Pred) Match(s Symbol) bool {
	if p.Proj != ProjNone && s.Proj != p.Proj {
		return false
	}
	switch p.Kind {
	case PredAny:
		return true
	case PredNumber:
		k := s.Value.Kind()
		return k == value.KindInt || k == value.KindFloat
	case PredString:
		return s.Value.Kind() == value.KindString
	case PredBool:
		return s.Value.Kind() == value.KindBool
	case PredTag:
		return s.Tag == p.Tag
	}
	return false
}

// Equal reports predicate identity.
func (p Pred) Equal(q Pred) bool {
	return p.Kind == q.Kind && p.Tag == q.Tag && p.Proj == q.Proj
}

// Disjoint reports whether the two predicates provably match no common
// symbol. ok is false when the pair overlaps without being equal (for
// example Any against Number, or a tag against a kind predicate), in
// which case they cannot share a partition of the alphabet.
func (p Pred) Disjoint(q Pred) (disjoint, ok bool) {
	if p.Equal(q) {
		return false, true
	}
	if p.Proj != ProjNone && q.Proj != ProjNone && p.Proj != q.Proj {
		return true, true
	}
	if p.Kind == PredAny || q.Kind == PredAny {
		return false, false
	}
	if p.Kind == PredTag && q.Kind == PredTag {
		if p.Tag != q.Tag {
			return true, true
		}
		return false, false // same tag, different projection constraints
	}
	if p.Kind == PredTag || q.Kind == PredTag {
		return false, false // tag vs kind overlap is not decidable here
	}
	if p.Kind != q.Kind {
		return true, true
	}
	return false, false
}

// String returns a readable predicate description.
func (p Pred) String() string {
	var s string
	switch p.Kind {
	case PredAny:
		s = "any"
	case PredNumber:
		s = "number"
	case PredString:
		s = "string"
	case PredBool:
		s = "bool"
	case PredTag:
		s = fmt.Sprintf("tag(%s)", p.Tag)
	}
	if p.Proj != ProjNone {
		s += "@" + p.Proj.String()
	}
	return s
}

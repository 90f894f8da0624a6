package compile

import (
	"strconv"

	"github.com/pflow-xyz/go-qre/cra"
	"github.com/pflow-xyz/go-qre/value"
)

// frag is an automaton fragment under construction: a set of states with
// class-indexed edges and a partial output on its accepting states.
// Register operands always use the compiler's global register indices, so
// fragments combine without renumbering registers; only state indices are
// fragment-local.
type frag struct {
	states  []string
	initial int
	classes []cra.Pred
	edges   map[int]map[int]*fragEdge
	accepts map[int]*cra.Output
	outType value.Type
	regs    []int // global indices of registers declared in this subtree
}

type fragEdge struct {
	target int
	update cra.Program
}

func (c *compiler) newFrag(classes []cra.Pred) *frag {
	return &frag{
		classes: classes,
		edges:   make(map[int]map[int]*fragEdge),
		accepts: make(map[int]*cra.Output),
	}
}

func (f *frag) addState(name string) int {
	f.states = append(f.states, name)
	return len(f.states) - 1
}

func (f *frag) edge(from, class int, e *fragEdge) {
	row := f.edges[from]
	if row == nil {
		row = make(map[int]*fragEdge)
		f.edges[from] = row
	}
	row[class] = e
}

// definite reports whether the fragment matches a prefix of determinate
// extent: its accepting states are terminal and its initial state does not
// accept. Concatenation lefts and iteration bodies must be definite, or
// the switch point would be ambiguous.
func definite(f *frag) bool {
	if f.accepts[f.initial] != nil {
		return false
	}
	for s := range f.accepts {
		if len(f.edges[s]) > 0 {
			return false
		}
	}
	return true
}

// mergeClasses folds src's predicate classes into dst. Each src predicate
// must be equal to an existing class or provably disjoint from all of
// them; overlap without equality means the alphabet cannot be partitioned
// deterministically. Returns the extended class list (dst is a stable
// prefix of it) and the src-local to merged index map.
func mergeClasses(node string, dst, src []cra.Pred) ([]cra.Pred, []int, error) {
	srcMap := make([]int, len(src))
	for i, p := range src {
		found := -1
		for j, q := range dst {
			if p.Equal(q) {
				found = j
				break
			}
			disjoint, ok := p.Disjoint(q)
			if !ok || !disjoint {
				return nil, nil, &Error{Node: node,
					Msg: "predicates " + p.String() + " and " + q.String() + " overlap without being equal"}
			}
		}
		if found < 0 {
			dst = append(dst, p)
			found = len(dst) - 1
		}
		srcMap[i] = found
	}
	return dst, srcMap, nil
}

// product runs several fragments in lockstep over a shared class list and
// keeps the reachable component-state tuples. invs[i][class] names
// fragment i's local class for a merged class, or -1 when the class is
// outside its alphabet. When stay is true a fragment ignores classes
// outside its alphabet (tensor sides over disjoint projections); when
// false such classes reject the whole product (split branches over a
// shared alphabet).
func (c *compiler) product(frags []*frag, classes []cra.Pred, invs [][]int, stay bool,
	merge func(kids []*cra.Output) *cra.Output) *frag {

	f := c.newFrag(classes)
	index := make(map[string]int)

	intern := func(tuple []int) (int, bool) {
		k := tupleKey(tuple)
		if id, ok := index[k]; ok {
			return id, false
		}
		id := f.addState(c.stateName())
		index[k] = id
		return id, true
	}

	start := make([]int, len(frags))
	for i, fr := range frags {
		start[i] = fr.initial
	}
	init, _ := intern(start)
	f.initial = init

	queue := [][]int{start}
	ids := []int{init}
	for len(queue) > 0 {
		cur, curID := queue[0], ids[0]
		queue, ids = queue[1:], ids[1:]

		for mc := range classes {
			next := make([]int, len(frags))
			var prog cra.Program
			ok, moved := true, false
			for i, fr := range frags {
				lc := invs[i][mc]
				if lc < 0 {
					if !stay {
						ok = false
						break
					}
					next[i] = cur[i]
					continue
				}
				e := fr.edges[cur[i]][lc]
				if e == nil {
					ok = false
					break
				}
				next[i] = e.target
				prog = append(prog, e.update...)
				moved = true
			}
			if !ok || !moved {
				continue
			}
			tid, fresh := intern(next)
			if fresh {
				queue = append(queue, next)
				ids = append(ids, tid)
			}
			f.edge(curID, mc, &fragEdge{target: tid, update: prog})
		}

		outs := make([]*cra.Output, len(frags))
		all := true
		for i, fr := range frags {
			outs[i] = fr.accepts[cur[i]]
			if outs[i] == nil {
				all = false
				break
			}
		}
		if all {
			f.accepts[curID] = merge(outs)
		}
	}
	return f
}

func tupleKey(tuple []int) string {
	b := make([]byte, 0, len(tuple)*4)
	for _, s := range tuple {
		b = strconv.AppendInt(b, int64(s), 10)
		b = append(b, ',')
	}
	return string(b)
}

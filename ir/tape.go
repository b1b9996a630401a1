package ir

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"golang.org/x/exp/slices"

	"github.com/sfcgeorge/ao/errs"
	"github.com/sfcgeorge/ao/opcode"
	"github.com/sfcgeorge/ao/tree"
)

// Tape is the compiled, topologically ordered program produced from a
// tree.Node DAG by Compile, per spec.md §3-§4.1.
type Tape struct {
	Clauses []Clause
	Root    ClauseId

	varIds []VarId // dense, sorted, distinct VarIds referenced by VARFREE clauses
	varVal map[VarId]float64

	// choiceSide[id] records the currently-active push/pop specialization
	// for a MIN/MAX clause: 0 (none), 1 (forward A), 2 (forward B).
	choiceSide []int8
	enabled    []bool
	stack      []pushFrame
}

type pushFrame struct {
	touched []ClauseId
	old     []int8
}

// Compile lowers a tree.Node DAG to a Tape: topological sort, structural
// dedup, and constant folding, per spec.md §4.1.
func Compile(root *tree.Node) *Tape {
	t := &Tape{varVal: map[VarId]float64{}}
	seen := map[*tree.Node]ClauseId{}
	dedup := map[Clause]ClauseId{}
	varSeen := map[VarId]bool{}

	var visit func(n *tree.Node) ClauseId
	visit = func(n *tree.Node) ClauseId {
		if id, ok := seen[n]; ok {
			return id
		}
		var c Clause
		switch opcode.Arity(n.Op) {
		case 0:
			c = Clause{Op: n.Op, A: NoClause, B: NoClause, Constant: n.Constant, Var: VarId(n.Var)}
			if n.Op == opcode.VARFREE {
				if !varSeen[c.Var] {
					varSeen[c.Var] = true
					t.varIds = append(t.varIds, c.Var)
				}
				if _, ok := t.varVal[c.Var]; !ok {
					t.varVal[c.Var] = 0
				}
			}
		case 1:
			a := visit(n.A)
			c = Clause{Op: n.Op, A: a, B: NoClause}
			if folded, ok := tryFold(t, c); ok {
				c = folded
			}
		case 2:
			a := visit(n.A)
			b := visit(n.B)
			c = Clause{Op: n.Op, A: a, B: b}
			if op := canonicalCommutative(c.Op); op {
				ops := []ClauseId{a, b}
				slices.Sort(ops)
				c.A, c.B = ops[0], ops[1]
			}
			if folded, ok := tryFold(t, c); ok {
				c = folded
			}
		}
		if id, ok := dedup[c]; ok {
			seen[n] = id
			return id
		}
		id := ClauseId(len(t.Clauses))
		t.Clauses = append(t.Clauses, c)
		dedup[c] = id
		seen[n] = id
		return id
	}

	t.Root = visit(root)
	slices.Sort(t.varIds)
	t.choiceSide = make([]int8, len(t.Clauses))
	t.recompute()
	// Drop clauses that folding left unreachable from Root, renumbering the rest in order.
	remap := make([]ClauseId, len(t.Clauses)+1) // remap[id+1]; remap[0] stays NoClause
	remap[0] = NoClause
	var kept []Clause
	for id, c := range t.Clauses {
		if t.enabled[id] {
			c.A, c.B = remap[c.A+1], remap[c.B+1]
			remap[id+1] = ClauseId(len(kept))
			kept = append(kept, c)
		}
	}
	t.Clauses, t.Root = kept, remap[t.Root+1]
	t.choiceSide = t.choiceSide[:len(kept)]
	t.recompute()
	return t
}

// canonicalCommutative reports whether op's two operands may be reordered
// by ascending ClauseId before deduplication, letting a+b and b+a (or
// min(a,b) and min(b,a)) collapse to the same clause.
func canonicalCommutative(op opcode.Opcode) bool {
	switch op {
	case opcode.ADD, opcode.MUL, opcode.MIN, opcode.MAX:
		return true
	default:
		return false
	}
}

func tryFold(t *Tape, c Clause) (Clause, bool) {
	isConst := func(id ClauseId) (float64, bool) {
		if id == NoClause {
			return 0, true
		}
		cl := t.Clauses[id]
		if cl.Op == opcode.CONST {
			return cl.Constant, true
		}
		return 0, false
	}
	av, aok := isConst(c.A)
	if !aok {
		return Clause{}, false
	}
	bv := 0.0
	if c.B != NoClause {
		v, ok := isConst(c.B)
		if !ok {
			return Clause{}, false
		}
		bv = v
	}
	return Clause{Op: opcode.CONST, A: NoClause, B: NoClause, Constant: opcode.Eval(c.Op, av, bv)}, true
}

// recompute rebuilds the enabled mask as the set of clauses reachable from
// Root, following a MIN/MAX clause's active choiceSide (if any) down only
// the winning operand. This realizes spec.md §4.2's rule: "a clause
// becomes disabled when no enabled consumer references it."
func (t *Tape) recompute() {
	if cap(t.enabled) < len(t.Clauses) {
		t.enabled = make([]bool, len(t.Clauses))
	} else {
		t.enabled = t.enabled[:len(t.Clauses)]
		for i := range t.enabled {
			t.enabled[i] = false
		}
	}
	var visit func(id ClauseId)
	visit = func(id ClauseId) {
		if id == NoClause || t.enabled[id] {
			return
		}
		t.enabled[id] = true
		c := t.Clauses[id]
		switch t.choiceSide[id] {
		case 1:
			visit(c.A)
		case 2:
			visit(c.B)
		default:
			visit(c.A)
			visit(c.B)
		}
	}
	visit(t.Root)
}

// Enabled reports whether id currently participates in evaluation.
func (t *Tape) Enabled(id ClauseId) bool { return t.enabled[id] }

// ChoiceSide reports the active push/pop forcing at a MIN/MAX clause: 0
// (none), 1 (forced to A), 2 (forced to B).
func (t *Tape) ChoiceSide(id ClauseId) int8 { return t.choiceSide[id] }

// Utilization returns the fraction of clauses currently enabled.
func (t *Tape) Utilization() float64 {
	n := 0
	for _, v := range t.enabled {
		if v {
			n++
		}
	}
	if len(t.enabled) == 0 {
		return 1
	}
	return float64(n) / float64(len(t.enabled))
}

// Push specializes the tape by forwarding each decision's losing operand
// out of the enabled set, and returns nothing — callers pop with Pop in
// strict LIFO order (spec.md §4.1, §9's RAII-guard suggestion is realized
// one level up, in eval.Guard).
func (t *Tape) Push(decisions []Decision) {
	frame := pushFrame{}
	for _, d := range decisions {
		if !t.enabled[d.ID] {
			continue
		}
		old := t.choiceSide[d.ID]
		if old == d.Side {
			continue
		}
		frame.touched = append(frame.touched, d.ID)
		frame.old = append(frame.old, old)
		t.choiceSide[d.ID] = d.Side
	}
	t.stack = append(t.stack, frame)
	t.recompute()
}

// Pop reverts the most recent Push. Popping with no matching Push is a
// programmer error (spec.md §7 PushImbalance) and always panics with a
// PushImbalance error, matching the teacher's push/pop discipline around internal/vm call
// frames.
func (t *Tape) Pop() {
	if len(t.stack) == 0 {
		panic(errs.New(errs.PushImbalance, "pop called with an empty push stack"))
	}
	frame := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	for i := len(frame.touched) - 1; i >= 0; i-- {
		t.choiceSide[frame.touched[i]] = frame.old[i]
	}
	t.recompute()
}

// Depth returns the current push/pop specialization depth.
func (t *Tape) Depth() int { return len(t.stack) }

// VarIds returns the distinct free-variable ids referenced anywhere in the
// tape, sorted ascending.
func (t *Tape) VarIds() []VarId { return t.varIds }

// SetVar updates the binding for id in place, without retopologizing the
// tape (spec.md §4.1). It fails with errs.UnknownVar if id never appears
// in the compiled program.
func (t *Tape) SetVar(id VarId, v float64) error {
	if _, ok := t.varVal[id]; !ok {
		return errs.New(errs.UnknownVar, fmt.Sprintf("variable %d is not present in this tape", id))
	}
	t.varVal[id] = v
	return nil
}

// VarValue returns the current binding for id, or errs.UnknownVar.
func (t *Tape) VarValue(id VarId) (float64, error) {
	v, ok := t.varVal[id]
	if !ok {
		return 0, errs.New(errs.UnknownVar, fmt.Sprintf("variable %d is not present in this tape", id))
	}
	return v, nil
}

// VarValues returns a snapshot of all current free-variable bindings.
func (t *Tape) VarValues() map[VarId]float64 {
	out := make(map[VarId]float64, len(t.varVal))
	for k, v := range t.varVal {
		out[k] = v
	}
	return out
}

// Clone returns a new Tape sharing the immutable Clauses slice but with
// independent enabled mask, push stack, and variable bindings, per the
// concurrency contract in spec.md §5.
func (t *Tape) Clone() *Tape {
	c := &Tape{
		Clauses:    t.Clauses, // shared, read-only
		Root:       t.Root,
		varIds:     t.varIds, // shared, read-only
		varVal:     make(map[VarId]float64, len(t.varVal)),
		choiceSide: make([]int8, len(t.choiceSide)),
		enabled:    make([]bool, len(t.enabled)),
	}
	for k, v := range t.varVal {
		c.varVal[k] = v
	}
	copy(c.choiceSide, t.choiceSide)
	copy(c.enabled, t.enabled)
	return c
}

// Stats returns a one-line human-readable diagnostic summary, in the style
// of the teacher's build-statistics reporting.
func (t *Tape) Stats() string {
	live := 0
	for _, v := range t.enabled {
		if v {
			live++
		}
	}
	return fmt.Sprintf("tape{clauses: %s, live: %s, utilization: %.1f%%, depth: %d}",
		humanize.Comma(int64(len(t.Clauses))), humanize.Comma(int64(live)), t.Utilization()*100, t.Depth())
}

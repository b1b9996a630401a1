// Package eval implements the multi-mode evaluation engine described in
// spec.md §4.2: scalar, batch, interval, and free-variable-gradient
// evaluation over a compiled ir.Tape, with push/pop specialization.
package eval

import (
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/sfcgeorge/ao/errs"
	"github.com/sfcgeorge/ao/feature"
	"github.com/sfcgeorge/ao/interval"
	"github.com/sfcgeorge/ao/ir"
	"github.com/sfcgeorge/ao/opcode"
)

// Evaluator owns a Tape and the batch staging buffers used by Set,
// Values, and Derivs. It is not safe for concurrent use across goroutines
// (spec.md §5) — parallel callers must Clone.
type Evaluator struct {
	ID uuid.UUID

	Tape *ir.Tape

	px, py, pz []float64 // staged point per batch slot, grown by Set

	lastInterval []interval.Interval
	lastDominant []int8
}

// NewEvaluator builds an Evaluator over tape.
func NewEvaluator(tape *ir.Tape) *Evaluator {
	return &Evaluator{ID: uuid.New(), Tape: tape}
}

// Clone returns a new Evaluator sharing the immutable clause vector with
// e but holding an independent tape clone, enabled mask, push/pop stack,
// variable bindings, and batch buffers — the concurrency contract of
// spec.md §5.
func (e *Evaluator) Clone() *Evaluator {
	return &Evaluator{ID: uuid.New(), Tape: e.Tape.Clone()}
}

// Utilization returns the fraction of clauses currently enabled.
func (e *Evaluator) Utilization() float64 { return e.Tape.Utilization() }

// SetVar updates a free-variable binding in place.
func (e *Evaluator) SetVar(id ir.VarId, v float64) error {
	if err := e.Tape.SetVar(id, v); err != nil {
		return errs.Wrap(errs.UnknownVar, err, fmt.Sprintf("evaluator %s: SetVar", e.ID))
	}
	return nil
}

// VarValues snapshots the current free-variable bindings.
func (e *Evaluator) VarValues() map[ir.VarId]float64 { return e.Tape.VarValues() }

// scalarValues computes every enabled clause's value at p, respecting any
// active push/pop specialization (a forced MIN/MAX clause forwards its
// winning operand's value rather than recomputing min/max). Disabled
// clauses — the pruned losing side of a forced MIN/MAX and anything only
// reachable through it — are skipped entirely, per spec.md §3: "unmasked
// clauses are skipped in all subsequent evaluations until popped."
func (e *Evaluator) scalarValues(p r3.Vec) []float64 {
	clauses := e.Tape.Clauses
	val := make([]float64, len(clauses))
	for id := range clauses {
		if !e.Tape.Enabled(ir.ClauseId(id)) {
			continue
		}
		c := clauses[id]
		switch c.Op {
		case opcode.CONST:
			val[id] = c.Constant
		case opcode.VARX:
			val[id] = p.X
		case opcode.VARY:
			val[id] = p.Y
		case opcode.VARZ:
			val[id] = p.Z
		case opcode.VARFREE:
			val[id], _ = e.Tape.VarValue(c.Var)
		default:
			a := val[c.A]
			b := 0.0
			if c.B != ir.NoClause {
				b = val[c.B]
			}
			if opcode.IsBranching(c.Op) {
				switch e.Tape.ChoiceSide(ir.ClauseId(id)) {
				case 1:
					val[id] = a
					continue
				case 2:
					val[id] = b
					continue
				}
			}
			val[id] = opcode.Eval(c.Op, a, b)
		}
	}
	return val
}

type leafFunc func(c ir.Clause) dual

func spatialLeaf(p r3.Vec, tape *ir.Tape) leafFunc {
	return func(c ir.Clause) dual {
		d := dual{d: make([]float64, 3)}
		switch c.Op {
		case opcode.CONST:
			d.v = c.Constant
		case opcode.VARX:
			d.v = p.X
			d.d[0] = 1
		case opcode.VARY:
			d.v = p.Y
			d.d[1] = 1
		case opcode.VARZ:
			d.v = p.Z
			d.d[2] = 1
		case opcode.VARFREE:
			d.v, _ = tape.VarValue(c.Var)
		}
		return d
	}
}

func gradientLeaf(p r3.Vec, tape *ir.Tape, idx map[ir.VarId]int, dims int) leafFunc {
	return func(c ir.Clause) dual {
		d := dual{d: make([]float64, dims)}
		switch c.Op {
		case opcode.CONST:
			d.v = c.Constant
		case opcode.VARX:
			d.v = p.X
		case opcode.VARY:
			d.v = p.Y
		case opcode.VARZ:
			d.v = p.Z
		case opcode.VARFREE:
			d.v, _ = tape.VarValue(c.Var)
			if i, ok := idx[c.Var]; ok {
				d.d[i] = 1
			}
		}
		return d
	}
}

// dualPass propagates leaf through every enabled clause in topological
// order, honoring the active push/pop specialization the same way
// scalarValues does — disabled clauses are skipped, not just collapsed.
func (e *Evaluator) dualPass(leaf leafFunc, dims int) []dual {
	clauses := e.Tape.Clauses
	out := make([]dual, len(clauses))
	zero := dual{d: make([]float64, dims)}
	for id := range clauses {
		if !e.Tape.Enabled(ir.ClauseId(id)) {
			continue
		}
		c := clauses[id]
		if opcode.Arity(c.Op) == 0 {
			out[id] = leaf(c)
			continue
		}
		a := out[c.A]
		b := zero
		if c.B != ir.NoClause {
			b = out[c.B]
		}
		if opcode.IsBranching(c.Op) {
			switch e.Tape.ChoiceSide(ir.ClauseId(id)) {
			case 1:
				out[id] = a
				continue
			case 2:
				out[id] = b
				continue
			}
		}
		r, _, _ := evalDual(c.Op, a, b)
		out[id] = r
	}
	return out
}

// ambiguousAt checks ties only at branching clauses that are both enabled
// and not already forced by a push: a forced clause's losing operand is
// disabled and its value isn't computed, and a clause forced by EvalBox's
// interval dominance can't be pointwise-tied at any point within the box
// that dominance was proven over anyway.
func (e *Evaluator) ambiguousAt(val []float64) bool {
	for id, c := range e.Tape.Clauses {
		cid := ir.ClauseId(id)
		if !opcode.IsBranching(c.Op) || !e.Tape.Enabled(cid) || e.Tape.ChoiceSide(cid) != 0 {
			continue
		}
		if val[c.A] == val[c.B] {
			return true
		}
	}
	return false
}

// Eval returns the scalar value of the root clause at p.
func (e *Evaluator) Eval(p r3.Vec) float64 {
	return e.scalarValues(p)[e.Tape.Root]
}

// EvalBox returns a sound interval bound of the root over the box
// [lo, hi], and caches per-clause dominance results for a subsequent
// Push. Disabled clauses are skipped, same as scalarValues.
func (e *Evaluator) EvalBox(lo, hi r3.Vec) interval.Interval {
	clauses := e.Tape.Clauses
	iv := make([]interval.Interval, len(clauses))
	dom := make([]int8, len(clauses))
	for id := range clauses {
		if !e.Tape.Enabled(ir.ClauseId(id)) {
			continue
		}
		c := clauses[id]
		switch c.Op {
		case opcode.CONST:
			iv[id] = interval.Point(c.Constant)
		case opcode.VARX:
			iv[id] = interval.New(lo.X, hi.X)
		case opcode.VARY:
			iv[id] = interval.New(lo.Y, hi.Y)
		case opcode.VARZ:
			iv[id] = interval.New(lo.Z, hi.Z)
		case opcode.VARFREE:
			v, _ := e.Tape.VarValue(c.Var)
			iv[id] = interval.Point(v)
		default:
			a := iv[c.A]
			var b interval.Interval
			if c.B != ir.NoClause {
				b = iv[c.B]
			}
			if opcode.IsBranching(c.Op) {
				switch e.Tape.ChoiceSide(ir.ClauseId(id)) {
				case 1:
					iv[id] = a
					continue
				case 2:
					iv[id] = b
					continue
				}
			}
			r, d := interval.Eval(c.Op, a, b)
			iv[id] = r
			dom[id] = d
		}
	}
	e.lastInterval = iv
	e.lastDominant = dom
	return iv[e.Tape.Root]
}

func (e *Evaluator) ensureWidth(n int) {
	if len(e.px) >= n {
		return
	}
	grow := func(s []float64) []float64 {
		out := make([]float64, n)
		copy(out, s)
		return out
	}
	e.px, e.py, e.pz = grow(e.px), grow(e.py), grow(e.pz)
}

// Set stages p into batch slot, growing the batch as needed.
func (e *Evaluator) Set(p r3.Vec, slot int) {
	e.ensureWidth(slot + 1)
	e.px[slot], e.py[slot], e.pz[slot] = p.X, p.Y, p.Z
}

func (e *Evaluator) slotPoint(slot int) r3.Vec {
	return r3.Vec{X: e.px[slot], Y: e.py[slot], Z: e.pz[slot]}
}

// Values computes the root's value at slots 0..n-1.
func (e *Evaluator) Values(n int) []float64 {
	out := make([]float64, n)
	for slot := 0; slot < n; slot++ {
		out[slot] = e.scalarValues(e.slotPoint(slot))[e.Tape.Root]
	}
	return out
}

// Derivs computes the root's value and gradient (∂/∂x, ∂/∂y, ∂/∂z) at
// slots 0..n-1.
func (e *Evaluator) Derivs(n int) (values []float64, grads []r3.Vec) {
	values = make([]float64, n)
	grads = make([]r3.Vec, n)
	for slot := 0; slot < n; slot++ {
		p := e.slotPoint(slot)
		root := e.dualPass(spatialLeaf(p, e.Tape), 3)[e.Tape.Root]
		values[slot] = root.v
		grads[slot] = r3.Vec{X: root.d[0], Y: root.d[1], Z: root.d[2]}
	}
	return values, grads
}

// GetAmbiguous returns, for slots 0..n-1, whether an active MIN/MAX had
// tied operands at that slot's staged point.
func (e *Evaluator) GetAmbiguous(n int) []bool {
	out := make([]bool, n)
	for slot := 0; slot < n; slot++ {
		out[slot] = e.ambiguousAt(e.scalarValues(e.slotPoint(slot)))
	}
	return out
}

// Gradient returns ∂root/∂var at p for every free variable in the tape.
func (e *Evaluator) Gradient(p r3.Vec) map[ir.VarId]float64 {
	ids := e.Tape.VarIds()
	idx := make(map[ir.VarId]int, len(ids))
	for i, id := range ids {
		idx[id] = i
	}
	root := e.dualPass(gradientLeaf(p, e.Tape, idx, len(ids)), len(ids))[e.Tape.Root]
	out := make(map[ir.VarId]float64, len(ids))
	for i, id := range ids {
		out[id] = root.d[i]
	}
	return out
}

// Push specializes using the most recent EvalBox result: every enabled
// MIN/MAX clause whose interval bound strictly dominated one side is
// forced to that side.
func (e *Evaluator) Push() *Guard {
	var decisions []ir.Decision
	for id, c := range e.Tape.Clauses {
		cid := ir.ClauseId(id)
		if !opcode.IsBranching(c.Op) || !e.Tape.Enabled(cid) {
			continue
		}
		if id < len(e.lastDominant) && e.lastDominant[id] != 0 {
			decisions = append(decisions, ir.Decision{ID: cid, Side: e.lastDominant[id]})
		}
	}
	e.Tape.Push(decisions)
	return &Guard{e: e}
}

// PushFeature specializes using f's recorded branch choices.
func (e *Evaluator) PushFeature(f *feature.Feature) *Guard {
	choices := f.Choices()
	decisions := make([]ir.Decision, len(choices))
	for i, c := range choices {
		decisions[i] = ir.Decision{ID: c.ID, Side: c.Side}
	}
	e.Tape.Push(decisions)
	return &Guard{e: e}
}

// Specialize evaluates the root at p, records the winning side of every
// enabled, not-yet-forced MIN/MAX, and pushes that specialization. An
// already-forced clause is left alone: its losing operand is disabled, so
// its value isn't available to re-decide from, and it's already resolved.
func (e *Evaluator) Specialize(p r3.Vec) *Guard {
	val := e.scalarValues(p)
	var decisions []ir.Decision
	for id, c := range e.Tape.Clauses {
		cid := ir.ClauseId(id)
		if !opcode.IsBranching(c.Op) || !e.Tape.Enabled(cid) || e.Tape.ChoiceSide(cid) != 0 {
			continue
		}
		decisions = append(decisions, ir.Decision{ID: cid, Side: opcode.WinningSide(c.Op, val[c.A], val[c.B])})
	}
	e.Tape.Push(decisions)
	return &Guard{e: e}
}

// Pop reverts the most recent Push/PushFeature/Specialize.
func (e *Evaluator) Pop() { e.Tape.Pop() }

// IsInside reports whether p lies inside the surface (root value < 0).
// On the boundary (root value == 0), per spec.md §4.3, p counts as inside
// iff at least one feature at p has a derivative with some component
// negative along the inward-normal convention (f < 0 means inside, so a
// negative partial means moving that way decreases the value).
func (e *Evaluator) IsInside(p r3.Vec) bool {
	val := e.scalarValues(p)
	root := val[e.Tape.Root]
	if root != 0 {
		return root < 0
	}
	for _, f := range e.FeaturesAt(p) {
		if f.Deriv.X < 0 || f.Deriv.Y < 0 || f.Deriv.Z < 0 {
			return true
		}
	}
	return false
}

// IsAmbiguous reports whether at least one active MIN/MAX has equal
// operands at p.
func (e *Evaluator) IsAmbiguous(p r3.Vec) bool {
	return e.ambiguousAt(e.scalarValues(p))
}

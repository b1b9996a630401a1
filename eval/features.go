package eval

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/sfcgeorge/ao/feature"
	"github.com/sfcgeorge/ao/ir"
	"github.com/sfcgeorge/ao/opcode"
)

// rawChoice is a (clause, side) decision discovered during FeaturesAt's
// depth-first exploration, together with the epsilon direction it was
// accepted under (if any — PushChoice-style decisions, like min(a,a),
// carry no epsilon).
type rawChoice struct {
	id     ir.ClauseId
	side   int8
	eps    r3.Vec
	hasEps bool
}

// branchResult is one surviving combination of branch decisions below
// some clause: the clause's resulting derivative under that combination,
// plus the ordered decisions (deepest first) that produced it.
type branchResult struct {
	deriv r3.Vec
	raw   []rawChoice
}

func cloneRaw(raw []rawChoice) []rawChoice {
	out := make([]rawChoice, len(raw))
	copy(out, raw)
	return out
}

// conflicts reports whether a and b disagree on the side recorded for
// some shared clause id — this can only happen across a DAG diamond,
// where two operands of a non-branching clause both reach the same
// ambiguous ancestor.
func conflicts(a, b []rawChoice) bool {
	for _, x := range a {
		for _, y := range b {
			if x.id == y.id && x.side != y.side {
				return true
			}
		}
	}
	return false
}

func mergeRaw(a, b []rawChoice) []rawChoice {
	out := cloneRaw(a)
outer:
	for _, y := range b {
		for _, x := range out {
			if x.id == y.id {
				continue outer
			}
		}
		out = append(out, y)
	}
	return out
}

// FeaturesAt enumerates the distinct surface Features at p, per spec.md
// §4.3: a depth-first exploration of ambiguous MIN/MAX branchings on the
// path to the root, collapsing branches that resolve to the same
// derivative and minimal choice set (spec.md §9's Open Question
// resolution), and discarding combinations whose epsilons are mutually
// incompatible.
func (e *Evaluator) FeaturesAt(p r3.Vec) []*feature.Feature {
	duals := e.dualPass(spatialLeaf(p, e.Tape), 3)
	cache := map[ir.ClauseId][]branchResult{}
	results := e.exploreFeature(e.Tape.Root, duals, cache)

	var feats []*feature.Feature
	for _, r := range results {
		f := feature.New()
		ok := true
		for i := len(r.raw) - 1; i >= 0; i-- {
			rc := r.raw[i]
			if rc.hasEps {
				if !f.Push(rc.eps, feature.Choice{ID: rc.id, Side: rc.side}) {
					ok = false
					break
				}
			} else {
				f.PushChoice(feature.Choice{ID: rc.id, Side: rc.side})
			}
		}
		if !ok {
			continue
		}
		f.Deriv = r.deriv
		feats = append(feats, f)
	}
	return dedupFeatures(feats)
}

// exploreFeature returns every surviving branch-decision combination
// below clause id, memoized per id so that shared sub-expressions in the
// DAG are explored once.
func (e *Evaluator) exploreFeature(id ir.ClauseId, duals []dual, cache map[ir.ClauseId][]branchResult) []branchResult {
	if cached, ok := cache[id]; ok {
		return cached
	}
	c := e.Tape.Clauses[id]
	var out []branchResult

	switch {
	case opcode.Arity(c.Op) == 0:
		out = []branchResult{{deriv: r3.Vec{X: duals[id].d[0], Y: duals[id].d[1], Z: duals[id].d[2]}}}

	case opcode.IsBranching(c.Op):
		if side := e.Tape.ChoiceSide(id); side != 0 {
			winner := c.A
			if side == 2 {
				winner = c.B
			}
			out = e.exploreFeature(winner, duals, cache)
			break
		}
		av, bv := duals[c.A].v, duals[c.B].v
		if av != bv {
			side := opcode.WinningSide(c.Op, av, bv)
			winner := c.A
			if side == 2 {
				winner = c.B
			}
			out = e.exploreFeature(winner, duals, cache)
			break
		}
		for _, side := range [2]int8{1, 2} {
			winner, loser := c.A, c.B
			if side == 2 {
				winner, loser = c.B, c.A
			}
			loserDeriv := r3.Vec{X: duals[loser].d[0], Y: duals[loser].d[1], Z: duals[loser].d[2]}
			for _, s := range e.exploreFeature(winner, duals, cache) {
				diff := r3.Sub(s.deriv, loserDeriv)
				rc := rawChoice{id: id, side: side}
				if r3.Norm(diff) > 1e-12 {
					rc.eps, rc.hasEps = diff, true
				}
				out = append(out, branchResult{deriv: s.deriv, raw: append(cloneRaw(s.raw), rc)})
			}
		}

	case opcode.Arity(c.Op) == 1:
		for _, s := range e.exploreFeature(c.A, duals, cache) {
			r, _, _ := evalDual(c.Op, dual{v: duals[c.A].v, d: []float64{s.deriv.X, s.deriv.Y, s.deriv.Z}}, dual{})
			out = append(out, branchResult{deriv: r3.Vec{X: r.d[0], Y: r.d[1], Z: r.d[2]}, raw: s.raw})
		}

	default: // binary, non-branching
		for _, sa := range e.exploreFeature(c.A, duals, cache) {
			for _, sb := range e.exploreFeature(c.B, duals, cache) {
				if conflicts(sa.raw, sb.raw) {
					continue
				}
				ad := dual{v: duals[c.A].v, d: []float64{sa.deriv.X, sa.deriv.Y, sa.deriv.Z}}
				bd := dual{v: duals[c.B].v, d: []float64{sb.deriv.X, sb.deriv.Y, sb.deriv.Z}}
				r, _, _ := evalDual(c.Op, ad, bd)
				out = append(out, branchResult{
					deriv: r3.Vec{X: r.d[0], Y: r.d[1], Z: r.d[2]},
					raw:   mergeRaw(sa.raw, sb.raw),
				})
			}
		}
	}

	cache[id] = out
	return out
}

// dedupFeatures implements spec.md §9's Open Question resolution:
// features are grouped by resulting derivative (equal within tolerance
// on every component), and within each group only the one with the
// fewest recorded choices survives — collapsing branches like
// min(X, min(Y,Z))'s (X,Y) and (X,Z) paths when they land on the same
// gradient, without merging genuinely distinct surface directions.
func dedupFeatures(feats []*feature.Feature) []*feature.Feature {
	const tol = 1e-9
	sameDeriv := func(a, b r3.Vec) bool {
		return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol && math.Abs(a.Z-b.Z) < tol
	}
	var out []*feature.Feature
	for _, f := range feats {
		best := -1
		for i, g := range out {
			if sameDeriv(f.Deriv, g.Deriv) {
				best = i
				break
			}
		}
		if best == -1 {
			out = append(out, f)
			continue
		}
		if len(f.Choices()) < len(out[best].Choices()) {
			out[best] = f
		}
	}
	return out
}

// Package feature implements the epsilon-perturbation bookkeeping for
// ambiguous points, per spec.md §4.3. Its API mirrors
// original_source/ao/include/ao/eval/feature.hpp method-for-method.
package feature

import (
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/sfcgeorge/ao/ir"
)

// Choice records a winning side (1 = A, 2 = B) at a MIN/MAX clause.
type Choice struct {
	ID   ir.ClauseId
	Side int8
}

// Feature is a branch-consistent surface element at an ambiguous point:
// an ordered, clause-unique list of Choices, plus a compatible bundle of
// epsilon directions, one per clause that contributed an epsilon. Deriv is
// the feature's effective surface normal, set externally after
// construction (spec.md §3).
type Feature struct {
	choices  []Choice
	epsilons []r3.Vec
	byID     map[ir.ClauseId]r3.Vec

	Deriv r3.Vec
}

// New returns an empty Feature.
func New() *Feature {
	return &Feature{byID: map[ir.ClauseId]r3.Vec{}}
}

// Choices returns the feature's recorded branch choices in list order:
// Push, PushRaw and PushChoice insert at the front, PushChoiceRaw at the
// end.
func (f *Feature) Choices() []Choice {
	out := make([]Choice, len(f.choices))
	copy(out, f.choices)
	return out
}

// ChoiceFor reports the recorded side for id, if any.
func (f *Feature) ChoiceFor(id ir.ClauseId) (int8, bool) {
	for _, c := range f.choices {
		if c.ID == id {
			return c.Side, true
		}
	}
	return 0, false
}

// Epsilon returns the epsilon direction recorded for clause id.
func (f *Feature) Epsilon(id ir.ClauseId) r3.Vec { return f.byID[id] }

// HasEpsilon reports whether clause id has a recorded epsilon.
func (f *Feature) HasEpsilon(id ir.ClauseId) bool {
	_, ok := f.byID[id]
	return ok
}

// IsCompatible reports whether e is compatible with every epsilon already
// accepted into this Feature, per spec.md §4.3.
func (f *Feature) IsCompatible(e r3.Vec) bool {
	n := r3.Norm(e)
	if n == 0 {
		return true
	}
	return isCompatibleSet(f.epsilons, r3.Scale(1/n, e))
}

// Push attempts to add (e, c) to the Feature: it succeeds (pushing to the
// front of the choice list, per the original header) iff e is compatible
// with every previously accepted epsilon and c's clause is not already
// recorded with the other side; otherwise it returns false and leaves the
// Feature unchanged.
func (f *Feature) Push(e r3.Vec, c Choice) bool {
	if side, ok := f.ChoiceFor(c.ID); ok && side != c.Side {
		return false
	}
	n := r3.Norm(e)
	var unit r3.Vec
	if n != 0 {
		unit = r3.Scale(1/n, e)
	}
	if !isCompatibleSet(f.epsilons, unit) {
		return false
	}
	f.PushRaw(c, unit)
	return true
}

// PushRaw inserts a choice and its epsilon without any compatibility
// check, at the front of the choice list.
func (f *Feature) PushRaw(c Choice, e r3.Vec) {
	f.choices = append([]Choice{c}, f.choices...)
	f.epsilons = appendDeduped(f.epsilons, e)
	f.byID[c.ID] = e
}

// PushChoice records a branch decision with no associated epsilon, used
// to collapse cases like min(a, a) where both sides agree and there is no
// meaningful perturbation direction. Inserted at the front of the list.
func (f *Feature) PushChoice(c Choice) {
	f.choices = append([]Choice{c}, f.choices...)
}

// PushChoiceRaw appends a choice to the end of the list, with no epsilon.
func (f *Feature) PushChoiceRaw(c Choice) {
	f.choices = append(f.choices, c)
}

func appendDeduped(epsilons []r3.Vec, e r3.Vec) []r3.Vec {
	const tol = 1e-9
	if slices.ContainsFunc(epsilons, func(existing r3.Vec) bool {
		return r3.Norm(r3.Sub(existing, e)) < tol
	}) {
		return epsilons
	}
	return append(epsilons, e)
}

// isCompatibleSet reports whether the open cone {d : d·f_i > 0 for all
// f_i in set ∪ {e}} is nonempty (e's zero vector is treated as always
// compatible — it carries no constraint).
func isCompatibleSet(set []r3.Vec, e r3.Vec) bool {
	all := make([]r3.Vec, 0, len(set)+1)
	all = append(all, set...)
	if e != (r3.Vec{}) {
		all = append(all, e)
	}
	if len(all) <= 1 {
		return true
	}
	if normal, planar := planarNormal(all); planar {
		return halfCircleCompatible(all, normal)
	}
	return coneFeasible(all)
}

// planarNormal reports whether every vector in vs lies within a common
// plane through the origin, and if so returns that plane's unit normal.
func planarNormal(vs []r3.Vec) (r3.Vec, bool) {
	const tol = 1e-7
	var normal r3.Vec
	found := false
	for i := 0; i < len(vs) && !found; i++ {
		for j := i + 1; j < len(vs); j++ {
			c := r3.Cross(vs[i], vs[j])
			if r3.Norm(c) > tol {
				normal = r3.Scale(1/r3.Norm(c), c)
				found = true
				break
			}
		}
	}
	if !found {
		// every vector is parallel to every other: degenerate but planar
		// (any plane containing the common line works) — report as planar
		// with an arbitrary normal perpendicular to the shared line.
		if len(vs) == 0 {
			return r3.Vec{}, true
		}
		arb := r3.Vec{X: 1, Y: 0, Z: 0}
		if math.Abs(vs[0].X) > 0.9 {
			arb = r3.Vec{X: 0, Y: 1, Z: 0}
		}
		c := r3.Cross(vs[0], arb)
		return r3.Scale(1/r3.Norm(c), c), true
	}
	for _, v := range vs {
		if math.Abs(r3.Dot(v, normal)) > tol {
			return r3.Vec{}, false
		}
	}
	return normal, true
}

// halfCircleCompatible implements spec.md §4.3's coplanar case: project
// every vector into the plane perpendicular to normal, and check that
// they all fit within a common open half-circle, i.e. the largest
// circular gap between consecutive angles exceeds pi.
func halfCircleCompatible(vs []r3.Vec, normal r3.Vec) bool {
	u := pickInPlaneBasis(normal, vs)
	v := r3.Cross(normal, u)

	angles := make([]float64, len(vs))
	for i, vec := range vs {
		angles[i] = math.Atan2(r3.Dot(vec, v), r3.Dot(vec, u))
	}
	slices.Sort(angles)

	maxGap := angles[0] + 2*math.Pi - angles[len(angles)-1]
	for i := 1; i < len(angles); i++ {
		gap := angles[i] - angles[i-1]
		if gap > maxGap {
			maxGap = gap
		}
	}
	return maxGap > math.Pi
}

func pickInPlaneBasis(normal r3.Vec, vs []r3.Vec) r3.Vec {
	for _, v := range vs {
		proj := r3.Sub(v, r3.Scale(r3.Dot(v, normal), normal))
		if n := r3.Norm(proj); n > 1e-9 {
			return r3.Scale(1/n, proj)
		}
	}
	return r3.Vec{X: 1}
}

// coneFeasible implements spec.md §4.3's general 3D case via the
// perceptron algorithm: repeatedly nudge a trial direction towards the
// worst-satisfied constraint. If the system is linearly separable (the
// cone is nonempty), this converges in a bounded number of steps; vs is
// tiny (the epsilon list "seldom > 4", per spec.md §9) so a generous
// iteration cap is cheap insurance against the rare non-convergent case,
// which we then report as incompatible.
func coneFeasible(vs []r3.Vec) bool {
	d := r3.Vec{}
	for _, v := range vs {
		d = r3.Add(d, v)
	}
	if r3.Norm(d) == 0 {
		d = vs[0]
	}
	d = r3.Scale(1/r3.Norm(d), d)

	const maxIter = 256
	const margin = 1e-9
	for iter := 0; iter < maxIter; iter++ {
		worst := -1
		worstVal := margin
		for i, v := range vs {
			dv := r3.Dot(d, v)
			if dv < worstVal {
				worstVal = dv
				worst = i
			}
		}
		if worst == -1 {
			return true
		}
		d = r3.Add(d, r3.Scale(0.5, vs[worst]))
		if n := r3.Norm(d); n > 1e-12 {
			d = r3.Scale(1/n, d)
		} else {
			return false
		}
	}
	return false
}

// Package region implements the axis-aligned sample-grid discretization
// described in spec.md §4.5, grounded on
// original_source/kernel/test/region.cpp.
package region

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/sfcgeorge/ao/interval"
)

// Axis is a discretized 1D grid over a bounded interval: spacing is
// uniform, inferred from the requested resolution, with Bounds possibly
// expanded outward from the caller's request to contain an integer
// sample count.
type Axis struct {
	Bounds interval.Interval
	Values []float64
}

// NewAxis builds an Axis over bounds at resolution res (samples per unit
// length), per spec.md §4.5:
//   - bounds.Lower == bounds.Upper: exactly one sample, at that value.
//   - res == 0: exactly one sample, at the interval midpoint.
//   - otherwise: bounds are expanded outward, symmetrically, so that the
//     expanded width is an integer multiple of 1/res; sample centers are
//     lower + (i+0.5)/res.
func NewAxis(bounds interval.Interval, res float64) Axis {
	if bounds.Lower == bounds.Upper {
		return Axis{Bounds: bounds, Values: []float64{bounds.Lower}}
	}
	if res == 0 {
		return Axis{Bounds: bounds, Values: []float64{bounds.Mid()}}
	}
	width := bounds.Width()
	n := int(math.Ceil(width * res))
	if n < 1 {
		n = 1
	}
	newWidth := float64(n) / res
	pad := (newWidth - width) / 2
	lo, hi := bounds.Lower-pad, bounds.Upper+pad
	values := make([]float64, n)
	for i := range values {
		values[i] = lo + (float64(i)+0.5)/res
	}
	return Axis{Bounds: interval.New(lo, hi), Values: values}
}

// expanded returns a new Axis holding exactly n samples (n a power of
// two, or 1 if a already has exactly one sample), expanding Bounds
// outward symmetrically at a's original per-sample spacing so the
// original interval stays centered and contained.
func (a Axis) expanded(n int) Axis {
	if len(a.Values) <= 1 {
		return a
	}
	spacing := a.Bounds.Width() / float64(len(a.Values))
	newWidth := float64(n) * spacing
	pad := (newWidth - a.Bounds.Width()) / 2
	lo, hi := a.Bounds.Lower-pad, a.Bounds.Upper+pad
	values := make([]float64, n)
	for i := range values {
		values[i] = lo + (float64(i)+0.5)*spacing
	}
	return Axis{Bounds: interval.New(lo, hi), Values: values}
}

func (a Axis) depthNeeded() int {
	if len(a.Values) <= 1 {
		return 0
	}
	d, n := 0, 1
	for n < len(a.Values) {
		n <<= 1
		d++
	}
	return d
}

// Region bundles three Axes discretizing an axis-aligned box.
type Region struct {
	X, Y, Z Axis
}

// New builds a Region from (lo,hi) pairs per axis and a shared
// resolution, per spec.md §6's `Region(X, Y, Z, res)` constructor.
func New(x, y, z [2]float64, res float64) *Region {
	return &Region{
		X: NewAxis(interval.New(x[0], x[1]), res),
		Y: NewAxis(interval.New(y[0], y[1]), res),
		Z: NewAxis(interval.New(z[0], z[1]), res),
	}
}

// Bounds returns the region's bounding box.
func (r *Region) Bounds() (lo, hi r3.Vec) {
	return r3.Vec{X: r.X.Bounds.Lower, Y: r.Y.Bounds.Lower, Z: r.Z.Bounds.Lower},
		r3.Vec{X: r.X.Bounds.Upper, Y: r.Y.Bounds.Upper, Z: r.Z.Bounds.Upper}
}

// MinSpacing returns the smallest per-sample spacing among the region's
// multi-sample axes (Bounds.Width()/len(Values)), the grid resolution an
// adaptive subdivision driver stops at per spec.md §6. Axes with a single
// sample carry no spacing of their own and are ignored; if every axis is
// single-sample the region describes a single point and 0 is returned.
func (r *Region) MinSpacing() float64 {
	min := math.Inf(1)
	for _, a := range [3]Axis{r.X, r.Y, r.Z} {
		if len(a.Values) <= 1 {
			continue
		}
		if sp := a.Bounds.Width() / float64(len(a.Values)); sp < min {
			min = sp
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}

// PowerOfTwo returns a new Region whose every multi-sample axis holds
// 2^depth samples, where depth is the smallest value that is both >= k
// and large enough to contain every axis's current sample count — so a
// request for a shallower depth than an axis already has is honored as
// "at least that deep", per spec.md §4.5 and the octree.cpp test fixture
// (`powerOfTwo(2)` and `powerOfTwo(3)` over a 100-sample X axis both
// produce 128 samples, the next power of two at or above 100). Axes that
// started with a single sample are left untouched.
func (r *Region) PowerOfTwo(k int) *Region {
	depth := k
	for _, a := range [3]Axis{r.X, r.Y, r.Z} {
		if nd := a.depthNeeded(); nd > depth {
			depth = nd
		}
	}
	n := 1 << depth
	return &Region{X: r.X.expanded(n), Y: r.Y.expanded(n), Z: r.Z.expanded(n)}
}

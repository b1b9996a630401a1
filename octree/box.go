package octree

import "gonum.org/v1/gonum/spatial/r3"

// Box is an axis-aligned box [Lo, Hi].
type Box struct {
	Lo, Hi r3.Vec
}

// Size returns the box's largest extent along any axis, used to decide
// when a cell is small enough to become a leaf (spec.md §4.6).
func (b Box) Size() float64 {
	s := b.Hi.X - b.Lo.X
	if d := b.Hi.Y - b.Lo.Y; d > s {
		s = d
	}
	if d := b.Hi.Z - b.Lo.Z; d > s {
		s = d
	}
	return s
}

func (b Box) Center() r3.Vec {
	return r3.Vec{X: (b.Lo.X + b.Hi.X) / 2, Y: (b.Lo.Y + b.Hi.Y) / 2, Z: (b.Lo.Z + b.Hi.Z) / 2}
}

// Corner returns the box's corner at index i, where bit 0 selects X
// (0=Lo, 1=Hi), bit 1 selects Y, bit 2 selects Z — per spec.md §4.6's
// fixed child/corner ordering.
func (b Box) Corner(i int) r3.Vec {
	x, y, z := b.Lo.X, b.Lo.Y, b.Lo.Z
	if i&1 != 0 {
		x = b.Hi.X
	}
	if i&2 != 0 {
		y = b.Hi.Y
	}
	if i&4 != 0 {
		z = b.Hi.Z
	}
	return r3.Vec{X: x, Y: y, Z: z}
}

// Octant returns the sub-box of b covered by child index i, using the
// same bit-per-axis convention as Corner: bit 0 selects the X half
// (0=lower, 1=upper), bit 1 selects Y, bit 2 selects Z. This guarantees
// cell.Corner(i) == cell.Octant(i).Corner(i), the invariant spec.md §4.6
// calls out explicitly.
func (b Box) Octant(i int) Box {
	mid := b.Center()
	lo, hi := b.Lo, b.Hi
	if i&1 != 0 {
		lo.X = mid.X
	} else {
		hi.X = mid.X
	}
	if i&2 != 0 {
		lo.Y = mid.Y
	} else {
		hi.Y = mid.Y
	}
	if i&4 != 0 {
		lo.Z = mid.Z
	} else {
		hi.Z = mid.Z
	}
	return Box{Lo: lo, Hi: hi}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp restricts p to lie within b, per the QEF vertex-placement rule
// of spec.md §4.6.
func (b Box) Clamp(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: clamp(p.X, b.Lo.X, b.Hi.X),
		Y: clamp(p.Y, b.Lo.Y, b.Hi.Y),
		Z: clamp(p.Z, b.Lo.Z, b.Hi.Z),
	}
}

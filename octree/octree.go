// Package octree implements the adaptive spatial subdivision and
// surface-extraction driver of spec.md §4.6: interval-guided recursion
// over an eval.Evaluator, bottoming out in leaves whose vertex is solved
// from edge crossings via a QEF, stitched into patches with the
// dimension-generic march tables.
package octree

import "gonum.org/v1/gonum/spatial/r3"

// Type is a Cell's classification, per spec.md §3's Octree cell data
// model.
type Type int

const (
	Branch Type = iota
	Leaf
	Empty
	Full
)

func (t Type) String() string {
	switch t {
	case Branch:
		return "branch"
	case Leaf:
		return "leaf"
	case Empty:
		return "empty"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Cell is one node of the cell-complex spec.md §3 describes. A Branch
// owns its Children (length 8, fixed ordering per spec.md §4.6); a Leaf
// carries Corners, Vertices (one per distinct surface feature at an
// ambiguous corner, ordinarily length 1), and the march-table Patches for
// its corner mask.
type Cell struct {
	Type     Type
	Bounds   Box
	Corners  uint8 // bit i set iff corner i is inside (value < 0)
	Children []*Cell

	Vertices  []r3.Vec
	Patches   [][]int        // directed edge indices per patch, from the march table
	Crossings map[int]r3.Vec // directed edge index -> crossing point
}

// ChildAt returns Branch child i (0..7), or nil for a non-Branch cell.
func (c *Cell) ChildAt(i int) *Cell {
	if c.Children == nil {
		return nil
	}
	return c.Children[i]
}

// CornerAt reports whether corner i (0..7) is inside the surface.
func (c *Cell) CornerAt(i int) bool { return c.Corners&(1<<uint(i)) != 0 }

// Pos returns the spatial position of corner i, per the fixed ordering
// in spec.md §4.6 (bit 0 = X, bit 1 = Y, bit 2 = Z).
func (c *Cell) Pos(i int) r3.Vec { return c.Bounds.Corner(i) }

// Vertex returns the cell's first placed vertex, for the common
// unambiguous-leaf case. Cells with more than one surface feature at an
// ambiguous corner carry additional entries in Vertices.
func (c *Cell) Vertex() r3.Vec {
	if len(c.Vertices) == 0 {
		return r3.Vec{}
	}
	return c.Vertices[0]
}

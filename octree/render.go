package octree

import (
	"gonum.org/v1/gonum/spatial/r3"
	"golang.org/x/sync/errgroup"

	"github.com/sfcgeorge/ao/eval"
	"github.com/sfcgeorge/ao/ir"
	"github.com/sfcgeorge/ao/march"
	"github.com/sfcgeorge/ao/region"
	"github.com/sfcgeorge/ao/tree"
)

// edgeSearchIterations is the fixed binary-search depth used to locate a
// zero crossing along a cube edge (spec.md §4.6, §6: "compile-time
// constants").
const edgeSearchIterations = 16

// Render drives the adaptive subdivision of spec.md §4.6 over rgn,
// compiling root once and recursing until every cell is no larger than
// rgn's own requested sample spacing (rgn.MinSpacing()) — the region's
// resolution is what stops subdivision, not a caller-supplied size. At the
// top level child 0 runs inline on the original evaluator and the other
// seven children each run on a goroutine holding an eval.Evaluator cloned
// from the same compiled tape, per spec.md §5's concurrency contract;
// deeper recursion within each child stays single-threaded.
func Render(root *tree.Node, rgn *region.Region) *Cell {
	tape := ir.Compile(root)
	e := eval.NewEvaluator(tape)
	lo, hi := rgn.Bounds()
	minSize := rgn.MinSpacing()
	return renderRoot(e, Box{Lo: lo, Hi: hi}, minSize)
}

func renderRoot(e *eval.Evaluator, box Box, minSize float64) *Cell {
	cell := &Cell{Bounds: box}
	iv := e.EvalBox(box.Lo, box.Hi)
	switch {
	case iv.Upper <= 0:
		cell.Type = Full
		return cell
	case iv.Lower >= 0:
		cell.Type = Empty
		return cell
	case box.Size() <= minSize:
		fillLeaf(e, cell)
		return cell
	}

	guard := e.Push()
	defer guard.Close()

	cell.Type = Branch
	cell.Children = make([]*Cell, 8)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		i := i
		child := box.Octant(i)
		if i == 0 {
			cell.Children[0] = subdivide(e, child, minSize)
			continue
		}
		worker := e.Clone()
		g.Go(func() error {
			cell.Children[i] = subdivide(worker, child, minSize)
			return nil
		})
	}
	_ = g.Wait() // workers never return an error; kept for the errgroup contract
	return cell
}

// subdivide is renderRoot's single-threaded recursion, used both below
// the top parallel fan-out and as the body each worker runs.
func subdivide(e *eval.Evaluator, box Box, minSize float64) *Cell {
	cell := &Cell{Bounds: box}
	iv := e.EvalBox(box.Lo, box.Hi)
	switch {
	case iv.Upper <= 0:
		cell.Type = Full
		return cell
	case iv.Lower >= 0:
		cell.Type = Empty
		return cell
	case box.Size() <= minSize:
		fillLeaf(e, cell)
		return cell
	}

	guard := e.Push()
	defer guard.Close()

	cell.Type = Branch
	cell.Children = make([]*Cell, 8)
	for i := 0; i < 8; i++ {
		cell.Children[i] = subdivide(e, box.Octant(i), minSize)
	}
	return cell
}

// fillLeaf samples box's 8 corners, places one vertex per distinct
// surface feature at the leaf (ordinarily one), and records the
// march-table patches for the corner mask (spec.md §4.6).
func fillLeaf(e *eval.Evaluator, cell *Cell) {
	table := march.Table3()
	box := cell.Bounds

	var mask uint8
	for i := 0; i < 8; i++ {
		if e.Eval(box.Corner(i)) < 0 {
			mask |= 1 << uint(i)
		}
	}
	cell.Type = Leaf
	cell.Corners = mask
	cell.Patches = table.VertsToPatches[mask]

	center := box.Center()
	if e.IsAmbiguous(center) {
		if feats := e.FeaturesAt(center); len(feats) > 1 {
			cell.Vertices = make([]r3.Vec, 0, len(feats))
			for _, f := range feats {
				guard := e.PushFeature(f)
				points, normals, crossings := edgeCrossings(e, table, box, mask)
				cell.Vertices = append(cell.Vertices, solveQEF(points, normals, center, box))
				if cell.Crossings == nil {
					cell.Crossings = crossings
				}
				guard.Close()
			}
			return
		}
	}

	points, normals, crossings := edgeCrossings(e, table, box, mask)
	cell.Crossings = crossings
	cell.Vertices = []r3.Vec{solveQEF(points, normals, center, box)}
}

// edgeCrossings locates the zero crossing on every sign-change edge of
// box's corners, returning the crossing points, their normalized
// gradients, and a directed-edge-index -> point map for patch stitching.
func edgeCrossings(e *eval.Evaluator, table *march.Table, box Box, mask uint8) (points, normals []r3.Vec, crossings map[int]r3.Vec) {
	crossings = map[int]r3.Vec{}
	for _, edge := range table.EdgeList {
		aIn := mask&(1<<uint(edge.A)) != 0
		bIn := mask&(1<<uint(edge.B)) != 0
		if aIn == bIn {
			continue
		}
		outside, inside := box.Corner(edge.A), box.Corner(edge.B)
		directed := table.VertsToEdge[edge.B][edge.A]
		if aIn {
			outside, inside = inside, outside
			directed = table.VertsToEdge[edge.A][edge.B]
		}
		cross := findZeroCrossing(e, outside, inside)
		grad := gradientAt(e, cross)
		if n := r3.Norm(grad); n > 1e-12 {
			grad = r3.Scale(1/n, grad)
		}
		points = append(points, cross)
		normals = append(normals, grad)
		crossings[directed] = cross
	}
	return points, normals, crossings
}

// findZeroCrossing binary-searches between outside (value >= 0, by the
// sign convention fillLeaf uses) and inside (value < 0) for edgeSearchIterations
// steps, per spec.md §4.6.
func findZeroCrossing(e *eval.Evaluator, outside, inside r3.Vec) r3.Vec {
	a, b := outside, inside
	for i := 0; i < edgeSearchIterations; i++ {
		mid := r3.Scale(0.5, r3.Add(a, b))
		if e.Eval(mid) < 0 {
			b = mid
		} else {
			a = mid
		}
	}
	return r3.Scale(0.5, r3.Add(a, b))
}

func gradientAt(e *eval.Evaluator, p r3.Vec) r3.Vec {
	e.Set(p, 0)
	_, grads := e.Derivs(1)
	return grads[0]
}

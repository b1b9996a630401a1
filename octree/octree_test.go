package octree

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/sfcgeorge/ao/region"
	"github.com/sfcgeorge/ao/tree"
)

func sphere(r float64) *tree.Node {
	x2 := tree.Mul(tree.X(), tree.X())
	y2 := tree.Mul(tree.Y(), tree.Y())
	z2 := tree.Mul(tree.Z(), tree.Z())
	return tree.Sub(tree.Add(tree.Add(x2, y2), z2), tree.Const(r*r))
}

func TestBoxCornerOctantInvariant(t *testing.T) {
	b := Box{Lo: r3.Vec{X: -1, Y: -1, Z: -1}, Hi: r3.Vec{X: 1, Y: 1, Z: 1}}
	for i := 0; i < 8; i++ {
		if got, want := b.Octant(i).Corner(i), b.Corner(i); got != want {
			t.Errorf("octant(%d).corner(%d) = %v, want %v (= box.corner(%d))", i, i, got, want, i)
		}
	}
}

func TestBoxClampRestrictsToBounds(t *testing.T) {
	b := Box{Lo: r3.Vec{X: 0, Y: 0, Z: 0}, Hi: r3.Vec{X: 1, Y: 1, Z: 1}}
	got := b.Clamp(r3.Vec{X: -5, Y: 0.5, Z: 10})
	want := r3.Vec{X: 0, Y: 0.5, Z: 1}
	if got != want {
		t.Errorf("Clamp = %v, want %v", got, want)
	}
}

// TestSphereLeafVerticesNearRadius mirrors spec.md §8 scenario 8: render
// x^2+y^2+z^2-0.5 over [-1,1]^3 at a fine enough resolution, and every
// leaf vertex should land close to the sqrt(0.5) radius.
func TestSphereLeafVerticesNearRadius(t *testing.T) {
	n := sphere(math.Sqrt(0.5))
	rgn := region.New([2]float64{-1, 1}, [2]float64{-1, 1}, [2]float64{-1, 1}, 4)
	root := Render(n, rgn)

	wantR := math.Sqrt(0.5)
	lo, hi := wantR*0.8, wantR*1.2
	count := 0
	walkLeaves(root, func(c *Cell) {
		for _, v := range c.Vertices {
			count++
			r := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
			if r < lo || r > hi {
				t.Errorf("leaf vertex %v has radius %v, want in [%v, %v]", v, r, lo, hi)
			}
		}
	})
	if count == 0 {
		t.Fatal("expected at least one leaf vertex near the sphere's surface")
	}
}

func TestRenderClassifiesFarOutsideRegionAsEmpty(t *testing.T) {
	n := sphere(1)
	// A region far outside the unit sphere should render as a single
	// Empty cell (value >= 0 everywhere); exercising the fast interval
	// reject path before any subdivision.
	rgn := region.New([2]float64{10, 12}, [2]float64{10, 12}, [2]float64{10, 12}, 1)
	root := Render(n, rgn)
	if root.Type != Empty {
		t.Errorf("far-outside region rendered as %v, want Empty", root.Type)
	}
}

func TestCellPosMatchesChildOctantCorner(t *testing.T) {
	n := sphere(1)
	rgn := region.New([2]float64{-2, 2}, [2]float64{-2, 2}, [2]float64{-2, 2}, 1)
	root := Render(n, rgn)
	if root.Type != Branch {
		t.Fatalf("root rendered as %v, want Branch for a region straddling the sphere", root.Type)
	}
	for i := 0; i < 8; i++ {
		child := root.ChildAt(i)
		if child == nil {
			t.Fatalf("child %d is nil", i)
		}
		if got, want := root.Pos(i), child.Bounds.Corner(i); got != want {
			t.Errorf("root.Pos(%d) = %v, want %v (child %d's own corner %d)", i, got, want, i, i)
		}
	}
}

func walkLeaves(c *Cell, visit func(*Cell)) {
	if c == nil {
		return
	}
	if c.Type == Leaf {
		visit(c)
		return
	}
	for _, child := range c.Children {
		walkLeaves(child, visit)
	}
}

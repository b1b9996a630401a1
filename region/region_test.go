package region

import (
	"math"
	"testing"

	"github.com/sfcgeorge/ao/interval"
)

func TestNewAxisSinglePoint(t *testing.T) {
	a := NewAxis(interval.Point(3.5), 10)
	if len(a.Values) != 1 || a.Values[0] != 3.5 {
		t.Fatalf("axis = %+v, want a single sample at 3.5", a)
	}
}

func TestNewAxisZeroResolution(t *testing.T) {
	a := NewAxis(interval.New(0, 10), 0)
	if len(a.Values) != 1 || a.Values[0] != 5 {
		t.Fatalf("axis = %+v, want a single sample at the midpoint (5)", a)
	}
}

func TestNewAxisExactFit(t *testing.T) {
	a := NewAxis(interval.New(0, 10), 10)
	if len(a.Values) != 100 {
		t.Fatalf("len(Values) = %d, want 100", len(a.Values))
	}
	if a.Bounds.Lower != 0 || a.Bounds.Upper != 10 {
		t.Errorf("bounds = %v, want unchanged [0,10] (exact fit needs no padding)", a.Bounds)
	}
	if math.Abs(a.Values[0]-0.05) > 1e-12 {
		t.Errorf("first sample = %v, want 0.05", a.Values[0])
	}
}

func TestNewAxisExpandsOutwardWhenNotExact(t *testing.T) {
	// width 1 at resolution 3 needs ceil(3)=3 samples of width 1/3, which
	// already fits exactly; use a case that doesn't divide evenly.
	a := NewAxis(interval.New(0, 1), 2.5)
	n := int(math.Ceil(1 * 2.5))
	if len(a.Values) != n {
		t.Fatalf("len(Values) = %d, want %d", len(a.Values), n)
	}
	if a.Bounds.Lower > 0 || a.Bounds.Upper < 1 {
		t.Errorf("expanded bounds %v should contain the original [0,1]", a.Bounds)
	}
	// Symmetric padding: the center of the expanded bounds matches the
	// center of the original request.
	if math.Abs(a.Bounds.Mid()-0.5) > 1e-12 {
		t.Errorf("expanded bounds center = %v, want 0.5", a.Bounds.Mid())
	}
}

func TestRegionResolutionSampleCounts(t *testing.T) {
	// spec.md §8 scenario 7: Region([0,10],[0,5],[0,2.5], res=10) has axis
	// sample sizes 100, 50, 25.
	r := New([2]float64{0, 10}, [2]float64{0, 5}, [2]float64{0, 2.5}, 10)
	if len(r.X.Values) != 100 {
		t.Errorf("len(X.Values) = %d, want 100", len(r.X.Values))
	}
	if len(r.Y.Values) != 50 {
		t.Errorf("len(Y.Values) = %d, want 50", len(r.Y.Values))
	}
	if len(r.Z.Values) != 25 {
		t.Errorf("len(Z.Values) = %d, want 25", len(r.Z.Values))
	}
}

func TestRegionPowerOfTwoInflatesToCoverLargestAxis(t *testing.T) {
	// Same fixture as TestRegionResolutionSampleCounts: powerOfTwo(3) and
	// powerOfTwo(2) should both inflate every axis to 128 samples, the
	// next power of two at or above the X axis's 100 samples, per
	// original_source/kernel/test/octree.cpp.
	base := New([2]float64{0, 10}, [2]float64{0, 5}, [2]float64{0, 2.5}, 10)

	for _, k := range []int{2, 3} {
		got := base.PowerOfTwo(k)
		if len(got.X.Values) != 128 {
			t.Errorf("powerOfTwo(%d): len(X.Values) = %d, want 128", k, len(got.X.Values))
		}
		if len(got.Y.Values) != 128 {
			t.Errorf("powerOfTwo(%d): len(Y.Values) = %d, want 128", k, len(got.Y.Values))
		}
		if len(got.Z.Values) != 128 {
			t.Errorf("powerOfTwo(%d): len(Z.Values) = %d, want 128", k, len(got.Z.Values))
		}
	}
}

func TestRegionPowerOfTwoPreservesContainment(t *testing.T) {
	base := New([2]float64{0, 10}, [2]float64{0, 5}, [2]float64{0, 2.5}, 10)
	got := base.PowerOfTwo(3)

	lo, hi := base.Bounds()
	glo, ghi := got.Bounds()
	if glo.X > lo.X || ghi.X < hi.X {
		t.Errorf("inflated X bounds [%v,%v] do not contain original [%v,%v]", glo.X, ghi.X, lo.X, hi.X)
	}
	if glo.Y > lo.Y || ghi.Y < hi.Y {
		t.Errorf("inflated Y bounds [%v,%v] do not contain original [%v,%v]", glo.Y, ghi.Y, lo.Y, hi.Y)
	}
	if glo.Z > lo.Z || ghi.Z < hi.Z {
		t.Errorf("inflated Z bounds [%v,%v] do not contain original [%v,%v]", glo.Z, ghi.Z, lo.Z, hi.Z)
	}
}

func TestMinSpacingPicksTheFinestAxis(t *testing.T) {
	// Same fixture as TestRegionResolutionSampleCounts: all three axes
	// share resolution 10, so every axis's spacing is 1/10 regardless of
	// its sample count, and MinSpacing should report that shared value.
	r := New([2]float64{0, 10}, [2]float64{0, 5}, [2]float64{0, 2.5}, 10)
	if got := r.MinSpacing(); math.Abs(got-0.1) > 1e-12 {
		t.Errorf("MinSpacing() = %v, want 0.1", got)
	}
}

func TestMinSpacingIgnoresSingleSampleAxes(t *testing.T) {
	r := New([2]float64{0, 10}, [2]float64{3, 3}, [2]float64{0, 1}, 10)
	if got := r.MinSpacing(); math.Abs(got-0.1) > 1e-12 {
		t.Errorf("MinSpacing() = %v, want 0.1 (Y's single sample carries no spacing)", got)
	}
}

func TestRegionPowerOfTwoLeavesSingleSampleAxisAlone(t *testing.T) {
	r := New([2]float64{0, 10}, [2]float64{3, 3}, [2]float64{0, 1}, 10)
	got := r.PowerOfTwo(4)
	if len(got.Y.Values) != 1 || got.Y.Values[0] != 3 {
		t.Errorf("single-sample axis = %+v, want unchanged [3]", got.Y)
	}
}

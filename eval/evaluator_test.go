package eval

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/sfcgeorge/ao/errs"
	"github.com/sfcgeorge/ao/ir"
	"github.com/sfcgeorge/ao/tree"
)

func build(n *tree.Node) *Evaluator { return NewEvaluator(ir.Compile(n)) }

func TestEvalLeaves(t *testing.T) {
	p := r3.Vec{X: 1, Y: 2, Z: 3}
	if v := build(tree.X()).Eval(p); v != 1 {
		t.Errorf("eval(X,p) = %v, want 1", v)
	}
	if v := build(tree.Y()).Eval(p); v != 2 {
		t.Errorf("eval(Y,p) = %v, want 2", v)
	}
	if v := build(tree.Const(3.14)).Eval(p); v != 3.14 {
		t.Errorf("eval(const,p) = %v, want 3.14", v)
	}
}

func TestFreeVariable(t *testing.T) {
	vid := tree.VarId(0)
	n := tree.Add(tree.Var(vid), tree.Const(1))
	e := build(n)
	if err := e.SetVar(ir.VarId(vid), 3.14); err != nil {
		t.Fatal(err)
	}
	if v := e.Eval(r3.Vec{}); math.Abs(v-4.14) > 1e-12 {
		t.Errorf("eval(v+1) = %v, want 4.14", v)
	}
	grad := e.Gradient(r3.Vec{X: 1, Y: 2, Z: 3})
	if len(grad) != 1 || grad[ir.VarId(vid)] != 1 {
		t.Errorf("gradient = %v, want {v: 1}", grad)
	}
}

func TestFreeVariableTimesX(t *testing.T) {
	vid := tree.VarId(0)
	n := tree.Mul(tree.X(), tree.Var(vid))
	e := build(n)
	if err := e.SetVar(ir.VarId(vid), 1); err != nil {
		t.Fatal(err)
	}
	p := r3.Vec{X: 2, Y: 0, Z: 0}
	if v := e.Eval(p); v != 2 {
		t.Errorf("eval(X*v) = %v, want 2", v)
	}
	grad := e.Gradient(p)
	if grad[ir.VarId(vid)] != 2 {
		t.Errorf("gradient = %v, want {v: 2}", grad)
	}
}

func TestPushReducesUtilizationAndSpecializes(t *testing.T) {
	n := tree.Min(tree.Add(tree.X(), tree.Const(1)), tree.Add(tree.Y(), tree.Const(1)))
	e := build(n)

	if v := e.Eval(r3.Vec{X: 1, Y: -3, Z: 0}); v != -2 {
		t.Fatalf("eval = %v, want -2", v)
	}

	e.Set(r3.Vec{X: -5, Y: 8, Z: 0}, 0)
	e.Set(r3.Vec{X: -4, Y: 9, Z: 0}, 1)
	got := e.Values(2)
	if got[0] != -4 || got[1] != -3 {
		t.Fatalf("batch values = %v, want [-4,-3]", got)
	}

	e.EvalBox(r3.Vec{X: -5, Y: 8, Z: 0}, r3.Vec{X: -4, Y: 9, Z: 0})
	guard := e.Push()
	defer guard.Close()

	if e.Utilization() >= 1 {
		t.Errorf("utilization after push = %v, want < 1", e.Utilization())
	}
	if v := e.Eval(r3.Vec{X: 1, Y: 2, Z: 0}); v != 2 {
		t.Errorf("eval after push = %v, want 2", v)
	}
}

func TestFeaturesAtMinOfXAndNegX(t *testing.T) {
	n := tree.Min(tree.X(), tree.Neg(tree.X()))
	e := build(n)

	if !e.IsAmbiguous(r3.Vec{}) {
		t.Fatal("expected origin to be ambiguous")
	}
	feats := e.FeaturesAt(r3.Vec{})
	if len(feats) != 2 {
		t.Fatalf("featuresAt(origin) has %d features, want 2", len(feats))
	}
	var sawPosX, sawNegX bool
	for _, f := range feats {
		if f.Deriv == (r3.Vec{X: 1}) {
			sawPosX = true
		}
		if f.Deriv == (r3.Vec{X: -1}) {
			sawNegX = true
		}
	}
	if !sawPosX || !sawNegX {
		t.Errorf("features = %+v, want derivatives (1,0,0) and (-1,0,0)", feats)
	}

	feats = e.FeaturesAt(r3.Vec{X: 1})
	if len(feats) != 1 {
		t.Errorf("featuresAt((1,0,0)) has %d features, want 1", len(feats))
	}
}

func TestFeaturesAtMaxOfXAndXCollapse(t *testing.T) {
	n := tree.Max(tree.X(), tree.X())
	e := build(n)
	feats := e.FeaturesAt(r3.Vec{X: 1, Y: 2, Z: 3})
	if len(feats) != 1 {
		t.Errorf("featuresAt(max(X,X)) has %d features, want 1 (duplicates collapse)", len(feats))
	}
}

func TestIsInsideAndBoundary(t *testing.T) {
	n := tree.Sub(tree.Add(tree.Add(tree.Mul(tree.X(), tree.X()), tree.Mul(tree.Y(), tree.Y())), tree.Mul(tree.Z(), tree.Z())), tree.Const(1))
	e := build(n)
	if !e.IsInside(r3.Vec{}) {
		t.Error("origin should be inside the unit sphere")
	}
	if e.IsInside(r3.Vec{X: 2}) {
		t.Error("(2,0,0) should be outside the unit sphere")
	}
}

// TestIsInsideOnAmbiguousBoundary exercises the root==0 branch directly:
// min(X,-X) = -|X| is zero only at X=0 and strictly negative everywhere
// else nearby, so the origin should read as inside even though its value
// is exactly zero. One of the two features at the origin has derivative
// (-1,0,0), a negative component, which is what the boundary rule keys off.
func TestIsInsideOnAmbiguousBoundary(t *testing.T) {
	n := tree.Min(tree.X(), tree.Neg(tree.X()))
	e := build(n)
	if v := e.Eval(r3.Vec{}); v != 0 {
		t.Fatalf("eval(origin) = %v, want 0 (must exercise the boundary branch)", v)
	}
	if !e.IsInside(r3.Vec{}) {
		t.Error("origin should read as inside: min(X,-X) is negative everywhere but the X=0 line")
	}
}

// TestAmbiguousAtSkipsForcedClauses exercises the consequence of disabled
// clauses genuinely being skipped (not just collapsed) during evaluation:
// min(0, Y) forced to its Const(0) side (because EvalBox proved Y strictly
// positive over some earlier box) must not report a tie at Y=0 afterward —
// the Y branch is disabled, its value isn't recomputed, and the decision
// is already resolved regardless of what Y happens to be now.
func TestAmbiguousAtSkipsForcedClauses(t *testing.T) {
	n := tree.Min(tree.Const(0), tree.Y())
	e := build(n)

	e.EvalBox(r3.Vec{Y: 1}, r3.Vec{Y: 2})
	guard := e.Push()
	defer guard.Close()

	if e.IsAmbiguous(r3.Vec{Y: 0}) {
		t.Error("forced clause should not be re-examined for ties against its disabled operand")
	}
}

func TestSetVarOnUnknownVarWrapsUnknownVarKind(t *testing.T) {
	n := tree.Add(tree.X(), tree.Const(1))
	e := build(n)
	err := e.SetVar(ir.VarId(99), 1)
	if err == nil {
		t.Fatal("expected an error for a variable not present in the tape")
	}
	if !errs.Is(err, errs.UnknownVar) {
		t.Errorf("SetVar error = %v, want errs.UnknownVar", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	n := tree.Min(tree.X(), tree.Y())
	e := build(n)
	e.EvalBox(r3.Vec{X: -1, Y: -1}, r3.Vec{X: 1, Y: 1})
	clone := e.Clone()

	guard := e.Push()
	defer guard.Close()
	if clone.Utilization() != 1 {
		t.Errorf("clone utilization = %v, want 1 (unaffected by original's push)", clone.Utilization())
	}
}

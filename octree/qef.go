package octree

import (
	"log"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/sfcgeorge/ao/errs"
)

// singularValueTol is the fraction of the largest singular value below
// which a QEF direction is treated as unconstrained (spec.md §7's
// DegenerateQEF: a near-singular normal matrix falls back toward the
// cell center along that direction rather than failing the render).
const singularValueTol = 1e-6

// solveQEF places a leaf vertex by minimizing Σ(nᵢ·(x−pᵢ))² over the
// crossing points/normals, regularized around center so that directions
// the crossings don't constrain leave x at center rather than blowing up
// (spec.md §4.6, §7). The result is clamped into bounds.
func solveQEF(points, normals []r3.Vec, center r3.Vec, bounds Box) r3.Vec {
	if len(points) == 0 {
		return center
	}

	a := mat.NewDense(3, 3, nil)
	rhs := mat.NewVecDense(3, nil)
	for i, n := range normals {
		nv := [3]float64{n.X, n.Y, n.Z}
		q := r3.Sub(points[i], center)
		d := n.X*q.X + n.Y*q.Y + n.Z*q.Z
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				a.Set(r, c, a.At(r, c)+nv[r]*nv[c])
			}
			rhs.SetVec(r, rhs.AtVec(r)+nv[r]*d)
		}
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		log.Printf("%v", errs.New(errs.DegenerateQEF, "normal-equations matrix did not factorize, falling back to cell center"))
		return bounds.Clamp(center)
	}
	sv := svd.Values(nil)
	if sv[0] <= 0 {
		log.Printf("%v", errs.New(errs.DegenerateQEF, "singular normal-equations matrix, falling back to cell center"))
		return bounds.Clamp(center)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	utr := mat.NewVecDense(3, nil)
	utr.MulVec(u.T(), rhs)
	for i, s := range sv {
		if s > singularValueTol*sv[0] {
			utr.SetVec(i, utr.AtVec(i)/s)
		} else {
			utr.SetVec(i, 0)
		}
	}
	y := mat.NewVecDense(3, nil)
	y.MulVec(&v, utr)

	vertex := r3.Vec{X: center.X + y.AtVec(0), Y: center.Y + y.AtVec(1), Z: center.Z + y.AtVec(2)}
	return bounds.Clamp(vertex)
}

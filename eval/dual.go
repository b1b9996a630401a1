package eval

import (
	"math"

	"github.com/sfcgeorge/ao/opcode"
)

// dual is a forward-mode dual number generalized over an arbitrary number
// of simultaneous partials: 3 for spatial derivatives (∂/∂x, ∂/∂y, ∂/∂z)
// or len(varIds) for the free-variable gradient. The same chain-rule
// dispatch serves both, per spec.md §4.2's derivative rules.
type dual struct {
	v float64
	d []float64
}

func newDual(v float64, dims int) dual { return dual{v: v, d: make([]float64, dims)} }

func dualScale(a dual, k float64) dual {
	out := dual{v: k * a.v, d: make([]float64, len(a.d))}
	for i, ai := range a.d {
		out.d[i] = k * ai
	}
	return out
}

func dualCombine(a, b dual, v float64, ca, cb float64) dual {
	out := dual{v: v, d: make([]float64, len(a.d))}
	for i := range a.d {
		out.d[i] = ca*a.d[i] + cb*b.d[i]
	}
	return out
}

func allZero(d []float64) bool {
	for _, v := range d {
		if v != 0 {
			return false
		}
	}
	return true
}

// evalDual applies op's forward-mode rule to operand duals a, b (b unused
// for unary ops), returning the result, whether op was an ambiguous tie at
// this point, and which side won (1 = A, 2 = B, 0 = not applicable).
func evalDual(op opcode.Opcode, a, b dual) (result dual, ambiguous bool, side int8) {
	switch op {
	case opcode.NEG:
		return dualScale(a, -1), false, 0
	case opcode.ABS:
		sign := 1.0
		if a.v < 0 {
			sign = -1.0
		}
		return dualScale(a, sign), a.v == 0, 0
	case opcode.SQRT:
		v := math.Sqrt(a.v)
		return dualCombine(a, a, v, 1/(2*v), 0), false, 0
	case opcode.SQUARE:
		return dualCombine(a, a, a.v*a.v, 2*a.v, 0), false, 0
	case opcode.SIN:
		return dualCombine(a, a, math.Sin(a.v), math.Cos(a.v), 0), false, 0
	case opcode.COS:
		return dualCombine(a, a, math.Cos(a.v), -math.Sin(a.v), 0), false, 0
	case opcode.TAN:
		c := math.Cos(a.v)
		return dualCombine(a, a, math.Tan(a.v), 1/(c*c), 0), false, 0
	case opcode.ASIN:
		return dualCombine(a, a, math.Asin(a.v), 1/math.Sqrt(1-a.v*a.v), 0), false, 0
	case opcode.ACOS:
		return dualCombine(a, a, math.Acos(a.v), -1/math.Sqrt(1-a.v*a.v), 0), false, 0
	case opcode.ATAN:
		return dualCombine(a, a, math.Atan(a.v), 1/(1+a.v*a.v), 0), false, 0
	case opcode.EXP:
		e := math.Exp(a.v)
		return dualCombine(a, a, e, e, 0), false, 0
	case opcode.ADD:
		return dualCombine(a, b, a.v+b.v, 1, 1), false, 0
	case opcode.SUB:
		return dualCombine(a, b, a.v-b.v, 1, -1), false, 0
	case opcode.MUL:
		return dualCombine(a, b, a.v*b.v, b.v, a.v), false, 0
	case opcode.DIV:
		out := dual{v: a.v / b.v, d: make([]float64, len(a.d))}
		for i := range a.d {
			out.d[i] = (a.d[i]*b.v - a.v*b.d[i]) / (b.v * b.v)
		}
		return out, false, 0
	case opcode.ATAN2:
		denom := a.v*a.v + b.v*b.v
		return dualCombine(a, b, math.Atan2(a.v, b.v), b.v/denom, -a.v/denom), false, 0
	case opcode.POW:
		v := math.Pow(a.v, b.v)
		if allZero(b.d) {
			return dualCombine(a, a, v, b.v*math.Pow(a.v, b.v-1), 0), false, 0
		}
		out := dual{v: v, d: make([]float64, len(a.d))}
		for i := range a.d {
			out.d[i] = v * (b.d[i]*math.Log(a.v) + b.v*a.d[i]/a.v)
		}
		return out, false, 0
	case opcode.NTHROOT:
		v := opcode.Eval(opcode.NTHROOT, a.v, b.v)
		var slope float64
		if a.v < 0 {
			slope = (1 / b.v) * math.Pow(-a.v, 1/b.v-1)
		} else {
			slope = (1 / b.v) * math.Pow(a.v, 1/b.v-1)
		}
		return dualCombine(a, a, v, slope, 0), false, 0
	case opcode.MIN, opcode.MAX:
		var s int8 = 1
		tied := a.v == b.v
		if !tied {
			if op == opcode.MIN && b.v < a.v {
				s = 2
			} else if op == opcode.MAX && b.v > a.v {
				s = 2
			}
		}
		if s == 1 {
			return a, tied, 1
		}
		return b, tied, 2
	case opcode.MOD:
		v := opcode.Eval(opcode.MOD, a.v, b.v)
		return dualCombine(a, a, v, 1, 0), v == 0, 0
	default:
		panic("eval: evalDual called on a non-computed opcode " + op.String())
	}
}

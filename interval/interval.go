// Package interval implements closed-interval arithmetic over the kernel's
// opcode vocabulary, per spec.md §3-§4.2.
package interval

import (
	"math"

	"github.com/sfcgeorge/ao/opcode"
)

// Interval is a closed real interval [Lower, Upper], Lower <= Upper, with
// ±Inf permitted.
type Interval struct {
	Lower, Upper float64
}

// New builds an Interval, panicking if lo > hi (a programmer error: every
// caller in this module computes lo/hi from the same source).
func New(lo, hi float64) Interval {
	if lo > hi {
		panic("interval: lower bound exceeds upper bound")
	}
	return Interval{Lower: lo, Upper: hi}
}

// Point builds a degenerate Interval containing exactly v.
func Point(v float64) Interval { return Interval{Lower: v, Upper: v} }

// Full is the unbounded interval, used as the sound over-approximation
// for domain errors (spec.md §7).
var Full = Interval{Lower: math.Inf(-1), Upper: math.Inf(1)}

func (iv Interval) IsEmpty() bool { return math.IsNaN(iv.Lower) || math.IsNaN(iv.Upper) }

// Contains reports whether v lies within the interval.
func (iv Interval) Contains(v float64) bool { return v >= iv.Lower && v <= iv.Upper }

// Width returns Upper - Lower.
func (iv Interval) Width() float64 { return iv.Upper - iv.Lower }

// Mid returns the interval's midpoint.
func (iv Interval) Mid() float64 { return (iv.Lower + iv.Upper) / 2 }

func neg(a Interval) Interval { return Interval{-a.Upper, -a.Lower} }

func add(a, b Interval) Interval { return Interval{a.Lower + b.Lower, a.Upper + b.Upper} }
func sub(a, b Interval) Interval { return add(a, neg(b)) }

func mul(a, b Interval) Interval {
	c := []float64{a.Lower * b.Lower, a.Lower * b.Upper, a.Upper * b.Lower, a.Upper * b.Upper}
	lo, hi := c[0], c[0]
	for _, v := range c[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return Interval{lo, hi}
}

func div(a, b Interval) Interval {
	if b.Lower <= 0 && b.Upper >= 0 {
		// division by an interval containing zero: sound but useless bound
		return Full
	}
	return mul(a, Interval{1 / b.Upper, 1 / b.Lower})
}

func abs(a Interval) Interval {
	if a.Lower >= 0 {
		return a
	}
	if a.Upper <= 0 {
		return neg(a)
	}
	return Interval{0, math.Max(-a.Lower, a.Upper)}
}

func sqrt(a Interval) Interval {
	if a.Upper < 0 {
		return Full
	}
	lo := 0.0
	if a.Lower > 0 {
		lo = math.Sqrt(a.Lower)
	}
	return Interval{lo, math.Sqrt(math.Max(a.Upper, 0))}
}

func square(a Interval) Interval {
	if a.Lower >= 0 {
		return mul(a, a)
	}
	if a.Upper <= 0 {
		return mul(neg(a), neg(a))
	}
	return Interval{0, math.Max(a.Lower*a.Lower, a.Upper*a.Upper)}
}

// monotonic bounds a monotonic (increasing or decreasing) function f by
// evaluating at the endpoints and ordering the results; used for the
// exp/atan/asin/acos family and for pow over a sign-definite base.
func monotonic(f func(float64) float64, a Interval) Interval {
	lo, hi := f(a.Lower), f(a.Upper)
	if lo > hi {
		lo, hi = hi, lo
	}
	return Interval{lo, hi}
}

// sinCos bounds sin or cos from the endpoint values, widened to +1 or -1
// when the interval contains a peak (at peak + 2k*pi) or a trough (at
// peak + pi + 2k*pi) of f.
func sinCos(f func(float64) float64, peak float64, a Interval) Interval {
	if a.Width() >= 2*math.Pi {
		return Interval{-1, 1}
	}
	r := monotonic(f, a)
	if math.Ceil((a.Lower-peak)/(2*math.Pi)) <= math.Floor((a.Upper-peak)/(2*math.Pi)) {
		r.Upper = 1
	}
	if math.Ceil((a.Lower-peak-math.Pi)/(2*math.Pi)) <= math.Floor((a.Upper-peak-math.Pi)/(2*math.Pi)) {
		r.Lower = -1
	}
	return r
}

func pow(a Interval, b Interval) Interval {
	if b.Lower != b.Upper {
		// non-constant exponent: fall back to a sound, wide bound
		return Full
	}
	p := b.Lower
	if a.Lower < 0 && p != math.Trunc(p) {
		// a negative base has no real power for a non-integer exponent
		return Full
	}
	if a.Lower >= 0 || a.Upper <= 0 {
		return monotonic(func(x float64) float64 { return math.Pow(x, p) }, a)
	}
	// a straddles zero here: only sound to narrow for an integer exponent,
	// and an even one folds negative x onto positive x (same trap as
	// square()'s a.Lower < 0 < a.Upper case above, generalized to any p).
	if p != math.Trunc(p) {
		return Full
	}
	n := int64(p)
	if n%2 == 0 {
		lo := 0.0
		if n < 0 {
			// x^n -> +inf as x -> 0 for negative even n: unbounded above
			return Interval{0, math.Inf(1)}
		}
		return Interval{lo, math.Max(math.Pow(a.Lower, p), math.Pow(a.Upper, p))}
	}
	if n < 0 {
		// odd negative exponent blows up at x=0 from both sides
		return Full
	}
	return monotonic(func(x float64) float64 { return math.Pow(x, p) }, a)
}

// Eval computes the interval bound of op over operand intervals a, b
// (b is ignored for unary ops), and additionally reports which side of a
// MIN/MAX strictly dominates the other (1 = A, 2 = B, 0 = neither), per
// spec.md §4.2: "if ahi < blo the operation records that the right branch
// would be removed on push, and symmetrically."
func Eval(op opcode.Opcode, a, b Interval) (result Interval, dominant int8) {
	switch op {
	case opcode.NEG:
		return neg(a), 0
	case opcode.ABS:
		return abs(a), 0
	case opcode.SQRT:
		return sqrt(a), 0
	case opcode.SQUARE:
		return square(a), 0
	case opcode.SIN:
		return sinCos(math.Sin, math.Pi/2, a), 0
	case opcode.COS:
		return sinCos(math.Cos, 0, a), 0
	case opcode.TAN:
		return Full, 0 // unbounded near pi/2 + k*pi; not worth a tight bound
	case opcode.ASIN:
		if a.Lower < -1 || a.Upper > 1 {
			return Full, 0
		}
		return monotonic(math.Asin, a), 0
	case opcode.ACOS:
		if a.Lower < -1 || a.Upper > 1 {
			return Full, 0
		}
		return monotonic(math.Acos, a), 0
	case opcode.ATAN:
		return monotonic(math.Atan, a), 0
	case opcode.EXP:
		return monotonic(math.Exp, a), 0
	case opcode.ADD:
		return add(a, b), 0
	case opcode.SUB:
		return sub(a, b), 0
	case opcode.MUL:
		return mul(a, b), 0
	case opcode.DIV:
		return div(a, b), 0
	case opcode.ATAN2:
		return Full, 0 // atan2 over a box spans up to the full circle; not worth a tight bound
	case opcode.POW:
		return pow(a, b), 0
	case opcode.NTHROOT:
		return Full, 0
	case opcode.MIN:
		r := Interval{math.Min(a.Lower, b.Lower), math.Min(a.Upper, b.Upper)}
		if a.Upper < b.Lower {
			return r, 1
		}
		if b.Upper < a.Lower {
			return r, 2
		}
		return r, 0
	case opcode.MAX:
		r := Interval{math.Max(a.Lower, b.Lower), math.Max(a.Upper, b.Upper)}
		if a.Lower > b.Upper {
			return r, 1
		}
		if b.Lower > a.Upper {
			return r, 2
		}
		return r, 0
	case opcode.MOD:
		return Full, 0
	default:
		panic("interval: Eval called on a non-computed opcode " + op.String())
	}
}

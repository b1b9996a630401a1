// Package tree provides the minimal DAG node builders a front-end
// (explicitly out of scope for this module, per spec.md §1) would produce:
// constants, the X/Y/Z axes, free variables, and one constructor per
// opcode. ir.Compile consumes a Node and assumes it is already a
// well-formed expression DAG.
package tree

import "github.com/sfcgeorge/ao/opcode"

// Node is a single vertex of an expression DAG. Shared subexpressions are
// represented by shared *Node pointers; ir.Compile deduplicates by
// structural identity as well, so builders do not need to memoize.
type Node struct {
	Op       opcode.Opcode
	A, B     *Node
	Constant float64
	Var      VarId
}

// VarId identifies a free variable; it is interchangeable with ir.VarId
// by value (both are plain ints) and is kept as a distinct type here so
// that callers constructing trees do not need to import ir.
type VarId int

func leaf(op opcode.Opcode) *Node { return &Node{Op: op} }

// Const builds a constant-valued leaf.
func Const(v float64) *Node { return &Node{Op: opcode.CONST, Constant: v} }

// X, Y, Z build leaves referring to the spatial coordinates.
func X() *Node { return leaf(opcode.VARX) }
func Y() *Node { return leaf(opcode.VARY) }
func Z() *Node { return leaf(opcode.VARZ) }

// Var builds a leaf referring to a free variable, identified by id.
func Var(id VarId) *Node { return &Node{Op: opcode.VARFREE, Var: id} }

func unary(op opcode.Opcode, a *Node) *Node { return &Node{Op: op, A: a} }
func binary(op opcode.Opcode, a, b *Node) *Node { return &Node{Op: op, A: a, B: b} }

func Neg(a *Node) *Node    { return unary(opcode.NEG, a) }
func Abs(a *Node) *Node    { return unary(opcode.ABS, a) }
func Sqrt(a *Node) *Node   { return unary(opcode.SQRT, a) }
func Square(a *Node) *Node { return unary(opcode.SQUARE, a) }
func Sin(a *Node) *Node    { return unary(opcode.SIN, a) }
func Cos(a *Node) *Node    { return unary(opcode.COS, a) }
func Tan(a *Node) *Node    { return unary(opcode.TAN, a) }
func Asin(a *Node) *Node   { return unary(opcode.ASIN, a) }
func Acos(a *Node) *Node   { return unary(opcode.ACOS, a) }
func Atan(a *Node) *Node   { return unary(opcode.ATAN, a) }
func Exp(a *Node) *Node    { return unary(opcode.EXP, a) }

func Add(a, b *Node) *Node     { return binary(opcode.ADD, a, b) }
func Sub(a, b *Node) *Node     { return binary(opcode.SUB, a, b) }
func Mul(a, b *Node) *Node     { return binary(opcode.MUL, a, b) }
func Div(a, b *Node) *Node     { return binary(opcode.DIV, a, b) }
func Atan2(a, b *Node) *Node   { return binary(opcode.ATAN2, a, b) }
func Pow(a, b *Node) *Node     { return binary(opcode.POW, a, b) }
func NthRoot(a, b *Node) *Node { return binary(opcode.NTHROOT, a, b) }
func Min(a, b *Node) *Node     { return binary(opcode.MIN, a, b) }
func Max(a, b *Node) *Node     { return binary(opcode.MAX, a, b) }
func Mod(a, b *Node) *Node     { return binary(opcode.MOD, a, b) }

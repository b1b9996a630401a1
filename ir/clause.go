package ir

import "github.com/sfcgeorge/ao/opcode"

// ClauseId is a dense index into a Tape's Clauses slice, assigned in
// topological order: for any Clause, its operand ids are strictly less
// than its own id. NoClause marks an unused operand slot.
type ClauseId int32

// NoClause is the sentinel for "this operand slot is unused" (unary ops'
// B, and both operands of CONST/VAR clauses).
const NoClause ClauseId = -1

// VarId identifies a free variable. The mapping from VarId to its current
// binding lives on the Tape and is mutable after construction via SetVar.
type VarId int

// Clause is an immutable record describing a single operation in the
// compiled tape, per spec.md §3.
type Clause struct {
	Op       opcode.Opcode
	A, B     ClauseId
	Constant float64
	Var      VarId
}

// Decision records that, at some clause, the named side of a MIN/MAX has
// been found to dominate (push based on an interval bound) or was chosen
// (push based on a Feature or a point specialization). Side is 1 for A,
// 2 for B.
type Decision struct {
	ID   ClauseId
	Side int8
}

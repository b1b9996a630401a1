package opcode

import "testing"

func TestArity(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{CONST, 0}, {VARX, 0}, {VARFREE, 0},
		{NEG, 1}, {SQRT, 1}, {EXP, 1},
		{ADD, 2}, {MIN, 2}, {POW, 2},
	}
	for _, tt := range tests {
		if got := Arity(tt.op); got != tt.want {
			t.Errorf("Arity(%s) = %d, want %d", tt.op, got, tt.want)
		}
	}
}

func TestIsBranching(t *testing.T) {
	for _, op := range []Opcode{MIN, MAX} {
		if !IsBranching(op) {
			t.Errorf("IsBranching(%s) = false, want true", op)
		}
	}
	for _, op := range []Opcode{ADD, ABS, CONST} {
		if IsBranching(op) {
			t.Errorf("IsBranching(%s) = true, want false", op)
		}
	}
}

func TestIsAmbiguous(t *testing.T) {
	for _, op := range []Opcode{MIN, MAX, ABS, MOD} {
		if !IsAmbiguous(op) {
			t.Errorf("IsAmbiguous(%s) = false, want true", op)
		}
	}
	if IsAmbiguous(ADD) {
		t.Errorf("IsAmbiguous(ADD) = true, want false")
	}
}

func TestEval(t *testing.T) {
	if got := Eval(ADD, 2, 3); got != 5 {
		t.Errorf("ADD(2,3) = %v, want 5", got)
	}
	if got := Eval(MIN, 2, 3); got != 2 {
		t.Errorf("MIN(2,3) = %v, want 2", got)
	}
	if got := Eval(NEG, 4, 0); got != -4 {
		t.Errorf("NEG(4) = %v, want -4", got)
	}
}

func TestWinningSide(t *testing.T) {
	if got := WinningSide(MIN, 1, 2); got != 1 {
		t.Errorf("WinningSide(MIN,1,2) = %d, want 1", got)
	}
	if got := WinningSide(MIN, 2, 1); got != 2 {
		t.Errorf("WinningSide(MIN,2,1) = %d, want 2", got)
	}
	if got := WinningSide(MIN, 1, 1); got != 1 {
		t.Errorf("WinningSide(MIN,1,1) = %d, want 1 (ties prefer A)", got)
	}
	if got := WinningSide(MAX, 1, 1); got != 1 {
		t.Errorf("WinningSide(MAX,1,1) = %d, want 1 (ties prefer A)", got)
	}
}

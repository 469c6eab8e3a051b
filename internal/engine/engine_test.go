package engine

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"startasm/internal/ast"
	"startasm/internal/runtime"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func reg(n int) ast.Operand { return ast.Operand{Value: fmt.Sprintf("r%d", n), Kind: ast.OperandRegister} }

func newTestEngine(input string) (*Engine, *runtime.Runtime, *bytes.Buffer) {
	rt := runtime.New()
	var out bytes.Buffer
	e := New(rt, 100, &out, strings.NewReader(input))
	return e, rt, &out
}

func TestCreateAndOutputInteger(t *testing.T) {
	e, rt, out := newTestEngine("")
	instr := ast.Instruction{
		Kind: ast.Create,
		Operands: []ast.Operand{
			{Value: "integer"},
			{Value: "42", Kind: ast.OperandInteger},
			reg(1),
		},
	}
	assert(t, e.Execute(instr) == nil, "create should not error")
	v, ok := rt.GetRegister(1)
	assert(t, ok, "r1 should be initialized")
	assert(t, v.Tag == runtime.Integer, "r1 should be INTEGER")
	assert(t, v.Int32() == 42, "r1 should hold 42")

	assert(t, e.Execute(ast.Instruction{Kind: ast.Output, Operands: []ast.Operand{reg(1)}}) == nil, "output should not error")
	assert(t, out.String() == "42", "expected output %q, got %q", "42", out.String())
}

func TestAddWrapsOn32BitOverflow(t *testing.T) {
	e, rt, _ := newTestEngine("")
	rt.SetRegister(1, runtime.NewInt(2147483647))
	rt.SetRegister(2, runtime.NewInt(1))
	err := e.Execute(ast.Instruction{Kind: ast.Add, Operands: []ast.Operand{reg(1), reg(2), reg(3)}})
	assert(t, err == nil, "add should not error: %v", err)
	v, _ := rt.GetRegister(3)
	assert(t, v.Int32() == -2147483648, "expected wraparound to math.MinInt32, got %d", v.Int32())
	assert(t, rt.GetFlag(runtime.Overflow), "overflow flag should be set")
	assert(t, rt.GetFlag(runtime.Sign), "sign flag should be set")
	assert(t, !rt.GetFlag(runtime.Zero), "zero flag should be clear")
}

func TestDivideByZeroHalts(t *testing.T) {
	e, rt, _ := newTestEngine("")
	rt.SetRegister(1, runtime.NewInt(10))
	rt.SetRegister(2, runtime.NewInt(0))
	err := e.Execute(ast.Instruction{Kind: ast.Divide, Operands: []ast.Operand{reg(1), reg(2), reg(3)}})
	assert(t, err != nil, "expected a runtime error")
	var re *RuntimeError
	assert(t, asRuntimeError(err, &re), "expected a *RuntimeError, got %T", err)
	assert(t, rt.PC() == e.HaltPC(), "pc should be set to the halt sentinel")
}

func TestDivideFloorsNegativeResults(t *testing.T) {
	e, rt, _ := newTestEngine("")
	rt.SetRegister(1, runtime.NewInt(-7))
	rt.SetRegister(2, runtime.NewInt(2))
	err := e.Execute(ast.Instruction{Kind: ast.Divide, Operands: []ast.Operand{reg(1), reg(2), reg(3)}})
	assert(t, err == nil, "divide should not error: %v", err)
	v, _ := rt.GetRegister(3)
	assert(t, v.Int32() == -4, "expected floor(-7/2) == -4, got %d", v.Int32())
}

func TestStackPushPopRoundTrip(t *testing.T) {
	e, rt, _ := newTestEngine("")
	rt.SetRegister(1, runtime.NewInt(99))
	assert(t, e.Execute(ast.Instruction{Kind: ast.Push, Operands: []ast.Operand{reg(1)}}) == nil, "push should not error")
	assert(t, !rt.StackEmpty(), "stack should not be empty after push")
	assert(t, e.Execute(ast.Instruction{Kind: ast.Pop, Operands: []ast.Operand{reg(2)}}) == nil, "pop should not error")
	v, _ := rt.GetRegister(2)
	assert(t, v.Int32() == 99, "expected popped value 99, got %d", v.Int32())
	assert(t, rt.StackEmpty(), "stack should be empty again")
}

func TestPopEmptyStackIsRuntimeError(t *testing.T) {
	e, rt, _ := newTestEngine("")
	err := e.Execute(ast.Instruction{Kind: ast.Pop, Operands: []ast.Operand{reg(1)}})
	assert(t, err != nil, "pop on an empty stack should error")
	var re *RuntimeError
	assert(t, asRuntimeError(err, &re), "expected a *RuntimeError, got %T", err)
	assert(t, rt.PC() == e.HaltPC(), "pc should be at the halt sentinel")
}

func TestInputBooleanAcceptsBothLiteralSets(t *testing.T) {
	e, rt, _ := newTestEngine("true\nfalse\nmaybe\n")
	assert(t, e.Execute(ast.Instruction{Kind: ast.Input, Operands: []ast.Operand{{Value: "boolean"}, reg(1)}}) == nil, "input true should not error")
	v, _ := rt.GetRegister(1)
	assert(t, v.Bool(), "expected r1 true")

	assert(t, e.Execute(ast.Instruction{Kind: ast.Input, Operands: []ast.Operand{{Value: "boolean"}, reg(2)}}) == nil, "input false should not error")
	v, _ = rt.GetRegister(2)
	assert(t, !v.Bool(), "expected r2 false")

	err := e.Execute(ast.Instruction{Kind: ast.Input, Operands: []ast.Operand{{Value: "boolean"}, reg(3)}})
	assert(t, err != nil, "input \"maybe\" should be rejected")
	var ie *InputError
	assert(t, asInputError(err, &ie), "expected an *InputError, got %T", err)
	assert(t, rt.PC() == 2, "pc should not advance past the two accepted inputs on an input error, got %d", rt.PC())
}

func TestJumpUnconditional(t *testing.T) {
	e, rt, _ := newTestEngine("")
	target := ast.Operand{Value: "i[5]", Kind: ast.OperandInstructionAddress}
	err := e.Execute(ast.Instruction{Kind: ast.Jump, Operands: []ast.Operand{{Value: "unconditional"}, target}})
	assert(t, err == nil, "jump should not error")
	assert(t, rt.PC() == 5, "expected pc 5, got %d", rt.PC())
}

// TestJumpConditionTable exercises every jump condition keyword against the
// (Z,S,O) flag triples that distinguish it from its neighbors, per spec.md
// §8's universal property that jump's outcome is a pure function of the
// three condition flags.
func TestJumpConditionTable(t *testing.T) {
	cases := []struct {
		condition  string
		z, s, o    bool
		wantTaken  bool
	}{
		// greater: !Z && S == O
		{"greater", false, false, false, true},
		{"greater", false, true, false, false},
		{"greater", false, true, true, true},
		{"greater", true, false, false, false},

		// less: S != O
		{"less", false, false, false, false},
		{"less", false, true, false, true},
		{"less", false, false, true, true},
		{"less", false, true, true, false},

		// equal/zero: Z
		{"equal", true, false, false, true},
		{"equal", false, false, false, false},
		{"zero", true, true, false, true},
		{"zero", false, false, false, false},

		// unequal/nonzero: !Z
		{"unequal", false, false, false, true},
		{"unequal", true, false, false, false},
		{"nonzero", false, true, false, true},
		{"nonzero", true, false, false, false},

		// negative: S
		{"negative", false, true, false, true},
		{"negative", false, false, false, false},

		// positive: !S && !Z
		{"positive", false, false, false, true},
		{"positive", false, true, false, false},
		{"positive", true, false, false, false},

		// unconditional: always
		{"unconditional", false, false, false, true},
		{"unconditional", true, true, true, true},
	}

	for _, c := range cases {
		e, rt, _ := newTestEngine("")
		rt.SetFlag(runtime.Zero, c.z)
		rt.SetFlag(runtime.Sign, c.s)
		rt.SetFlag(runtime.Overflow, c.o)

		target := ast.Operand{Value: "i[9]", Kind: ast.OperandInstructionAddress}
		err := e.Execute(ast.Instruction{Kind: ast.Jump, Operands: []ast.Operand{{Value: c.condition}, target}})
		assert(t, err == nil, "jump %q should not error: %v", c.condition, err)

		if c.wantTaken {
			assert(t, rt.PC() == 9, "%q with Z=%v,S=%v,O=%v: expected taken (pc 9), got %d", c.condition, c.z, c.s, c.o, rt.PC())
		} else {
			assert(t, rt.PC() == 1, "%q with Z=%v,S=%v,O=%v: expected not taken (pc 1), got %d", c.condition, c.z, c.s, c.o, rt.PC())
		}
	}
}

func TestCompareEqualRegistersSetsZeroFlagAndLeavesRegisterUnchanged(t *testing.T) {
	e, rt, _ := newTestEngine("")
	rt.SetRegister(1, runtime.NewInt(123))
	err := e.Execute(ast.Instruction{Kind: ast.Compare, Operands: []ast.Operand{reg(1), reg(1)}})
	assert(t, err == nil, "compare should not error: %v", err)

	assert(t, rt.GetFlag(runtime.Zero), "comparing a register to itself should set the zero flag")
	assert(t, !rt.GetFlag(runtime.Sign), "comparing a register to itself should clear the sign flag")
	assert(t, !rt.GetFlag(runtime.Overflow), "comparing a register to itself should clear the overflow flag")

	v, _ := rt.GetRegister(1)
	assert(t, v.Int32() == 123, "compare must not modify either operand register, got %d", v.Int32())
}

func TestCompareOrdering(t *testing.T) {
	e, rt, _ := newTestEngine("")
	rt.SetRegister(1, runtime.NewInt(3))
	rt.SetRegister(2, runtime.NewInt(5))
	err := e.Execute(ast.Instruction{Kind: ast.Compare, Operands: []ast.Operand{reg(1), reg(2)}})
	assert(t, err == nil, "compare should not error: %v", err)
	assert(t, !rt.GetFlag(runtime.Zero), "3 compared to 5 should clear the zero flag")
	assert(t, rt.GetFlag(runtime.Sign), "3-5 is negative, so the sign flag should be set")
}

func TestOrCombinesBitsIntoFirstOperand(t *testing.T) {
	e, rt, _ := newTestEngine("")
	rt.SetRegister(1, runtime.NewInt(0b0011))
	rt.SetRegister(2, runtime.NewInt(0b0101))
	err := e.Execute(ast.Instruction{Kind: ast.Or, Operands: []ast.Operand{reg(1), reg(2)}})
	assert(t, err == nil, "or should not error: %v", err)
	v, _ := rt.GetRegister(1)
	assert(t, v.Int32() == 0b0111, "expected 0b0111, got %b", v.Int32())
}

func TestAndCombinesBitsIntoFirstOperand(t *testing.T) {
	e, rt, _ := newTestEngine("")
	rt.SetRegister(1, runtime.NewInt(0b0110))
	rt.SetRegister(2, runtime.NewInt(0b0011))
	err := e.Execute(ast.Instruction{Kind: ast.And, Operands: []ast.Operand{reg(1), reg(2)}})
	assert(t, err == nil, "and should not error: %v", err)
	v, _ := rt.GetRegister(1)
	assert(t, v.Int32() == 0b0010, "expected 0b0010, got %b", v.Int32())
}

func TestShiftLeft(t *testing.T) {
	e, rt, _ := newTestEngine("")
	rt.SetRegister(1, runtime.NewInt(1))
	rt.SetRegister(2, runtime.NewInt(3))
	err := e.Execute(ast.Instruction{Kind: ast.Shift, Operands: []ast.Operand{{Value: "left"}, reg(1), reg(2)}})
	assert(t, err == nil, "shift left should not error: %v", err)
	v, _ := rt.GetRegister(1)
	assert(t, v.Int32() == 8, "expected 1<<3 == 8, got %d", v.Int32())
}

func TestShiftRightIsArithmetic(t *testing.T) {
	e, rt, _ := newTestEngine("")
	rt.SetRegister(1, runtime.NewInt(-8))
	rt.SetRegister(2, runtime.NewInt(1))
	err := e.Execute(ast.Instruction{Kind: ast.Shift, Operands: []ast.Operand{{Value: "right"}, reg(1), reg(2)}})
	assert(t, err == nil, "shift right should not error: %v", err)
	v, _ := rt.GetRegister(1)
	assert(t, v.Int32() == -4, "expected sign-filling right shift of -8 by 1 to be -4, got %d", v.Int32())
}

func TestShiftOnBooleanIsAlwaysFalse(t *testing.T) {
	e, rt, _ := newTestEngine("")
	rt.SetRegister(1, runtime.NewBool(true))
	rt.SetRegister(2, runtime.NewInt(1))
	err := e.Execute(ast.Instruction{Kind: ast.Shift, Operands: []ast.Operand{{Value: "left"}, reg(1), reg(2)}})
	assert(t, err == nil, "shift on boolean should not error: %v", err)
	v, _ := rt.GetRegister(1)
	assert(t, v.Tag == runtime.Boolean, "shift on a boolean must keep the BOOLEAN tag")
	assert(t, !v.Bool(), "shift on a boolean always yields false per spec.md §4.3")
}

func TestStopSetsHaltSentinel(t *testing.T) {
	e, rt, _ := newTestEngine("")
	assert(t, e.Execute(ast.Instruction{Kind: ast.Stop}) == nil, "stop should not error")
	assert(t, rt.PC() == e.HaltPC(), "expected pc at halt sentinel, got %d", rt.PC())
}

func TestNotOnBoolean(t *testing.T) {
	e, rt, _ := newTestEngine("")
	rt.SetRegister(1, runtime.NewBool(true))
	err := e.Execute(ast.Instruction{Kind: ast.Not, Operands: []ast.Operand{reg(1)}})
	assert(t, err == nil, "not should not error")
	v, _ := rt.GetRegister(1)
	assert(t, !v.Bool(), "expected r1 false after negating true")
}

func asRuntimeError(err error, target **RuntimeError) bool {
	re, ok := err.(*RuntimeError)
	if ok {
		*target = re
	}
	return ok
}

func asInputError(err error, target **InputError) bool {
	ie, ok := err.(*InputError)
	if ok {
		*target = ie
	}
	return ok
}

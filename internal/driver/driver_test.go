package driver

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

// loadTestProgram bypasses the compiler subprocess and injects a program
// directly, for tests that only care about driver-level stepping and
// bookkeeping, not compilation.
func loadTestProgram(d *Driver, path string, instrs []ast.Instruction) {
	d.program = &ast.Program{Instructions: instrs}
	d.programPath = path
	d.resetExecutionState()
}

func reg(n int) ast.Operand { return ast.Operand{Value: fmt.Sprintf("r%d", n), Kind: ast.OperandRegister} }

func newTestDriver() (*Driver, *bytes.Buffer) {
	var out bytes.Buffer
	d := New("unused-image", &out, strings.NewReader(""))
	return d, &out
}

func threeInstructionProgram() []ast.Instruction {
	return []ast.Instruction{
		{Kind: ast.Create, Operands: []ast.Operand{{Value: "integer"}, {Value: "1", Kind: ast.OperandInteger}, reg(1)}},
		{Kind: ast.Create, Operands: []ast.Operand{{Value: "integer"}, {Value: "2", Kind: ast.OperandInteger}, reg(2)}},
		{Kind: ast.Stop},
	}
}

func TestForwardStepsAndDetectsEOF(t *testing.T) {
	d, _ := newTestDriver()
	loadTestProgram(d, "p.sasm", threeInstructionProgram())

	assert(t, d.Initialized(), "driver should be initialized")
	assert(t, !d.AtEOF(), "should not be at EOF before any steps")

	assert(t, d.Forward(1) == nil, "forward(1) should not error")
	assert(t, !d.AtEOF(), "should not be at EOF after one step")

	assert(t, d.Forward(2) == nil, "forward(2) should not error")
	assert(t, d.AtEOF(), "should be at EOF after stop executes")

	err := d.Forward(1)
	assert(t, err == ErrAtEndOfExecution, "expected ErrAtEndOfExecution, got %v", err)
}

func TestRunExecutesToCompletion(t *testing.T) {
	d, _ := newTestDriver()
	loadTestProgram(d, "p.sasm", threeInstructionProgram())

	assert(t, d.Run() == nil, "run should not error")
	assert(t, d.AtEOF(), "should be at EOF after run")
}

func TestBreakpointStopsForwardAndRun(t *testing.T) {
	d, _ := newTestDriver()
	loadTestProgram(d, "p.sasm", threeInstructionProgram())
	d.SetBreakpoint(1)

	assert(t, d.Run() == nil, "run should not error")
	assert(t, !d.AtEOF(), "should have stopped at the breakpoint, not reached EOF")

	bp, ok := d.Breakpoint()
	assert(t, ok, "breakpoint should still be set")
	assert(t, bp == 1, "expected breakpoint at pc 1, got %d", bp)

	d.RemoveBreakpoint()
	assert(t, d.Run() == nil, "run should not error after removing breakpoint")
	assert(t, d.AtEOF(), "should reach EOF once the breakpoint is cleared")
}

func TestRestartClearsEOFAndState(t *testing.T) {
	d, _ := newTestDriver()
	loadTestProgram(d, "p.sasm", threeInstructionProgram())
	assert(t, d.Run() == nil, "run should not error")
	assert(t, d.AtEOF(), "should be at EOF")

	assert(t, d.Restart() == nil, "restart should not error")
	assert(t, !d.AtEOF(), "should not be at EOF after restart")
	_, ok := d.GetRegisterForTest(1)
	assert(t, !ok, "registers should be cleared by restart")
}

func TestTerminateResetsToUninitialized(t *testing.T) {
	d, _ := newTestDriver()
	loadTestProgram(d, "p.sasm", threeInstructionProgram())
	d.Terminate()
	assert(t, !d.Initialized(), "driver should be uninitialized after terminate")

	err := d.Forward(1)
	assert(t, err == ErrNotInitialized, "expected ErrNotInitialized, got %v", err)
}

// GetRegisterForTest exposes runtime register state for assertions without
// widening the production API.
func (d *Driver) GetRegisterForTest(i int) (runtime.Value, bool) {
	return d.rt.GetRegister(i)
}

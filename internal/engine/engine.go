// Package engine implements C4, the execution engine: the function that
// takes one ast.Instruction and a *runtime.Runtime and advances the
// machine by exactly one step. It has no knowledge of programs, files, or
// the driver/session layers above it — only single-instruction semantics.
package engine

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"startasm/internal/ast"
	"startasm/internal/runtime"
)

// Engine executes one StartASM instruction at a time against a bound
// Runtime. It owns the injected I/O streams `input`/`output`/`print` read
// from and write to — callers decide what those streams are (a terminal in
// the session shell, an in-memory buffer in tests).
type Engine struct {
	rt            *runtime.Runtime
	programLength int // #instructions - 1: the index of the last valid pc
	haltPC        int // programLength + 1: the halt sentinel
	out           *bufio.Writer
	in            *bufio.Reader
}

// New builds an Engine bound to rt, with a halt sentinel derived from
// programLength (the driver passes #instructions-1, per spec.md §4.5).
// Output is flushed after every write so a session shell sees it
// immediately; input is read one line at a time.
func New(rt *runtime.Runtime, programLength int, out io.Writer, in io.Reader) *Engine {
	return &Engine{
		rt:            rt,
		programLength: programLength,
		haltPC:        programLength + 1,
		out:           bufio.NewWriter(out),
		in:            bufio.NewReader(in),
	}
}

// HaltPC returns the halt sentinel (programLength + 1) — the driver uses
// this to detect program completion.
func (e *Engine) HaltPC() int { return e.haltPC }

// Execute runs one instruction and updates pc accordingly:
//   - on success, pc advances by one, except `jump` (which always sets pc
//     itself, taken or not) and `stop` (which jumps straight to the halt
//     sentinel).
//   - on a RuntimeError, pc is set to the halt sentinel before returning.
//   - on an InputError, pc is left untouched so the caller can retry the
//     same instruction with corrected input.
//   - a panic inside a handler (e.g. an instruction carrying fewer operands
//     than its handler reads) is recovered and returned as a RuntimeError,
//     with pc set to the halt sentinel.
func (e *Engine) Execute(instr ast.Instruction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.rt.SetPC(e.haltPC)
			err = runtimeErr(fmt.Errorf("malformed %v instruction: %v", instr.Kind, r))
		}
	}()

	if instr.Kind == ast.Stop {
		e.rt.SetPC(e.haltPC)
		return nil
	}

	switch instr.Kind {
	case ast.Move:
		err = e.execMove(instr.Operands)
	case ast.Load:
		err = e.execLoad(instr.Operands)
	case ast.Store:
		err = e.execStore(instr.Operands)
	case ast.Create:
		err = e.execCreate(instr.Operands)
	case ast.Add:
		err = e.execArithmetic(instr.Operands, func(a, b int64) int64 { return a + b })
	case ast.Sub:
		err = e.execArithmetic(instr.Operands, func(a, b int64) int64 { return a - b })
	case ast.Multiply:
		err = e.execArithmetic(instr.Operands, func(a, b int64) int64 { return a * b })
	case ast.Divide:
		err = e.execDivide(instr.Operands)
	case ast.Or:
		err = e.execBitwise(instr.Operands, func(a, b uint32) uint32 { return a | b })
	case ast.And:
		err = e.execBitwise(instr.Operands, func(a, b uint32) uint32 { return a & b })
	case ast.Not:
		err = e.execNot(instr.Operands)
	case ast.Shift:
		err = e.execShift(instr.Operands)
	case ast.Compare:
		err = e.execCompare(instr.Operands)
	case ast.Jump:
		err = e.execJump(instr.Operands)
	case ast.Cast, ast.Call, ast.Return:
		// Declared but unspecified in the source language: these parse
		// and advance pc with no other state change.
	case ast.Push:
		err = e.execPush(instr.Operands)
	case ast.Pop:
		err = e.execPop(instr.Operands)
	case ast.Input:
		err = e.execInput(instr.Operands)
	case ast.Output:
		err = e.execOutput(instr.Operands)
	case ast.Print:
		err = e.execPrint(instr.Operands)
	case ast.Label, ast.Comment:
		// No-ops.
	default:
		err = fmt.Errorf("%w: %v", errUnknownInstruction, instr.Kind)
	}

	if err != nil {
		if _, isInput := err.(*InputError); isInput {
			return err
		}
		wrapped := runtimeErr(err)
		e.rt.SetPC(e.haltPC)
		return wrapped
	}

	if instr.Kind != ast.Jump {
		e.rt.IncrementPC()
	}
	return nil
}

func (e *Engine) execMove(ops []ast.Operand) error {
	v, err := e.readRegisterOperand(ops[0])
	if err != nil {
		return err
	}
	return e.writeRegisterOperand(ops[1], v)
}

func (e *Engine) execLoad(ops []ast.Operand) error {
	src, dst := ops[0], ops[1]
	addr, err := e.resolveAddress(src)
	if err != nil {
		return err
	}
	v, ok := e.rt.GetMemory(addr)
	if !ok {
		return fmt.Errorf("memory address %d is not initialized", addr)
	}
	return e.writeRegisterOperand(dst, v)
}

func (e *Engine) execStore(ops []ast.Operand) error {
	src, dst := ops[0], ops[1]
	v, err := e.readRegisterOperand(src)
	if err != nil {
		return err
	}
	addr, err := e.resolveAddress(dst)
	if err != nil {
		return err
	}
	e.rt.SetMemory(addr, v)
	return nil
}

// resolveAddress reads a memory address either from a register holding a
// MEMORY_ADDRESS or from an "m<N>" literal operand, per the shared
// load/store addressing rule in spec.md §4.3.
func (e *Engine) resolveAddress(op ast.Operand) (uint32, error) {
	switch op.Kind {
	case ast.OperandRegister:
		v, err := e.readRegisterOperand(op)
		if err != nil {
			return 0, err
		}
		if v.Tag != runtime.MemoryAddress {
			return 0, fmt.Errorf("register %s does not contain a memory address", op.Value)
		}
		return v.Uint32(), nil
	case ast.OperandMemoryAddress:
		return parseMemoryLiteral(op.Value)
	default:
		return 0, fmt.Errorf("operand %q is not an address", op.Value)
	}
}

func (e *Engine) execCreate(ops []ast.Operand) error {
	typeKeyword, literal, dst := ops[0], ops[1], ops[2]
	v, err := decodeCreateLiteral(typeKeyword.Value, literal)
	if err != nil {
		return err
	}
	return e.writeRegisterOperand(dst, v)
}

func (e *Engine) execArithmetic(ops []ast.Operand, op func(a, b int64) int64) error {
	s1, s2, dst := ops[0], ops[1], ops[2]
	v1, err := e.readRegisterOperand(s1)
	if err != nil {
		return err
	}
	v2, err := e.readRegisterOperand(s2)
	if err != nil {
		return err
	}
	if v1.Tag != v2.Tag {
		return fmt.Errorf("type mismatch: %s vs %s", v1.Tag, v2.Tag)
	}
	if !permittedArithmeticTag(v1.Tag) {
		return fmt.Errorf("type %s is not permitted in arithmetic", v1.Tag)
	}
	raw := op(v1.Raw, v2.Raw)
	wrapped := e.applyArithmeticResult(raw, v1.Tag)
	return e.writeRegisterOperand(dst, runtime.Value{Tag: v1.Tag, Raw: wrapped})
}

func (e *Engine) execDivide(ops []ast.Operand) error {
	s1, s2, dst := ops[0], ops[1], ops[2]
	v1, err := e.readRegisterOperand(s1)
	if err != nil {
		return err
	}
	v2, err := e.readRegisterOperand(s2)
	if err != nil {
		return err
	}
	if v1.Tag != v2.Tag {
		return fmt.Errorf("type mismatch: %s vs %s", v1.Tag, v2.Tag)
	}
	if v1.Tag != runtime.Integer {
		return fmt.Errorf("type %s is not permitted in division", v1.Tag)
	}
	if v2.Raw == 0 {
		return fmt.Errorf("division by zero")
	}
	raw := floorDiv(v1.Raw, v2.Raw)
	wrapped := e.applyArithmeticResult(raw, v1.Tag)
	return e.writeRegisterOperand(dst, runtime.Value{Tag: v1.Tag, Raw: wrapped})
}

func (e *Engine) execBitwise(ops []ast.Operand, op func(a, b uint32) uint32) error {
	r1, r2 := ops[0], ops[1]
	v1, err := e.readRegisterOperand(r1)
	if err != nil {
		return err
	}
	v2, err := e.readRegisterOperand(r2)
	if err != nil {
		return err
	}
	if v1.Tag != v2.Tag {
		return fmt.Errorf("type mismatch: %s vs %s", v1.Tag, v2.Tag)
	}
	resultBits := op(v1.Uint32(), v2.Uint32())
	wrapped := e.applyArithmeticResult(int64(int32(resultBits)), v1.Tag)
	return e.writeRegisterOperand(r1, runtime.Value{Tag: v1.Tag, Raw: wrapped})
}

func (e *Engine) execNot(ops []ast.Operand) error {
	reg := ops[0]
	v, err := e.readRegisterOperand(reg)
	if err != nil {
		return err
	}

	var raw int64
	if v.Tag == runtime.Boolean {
		if v.Bool() {
			raw = 0
		} else {
			raw = 1
		}
	} else {
		bits := ^v.Uint32()
		raw = int64(int32(bits))
	}
	wrapped := e.applyArithmeticResult(raw, v.Tag)
	return e.writeRegisterOperand(reg, runtime.Value{Tag: v.Tag, Raw: wrapped})
}

func (e *Engine) execShift(ops []ast.Operand) error {
	direction, src, amountReg := ops[0].Value, ops[1], ops[2]
	srcVal, err := e.readRegisterOperand(src)
	if err != nil {
		return err
	}
	amountVal, err := e.readRegisterOperand(amountReg)
	if err != nil {
		return err
	}
	if amountVal.Tag != runtime.Integer {
		return fmt.Errorf("shift amount must be an integer, got %s", amountVal.Tag)
	}

	if srcVal.Tag == runtime.Boolean {
		wrapped := e.applyArithmeticResult(0, srcVal.Tag)
		return e.writeRegisterOperand(src, runtime.Value{Tag: srcVal.Tag, Raw: wrapped})
	}

	amount := uint(uint32(amountVal.Int32()) & 31)
	bits := srcVal.Uint32()

	var resultBits uint32
	switch direction {
	case "left":
		resultBits = bits << amount
	case "right":
		// Go's right shift on a signed value is arithmetic (sign-filling),
		// which is exactly the shift §4.3 describes for negative sources.
		resultBits = uint32(int32(bits) >> amount)
	default:
		return fmt.Errorf("unknown shift direction %q", direction)
	}

	wrapped := e.applyArithmeticResult(int64(int32(resultBits)), srcVal.Tag)
	return e.writeRegisterOperand(src, runtime.Value{Tag: srcVal.Tag, Raw: wrapped})
}

func (e *Engine) execCompare(ops []ast.Operand) error {
	s1, s2 := ops[0], ops[1]
	v1, err := e.readRegisterOperand(s1)
	if err != nil {
		return err
	}
	v2, err := e.readRegisterOperand(s2)
	if err != nil {
		return err
	}
	if v1.Tag != v2.Tag {
		return fmt.Errorf("type mismatch: %s vs %s", v1.Tag, v2.Tag)
	}
	if !permittedArithmeticTag(v1.Tag) {
		return fmt.Errorf("type %s is not permitted in comparison", v1.Tag)
	}
	e.applyArithmeticResult(v1.Raw-v2.Raw, v1.Tag)
	return nil
}

func (e *Engine) execJump(ops []ast.Operand) error {
	condition, targetOp := ops[0].Value, ops[1]
	target, err := parseInstructionLiteral(targetOp.Value)
	if err != nil {
		return err
	}

	z := e.rt.GetFlag(runtime.Zero)
	s := e.rt.GetFlag(runtime.Sign)
	o := e.rt.GetFlag(runtime.Overflow)

	var taken bool
	switch condition {
	case "greater":
		taken = !z && s == o
	case "less":
		taken = s != o
	case "equal", "zero":
		taken = z
	case "unequal", "nonzero":
		taken = !z
	case "negative":
		taken = s
	case "positive":
		taken = !s && !z
	case "unconditional":
		taken = true
	default:
		return fmt.Errorf("unknown jump condition %q", condition)
	}

	if taken {
		e.rt.SetPC(int(target))
	} else {
		e.rt.IncrementPC()
	}
	return nil
}

func (e *Engine) execPush(ops []ast.Operand) error {
	v, err := e.readRegisterOperand(ops[0])
	if err != nil {
		return err
	}
	e.rt.PushStack(v)
	return nil
}

func (e *Engine) execPop(ops []ast.Operand) error {
	if e.rt.StackEmpty() {
		return fmt.Errorf("stack is empty")
	}
	v, _ := e.rt.PopStack()
	return e.writeRegisterOperand(ops[0], v)
}

// execInput reads one line from the injected input stream and parses it
// according to the requested type. A line that cannot be read or parsed is
// an InputError: the instruction does not halt the program, it just doesn't
// commit a value, so the driver can ask the operator to try again. An
// invalid destination register is an ordinary error (a RuntimeError once
// Execute wraps it).
func (e *Engine) execInput(ops []ast.Operand) error {
	typeKeyword, dst := ops[0].Value, ops[1]
	line, err := e.readInputLine()
	if err != nil {
		return inputErr(err)
	}

	switch typeKeyword {
	case "integer":
		n, convErr := parseInputInt(line)
		if convErr != nil {
			return inputErr(convErr)
		}
		return e.writeRegisterOperand(dst, runtime.NewInt(n))
	case "character":
		if len(line) != 1 || line[0] > 127 {
			return inputErr(fmt.Errorf("invalid character input %q", line))
		}
		return e.writeRegisterOperand(dst, runtime.NewChar(line[0]))
	case "boolean":
		switch {
		case isTrueLiteral(line):
			return e.writeRegisterOperand(dst, runtime.NewBool(true))
		case isFalseLiteral(line):
			return e.writeRegisterOperand(dst, runtime.NewBool(false))
		default:
			return inputErr(fmt.Errorf("invalid boolean input %q", line))
		}
	default:
		return inputErr(fmt.Errorf("unsupported input type %q", typeKeyword))
	}
}

func parseInputInt(line string) (int32, error) {
	var n int64
	_, err := fmt.Sscanf(strings.TrimSpace(line), "%d", &n)
	if err != nil || n < -(1<<31) || n > (1<<31)-1 {
		return 0, fmt.Errorf("invalid integer input %q", line)
	}
	return int32(n), nil
}

func isTrueLiteral(s string) bool {
	switch s {
	case "true", "True", "TRUE", "1", "t", "T":
		return true
	default:
		return false
	}
}

func isFalseLiteral(s string) bool {
	switch s {
	case "false", "False", "FALSE", "0", "f", "F":
		return true
	default:
		return false
	}
}

func (e *Engine) readInputLine() (string, error) {
	line, err := e.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (e *Engine) execOutput(ops []ast.Operand) error {
	v, err := e.readRegisterOperand(ops[0])
	if err != nil {
		return err
	}
	e.writeOutput(formatOutput(v))
	return nil
}

// formatOutput renders a value the way `output` prints it — distinct from
// Value.DumpString, which is what the dump sections use.
func formatOutput(v runtime.Value) string {
	switch v.Tag {
	case runtime.MemoryAddress:
		return fmt.Sprintf("m<%d>", v.Uint32())
	case runtime.InstructionAddress:
		return fmt.Sprintf("i[%d]", v.Uint32())
	case runtime.Boolean:
		if v.Bool() {
			return "true"
		}
		return "false"
	case runtime.Character:
		return string(rune(v.Char()))
	case runtime.String:
		return v.Str
	default:
		return fmt.Sprintf("%d", v.Int32())
	}
}

func (e *Engine) execPrint(ops []ast.Operand) error {
	op := ops[0]
	if op.Kind == ast.OperandNewline {
		e.writeOutput("\n")
		return nil
	}
	text := op.Value
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	e.writeOutput(text)
	return nil
}

func (e *Engine) writeOutput(s string) {
	e.out.WriteString(s)
	e.out.Flush()
}

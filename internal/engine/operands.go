package engine

import (
	"fmt"
	"strconv"

	"startasm/internal/ast"
	"startasm/internal/runtime"
)

// parseRegisterIndex parses an "rN" operand text into its 1-based register
// index, rejecting anything out of the r1..r9 range.
func parseRegisterIndex(text string) (int, error) {
	if len(text) < 2 || text[0] != 'r' {
		return 0, fmt.Errorf("not a register operand: %q", text)
	}
	n, err := strconv.Atoi(text[1:])
	if err != nil {
		return 0, fmt.Errorf("not a register operand: %q", text)
	}
	if n < 1 || n > runtime.NumRegisters {
		return 0, fmt.Errorf("register index out of range: %q", text)
	}
	return n, nil
}

// parseMemoryLiteral parses an "m<N>" literal into its address.
func parseMemoryLiteral(text string) (uint32, error) {
	if len(text) < 3 || text[0] != 'm' || text[1] != '<' || text[len(text)-1] != '>' {
		return 0, fmt.Errorf("not a memory address literal: %q", text)
	}
	n, err := strconv.ParseUint(text[2:len(text)-1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not a memory address literal: %q", text)
	}
	return uint32(n), nil
}

// parseInstructionLiteral parses an "i[N]" literal into its address.
func parseInstructionLiteral(text string) (uint32, error) {
	if len(text) < 3 || text[0] != 'i' || text[1] != '[' || text[len(text)-1] != ']' {
		return 0, fmt.Errorf("not an instruction address literal: %q", text)
	}
	n, err := strconv.ParseUint(text[2:len(text)-1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an instruction address literal: %q", text)
	}
	return uint32(n), nil
}

// readRegisterOperand reads a register operand, handling the implicit "sp"
// register specially (it is never written, only read).
func (e *Engine) readRegisterOperand(op ast.Operand) (runtime.Value, error) {
	if op.Value == "sp" {
		return e.rt.StackPointer(), nil
	}
	idx, err := parseRegisterIndex(op.Value)
	if err != nil {
		return runtime.Value{}, err
	}
	v, ok := e.rt.GetRegister(idx)
	if !ok {
		return runtime.Value{}, fmt.Errorf("register %s is not initialized", op.Value)
	}
	return v, nil
}

// writeRegisterOperand writes a general-purpose register operand. "sp" is
// never a legal write target — the stack pointer only moves via push/pop.
func (e *Engine) writeRegisterOperand(op ast.Operand, v runtime.Value) error {
	idx, err := parseRegisterIndex(op.Value)
	if err != nil {
		return err
	}
	e.rt.SetRegister(idx, v)
	return nil
}

// decodeCreateLiteral turns a `create` instruction's type keyword and
// literal operand into a tagged Value, per spec.md §4.3's create row. FLOAT
// is a recognized operand kind (earlier StartASM drafts had one) but is
// always rejected: the final language carries no floating-point type.
func decodeCreateLiteral(typeKeyword string, literal ast.Operand) (runtime.Value, error) {
	switch typeKeyword {
	case "integer":
		n, err := strconv.ParseInt(literal.Value, 10, 32)
		if err != nil {
			return runtime.Value{}, fmt.Errorf("invalid integer literal %q", literal.Value)
		}
		return runtime.NewInt(int32(n)), nil
	case "boolean":
		switch literal.Value {
		case "true":
			return runtime.NewBool(true), nil
		case "false":
			return runtime.NewBool(false), nil
		default:
			return runtime.Value{}, fmt.Errorf("invalid boolean literal %q", literal.Value)
		}
	case "character":
		if len(literal.Value) != 1 {
			return runtime.Value{}, fmt.Errorf("invalid character literal %q", literal.Value)
		}
		return runtime.NewChar(literal.Value[0]), nil
	case "memory":
		addr, err := parseMemoryLiteral(literal.Value)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.NewMemoryAddress(addr), nil
	case "instruction":
		addr, err := parseInstructionLiteral(literal.Value)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.NewInstructionAddress(addr), nil
	case "float":
		return runtime.Value{}, fmt.Errorf("float values are not supported")
	default:
		return runtime.Value{}, fmt.Errorf("unknown create type %q", typeKeyword)
	}
}

// permittedArithmeticTag reports whether a tag may take part in
// add/sub/multiply/compare, per spec.md §4.3.
func permittedArithmeticTag(t runtime.Tag) bool {
	switch t {
	case runtime.Integer, runtime.MemoryAddress, runtime.Boolean, runtime.Character:
		return true
	default:
		return false
	}
}

// floorDiv computes Python-style floor division (rounds toward negative
// infinity), which is what `divide` uses rather than Go's truncating /.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

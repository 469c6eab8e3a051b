// Package ast defines the parsed tree of a StartASM program: an ordered
// sequence of instruction nodes, each with an ordered sequence of operand
// nodes. The tree is produced entirely by an external compiler subprocess
// (see internal/compiler and internal/loader) and is immutable once built.
package ast

import "fmt"

// NodeKind mirrors the "type" field of the compiler's JSON node encoding.
type NodeKind int

const (
	Root NodeKind = iota
	InstructionNodeKind
	OperandNodeKind
)

// InstructionKind enumerates the 25 instruction types the compiler can emit,
// using the same ordinal encoding as the compiler's JSON (0..24).
type InstructionKind int

const (
	Move InstructionKind = iota
	Load
	Store
	Create
	Cast
	Add
	Sub
	Multiply
	Divide
	Or
	And
	Not
	Shift
	Compare
	Jump
	Call
	Push
	Pop
	Return
	Stop
	Input
	Output
	Print
	Label
	Comment
)

var instructionNames = map[InstructionKind]string{
	Move:     "move",
	Load:     "load",
	Store:    "store",
	Create:   "create",
	Cast:     "cast",
	Add:      "add",
	Sub:      "sub",
	Multiply: "multiply",
	Divide:   "divide",
	Or:       "or",
	And:      "and",
	Not:      "not",
	Shift:    "shift",
	Compare:  "compare",
	Jump:     "jump",
	Call:     "call",
	Push:     "push",
	Pop:      "pop",
	Return:   "return",
	Stop:     "stop",
	Input:    "input",
	Output:   "output",
	Print:    "print",
	Label:    "label",
	Comment:  "comment",
}

func (k InstructionKind) String() string {
	if s, ok := instructionNames[k]; ok {
		return s
	}
	return "?unknown-instruction?"
}

// DecodeInstructionKind converts the compiler's "instruction_type" ordinal
// into an InstructionKind, rejecting anything outside 0..24.
func DecodeInstructionKind(value int) (InstructionKind, error) {
	if value < int(Move) || value > int(Comment) {
		return 0, fmt.Errorf("unknown instruction type: %d", value)
	}
	return InstructionKind(value), nil
}

// OperandKind enumerates the operand-type ordinals the compiler emits
// (0..13). FLOAT is decoded but always rejected downstream: earlier drafts
// of StartASM had a float value type, the final language does not.
type OperandKind int

const (
	OperandRegister OperandKind = iota
	OperandInstructionAddress
	OperandMemoryAddress
	OperandInteger
	OperandFloat
	OperandBoolean
	OperandCharacter
	OperandString
	OperandNewline
	OperandTypeCondition
	OperandShiftCondition
	OperandJumpCondition
	OperandUnknown
	OperandEmpty
)

var operandNames = map[OperandKind]string{
	OperandRegister:           "register",
	OperandInstructionAddress: "instruction_address",
	OperandMemoryAddress:      "memory_address",
	OperandInteger:            "integer",
	OperandFloat:              "float",
	OperandBoolean:            "boolean",
	OperandCharacter:          "character",
	OperandString:             "string",
	OperandNewline:            "newline",
	OperandTypeCondition:      "type_condition",
	OperandShiftCondition:     "shift_condition",
	OperandJumpCondition:      "jump_condition",
	OperandUnknown:            "unknown",
	OperandEmpty:              "empty",
}

func (k OperandKind) String() string {
	if s, ok := operandNames[k]; ok {
		return s
	}
	return "?unknown-operand?"
}

// DecodeOperandKind converts the compiler's "operand_type" ordinal into an
// OperandKind, rejecting anything outside 0..13.
func DecodeOperandKind(value int) (OperandKind, error) {
	if value < int(OperandRegister) || value > int(OperandEmpty) {
		return 0, fmt.Errorf("unknown operand type: %d", value)
	}
	return OperandKind(value), nil
}

// Operand is a leaf node: a raw text literal tagged with its compile-time
// operand kind plus its source position.
type Operand struct {
	Value    string
	Kind     OperandKind
	Line     int
	Position int
}

// Instruction is one parsed line of a StartASM program: display text, its
// instruction kind, and the ordered operands the handler in internal/engine
// will read positionally.
type Instruction struct {
	Text     string
	Kind     InstructionKind
	Operands []Operand
	Line     int
}

// Program is the ordered instruction stream produced by flattening the
// compiler's ROOT node. It is immutable after the loader builds it.
type Program struct {
	Instructions []Instruction
}

// Len returns the number of instructions in the program.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// At returns the instruction at the given program counter. Callers (the
// driver and engine) are responsible for bounds-checking against Len()
// before calling — pc running past the end is the halt sentinel, not an
// AST concern.
func (p *Program) At(pc int) Instruction {
	return p.Instructions[pc]
}

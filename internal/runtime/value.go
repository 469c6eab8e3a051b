// Package runtime holds the mutable machine state a StartASM program
// executes against: registers, memory (which also backs the stack),
// the program counter, and the three condition flags. It corresponds to
// C3 in the system overview. The execution engine (internal/engine)
// borrows a *Runtime mutably for the duration of one instruction.
package runtime

import "fmt"

// Tag identifies the run-time kind of a stored Value. It may differ from
// the compile-time operand kind of the literal that produced it — e.g.
// "create integer 5 r1" stores an Tag Integer value, and a later "add" may
// write that same tag to another register.
type Tag int

const (
	Integer Tag = iota
	Boolean
	Character
	MemoryAddress
	InstructionAddress
	String
)

var tagNames = map[Tag]string{
	Integer:            "INTEGER",
	Boolean:            "BOOLEAN",
	Character:          "CHARACTER",
	MemoryAddress:      "MEMORY_ADDRESS",
	InstructionAddress: "INSTRUCTION_ADDRESS",
	String:             "STRING",
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// Value is a tagged payload: a run-time word plus the tag that says how to
// interpret it. Rather than an untyped (payload, tag) pair, each accessor
// below is tag-aware so callers don't have to know the underlying
// representation — only the tag.
//
// Raw carries INTEGER (sign-extended), BOOLEAN (0 or 1), CHARACTER (0-255),
// MEMORY_ADDRESS and INSTRUCTION_ADDRESS (0..2^32-1, zero-extended). Str
// carries STRING literals only.
type Value struct {
	Tag Tag
	Raw int64
	Str string
}

// NewInt builds an INTEGER value.
func NewInt(v int32) Value { return Value{Tag: Integer, Raw: int64(v)} }

// NewBool builds a BOOLEAN value.
func NewBool(b bool) Value {
	if b {
		return Value{Tag: Boolean, Raw: 1}
	}
	return Value{Tag: Boolean, Raw: 0}
}

// NewChar builds a CHARACTER value from its extended-ASCII code point.
func NewChar(c uint8) Value { return Value{Tag: Character, Raw: int64(c)} }

// NewMemoryAddress builds a MEMORY_ADDRESS value.
func NewMemoryAddress(addr uint32) Value { return Value{Tag: MemoryAddress, Raw: int64(addr)} }

// NewInstructionAddress builds an INSTRUCTION_ADDRESS value.
func NewInstructionAddress(addr uint32) Value {
	return Value{Tag: InstructionAddress, Raw: int64(addr)}
}

// NewString builds a STRING value (only ever produced for the `print`
// instruction's literal operand).
func NewString(s string) Value { return Value{Tag: String, Str: s} }

// Int32 returns the value reinterpreted as a 32-bit signed integer,
// regardless of tag — callers that have already checked the tag use this
// for arithmetic.
func (v Value) Int32() int32 { return int32(v.Raw) }

// Uint32 returns the value reinterpreted as a 32-bit unsigned word.
func (v Value) Uint32() uint32 { return uint32(v.Raw) }

// Bool returns the value as a boolean (true iff Raw != 0).
func (v Value) Bool() bool { return v.Raw != 0 }

// Char returns the value as an extended-ASCII code point.
func (v Value) Char() uint8 { return uint8(v.Raw) }

// DumpString renders the value the way dump sections print it: BOOLEAN as
// true/false, STRING as its text, every other tag as the raw stored word in
// decimal (the m<N>, i[N] and character forms only apply to the `output`
// instruction — see (*Engine) formatOutput).
func (v Value) DumpString() string {
	switch v.Tag {
	case Boolean:
		if v.Bool() {
			return "true"
		}
		return "false"
	case String:
		return v.Str
	default:
		return fmt.Sprintf("%d", v.Raw)
	}
}

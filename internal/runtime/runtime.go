package runtime

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// NumRegisters is the number of general-purpose registers, r1 through r9.
const NumRegisters = 9

// InitialStackPointer is one past the top addressable memory cell: the
// stack grows down from here. Chosen to be INT32_MAX+1 per the spec so
// that every valid MEMORY_ADDRESS used by the program (the m<N> literals,
// which live in the low range) can never collide with a stack slot.
const InitialStackPointer uint32 = uint32(math.MaxInt32) + 1

// Flag names the three condition flags.
type Flag int

const (
	Zero Flag = iota
	Sign
	Overflow
)

// Runtime is the mutable machine state for one program execution: the
// register file, the unified memory/stack map, the program counter, the
// stack pointer, and the condition flags. A Runtime is constructed fresh
// by Driver.Initialize/Restart and is reset to all-uninitialized.
type Runtime struct {
	registers [NumRegisters + 1]*Value // index 0 unused; r1..r9 live at 1..9
	memory    map[uint32]Value

	sp uint32
	pc int

	zFlag, sFlag, oFlag bool
}

// New constructs a Runtime with an empty register file, empty memory, the
// stack pointer at its initial position, pc at 0, and all flags clear.
func New() *Runtime {
	return &Runtime{
		memory: make(map[uint32]Value),
		sp:     InitialStackPointer,
		pc:     0,
	}
}

// --- register operations ---------------------------------------------------

// SetRegister writes v into general-purpose register index (1..9).
func (r *Runtime) SetRegister(index int, v Value) {
	stored := v
	r.registers[index] = &stored
}

// GetRegister reads general-purpose register index (1..9). The second
// return value is false if the register has never been written.
func (r *Runtime) GetRegister(index int) (Value, bool) {
	if r.registers[index] == nil {
		return Value{}, false
	}
	return *r.registers[index], true
}

// StackPointer returns the current stack pointer as a MEMORY_ADDRESS
// value — this is what "sp" resolves to when used as a register operand.
func (r *Runtime) StackPointer() Value {
	return NewMemoryAddress(r.sp)
}

// --- memory operations ------------------------------------------------------

// SetMemory writes v to the memory cell at addr.
func (r *Runtime) SetMemory(addr uint32, v Value) {
	r.memory[addr] = v
}

// GetMemory reads the memory cell at addr. The second return value is
// false if the cell has never been written.
func (r *Runtime) GetMemory(addr uint32) (Value, bool) {
	v, ok := r.memory[addr]
	return v, ok
}

// AddrInitialized reports whether addr has been written at least once.
func (r *Runtime) AddrInitialized(addr uint32) bool {
	_, ok := r.memory[addr]
	return ok
}

// --- stack operations --------------------------------------------------------

// PushStack writes v at sp-1 and decrements sp, per spec.md §3.3.
func (r *Runtime) PushStack(v Value) {
	r.memory[r.sp-1] = v
	r.sp--
}

// PopStack reads the memory cell at sp and increments sp. The second
// return value is false when the stack is empty (sp at its initial,
// uninitialized position) — the engine is responsible for checking this
// before calling, per spec.md §4.1.
func (r *Runtime) PopStack() (Value, bool) {
	v, ok := r.memory[r.sp]
	if !ok {
		return Value{}, false
	}
	r.sp++
	return v, true
}

// StackEmpty reports whether the next pop would read an uninitialized
// cell — i.e. the stack has no pushed values left.
func (r *Runtime) StackEmpty() bool {
	_, ok := r.memory[r.sp]
	return !ok
}

// --- program counter ---------------------------------------------------------

// PC returns the current program counter.
func (r *Runtime) PC() int { return r.pc }

// SetPC sets the program counter directly (used by `jump`, `stop`, and by
// the engine to install the halt sentinel on a runtime error).
func (r *Runtime) SetPC(pc int) { r.pc = pc }

// IncrementPC advances the program counter by one instruction.
func (r *Runtime) IncrementPC() { r.pc++ }

// --- flags --------------------------------------------------------------------

// SetFlag sets the named condition flag.
func (r *Runtime) SetFlag(f Flag, state bool) {
	switch f {
	case Zero:
		r.zFlag = state
	case Sign:
		r.sFlag = state
	case Overflow:
		r.oFlag = state
	}
}

// GetFlag reads the named condition flag.
func (r *Runtime) GetFlag(f Flag) bool {
	switch f {
	case Zero:
		return r.zFlag
	case Sign:
		return r.sFlag
	case Overflow:
		return r.oFlag
	}
	return false
}

// --- dump -----------------------------------------------------------------

// DumpRegisters renders "rI:V(T)" for each general-purpose register in
// ascending order, or "rI:None(None)" for an uninitialized one.
func (r *Runtime) DumpRegisters() string {
	parts := make([]string, 0, NumRegisters)
	for i := 1; i <= NumRegisters; i++ {
		if v, ok := r.GetRegister(i); ok {
			parts = append(parts, fmt.Sprintf("r%d:%s(%s)", i, v.DumpString(), v.Tag))
		} else {
			parts = append(parts, fmt.Sprintf("r%d:None(None)", i))
		}
	}
	return strings.Join(parts, " ")
}

// DumpMemory renders "ADDR:V(T)" in ascending address order, excluding the
// stack region (addresses >= sp).
func (r *Runtime) DumpMemory() string {
	addrs := make([]uint32, 0, len(r.memory))
	for addr := range r.memory {
		if addr < r.sp {
			addrs = append(addrs, addr)
		}
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	parts := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		v := r.memory[addr]
		parts = append(parts, fmt.Sprintf("%d:%s(%s)", addr, v.DumpString(), v.Tag))
	}
	return strings.Join(parts, " ")
}

// DumpStack renders "V(T)" in descending address order, restricted to the
// stack region (addresses >= sp).
func (r *Runtime) DumpStack() string {
	addrs := make([]uint32, 0)
	for addr := range r.memory {
		if addr >= r.sp {
			addrs = append(addrs, addr)
		}
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] > addrs[j] })

	parts := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		v := r.memory[addr]
		parts = append(parts, fmt.Sprintf("%s(%s)", v.DumpString(), v.Tag))
	}
	return strings.Join(parts, " ")
}

// DumpFlags renders "zf:0|1 sf:0|1 of:0|1".
func (r *Runtime) DumpFlags() string {
	return fmt.Sprintf("zf:%d sf:%d of:%d", boolToInt(r.zFlag), boolToInt(r.sFlag), boolToInt(r.oFlag))
}

// DumpProgram renders "pc:N sp:VALUE|None mem:Bytes stack:Bytes" per
// spec.md §6.3: sp is m<ADDR> once anything has been pushed, None at the
// initial (empty-stack) position.
func (r *Runtime) DumpProgram() string {
	spStr := "None"
	if r.sp <= math.MaxInt32 {
		spStr = fmt.Sprintf("m<%d>", r.sp)
	}
	memBytes := len(r.memory) * 4
	stackBytes := (int64(math.MaxInt32) - int64(r.sp) + 1) * 4
	return fmt.Sprintf("pc:%d sp:%s mem:%dB stack:%dB", r.pc, spStr, memBytes, stackBytes)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

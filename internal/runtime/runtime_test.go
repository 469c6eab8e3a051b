package runtime

import (
	"fmt"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func TestRegisterUninitializedUntilWritten(t *testing.T) {
	rt := New()
	_, ok := rt.GetRegister(1)
	assert(t, !ok, "r1 should start uninitialized")

	rt.SetRegister(1, NewInt(7))
	v, ok := rt.GetRegister(1)
	assert(t, ok, "r1 should be initialized after SetRegister")
	assert(t, v.Int32() == 7, "expected 7, got %d", v.Int32())
}

func TestStackPointerStartsAtInitialPosition(t *testing.T) {
	rt := New()
	sp := rt.StackPointer()
	assert(t, sp.Tag == MemoryAddress, "sp should be a MEMORY_ADDRESS")
	assert(t, sp.Uint32() == InitialStackPointer, "expected initial sp, got %d", sp.Uint32())
	assert(t, rt.StackEmpty(), "stack should start empty")
}

func TestPushPopRoundTrip(t *testing.T) {
	rt := New()
	rt.PushStack(NewInt(5))
	rt.PushStack(NewInt(6))
	assert(t, !rt.StackEmpty(), "stack should not be empty after two pushes")

	v, ok := rt.PopStack()
	assert(t, ok, "pop should succeed")
	assert(t, v.Int32() == 6, "expected LIFO order, got %d", v.Int32())

	v, ok = rt.PopStack()
	assert(t, ok, "second pop should succeed")
	assert(t, v.Int32() == 5, "expected 5, got %d", v.Int32())

	assert(t, rt.StackEmpty(), "stack should be empty again")
	_, ok = rt.PopStack()
	assert(t, !ok, "pop on empty stack should fail without moving sp")
	assert(t, rt.StackPointer().Uint32() == InitialStackPointer, "failed pop moved sp to %d", rt.StackPointer().Uint32())
}

func TestDumpRegistersFormatsUninitializedSlots(t *testing.T) {
	rt := New()
	rt.SetRegister(1, NewInt(3))
	dump := rt.DumpRegisters()
	assert(t, dump[:6] == "r1:3(I", "expected dump to start with r1:3(I..., got %q", dump)
	assert(t, contains(dump, " r2:None(None) "), "expected uninitialized r2 to render as r2:None(None), got %q", dump)
}

func TestDumpProgramReflectsStackGrowth(t *testing.T) {
	rt := New()
	before := rt.DumpProgram()
	assert(t, contains(before, "stack:0B"), "expected empty stack to report 0B, got %q", before)

	rt.PushStack(NewInt(1))
	after := rt.DumpProgram()
	assert(t, contains(after, "stack:4B"), "expected one pushed word to report 4B, got %q", after)
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

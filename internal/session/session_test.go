package session

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"startasm/internal/driver"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func newTestSession(t *testing.T, script string) (*Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	d := driver.New("unused-image", &out, strings.NewReader(""))
	s := New(d, t.TempDir()+"/config.json", &out, strings.NewReader(script))
	return s, &out
}

func TestForwardWithoutInitializeReportsUsageError(t *testing.T) {
	s, out := newTestSession(t, "forward\nend\n")
	assert(t, s.Run() == nil, "session run should not error")
	assert(t, strings.Contains(out.String(), "without initializing"), "expected a usage error, got %q", out.String())
}

func TestDumpWithoutInitializeReportsUsageError(t *testing.T) {
	s, out := newTestSession(t, "dump -r\nend\n")
	assert(t, s.Run() == nil, "session run should not error")
	assert(t, strings.Contains(out.String(), "without initializing"), "expected a usage error, got %q", out.String())
}

func TestEndPrintsExitMessage(t *testing.T) {
	s, out := newTestSession(t, "end\n")
	assert(t, s.Run() == nil, "session run should not error")
	assert(t, strings.Contains(out.String(), "Exiting the interpreter."), "expected exit message, got %q", out.String())
}

func TestTrueSilentSuppressesOutput(t *testing.T) {
	s, out := newTestSession(t, "forward --truesilent\nend\n")
	assert(t, s.Run() == nil, "session run should not error")
	assert(t, !strings.Contains(out.String(), "without initializing"), "truesilent should suppress the usage error, got %q", out.String())
}

func TestUnrecognizedOperationReportsError(t *testing.T) {
	s, out := newTestSession(t, "frobnicate\nend\n")
	assert(t, s.Run() == nil, "session run should not error")
	assert(t, strings.Contains(out.String(), "unrecognized operation"), "expected an unrecognized-operation message, got %q", out.String())
}

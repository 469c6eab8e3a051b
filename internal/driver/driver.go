// Package driver implements C5: the single entry point that owns one
// program's Runtime, Engine, and parsed AST, and exposes the
// initialize/forward/run/restart/terminate/dump/breakpoint surface the
// session shell (or any other caller) drives it through. Earlier drafts of
// this interpreter modeled this as a process-wide singleton; here it is an
// ordinary struct a caller constructs once and holds by reference.
package driver

import (
	"context"
	"errors"
	"io"

	"startasm/internal/ast"
	"startasm/internal/compiler"
	"startasm/internal/engine"
	"startasm/internal/loader"
	"startasm/internal/runtime"
)

var (
	// ErrAlreadyInitialized is returned by Initialize when a program is
	// already loaded; the caller must Terminate first.
	ErrAlreadyInitialized = errors.New("a program is already initialized")
	// ErrNotInitialized is returned by Forward/Run/Dump/Restart when no
	// program has been loaded yet.
	ErrNotInitialized = errors.New("no program is initialized")
	// ErrAtEndOfExecution is returned by Forward/Run once the program has
	// run off its last instruction; Restart clears it.
	ErrAtEndOfExecution = errors.New("program is at the end of execution")
)

// Driver owns one program's execution state end to end: compiling it,
// stepping it, dumping it, and resetting it.
type Driver struct {
	compiler *compiler.Compiler

	program     *ast.Program
	rt          *runtime.Runtime
	eng         *engine.Engine
	programPath string

	eof        bool
	breakpoint *int

	out io.Writer
	in  io.Reader
}

// New builds a Driver that will invoke the given compiler image and wire
// program input/output to in/out.
func New(compilerImage string, out io.Writer, in io.Reader) *Driver {
	return &Driver{
		compiler: compiler.New(compilerImage),
		out:      out,
		in:       in,
	}
}

// Initialized reports whether a program is currently loaded.
func (d *Driver) Initialized() bool { return d.program != nil }

// CurrentFile returns the path passed to the most recent successful
// Initialize call, or "" if none is loaded.
func (d *Driver) CurrentFile() string { return d.programPath }

// AtEOF reports whether the program has run past its last instruction.
func (d *Driver) AtEOF() bool { return d.eof }

// Initialize compiles programPath, loads its AST, and constructs a fresh
// Runtime and Engine bound to it. Fails with ErrAlreadyInitialized if a
// program is already loaded.
func (d *Driver) Initialize(ctx context.Context, programPath string) error {
	if d.Initialized() {
		return ErrAlreadyInitialized
	}

	doc, err := d.compiler.Compile(ctx, programPath)
	if err != nil {
		return err
	}
	program, err := loader.Load(doc)
	if err != nil {
		return err
	}

	d.program = program
	d.programPath = programPath
	d.resetExecutionState()
	return nil
}

// resetExecutionState builds a fresh Runtime+Engine bound to the current
// program, per spec.md §4.5's "length = #instructions-1" convention.
func (d *Driver) resetExecutionState() {
	d.rt = runtime.New()
	programLength := d.program.Len() - 1
	d.eng = engine.New(d.rt, programLength, d.out, d.in)
	d.eof = false
}

// step executes exactly one instruction and updates EOF tracking.
func (d *Driver) step() error {
	instr := d.program.At(d.rt.PC())
	err := d.eng.Execute(instr)
	if d.rt.PC() >= d.eng.HaltPC() {
		d.eof = true
	}
	return err
}

// atBreakpoint reports whether the current pc equals the active
// breakpoint, if any.
func (d *Driver) atBreakpoint() bool {
	return d.breakpoint != nil && d.rt.PC() == *d.breakpoint
}

// Forward executes up to steps instructions, stopping early at EOF, a
// runtime/input error, or the active breakpoint.
func (d *Driver) Forward(steps int) error {
	if !d.Initialized() {
		return ErrNotInitialized
	}
	if d.eof {
		return ErrAtEndOfExecution
	}
	for steps > 0 && !d.eof && !d.atBreakpoint() {
		if err := d.step(); err != nil {
			return err
		}
		steps--
	}
	return nil
}

// Run executes instructions until EOF, a runtime/input error, or the
// active breakpoint — this is the original interpreter's "finish".
func (d *Driver) Run() error {
	if !d.Initialized() {
		return ErrNotInitialized
	}
	if d.eof {
		return ErrAtEndOfExecution
	}
	for !d.eof && !d.atBreakpoint() {
		if err := d.step(); err != nil {
			return err
		}
	}
	return nil
}

// Restart re-initializes the Runtime and Engine for the currently loaded
// program without recompiling it, clearing EOF.
func (d *Driver) Restart() error {
	if !d.Initialized() {
		return ErrNotInitialized
	}
	d.resetExecutionState()
	return nil
}

// Terminate discards the current program, runtime, and engine entirely.
func (d *Driver) Terminate() {
	d.program = nil
	d.rt = nil
	d.eng = nil
	d.programPath = ""
	d.eof = false
	d.breakpoint = nil
}

// SetBreakpoint arms a pc-based breakpoint: Forward/Run will stop just
// before executing the instruction at pc.
func (d *Driver) SetBreakpoint(pc int) { d.breakpoint = &pc }

// RemoveBreakpoint disarms any active breakpoint.
func (d *Driver) RemoveBreakpoint() { d.breakpoint = nil }

// Breakpoint returns the active breakpoint pc and whether one is set.
func (d *Driver) Breakpoint() (int, bool) {
	if d.breakpoint == nil {
		return 0, false
	}
	return *d.breakpoint, true
}

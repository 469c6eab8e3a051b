package driver

import (
	"fmt"
	"strings"
)

// DumpOptions selects which sections Dump renders and whether to expand
// them into verbose, one-fact-per-line prose.
type DumpOptions struct {
	Registers bool
	Memory    bool
	Stack     bool
	Flags     bool
	Program   bool
	Verbose   bool
}

// Dump renders the requested sections of machine state as display lines,
// in registers/memory/stack/flags/program order. Each section is either
// the compact dump string or — in verbose mode — a bordered block of
// one-fact-per-line prose, matching the original interpreter's
// --verbose rendering.
func (d *Driver) Dump(opts DumpOptions) ([]string, error) {
	if !d.Initialized() {
		return nil, ErrNotInitialized
	}

	var lines []string
	if opts.Registers {
		lines = append(lines, renderSection("Register Dump", d.rt.DumpRegisters(), opts.Verbose, verboseRegisterLines)...)
	}
	if opts.Memory {
		lines = append(lines, renderSection("Memory Dump", d.rt.DumpMemory(), opts.Verbose, verboseMemoryLines)...)
	}
	if opts.Stack {
		lines = append(lines, renderSection("Stack Dump", d.rt.DumpStack(), opts.Verbose, verboseStackLines)...)
	}
	if opts.Flags {
		lines = append(lines, renderSection("Flags Dump", d.rt.DumpFlags(), opts.Verbose, verboseFlagsLines)...)
	}
	if opts.Program {
		lines = append(lines, renderSection("Program State", d.rt.DumpProgram(), opts.Verbose, verboseProgramLines)...)
	}
	return lines, nil
}

func renderSection(title, raw string, verbose bool, expand func(string) []string) []string {
	if !verbose {
		return []string{raw}
	}
	border := strings.Repeat("=", len(title)+8)
	lines := make([]string, 0, len(expand(raw))+2)
	lines = append(lines, fmt.Sprintf("=== %s ===", title))
	lines = append(lines, expand(raw)...)
	lines = append(lines, border)
	return lines
}

// splitValueType turns "42(INTEGER)" into ("42", "INTEGER").
func splitValueType(s string) (string, string) {
	i := strings.Index(s, "(")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSuffix(s[i+1:], ")")
}

func verboseRegisterLines(raw string) []string {
	var lines []string
	for _, entry := range strings.Fields(raw) {
		reg, rest, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		val, typ := splitValueType(rest)
		lines = append(lines, fmt.Sprintf("Register %s -> Value: %s, Type: %s", reg, val, typ))
	}
	return lines
}

func verboseMemoryLines(raw string) []string {
	var lines []string
	for _, entry := range strings.Fields(raw) {
		addr, rest, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		val, typ := splitValueType(rest)
		lines = append(lines, fmt.Sprintf("Memory Address %s -> Value: %s, Type: %s", addr, val, typ))
	}
	return lines
}

func verboseStackLines(raw string) []string {
	var lines []string
	for _, entry := range strings.Fields(raw) {
		val, typ := splitValueType(entry)
		lines = append(lines, fmt.Sprintf("Stack Entry -> Value: %s, Type: %s", val, typ))
	}
	return lines
}

var flagFullNames = map[string]string{
	"zf": "Zero Flag",
	"sf": "Sign Flag",
	"of": "Overflow Flag",
}

func verboseFlagsLines(raw string) []string {
	var lines []string
	for _, entry := range strings.Fields(raw) {
		flag, value, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		name, known := flagFullNames[flag]
		if !known {
			name = strings.ToUpper(flag)
		}
		lines = append(lines, fmt.Sprintf("%s -> State: %s", name, value))
	}
	return lines
}

func verboseProgramLines(raw string) []string {
	var lines []string
	for _, entry := range strings.Fields(raw) {
		key, value, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		switch key {
		case "pc":
			lines = append(lines, fmt.Sprintf("Program Counter -> Line: %s", value))
		case "sp":
			typ := "MEMORY_ADDRESS"
			if value == "None" {
				typ = "None"
			}
			lines = append(lines, fmt.Sprintf("Stack Pointer -> Value: %s, Type: %s", value, typ))
		case "mem":
			lines = append(lines, fmt.Sprintf("Memory In Use -> %s Bytes", strings.TrimSuffix(value, "B")))
		case "stack":
			lines = append(lines, fmt.Sprintf("Stack Size -> %s Bytes", strings.TrimSuffix(value, "B")))
		}
	}
	return lines
}

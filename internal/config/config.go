// Package config persists the session shell's state between commands —
// which program is initialized, whether it has finished, and what the
// last operation run was — so a restarted shell (or a crashed one) can
// report the right thing on the next command.
package config

import (
	"encoding/json"
	"os"
)

// State is the persisted session state, written after every command.
// Field names and defaults mirror the original interpreter's config.json.
type State struct {
	Initialized   bool    `json:"initialized"`
	LastOperation *string `json:"last_operation"`
	FinishedLast  bool    `json:"finished_last"`
	CurrentFile   *string `json:"current_file"`
}

// Default returns the zero-value session state: nothing initialized, no
// prior operation.
func Default() State {
	return State{}
}

// Load reads the state file at path. A missing file, or one that fails to
// parse as JSON, yields the default state rather than an error — matching
// the original shell's "reinitialize with default state" recovery.
func Load(path string) State {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return Default()
	}
	return s
}

// Save writes the state file at path as indented JSON.
func Save(path string, s State) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func strPtr(s string) *string { return &s }

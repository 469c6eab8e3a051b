// Package compiler invokes the external StartASM compiler subprocess and
// hands back its raw JSON AST document. It has no knowledge of the AST
// node types themselves — that's internal/loader's job.
package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Compiler runs the `run-container` command shape against a fixed compiler
// image, per spec.md §6.1.
type Compiler struct {
	image string
}

// New binds a Compiler to the given container image reference.
func New(image string) *Compiler {
	return &Compiler{image: image}
}

// Compile runs `run-container <image> ast <programPath>` and returns its
// stdout JSON document. A nonzero exit code is reported as an error
// carrying the subprocess's stderr text.
func (c *Compiler) Compile(ctx context.Context, programPath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "run-container", c.image, "ast", programPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, isExitErr := err.(*exec.ExitError); isExitErr {
			return nil, fmt.Errorf("compiler error: %s", strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("failed to invoke compiler image %s: %w", c.image, err)
	}
	return stdout.Bytes(), nil
}

// Package loader deserializes the compiler subprocess's JSON AST document
// into the internal/ast node types. This is C2 in the system overview: a
// thin, total function from JSON to Program, with no execution semantics
// of its own.
package loader

import (
	"encoding/json"
	"fmt"

	"startasm/internal/ast"
)

// rawNode mirrors the recursive JSON schema from the compiler:
//
//	{ "type": "ROOT"|"INSTRUCTION"|"OPERAND", "value": string,
//	  "children": [Node],
//	  "instruction_type": int, "num_operands": int, "line": int,
//	  "operand_type": int, "position": int }
type rawNode struct {
	Type            string    `json:"type"`
	Value           string    `json:"value"`
	Children        []rawNode `json:"children"`
	InstructionType *int      `json:"instruction_type"`
	Line            *int      `json:"line"`
	OperandType     *int      `json:"operand_type"`
	Position        *int      `json:"position"`
}

// Load parses a compiler JSON document (as produced by internal/compiler)
// into an ast.Program. The document's ROOT node's children are flattened
// into a linear instruction stream: StartASM has no nested control-flow
// structure in the AST, only the jump/call/return instructions themselves
// encode control flow, so the tree never needs more than two levels plus
// the implicit root.
func Load(document []byte) (*ast.Program, error) {
	var root rawNode
	if err := json.Unmarshal(document, &root); err != nil {
		return nil, fmt.Errorf("malformed compiler output: %w", err)
	}
	if root.Type != "ROOT" {
		return nil, fmt.Errorf("expected ROOT node, got %q", root.Type)
	}

	program := &ast.Program{Instructions: make([]ast.Instruction, 0, len(root.Children))}
	for _, child := range root.Children {
		instr, err := buildInstruction(child)
		if err != nil {
			return nil, err
		}
		program.Instructions = append(program.Instructions, instr)
	}
	return program, nil
}

func buildInstruction(node rawNode) (ast.Instruction, error) {
	if node.Type != "INSTRUCTION" {
		return ast.Instruction{}, fmt.Errorf("expected INSTRUCTION node, got %q", node.Type)
	}
	if node.InstructionType == nil {
		return ast.Instruction{}, fmt.Errorf("instruction node %q missing instruction_type", node.Value)
	}

	kind, err := ast.DecodeInstructionKind(*node.InstructionType)
	if err != nil {
		return ast.Instruction{}, err
	}

	line := -1
	if node.Line != nil {
		line = *node.Line
	}

	operands := make([]ast.Operand, 0, len(node.Children))
	for _, child := range node.Children {
		op, err := buildOperand(child)
		if err != nil {
			return ast.Instruction{}, err
		}
		operands = append(operands, op)
	}

	return ast.Instruction{
		Text:     node.Value,
		Kind:     kind,
		Operands: operands,
		Line:     line,
	}, nil
}

func buildOperand(node rawNode) (ast.Operand, error) {
	if node.Type != "OPERAND" {
		return ast.Operand{}, fmt.Errorf("expected OPERAND node, got %q", node.Type)
	}
	if node.OperandType == nil {
		return ast.Operand{}, fmt.Errorf("operand node %q missing operand_type", node.Value)
	}

	kind, err := ast.DecodeOperandKind(*node.OperandType)
	if err != nil {
		return ast.Operand{}, err
	}

	line, pos := -1, -1
	if node.Line != nil {
		line = *node.Line
	}
	if node.Position != nil {
		pos = *node.Position
	}

	return ast.Operand{
		Value:    node.Value,
		Kind:     kind,
		Line:     line,
		Position: pos,
	}, nil
}

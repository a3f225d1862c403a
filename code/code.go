// Package code defines the bytecode instruction set shared by the compiler
// and the VM: the opcode inventory, each opcode's operand widths, and the
// big-endian encode/decode/disassemble helpers built on top of them.
//
// An instruction is one opcode byte followed by zero or more operands, each
// operand either 1 or 2 bytes wide depending solely on the opcode. Multi-byte
// operands are always big-endian.
package code

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Instructions is a flat, already-encoded stream of one or more instructions.
type Instructions []byte

// Opcode is the leading byte of an instruction, selecting its operation.
type Opcode byte

//nolint:revive
const (
	OpConstant Opcode = iota // idx(2): push constants[idx]
	OpPop                    // pop 1, discard

	OpAdd // pop 2, push 1: binary arithmetic / string concat
	OpSub
	OpMul
	OpDiv

	OpTrue  // push the TRUE singleton
	OpFalse // push the FALSE singleton
	OpNull  // push the NULL singleton

	OpEqual       // pop 2, push bool
	OpNotEqual    // pop 2, push bool
	OpGreaterThan // pop 2, push bool; the compiler never emits OpLessThan — it swaps operands instead

	OpMinus // pop 1, push 1: numeric negation
	OpBang  // pop 1, push 1: logical not

	OpJumpNotTruthy // tgt(2): pop 1, jump to tgt if falsy
	OpJump          // tgt(2): unconditional jump

	OpGetGlobal // idx(2): push globals[idx]
	OpSetGlobal // idx(2): pop into globals[idx]

	OpGetLocal // idx(1): push stack[frame.base+idx]
	OpSetLocal // idx(1): pop into stack[frame.base+idx]

	OpGetBuiltin // idx(1): push the idx'th registered builtin

	OpGetFree // idx(1): push the idx'th free value of the current closure

	OpCurrentClosure // push the closure currently executing (recursion support)

	OpArray // n(2): pop n, push Array built from them in order
	OpHash  // n(2): pop n (n = 2*pairCount), push Hash built from them

	OpIndex // pop 2 (collection, index), push the element or NULL

	OpClosure // const(2), nfree(1): pop nfree, wrap constants[const] into a Closure

	OpCall // nargs(1): call stack[sp-1-nargs]

	OpReturnValue // pop TOS, return it from the current frame
	OpReturn      // return NULL from the current frame
)

// Definition names an opcode and records the byte width of each of its
// operands, in order.
type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	OpConstant:       {"OpConstant", []int{2}},
	OpPop:            {"OpPop", nil},
	OpAdd:            {"OpAdd", nil},
	OpSub:            {"OpSub", nil},
	OpMul:            {"OpMul", nil},
	OpDiv:            {"OpDiv", nil},
	OpTrue:           {"OpTrue", nil},
	OpFalse:          {"OpFalse", nil},
	OpNull:           {"OpNull", nil},
	OpEqual:          {"OpEqual", nil},
	OpNotEqual:       {"OpNotEqual", nil},
	OpGreaterThan:    {"OpGreaterThan", nil},
	OpMinus:          {"OpMinus", nil},
	OpBang:           {"OpBang", nil},
	OpJumpNotTruthy:  {"OpJumpNotTruthy", []int{2}},
	OpJump:           {"OpJump", []int{2}},
	OpGetGlobal:      {"OpGetGlobal", []int{2}},
	OpSetGlobal:      {"OpSetGlobal", []int{2}},
	OpGetLocal:       {"OpGetLocal", []int{1}},
	OpSetLocal:       {"OpSetLocal", []int{1}},
	OpGetBuiltin:     {"OpGetBuiltin", []int{1}},
	OpGetFree:        {"OpGetFree", []int{1}},
	OpCurrentClosure: {"OpCurrentClosure", nil},
	OpArray:          {"OpArray", []int{2}},
	OpHash:           {"OpHash", []int{2}},
	OpIndex:          {"OpIndex", nil},
	OpClosure:        {"OpClosure", []int{2, 1}},
	OpCall:           {"OpCall", []int{1}},
	OpReturnValue:    {"OpReturnValue", nil},
	OpReturn:         {"OpReturn", nil},
}

// Lookup returns the Definition for op, or an error if op is not a known opcode.
func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// Make encodes a single instruction for op with the given operands, in the
// widths op's Definition specifies. An unknown opcode yields an empty slice.
func Make(op Opcode, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		return []byte{}
	}

	width := 1
	for _, w := range def.OperandWidths {
		width += w
	}

	ins := make([]byte, width)
	ins[0] = byte(op)

	offset := 1
	for i, operand := range operands {
		switch def.OperandWidths[i] {
		case 1:
			ins[offset] = byte(operand)
		case 2:
			binary.BigEndian.PutUint16(ins[offset:], uint16(operand))
		}
		offset += def.OperandWidths[i]
	}

	return ins
}

// ReadOperands decodes the operands of the instruction whose definition is
// def from the front of ins (ins must start right after the opcode byte). It
// returns the decoded operands and the number of bytes consumed.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		switch width {
		case 1:
			operands[i] = int(ReadUint8(ins[offset:]))
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		}
		offset += width
	}

	return operands, offset
}

// ReadUint16 decodes a big-endian uint16 from the first two bytes of ins.
func ReadUint16(ins Instructions) uint16 { return binary.BigEndian.Uint16(ins) }

// ReadUint8 reads the first byte of ins.
func ReadUint8(ins Instructions) uint8 { return ins[0] }

// String disassembles ins, one instruction per line, each prefixed with its
// 4-digit zero-padded byte offset. Observability only; not meant to round-trip.
func (ins Instructions) String() string {
	var out strings.Builder

	for i := 0; i < len(ins); {
		def, err := Lookup(ins[i])
		if err != nil {
			fmt.Fprintf(&out, "ERROR: %s\n", err)
			i++
			continue
		}

		operands, read := ReadOperands(def, ins[i+1:])
		fmt.Fprintf(&out, "%04d %s\n", i, formatInstruction(def, operands))
		i += 1 + read
	}

	return out.String()
}

func formatInstruction(def *Definition, operands []int) string {
	if len(operands) != len(def.OperandWidths) {
		return fmt.Sprintf("ERROR: operand len %d does not match defined %d", len(operands), len(def.OperandWidths))
	}

	switch len(operands) {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s %d %d", def.Name, operands[0], operands[1])
	default:
		return fmt.Sprintf("ERROR: unhandled operandCount for %s", def.Name)
	}
}

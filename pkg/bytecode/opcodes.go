package bytecode

import "fmt"

// Opcode is a one-byte instruction tag.
type Opcode byte

const (
	OpConst  Opcode = iota // Push constant from pool: OpConst <index:u8>
	OpAdd                  // Pop b, pop a, push a + b
	OpSub                  // Pop b, pop a, push a - b
	OpMul                  // Pop b, pop a, push a * b
	OpDiv                  // Pop b, pop a, push a / b
	OpNeg                  // Pop a, push -a
	OpReturn               // Stop execution; top of stack is the result
)

// OpcodeInfo provides metadata about each opcode for disassembly and validation.
type OpcodeInfo struct {
	Name       string // Mnemonic
	StackPop   int    // Values popped from the stack
	StackPush  int    // Values pushed to the stack
	OperandLen int    // Operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpConst:  {"OP_CONST", 0, 1, 1},
	OpAdd:    {"OP_ADD", 2, 1, 0},
	OpSub:    {"OP_SUB", 2, 1, 0},
	OpMul:    {"OP_MUL", 2, 1, 0},
	OpDiv:    {"OP_DIV", 2, 1, 0},
	OpNeg:    {"OP_NEG", 1, 1, 0},
	OpReturn: {"OP_RET", 1, 0, 0},
}

// LookupOpcode returns the metadata for op and whether op is defined.
func LookupOpcode(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	return info, ok
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns an OpcodeInfo named "UNKNOWN(0xNN)" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsBinary reports whether op is a two-operand arithmetic instruction.
func (op Opcode) IsBinary() bool {
	return op >= OpAdd && op <= OpDiv
}

// AllOpcodes returns every defined opcode in encoding order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := OpConst; op <= OpReturn; op++ {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}

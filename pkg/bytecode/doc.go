// Package bytecode defines the compiled form of a clove expression and the
// tools that read it.
//
// A Chunk holds three parallel structures:
//
//   - Code: opcodes interleaved with their operand bytes
//   - Lines: the source line of every byte in Code (one entry per byte)
//   - Constants: a pool of up to 256 numeric values addressed by OpConst's
//     single-byte operand
//
// The instruction set is deliberately small: OpConst, the four binary
// arithmetic opcodes, OpNeg and OpReturn. Opcode metadata lives in a static
// table (see GetOpcodeInfo) shared by the disassembler and Validate.
//
// # Disassembly
//
// DisassembleChunk and DisassembleInstruction render instructions one per line:
//
//	0000  123 OP_CONST            0 '1.2'
//	0002    | OP_RET
//
// The VM reuses DisassembleInstruction for its execution trace.
//
// # Serialization
//
// Marshal and Unmarshal convert chunks to and from the "CLBC" format: a
// four-byte magic, a big-endian uint16 version and a canonical CBOR body.
// Unmarshal validates the chunk before returning it, so loaded bytecode can
// be handed straight to the VM.
package bytecode

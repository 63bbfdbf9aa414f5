package bytecode

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FormatValue renders a value the way disassembly, traces and program output
// show it: the shortest representation that round-trips.
func FormatValue(v Value) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Disassemble returns a human-readable listing of the whole chunk.
func (c *Chunk) Disassemble(name string) string {
	var sb strings.Builder
	DisassembleChunk(&sb, c, name)
	return sb.String()
}

// DisassembleChunk writes a header followed by every instruction in c.
func DisassembleChunk(w io.Writer, c *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < c.Len(); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction writes the single instruction at offset and returns
// the offset of the next one.
func DisassembleInstruction(w io.Writer, c *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.Line(offset) == c.Line(offset-1) {
		io.WriteString(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Line(offset))
	}

	op := Opcode(c.Code()[offset])
	switch op {
	case OpConst:
		return constantInstruction(w, op.String(), c, offset)
	case OpAdd, OpSub, OpMul, OpDiv, OpNeg, OpReturn:
		return simpleInstruction(w, op.String(), offset)
	default:
		fmt.Fprintf(w, "Unknown opcode %d\n", byte(op))
		return offset + 1
	}
}

func simpleInstruction(w io.Writer, name string, offset int) int {
	fmt.Fprintf(w, "%s\n", name)
	return offset + 1
}

func constantInstruction(w io.Writer, name string, c *Chunk, offset int) int {
	if offset+1 >= c.Len() {
		fmt.Fprintf(w, "%-16s <missing operand>\n", name)
		return offset + 1
	}
	idx := int(c.Code()[offset+1])
	value := "?"
	if idx < c.ConstantCount() {
		value = FormatValue(c.Constant(idx))
	}
	fmt.Fprintf(w, "%-16s %4d '%s'\n", name, idx, value)
	return offset + 2
}

package bytecode

import (
	"math"
	"strings"
	"testing"
)

func TestDisassembleConstantAndReturn(t *testing.T) {
	c := NewChunk()
	idx, _ := c.AddConstant(1.2)
	_ = c.WriteOp(OpConst, 123)
	_ = c.Write(byte(idx), 123)
	_ = c.WriteOp(OpReturn, 123)

	got := c.Disassemble("test chunk")
	want := "== test chunk ==\n" +
		"0000  123 OP_CONST            0 '1.2'\n" +
		"0002    | OP_RET\n"

	if got != want {
		t.Errorf("Disassemble() =\n%s\nwant:\n%s", got, want)
	}

	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Errorf("got %d lines (header + instructions), want 3", len(lines))
	}
}

func TestDisassembleInstructionOffsets(t *testing.T) {
	c := NewChunk()
	a, _ := c.AddConstant(69)
	b, _ := c.AddConstant(420)
	_ = c.WriteOp(OpConst, 1)
	_ = c.Write(byte(a), 1)
	_ = c.WriteOp(OpConst, 1)
	_ = c.Write(byte(b), 1)
	_ = c.WriteOp(OpAdd, 2)
	_ = c.WriteOp(OpReturn, 2)

	var sb strings.Builder
	offsets := []int{}
	for offset := 0; offset < c.Len(); {
		offsets = append(offsets, offset)
		offset = DisassembleInstruction(&sb, c, offset)
	}

	wantOffsets := []int{0, 2, 4, 5}
	if len(offsets) != len(wantOffsets) {
		t.Fatalf("offsets = %v, want %v", offsets, wantOffsets)
	}
	for i := range wantOffsets {
		if offsets[i] != wantOffsets[i] {
			t.Errorf("offsets[%d] = %d, want %d", i, offsets[i], wantOffsets[i])
		}
	}

	want := "0000    1 OP_CONST            0 '69'\n" +
		"0002    | OP_CONST            1 '420'\n" +
		"0004    2 OP_ADD\n" +
		"0005    | OP_RET\n"
	if sb.String() != want {
		t.Errorf("listing =\n%s\nwant:\n%s", sb.String(), want)
	}
}

func TestDisassembleAllMnemonics(t *testing.T) {
	c := NewChunk()
	for _, op := range []Opcode{OpAdd, OpSub, OpMul, OpDiv, OpNeg, OpReturn} {
		_ = c.WriteOp(op, 1)
	}

	output := c.Disassemble("ops")
	for _, name := range []string{"OP_ADD", "OP_SUB", "OP_MUL", "OP_DIV", "OP_NEG", "OP_RET"} {
		if !strings.Contains(output, name) {
			t.Errorf("listing missing %s:\n%s", name, output)
		}
	}
}

func TestDisassembleUnknownOpcode(t *testing.T) {
	c := NewChunk()
	_ = c.Write(0xEE, 1)
	_ = c.WriteOp(OpReturn, 1)

	var sb strings.Builder
	next := DisassembleInstruction(&sb, c, 0)
	if next != 1 {
		t.Errorf("next offset = %d, want 1", next)
	}
	if sb.String() != "0000    1 Unknown opcode 238\n" {
		t.Errorf("got %q", sb.String())
	}
}

func TestDisassembleIsReadOnly(t *testing.T) {
	c := NewChunk()
	idx, _ := c.AddConstant(5)
	_ = c.WriteOp(OpConst, 1)
	_ = c.Write(byte(idx), 1)
	_ = c.WriteOp(OpReturn, 1)

	before := append([]byte(nil), c.Code()...)
	_ = c.Disassemble("x")

	if string(before) != string(c.Code()) || c.ConstantCount() != 1 {
		t.Error("Disassemble modified the chunk")
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{5, "5"},
		{1.2, "1.2"},
		{-0.5, "-0.5"},
		{1e21, "1e+21"},
		{math.Inf(1), "+Inf"},
		{math.Inf(-1), "-Inf"},
		{math.NaN(), "NaN"},
	}

	for _, tc := range tests {
		if got := FormatValue(tc.v); got != tc.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tc.v, got, tc.want)
		}
	}
}

package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
	}
	if len(AllOpcodes()) != OpcodeCount() {
		t.Errorf("AllOpcodes() has %d entries, table has %d", len(AllOpcodes()), OpcodeCount())
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpConst, "OP_CONST"},
		{OpAdd, "OP_ADD"},
		{OpSub, "OP_SUB"},
		{OpMul, "OP_MUL"},
		{OpDiv, "OP_DIV"},
		{OpNeg, "OP_NEG"},
		{OpReturn, "OP_RET"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	op := Opcode(0xEE)
	if got := op.String(); got != "UNKNOWN(0xEE)" {
		t.Errorf("Opcode(0xEE).String() = %q, want UNKNOWN(0xEE)", got)
	}
	if _, ok := LookupOpcode(op); ok {
		t.Error("LookupOpcode(0xEE) reported a defined opcode")
	}
}

func TestOpcodeInstructionLen(t *testing.T) {
	if OpConst.InstructionLen() != 2 {
		t.Errorf("OpConst.InstructionLen() = %d, want 2", OpConst.InstructionLen())
	}
	for _, op := range []Opcode{OpAdd, OpSub, OpMul, OpDiv, OpNeg, OpReturn} {
		if op.InstructionLen() != 1 {
			t.Errorf("%s.InstructionLen() = %d, want 1", op, op.InstructionLen())
		}
	}
}

func TestOpcodeIsBinary(t *testing.T) {
	for _, op := range AllOpcodes() {
		want := op == OpAdd || op == OpSub || op == OpMul || op == OpDiv
		if op.IsBinary() != want {
			t.Errorf("%s.IsBinary() = %v, want %v", op, op.IsBinary(), want)
		}
	}
}

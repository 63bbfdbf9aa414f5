package vm

import (
	"bytes"
	"testing"
)

func TestTrace(t *testing.T) {
	var trace, out bytes.Buffer
	vm := New(WithTrace(&trace), WithOutput(&out))
	if _, res, err := vm.Interpret("1 + 2"); res != InterpretOK {
		t.Fatalf("Interpret: %v %v", res, err)
	}

	want := "          \n" +
		"0000    1 OP_CONST            0 '1'\n" +
		"          [ 1 ]\n" +
		"0002    | OP_CONST            1 '2'\n" +
		"          [ 1 ][ 2 ]\n" +
		"0004    | OP_ADD\n" +
		"          [ 3 ]\n" +
		"0005    | OP_RET\n"
	if got := trace.String(); got != want {
		t.Errorf("trace =\n%s\nwant\n%s", got, want)
	}
	if out.String() != "3\n" {
		t.Errorf("output = %q, want 3", out.String())
	}
}

func TestTraceDisabledByDefault(t *testing.T) {
	vm := New()
	if vm.trace != nil {
		t.Error("trace enabled without WithTrace")
	}
}

func TestTraceStopsAtOverflow(t *testing.T) {
	var trace bytes.Buffer
	vm := New(WithTrace(&trace), WithStackLimit(1), WithErrorOutput(&bytes.Buffer{}))
	if _, res, _ := vm.Interpret("1 + 2"); res != InterpretRuntimeError {
		t.Fatalf("result = %v, want runtime error", res)
	}
	// two instructions were traced: the push that succeeded and the one that overflowed
	if n := bytes.Count(trace.Bytes(), []byte("OP_CONST")); n != 2 {
		t.Errorf("traced %d OP_CONST lines, want 2:\n%s", n, trace.String())
	}
	if bytes.Contains(trace.Bytes(), []byte("OP_ADD")) {
		t.Error("trace continued past the overflow")
	}
}

package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/clove/compiler"
	"github.com/chazu/clove/pkg/bytecode"
)

// InterpretResult classifies the outcome of Interpret.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
	// InterpretInternalFault means the bytecode itself was malformed. It is
	// never caused by user input; hosts are expected to abort on it.
	InterpretInternalFault
)

func (r InterpretResult) String() string {
	switch r {
	case InterpretOK:
		return "ok"
	case InterpretCompileError:
		return "compile error"
	case InterpretRuntimeError:
		return "runtime error"
	case InterpretInternalFault:
		return "internal fault"
	default:
		return fmt.Sprintf("InterpretResult(%d)", int(r))
	}
}

// RuntimeError is a recoverable failure while executing valid bytecode.
type RuntimeError struct {
	Message string
	Line    int // source line of the failing instruction
	Offset  int // code offset of the failing instruction
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d] in script", e.Message, e.Line)
}

// InternalFault reports bytecode the VM cannot execute: an unknown opcode, a
// missing operand, a constant index past the pool, popping an empty stack or
// running off the end of the code. The compiler never produces such code, so
// a fault points to a compiler defect or corrupted input, not a user error.
type InternalFault struct {
	Op     bytecode.Opcode
	Offset int
	Reason string
}

func (e *InternalFault) Error() string {
	return fmt.Sprintf("internal fault at offset %04d (%s): %s", e.Offset, e.Op, e.Reason)
}

// IsInternalFault reports whether err is or wraps an *InternalFault.
func IsInternalFault(err error) bool {
	var f *InternalFault
	return errors.As(err, &f)
}

// ClassifyError maps an error returned by Interpret or Execute to its
// InterpretResult.
func ClassifyError(err error) InterpretResult {
	if err == nil {
		return InterpretOK
	}
	if _, ok := compiler.AsError(err); ok {
		return InterpretCompileError
	}
	if IsInternalFault(err) {
		return InterpretInternalFault
	}
	return InterpretRuntimeError
}

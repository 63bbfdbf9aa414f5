// Package vm executes compiled clove bytecode on a fixed-size value stack.
//
// A VM is not safe for concurrent use, but VMs share nothing: give each
// goroutine its own.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/clove/compiler"
	"github.com/chazu/clove/pkg/bytecode"
)

// StackMax is the capacity of the evaluation stack.
const StackMax = 256

// Value is the runtime value type.
type Value = bytecode.Value

// ---------------------------------------------------------------------------
// VM
// ---------------------------------------------------------------------------

// VM executes bytecode chunks. The chunk being executed is borrowed for the
// duration of Execute and never retained afterwards.
type VM struct {
	chunk *bytecode.Chunk
	ip    int // offset of the next byte to read
	instr int // offset of the instruction being executed

	stack [StackMax]Value
	sp    int // number of live stack slots
	limit int // maximum depth, <= StackMax

	out    io.Writer // program output
	errOut io.Writer // diagnostics
	trace  io.Writer // execution trace, nil when disabled
	log    commonlog.Logger
}

// Option configures a VM.
type Option func(*VM)

// WithStackLimit lowers the maximum stack depth. Values outside
// [1, StackMax] are clamped.
func WithStackLimit(n int) Option {
	return func(vm *VM) {
		switch {
		case n < 1:
			vm.limit = 1
		case n > StackMax:
			vm.limit = StackMax
		default:
			vm.limit = n
		}
	}
}

// WithOutput sets where the result of a program is printed on return.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithErrorOutput sets where compile diagnostics and runtime errors are
// written. Defaults to os.Stderr.
func WithErrorOutput(w io.Writer) Option {
	return func(vm *VM) { vm.errOut = w }
}

// WithTrace enables the execution trace: before every instruction the VM
// writes the stack contents and the disassembled instruction to w.
func WithTrace(w io.Writer) Option {
	return func(vm *VM) { vm.trace = w }
}

// WithLogger replaces the VM's logger.
func WithLogger(l commonlog.Logger) Option {
	return func(vm *VM) { vm.log = l }
}

// New creates a VM. Program output is discarded unless WithOutput is given.
func New(opts ...Option) *VM {
	vm := &VM{
		limit:  StackMax,
		out:    io.Discard,
		errOut: os.Stderr,
		log:    commonlog.GetLogger("clove.vm"),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Interpret compiles source into a fresh chunk and executes it. Compile
// diagnostics and runtime errors are written to the error output as well as
// returned. The chunk is freed before Interpret returns.
func (vm *VM) Interpret(source string) (Value, InterpretResult, error) {
	c := bytecode.NewChunk()
	defer c.Free()

	if err := compiler.Compile(source, c); err != nil {
		fmt.Fprintln(vm.errOut, err)
		return 0, InterpretCompileError, err
	}

	result, err := vm.Execute(c)
	if err != nil {
		fmt.Fprintln(vm.errOut, err)
		return 0, ClassifyError(err), err
	}
	return result, InterpretOK, nil
}

// Execute runs c from its first instruction until OpReturn and returns the
// value on top of the stack.
func (vm *VM) Execute(c *bytecode.Chunk) (Value, error) {
	vm.chunk = c
	vm.ip = 0
	vm.instr = 0
	vm.resetStack()
	defer func() {
		vm.chunk = nil
		vm.resetStack()
	}()

	vm.log.Debugf("executing chunk: %d bytes, %d constants", c.Len(), c.ConstantCount())
	return vm.run()
}

// StackDepth returns the number of live stack slots.
func (vm *VM) StackDepth() int { return vm.sp }

func (vm *VM) resetStack() {
	vm.sp = 0
}

// ---------------------------------------------------------------------------
// Dispatch loop
// ---------------------------------------------------------------------------

func (vm *VM) run() (Value, error) {
	code := vm.chunk.Code()

	for {
		if vm.ip >= len(code) {
			return 0, vm.fault(bytecode.OpReturn, "instruction pointer past end of code")
		}
		if vm.trace != nil {
			vm.traceInstruction()
		}

		vm.instr = vm.ip
		op := bytecode.Opcode(code[vm.ip])
		vm.ip++

		switch op {
		case bytecode.OpConst:
			if vm.ip >= len(code) {
				return 0, vm.fault(op, "missing constant operand")
			}
			idx := int(code[vm.ip])
			vm.ip++
			if idx >= vm.chunk.ConstantCount() {
				return 0, vm.fault(op, fmt.Sprintf("constant index %d out of range", idx))
			}
			if err := vm.push(vm.chunk.Constant(idx)); err != nil {
				return 0, err
			}

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv:
			b, err := vm.pop(op)
			if err != nil {
				return 0, err
			}
			a, err := vm.pop(op)
			if err != nil {
				return 0, err
			}
			if err := vm.push(arith(op, a, b)); err != nil {
				return 0, err
			}

		case bytecode.OpNeg:
			a, err := vm.pop(op)
			if err != nil {
				return 0, err
			}
			if err := vm.push(-a); err != nil {
				return 0, err
			}

		case bytecode.OpReturn:
			if vm.sp == 0 {
				return 0, nil
			}
			result, _ := vm.pop(op)
			fmt.Fprintln(vm.out, bytecode.FormatValue(result))
			return result, nil

		default:
			return 0, vm.fault(op, fmt.Sprintf("unknown opcode %d", byte(op)))
		}
	}
}

// arith applies a binary arithmetic opcode. Division follows IEEE 754:
// dividing by zero yields an infinity or NaN rather than an error.
func arith(op bytecode.Opcode, a, b Value) Value {
	switch op {
	case bytecode.OpAdd:
		return a + b
	case bytecode.OpSub:
		return a - b
	case bytecode.OpMul:
		return a * b
	default:
		return a / b
	}
}

// ---------------------------------------------------------------------------
// Stack
// ---------------------------------------------------------------------------

func (vm *VM) push(v Value) error {
	if vm.sp >= vm.limit {
		return vm.runtimeError("stack overflow")
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop(op bytecode.Opcode) (Value, error) {
	if vm.sp == 0 {
		return 0, vm.fault(op, "stack underflow")
	}
	vm.sp--
	return vm.stack[vm.sp], nil
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func (vm *VM) runtimeError(message string) error {
	return &RuntimeError{
		Message: message,
		Line:    vm.chunk.Line(vm.instr),
		Offset:  vm.instr,
	}
}

func (vm *VM) fault(op bytecode.Opcode, reason string) error {
	vm.log.Errorf("internal fault at offset %d: %s", vm.instr, reason)
	return &InternalFault{Op: op, Offset: vm.instr, Reason: reason}
}

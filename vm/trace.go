package vm

import (
	"fmt"
	"strings"

	"github.com/chazu/clove/pkg/bytecode"
)

// traceInstruction writes the live stack, bottom first, followed by the
// disassembly of the instruction about to execute.
func (vm *VM) traceInstruction() {
	var sb strings.Builder
	sb.WriteString("          ")
	for i := 0; i < vm.sp; i++ {
		fmt.Fprintf(&sb, "[ %s ]", bytecode.FormatValue(vm.stack[i]))
	}
	sb.WriteByte('\n')
	fmt.Fprint(vm.trace, sb.String())
	bytecode.DisassembleInstruction(vm.trace, vm.chunk, vm.ip)
}

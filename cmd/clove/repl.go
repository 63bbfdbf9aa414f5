package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// repl reads one expression per line and runs it. Errors are reported and the
// loop continues; the exit code is always zero.
func (d *driver) repl(stdin io.Reader) int {
	fmt.Fprintln(d.stdout, "clove REPL (type 'exit' to quit, ':help' for commands)")

	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(d.stdout, "> ")

		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return exitOK
		case strings.HasPrefix(line, ":"):
			d.handleREPLCommand(line)
			continue
		}

		d.runSource(line, "repl")
	}

	fmt.Fprintln(d.stdout)
	return exitOK
}

// handleREPLCommand handles REPL meta-commands
func (d *driver) handleREPLCommand(cmd string) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(d.stdout, "REPL Commands:")
		fmt.Fprintln(d.stdout, "  :help, :h, :?     Show this help")
		fmt.Fprintln(d.stdout, "  :disasm           Toggle bytecode listings")
		fmt.Fprintln(d.stdout, "  :trace            Toggle execution tracing")
		fmt.Fprintln(d.stdout, "  exit, quit        Exit REPL")
	case ":disasm":
		d.opts.disassemble = !d.opts.disassemble
		fmt.Fprintf(d.stdout, "disassembly %s\n", onOff(d.opts.disassemble))
	case ":trace":
		d.opts.trace = !d.opts.trace
		fmt.Fprintf(d.stdout, "tracing %s\n", onOff(d.opts.trace))
	default:
		fmt.Fprintf(d.stdout, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

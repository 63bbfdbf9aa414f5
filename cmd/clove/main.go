// clove CLI - compiles and runs arithmetic expressions on the clove VM
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/clove/compiler"
	"github.com/chazu/clove/manifest"
	"github.com/chazu/clove/pkg/bytecode"
	"github.com/chazu/clove/server"
	"github.com/chazu/clove/store"
	"github.com/chazu/clove/vm"
)

// Exit codes follow sysexits.h.
const (
	exitOK           = 0
	exitUsage        = 64
	exitCompileError = 65
	exitRuntimeError = 70
	exitIOError      = 74
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options is the merged result of clove.toml and the command line.
type options struct {
	stackLimit  int
	trace       bool
	disassemble bool
	cachePath   string
	port        int
	verbosity   int
	logFile     *string

	out     string // -o
	load    string // -load
	serve   bool
	lsp     bool
	scripts []string
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("clove", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("c", "", "Path to a clove.toml (default: search upward from the working directory)")
	disasm := fs.Bool("disasm", false, "Print the bytecode listing before running")
	trace := fs.Bool("trace", false, "Trace every instruction as it executes")
	outPath := fs.String("o", "", "Compile the script to a bytecode file instead of running it")
	loadPath := fs.String("load", "", "Run a compiled bytecode file")
	cachePath := fs.String("cache", "", "Cache compiled chunks in this SQLite database")
	serveMode := fs.Bool("serve", false, "Start the eval server (Connect HTTP/JSON)")
	servePort := fs.Int("port", 0, "Eval server port (used with -serve)")
	lspMode := fs.Bool("lsp", false, "Start the language server on stdio")
	verbose := fs.Bool("v", false, "Verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: clove [options] [script]\n\n")
		fmt.Fprintf(stderr, "Runs a script, or starts a REPL when no script is given.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  clove                          # Start REPL\n")
		fmt.Fprintf(stderr, "  clove sum.clove                # Run a script\n")
		fmt.Fprintf(stderr, "  clove -disasm -trace sum.clove # Show bytecode and execution\n")
		fmt.Fprintf(stderr, "  clove -o sum.clbc sum.clove    # Compile only\n")
		fmt.Fprintf(stderr, "  clove -load sum.clbc           # Run compiled bytecode\n")
		fmt.Fprintf(stderr, "  clove -serve -port 8080        # Start eval server\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	m, err := loadManifest(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitIOError
	}

	opts := options{
		stackLimit:  m.VM.StackLimit,
		trace:       m.VM.Trace || *trace,
		disassemble: m.Compiler.Disassemble || *disasm,
		port:        m.Server.Port,
		verbosity:   m.Log.Verbosity,
		logFile:     m.LogFile(),
		out:         *outPath,
		load:        *loadPath,
		serve:       *serveMode,
		lsp:         *lspMode,
		scripts:     fs.Args(),
	}
	if m.Cache.Enabled {
		opts.cachePath = m.CachePath()
		if opts.cachePath == "" {
			if opts.cachePath, err = store.DefaultPath(); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return exitIOError
			}
		}
	}
	if *cachePath != "" {
		opts.cachePath = *cachePath
	}
	if *servePort != 0 {
		opts.port = *servePort
	}
	if *verbose && opts.verbosity < 2 {
		opts.verbosity = 2
	}

	if len(opts.scripts) > 1 {
		fs.Usage()
		return exitUsage
	}
	if opts.out != "" && len(opts.scripts) == 0 {
		fmt.Fprintln(stderr, "Error: -o needs a script to compile")
		return exitUsage
	}

	commonlog.Configure(opts.verbosity, opts.logFile)

	d := &driver{opts: opts, stdout: stdout, stderr: stderr, log: commonlog.GetLogger("clove.cli")}
	if opts.cachePath != "" {
		cache, err := store.Open(opts.cachePath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitIOError
		}
		defer cache.Close()
		d.cache = cache
	}

	switch {
	case opts.lsp:
		if err := server.NewLSP(opts.stackLimit).Run(); err != nil {
			fmt.Fprintf(stderr, "LSP error: %v\n", err)
			return exitIOError
		}
		return exitOK
	case opts.serve:
		srv := server.New(server.WithCache(d.cache), server.WithStackLimit(opts.stackLimit))
		defer srv.Stop()
		if err := srv.ListenAndServe(fmt.Sprintf(":%d", opts.port)); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return exitIOError
		}
		return exitOK
	case opts.load != "":
		return d.runBytecodeFile(opts.load)
	case len(opts.scripts) == 1 && opts.out != "":
		return d.compileFile(opts.scripts[0], opts.out)
	case len(opts.scripts) == 1:
		return d.runFile(opts.scripts[0])
	default:
		return d.repl(stdin)
	}
}

// loadManifest loads the -c file, or searches upward from the working
// directory, falling back to the defaults.
func loadManifest(path string) (*manifest.Manifest, error) {
	if path != "" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return manifest.Load(path)
		}
		return manifest.LoadFile(path)
	}
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.Default()
	}
	return m, nil
}

// driver runs sources and chunks with one set of options.
type driver struct {
	opts   options
	cache  *store.Store // nil when caching is off
	stdout io.Writer
	stderr io.Writer
	log    commonlog.Logger
}

func (d *driver) runFile(path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(d.stderr, "Could not read file %q: %v\n", path, err)
		return exitIOError
	}
	return d.runSource(string(source), filepath.Base(path))
}

// runSource compiles and executes source, returning the process exit code.
func (d *driver) runSource(source, name string) int {
	c, err := d.compile(source)
	if err != nil {
		fmt.Fprintln(d.stderr, err)
		if _, ok := compiler.AsError(err); ok {
			return exitCompileError
		}
		return exitIOError
	}
	defer c.Free()
	return d.execute(c, name)
}

func (d *driver) compile(source string) (*bytecode.Chunk, error) {
	if d.cache == nil {
		return compiler.CompileChunk(source)
	}
	c, hit, err := d.cache.Compile(context.Background(), source)
	if err == nil {
		d.log.Debugf("cache hit: %v", hit)
	}
	return c, err
}

// execute runs c, printing its listing first when asked to. Internal faults
// are not recoverable and panic.
func (d *driver) execute(c *bytecode.Chunk, name string) int {
	if d.opts.disassemble {
		bytecode.DisassembleChunk(d.stdout, c, name)
	}

	vmOpts := []vm.Option{
		vm.WithStackLimit(d.opts.stackLimit),
		vm.WithOutput(d.stdout),
		vm.WithErrorOutput(d.stderr),
	}
	if d.opts.trace {
		vmOpts = append(vmOpts, vm.WithTrace(d.stdout))
	}

	_, err := vm.New(vmOpts...).Execute(c)
	switch vm.ClassifyError(err) {
	case vm.InterpretOK:
		return exitOK
	case vm.InterpretInternalFault:
		panic(err)
	default:
		fmt.Fprintln(d.stderr, err)
		return exitRuntimeError
	}
}

// compileFile compiles the script at src and writes its bytecode to dst.
func (d *driver) compileFile(src, dst string) int {
	source, err := os.ReadFile(src)
	if err != nil {
		fmt.Fprintf(d.stderr, "Could not read file %q: %v\n", src, err)
		return exitIOError
	}

	c, err := d.compile(string(source))
	if err != nil {
		fmt.Fprintln(d.stderr, err)
		if _, ok := compiler.AsError(err); ok {
			return exitCompileError
		}
		return exitIOError
	}
	defer c.Free()

	if d.opts.disassemble {
		bytecode.DisassembleChunk(d.stdout, c, filepath.Base(src))
	}

	data, err := bytecode.Marshal(c)
	if err != nil {
		fmt.Fprintf(d.stderr, "Error: %v\n", err)
		return exitIOError
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		fmt.Fprintf(d.stderr, "Could not write file %q: %v\n", dst, err)
		return exitIOError
	}
	d.log.Infof("wrote %s (%d bytes)", dst, len(data))
	return exitOK
}

// runBytecodeFile loads a chunk written by -o and executes it.
func (d *driver) runBytecodeFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(d.stderr, "Could not read file %q: %v\n", path, err)
		return exitIOError
	}
	c, err := bytecode.Unmarshal(data)
	if err != nil {
		fmt.Fprintf(d.stderr, "Invalid bytecode file %q: %v\n", path, err)
		return exitCompileError
	}
	defer c.Free()
	return d.execute(c, filepath.Base(path))
}

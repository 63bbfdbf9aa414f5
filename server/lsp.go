package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/clove/compiler"
	"github.com/chazu/clove/pkg/bytecode"
	"github.com/chazu/clove/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "clove-lsp"

// LspServer checks clove documents as they are edited and evaluates them on
// hover.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	stackLimit int
	handler    protocol.Handler
	server     *glspserver.Server
	version    string
	log        commonlog.Logger
}

// NewLSP creates a new LSP server. Every hover runs on its own VM.
func NewLSP(stackLimit int) *LspServer {
	s := &LspServer{
		docs:       make(map[string]string),
		stackLimit: stackLimit,
		version:    "0.1.0",
		log:        commonlog.GetLogger("clove.lsp"),
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover: s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("clove LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.setDocument(uri, text)
	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.setDocument(uri, whole.Text)
			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) setDocument(uri protocol.DocumentUri, text string) {
	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return s.hover(text), nil
}

// hover evaluates the whole document and describes the outcome in markdown:
// the value and the bytecode listing, or the error that stopped it.
func (s *LspServer) hover(text string) *protocol.Hover {
	c, err := compiler.CompileChunk(text)
	if err != nil {
		return markdownHover(fmt.Sprintf("**compile error**\n\n```\n%s\n```", err))
	}
	defer c.Free()

	var b strings.Builder
	value, err := vm.New(vm.WithStackLimit(s.stackLimit)).Execute(c)
	if err != nil {
		fmt.Fprintf(&b, "**runtime error**\n\n```\n%s\n```\n\n", err)
	} else {
		fmt.Fprintf(&b, "**value** `%s`\n\n", bytecode.FormatValue(value))
	}
	fmt.Fprintf(&b, "```\n%s```", c.Disassemble("document"))
	return markdownHover(b.String())
}

func markdownHover(value string) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := checkDocument(text)
	s.log.Debugf("%s: %d diagnostics", uri, len(diagnostics))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// checkDocument compiles text and converts every compile diagnostic to an
// LSP diagnostic. Returns an empty, non-nil slice for a clean document so
// that publishing it clears earlier errors.
func checkDocument(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	c, err := compiler.CompileChunk(text)
	if err == nil {
		c.Free()
		return diagnostics
	}
	ce, ok := compiler.AsError(err)
	if !ok {
		return diagnostics
	}

	lines := strings.Split(text, "\n")
	severity := protocol.DiagnosticSeverityError
	source := lspName
	for _, d := range ce.Diagnostics {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    diagnosticRange(lines, d),
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	return diagnostics
}

// diagnosticRange places d on its zero-based line starting at its column.
// The range spans the offending lexeme, is empty at end of input, and runs
// to the end of the line for scanner errors.
func diagnosticRange(lines []string, d compiler.Diagnostic) protocol.Range {
	line := d.Line - 1
	if line < 0 {
		line = 0
	}
	var text string
	if line < len(lines) {
		text = lines[line]
	}

	start := min(max(d.Column-1, 0), len(text))
	end := len(text)
	switch {
	case d.Lexeme != "":
		end = min(start+len(d.Lexeme), len(text))
	case d.Kind == compiler.TokenEOF:
		end = start
	}

	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line), Character: utf16Column(text, start)},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: utf16Column(text, end)},
	}
}

// utf16Column converts a byte offset within text to the UTF-16 code unit
// offset LSP positions are measured in.
func utf16Column(text string, offset int) protocol.UInteger {
	var n protocol.UInteger
	for _, r := range text[:offset] {
		n += protocol.UInteger(utf16.RuneLen(r))
	}
	return n
}

func boolPtr(b bool) *bool {
	return &b
}

// Package compiler turns clove source text into bytecode in a single pass.
//
// The Scanner hands tokens to a precedence-climbing (Pratt) parser that emits
// instructions as it recognizes them; there is no intermediate AST. Which
// tokens start an expression, which continue one, and how tightly they bind
// is decided entirely by the rule table in rules.go.
package compiler

import (
	"errors"
	"strconv"

	"github.com/chazu/clove/pkg/bytecode"
)

// parser holds the state of one Compile call.
type parser struct {
	scanner *Scanner
	chunk   *bytecode.Chunk

	current  Token
	previous Token

	hadError    bool
	panicMode   bool
	diagnostics []Diagnostic

	depth int // active parsePrecedence calls
}

// MaxNesting bounds how deeply parsePrecedence may recurse. Every nested
// operand costs one level.
const MaxNesting = 4096

// Compile parses source as a single expression and appends its bytecode,
// terminated by OpReturn, to chunk. It returns nil on success and an *Error
// listing the diagnostics otherwise; in that case chunk holds partial code
// and must be discarded.
func Compile(source string, chunk *bytecode.Chunk) error {
	p := &parser{
		scanner: NewScanner(source),
		chunk:   chunk,
	}

	p.advance()
	p.expression()
	p.consume(TokenEOF, "Expect end of expression.")
	p.emitOp(bytecode.OpReturn, p.previous.Line)

	if p.hadError {
		return &Error{Diagnostics: p.diagnostics}
	}
	return nil
}

// CompileChunk compiles source into a new chunk. On failure the chunk is
// freed and only the error is returned.
func CompileChunk(source string, opts ...bytecode.ChunkOption) (*bytecode.Chunk, error) {
	c := bytecode.NewChunk(opts...)
	if err := Compile(source, c); err != nil {
		c.Free()
		return nil, err
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Token stream
// ---------------------------------------------------------------------------

// advance moves to the next non-error token, reporting any error tokens on
// the way.
func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scanner.Next()
		if p.current.Kind != TokenError {
			return
		}
		p.errorAt(p.current, p.current.Lexeme)
	}
}

// consume advances past the current token if it has the given kind, and
// reports message otherwise.
func (p *parser) consume(kind TokenKind, message string) {
	if p.current.Kind == kind {
		p.advance()
		return
	}
	p.errorAt(p.current, message)
}

// ---------------------------------------------------------------------------
// Error reporting
// ---------------------------------------------------------------------------

// errorAt records a diagnostic for tok. Only the first error is recorded:
// the grammar has no statement boundary to resynchronize on, so panic mode
// stays set for the rest of the compile.
func (p *parser) errorAt(tok Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	d := Diagnostic{Line: tok.Line, Column: tok.Column, Kind: tok.Kind, Message: message}
	if tok.Kind != TokenEOF && tok.Kind != TokenError {
		d.Lexeme = tok.Lexeme
	}
	p.diagnostics = append(p.diagnostics, d)
}

func (p *parser) error(message string) {
	p.errorAt(p.previous, message)
}

// ---------------------------------------------------------------------------
// Emission
// ---------------------------------------------------------------------------

func (p *parser) emitByte(b byte, line int) {
	if err := p.chunk.Write(b, line); err != nil {
		p.error("Chunk too large.")
	}
}

func (p *parser) emitOp(op bytecode.Opcode, line int) {
	p.emitByte(byte(op), line)
}

func (p *parser) emitConstant(v bytecode.Value, line int) {
	idx := p.makeConstant(v)
	p.emitOp(bytecode.OpConst, line)
	p.emitByte(idx, line)
}

// makeConstant pools v and returns its operand byte. A full pool reports an
// error and yields index 0 so compilation can go on.
func (p *parser) makeConstant(v bytecode.Value) byte {
	idx, err := p.chunk.AddConstant(v)
	if err != nil {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *parser) expression() {
	p.parsePrecedence(PrecAssignment)
}

// parsePrecedence parses an expression whose operators all bind at least as
// tightly as prec.
func (p *parser) parsePrecedence(prec Precedence) {
	if p.depth >= MaxNesting {
		p.errorAt(p.current, "Expression nested too deeply.")
		return
	}
	p.depth++
	defer func() { p.depth-- }()

	p.advance()
	prefix := ruleFor(p.previous.Kind).prefix
	if prefix == nil {
		p.error("Expect expression.")
		return
	}
	prefix(p)

	for prec <= ruleFor(p.current.Kind).prec {
		p.advance()
		ruleFor(p.previous.Kind).infix(p)
	}
}

func (p *parser) number() {
	v, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		p.error("Invalid number literal.")
		return
	}
	p.emitConstant(v, p.previous.Line)
}

func (p *parser) grouping() {
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after expression.")
}

func (p *parser) unary() {
	operator := p.previous
	p.parsePrecedence(PrecUnary)

	switch operator.Kind {
	case TokenMinus:
		p.emitOp(bytecode.OpNeg, operator.Line)
	}
}

func (p *parser) binary() {
	operator := p.previous
	rule := ruleFor(operator.Kind)
	p.parsePrecedence(rule.prec + 1)

	switch operator.Kind {
	case TokenPlus:
		p.emitOp(bytecode.OpAdd, operator.Line)
	case TokenMinus:
		p.emitOp(bytecode.OpSub, operator.Line)
	case TokenStar:
		p.emitOp(bytecode.OpMul, operator.Line)
	case TokenSlash:
		p.emitOp(bytecode.OpDiv, operator.Line)
	}
}

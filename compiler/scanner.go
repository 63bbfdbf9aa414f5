package compiler

// ---------------------------------------------------------------------------
// Scanner: on-demand tokenizer
// ---------------------------------------------------------------------------

// Scanner produces tokens from a source string one at a time. Tokens
// reference the source string, which must not change while they are in use.
type Scanner struct {
	source  string
	start   int // start of the token being scanned
	current int // next byte to read
	line    int // current line (1-based)

	lineStart int // offset of the first byte of the current line
	column    int // column of the token being scanned (1-based)
}

// NewScanner creates a scanner positioned at the start of source.
func NewScanner(source string) *Scanner {
	return &Scanner{source: source, line: 1}
}

// Next scans and returns the next token. Once the end of input is reached,
// every further call returns another TokenEOF.
func (s *Scanner) Next() Token {
	s.skipWhitespace()
	s.start = s.current
	s.column = s.start - s.lineStart + 1

	if s.atEnd() {
		return s.makeToken(TokenEOF)
	}

	c := s.advance()
	switch {
	case isAlpha(c):
		return s.identifier()
	case isDigit(c):
		return s.number()
	}

	switch c {
	case '(':
		return s.makeToken(TokenLeftParen)
	case ')':
		return s.makeToken(TokenRightParen)
	case '{':
		return s.makeToken(TokenLeftBrace)
	case '}':
		return s.makeToken(TokenRightBrace)
	case ';':
		return s.makeToken(TokenSemicolon)
	case ',':
		return s.makeToken(TokenComma)
	case '.':
		return s.makeToken(TokenDot)
	case '-':
		return s.makeToken(TokenMinus)
	case '+':
		return s.makeToken(TokenPlus)
	case '/':
		return s.makeToken(TokenSlash)
	case '*':
		return s.makeToken(TokenStar)
	case '!':
		return s.makeToken(s.pick('=', TokenBangEqual, TokenBang))
	case '=':
		return s.makeToken(s.pick('=', TokenEqualEqual, TokenEqual))
	case '<':
		return s.makeToken(s.pick('=', TokenLessEqual, TokenLess))
	case '>':
		return s.makeToken(s.pick('=', TokenGreaterEqual, TokenGreater))
	case '"':
		return s.stringLiteral()
	}

	return s.errorToken("Unexpected character.")
}

func (s *Scanner) atEnd() bool {
	return s.current >= len(s.source)
}

func (s *Scanner) advance() byte {
	c := s.source[s.current]
	s.current++
	return c
}

// peek returns the current byte, or 0 at end of input.
func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.current]
}

// peekNext returns the byte after the current one, or 0 past the end.
func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

// pick consumes expected if it is next and returns two, otherwise one.
func (s *Scanner) pick(expected byte, two, one TokenKind) TokenKind {
	if s.atEnd() || s.source[s.current] != expected {
		return one
	}
	s.current++
	return two
}

func (s *Scanner) skipWhitespace() {
	for !s.atEnd() {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.current++
		case '\n':
			s.line++
			s.current++
			s.lineStart = s.current
		case '/':
			if s.peekNext() != '/' {
				return
			}
			for !s.atEnd() && s.peek() != '\n' {
				s.current++
			}
		default:
			return
		}
	}
}

func (s *Scanner) identifier() Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.current++
	}
	if kind, ok := keywords[s.source[s.start:s.current]]; ok {
		return s.makeToken(kind)
	}
	return s.makeToken(TokenIdentifier)
}

func (s *Scanner) number() Token {
	for isDigit(s.peek()) {
		s.current++
	}

	// A fractional part needs at least one digit after the dot.
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.current++
		for isDigit(s.peek()) {
			s.current++
		}
	}

	return s.makeToken(TokenNumber)
}

func (s *Scanner) stringLiteral() Token {
	for !s.atEnd() && s.peek() != '"' {
		if s.peek() == '\n' {
			s.line++
			s.lineStart = s.current + 1
		}
		s.current++
	}

	if s.atEnd() {
		return s.errorToken("Unterminated string literal.")
	}

	s.current++ // closing quote
	return s.makeToken(TokenString)
}

func (s *Scanner) makeToken(kind TokenKind) Token {
	return Token{
		Kind:   kind,
		Lexeme: s.source[s.start:s.current],
		Line:   s.line,
		Column: s.column,
	}
}

func (s *Scanner) errorToken(message string) Token {
	return Token{
		Kind:   TokenError,
		Lexeme: message,
		Line:   s.line,
		Column: s.column,
	}
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

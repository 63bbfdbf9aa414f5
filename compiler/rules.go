package compiler

// Precedence is the binding power of an operator, from loosest to tightest.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

type parseFn func(*parser)

// parseRule says what a token does at the start of an expression (prefix),
// between two operands (infix), and how tightly it binds as an infix operator.
type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   Precedence
}

// rules is indexed by TokenKind. Kinds without an entry have no prefix or
// infix behavior and PrecNone, which ends any precedence climb. New
// operators need only a row here plus the opcode they emit.
var rules [tokenKindCount]parseRule

func init() {
	rules[TokenLeftParen] = parseRule{(*parser).grouping, nil, PrecNone}
	rules[TokenMinus] = parseRule{(*parser).unary, (*parser).binary, PrecTerm}
	rules[TokenPlus] = parseRule{nil, (*parser).binary, PrecTerm}
	rules[TokenSlash] = parseRule{nil, (*parser).binary, PrecFactor}
	rules[TokenStar] = parseRule{nil, (*parser).binary, PrecFactor}
	rules[TokenNumber] = parseRule{(*parser).number, nil, PrecNone}
}

func ruleFor(kind TokenKind) parseRule {
	return rules[kind]
}

// Binds returns the infix precedence of kind, or PrecNone if kind is not an
// infix operator.
func Binds(kind TokenKind) Precedence {
	return ruleFor(kind).prec
}

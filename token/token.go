// Package token defines the lexical tokens of the AST wire format: a small
// tagged-S-expression notation used to write ast.Node trees as text, e.g.
// `(lasgn x (lit 1))`. It has nothing to do with the surface scripting
// language the lowering pass targets — spec.md's "no parsing" non-goal is
// about that language's grammar, not this notation's.
package token

// Type identifies a token's lexical category.
type Type string

// Token is one lexical unit: a type and its literal text.
type Token struct {
	Type    Type
	Literal string
	Line    int
	Column  int
}

// Token types.
const (
	ILLEGAL Type = "ILLEGAL"
	EOF     Type = "EOF"

	// IDENT covers tags, bare names, operator-shaped message names (+, ==,
	// <=>, ...), the `=` marker in an optional-parameter default, the `*`
	// splat sigil (as a leading character of the name it attaches to,
	// e.g. "*rest"), and the `_` absent-node sentinel. There is no
	// operator grammar to disambiguate here — every one of these is just
	// a maximal run of non-whitespace, non-paren, non-quote characters.
	IDENT  Type = "IDENT"
	INT    Type = "INT"
	FLOAT  Type = "FLOAT"
	STRING Type = "STRING"
	SYMBOL Type = "SYMBOL" // :name

	LPAREN Type = "("
	RPAREN Type = ")"
)

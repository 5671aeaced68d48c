// Package lexer implements the lexical analyzer for the AST wire format.
//
// The lexer breaks a tagged-S-expression AST listing (e.g.
// `(lasgn x (lit 1))`) into tokens for the parser. It reads the input
// character by character and produces a stream of tokens; it does not
// tokenize the surface scripting language the lowering pass targets — see
// the token package's doc comment for why that distinction matters.
//
// Key features:
//   - Tokenization of parens, integers, floats, strings, symbols, and atoms
//   - Handling of whitespace and `//` line comments
//   - Error detection for unterminated strings
//
// The main entry point is the New function, which creates a new Lexer
// instance, and the NextToken method, which returns the next token from
// the input.
package lexer

import (
	"strings"

	"github.com/dr8co/loom/token"
)

// Lexer tokenizes the AST wire format's source text.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line, col    int
}

// readChar reads the next character from the input and advances the
// position, tracking line/column for diagnostics.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.col++
}

// New creates a new Lexer over the given input string.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, col: 0}
	l.readChar()
	return l
}

// NextToken reads and returns the next token from the input.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	line, col := l.line, l.col

	switch l.ch {
	case '(':
		l.readChar()
		return token.Token{Type: token.LPAREN, Literal: "(", Line: line, Column: col}
	case ')':
		l.readChar()
		return token.Token{Type: token.RPAREN, Literal: ")", Line: line, Column: col}
	case '"':
		lit, ok := l.readString()
		if !ok {
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated string", Line: line, Column: col}
		}
		l.readChar() // past closing quote
		return token.Token{Type: token.STRING, Literal: lit, Line: line, Column: col}
	case ':':
		if isAtomChar(l.peekChar()) {
			l.readChar() // consume ':'
			name := l.readAtom()
			return token.Token{Type: token.SYMBOL, Literal: name, Line: line, Column: col}
		}
		name := l.readAtom()
		return token.Token{Type: token.IDENT, Literal: name, Line: line, Column: col}
	case 0:
		return token.Token{Type: token.EOF, Literal: "", Line: line, Column: col}
	default:
		if isDigit(l.ch) || (l.ch == '-' && isDigit(l.peekChar())) {
			lit, isFloat := l.readNumber()
			if isFloat {
				return token.Token{Type: token.FLOAT, Literal: lit, Line: line, Column: col}
			}
			return token.Token{Type: token.INT, Literal: lit, Line: line, Column: col}
		}
		name := l.readAtom()
		if name == "" {
			l.readChar()
			return token.Token{Type: token.ILLEGAL, Literal: string(l.ch), Line: line, Column: col}
		}
		return token.Token{Type: token.IDENT, Literal: name, Line: line, Column: col}
	}
}

func isAtomChar(ch byte) bool {
	switch ch {
	case 0, '(', ')', '"', ' ', '\t', '\n', '\r':
		return false
	default:
		return true
	}
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// readNumber reads an integer or float literal, reporting which it read.
func (l *Lexer) readNumber() (string, bool) {
	position := l.position
	isFloat := false
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.position], isFloat
}

// readAtom reads a maximal run of non-whitespace, non-paren, non-quote
// characters: identifiers, operator-shaped names, the `=` marker, the `*`
// splat sigil, and the `_` absent-node sentinel are all atoms.
func (l *Lexer) readAtom() string {
	position := l.position
	for isAtomChar(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) skipWhitespace() {
	for {
		if l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
			continue
		}
		if l.ch == '/' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// stringEscapes maps the character following a backslash to the byte it
// produces. An escape not listed here is passed through literally, along
// with its leading backslash.
var stringEscapes = map[byte]byte{
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
	'"':  '"',
	'\\': '\\',
}

// readString reads a double-quoted string and returns its unescaped
// content plus whether it was properly terminated. Plain runs between
// quotes/backslashes are copied in one slice each rather than byte by
// byte, so an escape-free string costs a single WriteString.
func (l *Lexer) readString() (string, bool) {
	var b strings.Builder
	l.readChar() // past opening quote

	for {
		start := l.position
		for l.ch != '"' && l.ch != '\\' && l.ch != 0 {
			l.readChar()
		}
		b.WriteString(l.input[start:l.position])

		switch l.ch {
		case '"':
			return b.String(), true
		case 0:
			return b.String(), false
		default: // '\\'
			l.readChar()
			if l.ch == 0 {
				return b.String(), false
			}
			if esc, ok := stringEscapes[l.ch]; ok {
				b.WriteByte(esc)
			} else {
				b.WriteByte('\\')
				b.WriteByte(l.ch)
			}
			l.readChar()
		}
	}
}

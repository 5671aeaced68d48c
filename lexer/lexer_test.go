package lexer

import (
	"testing"

	"github.com/dr8co/loom/token"
)

// TestNextToken tests the functionality of the NextToken method in the Lexer to ensure all tokens are correctly identified.
func TestNextToken(t *testing.T) {
	input := `(block
  (lasgn x (lit 1))
  (lvar x)
  // a trailing comment
  (call _ puts (str "hi\n"))
  :foo
  3.5
  -7
  (args a *rest (b = (lit 1)))
  _
)`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.LPAREN, "("},
		{token.IDENT, "block"},
		{token.LPAREN, "("},
		{token.IDENT, "lasgn"},
		{token.IDENT, "x"},
		{token.LPAREN, "("},
		{token.IDENT, "lit"},
		{token.INT, "1"},
		{token.RPAREN, ")"},
		{token.RPAREN, ")"},
		{token.LPAREN, "("},
		{token.IDENT, "lvar"},
		{token.IDENT, "x"},
		{token.RPAREN, ")"},
		{token.LPAREN, "("},
		{token.IDENT, "call"},
		{token.IDENT, "_"},
		{token.IDENT, "puts"},
		{token.LPAREN, "("},
		{token.IDENT, "str"},
		{token.STRING, "hi\n"},
		{token.RPAREN, ")"},
		{token.RPAREN, ")"},
		{token.SYMBOL, "foo"},
		{token.FLOAT, "3.5"},
		{token.INT, "-7"},
		{token.LPAREN, "("},
		{token.IDENT, "args"},
		{token.IDENT, "a"},
		{token.IDENT, "*rest"},
		{token.LPAREN, "("},
		{token.IDENT, "b"},
		{token.IDENT, "="},
		{token.LPAREN, "("},
		{token.IDENT, "lit"},
		{token.INT, "1"},
		{token.RPAREN, ")"},
		{token.RPAREN, ")"},
		{token.RPAREN, ")"},
		{token.IDENT, "_"},
		{token.RPAREN, ")"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (literal %q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`(str "oops`)
	l.NextToken() // (
	l.NextToken() // str
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL token for unterminated string, got %q", tok.Type)
	}
}

// Package parser implements the syntactic analyzer for the AST wire format.
//
// The parser takes a stream of tokens from the lexer and builds the
// ast.Node tree the compiler package lowers. Unlike a parser for a real
// programming language, the wire format has no operator precedence or
// ambiguity to resolve: every compound form is `(tag child...)`, so this
// is a plain recursive-descent parser with one case per tag and no Pratt
// machinery.
//
// Key features:
//   - Dispatch on tag to the matching ast.Node constructor
//   - Recognition of the `_` absent-node sentinel wherever a field may be nil
//   - Parsing of the `args` formal-parameter grammar (simple/splat/opt/destructure)
//
// The main entry point is the [Parse] function, which parses a complete
// wire-format listing and returns its root ast.Node.
package parser

import (
	"fmt"
	"strconv"

	"github.com/dr8co/loom/ast"
	"github.com/dr8co/loom/lexer"
	"github.com/dr8co/loom/token"
)

// Parser parses the AST wire format into an ast.Node tree.
type Parser struct {
	l *lexer.Lexer

	curTok  token.Token
	peekTok token.Token
}

// New creates a new Parser over the given lexer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a complete wire-format listing and returns its root node.
func Parse(input string) (ast.Node, error) {
	p := New(lexer.New(input))
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.curTok.Type != token.EOF {
		return nil, fmt.Errorf("unexpected trailing token %s %q at %d:%d", p.curTok.Type, p.curTok.Literal, p.curTok.Line, p.curTok.Column)
	}
	return node, nil
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.l.NextToken()
}

func (p *Parser) pos() ast.Position {
	return ast.Position{Line: p.curTok.Line, Column: p.curTok.Column}
}

func (p *Parser) expect(tt token.Type) error {
	if p.curTok.Type != tt {
		return fmt.Errorf("expected %s, got %s %q at %d:%d", tt, p.curTok.Type, p.curTok.Literal, p.curTok.Line, p.curTok.Column)
	}
	p.nextToken()
	return nil
}

// parseName consumes a bare identifier and returns its literal text.
func (p *Parser) parseName() (string, error) {
	if p.curTok.Type != token.IDENT {
		return "", fmt.Errorf("expected a name, got %s %q at %d:%d", p.curTok.Type, p.curTok.Literal, p.curTok.Line, p.curTok.Column)
	}
	name := p.curTok.Literal
	p.nextToken()
	return name, nil
}

// isAbsent reports whether curTok is the bare `_` sentinel.
func (p *Parser) isAbsent() bool {
	return p.curTok.Type == token.IDENT && p.curTok.Literal == "_"
}

// parseExprOrAbsent parses an expression, or consumes a bare `_` and
// returns a nil Node for "structurally absent".
func (p *Parser) parseExprOrAbsent() (ast.Node, error) {
	if p.isAbsent() {
		p.nextToken()
		return nil, nil
	}
	return p.parseExpr()
}

// parseBoolAtom reads a bare (unwrapped) "true" or "false" identifier,
// used for flag fields like exclude_end rather than the pure-producer
// True/False nodes, which are always written as the parenthesized
// `(true)`/`(false)` tag.
func (p *Parser) parseBoolAtom() (bool, error) {
	if p.curTok.Type != token.IDENT || (p.curTok.Literal != "true" && p.curTok.Literal != "false") {
		return false, fmt.Errorf("expected a bare true/false flag, got %s %q at %d:%d", p.curTok.Type, p.curTok.Literal, p.curTok.Line, p.curTok.Column)
	}
	v := p.curTok.Literal == "true"
	p.nextToken()
	return v, nil
}

// parseExpr parses one expression: a literal token, or a parenthesized
// tagged form.
func (p *Parser) parseExpr() (ast.Node, error) {
	pos := p.pos()

	switch p.curTok.Type {
	case token.INT:
		v, err := strconv.ParseInt(p.curTok.Literal, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed integer literal %q at %d:%d: %w", p.curTok.Literal, p.curTok.Line, p.curTok.Column, err)
		}
		p.nextToken()
		return &ast.Lit{Position: pos, Value: ast.IntLit{Value: v}}, nil

	case token.FLOAT:
		v, err := strconv.ParseFloat(p.curTok.Literal, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed float literal %q at %d:%d: %w", p.curTok.Literal, p.curTok.Line, p.curTok.Column, err)
		}
		p.nextToken()
		return &ast.Lit{Position: pos, Value: ast.FloatLit{Value: v}}, nil

	case token.SYMBOL:
		name := p.curTok.Literal
		p.nextToken()
		return &ast.Lit{Position: pos, Value: ast.SymbolLit{Name: name}}, nil

	case token.STRING:
		val := p.curTok.Literal
		p.nextToken()
		return &ast.Str{Position: pos, Value: val, ByteLen: len([]byte(val))}, nil

	case token.LPAREN:
		return p.parseNode()

	case token.IDENT:
		return nil, fmt.Errorf("unexpected bare identifier %q in expression position at %d:%d (expected a tagged form, literal token, or `_`)", p.curTok.Literal, p.curTok.Line, p.curTok.Column)

	default:
		return nil, fmt.Errorf("unexpected token %s %q at %d:%d", p.curTok.Type, p.curTok.Literal, p.curTok.Line, p.curTok.Column)
	}
}

// parseNode parses a parenthesized `(tag child...)` form. curTok must be
// LPAREN on entry.
func (p *Parser) parseNode() (ast.Node, error) {
	pos := p.pos()
	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}

	if p.curTok.Type != token.IDENT {
		return nil, fmt.Errorf("expected a tag, got %s %q at %d:%d", p.curTok.Type, p.curTok.Literal, p.curTok.Line, p.curTok.Column)
	}
	tag := p.curTok.Literal
	p.nextToken()

	node, err := p.parseTagBody(tag, pos)
	if err != nil {
		return nil, err
	}

	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseTagBody(tag string, pos ast.Position) (ast.Node, error) {
	switch tag {
	case "block":
		body, err := p.parseNodeList()
		if err != nil {
			return nil, err
		}
		return &ast.Block{Position: pos, Body: body}, nil

	case "lit":
		return p.parseLitBody(pos)

	case "str":
		if p.curTok.Type != token.STRING {
			return nil, fmt.Errorf("expected a string, got %s %q at %d:%d", p.curTok.Type, p.curTok.Literal, p.curTok.Line, p.curTok.Column)
		}
		val := p.curTok.Literal
		p.nextToken()
		return &ast.Str{Position: pos, Value: val, ByteLen: len([]byte(val))}, nil

	case "true":
		return &ast.True{Position: pos}, nil
	case "false":
		return &ast.False{Position: pos}, nil
	case "nil":
		return &ast.Nil{Position: pos}, nil
	case "self":
		return &ast.Self{Position: pos}, nil

	case "lvar":
		name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		return &ast.LVar{Position: pos, Name: name}, nil
	case "ivar":
		name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		return &ast.IVar{Position: pos, Name: name}, nil
	case "gvar":
		name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		return &ast.GVar{Position: pos, Name: name}, nil
	case "const":
		name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		return &ast.Const{Position: pos, Name: name}, nil
	case "colon2":
		ns, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		return &ast.Colon2{Position: pos, Namespace: ns, Name: name}, nil
	case "colon3":
		name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		return &ast.Colon3{Position: pos, Name: name}, nil

	case "lasgn":
		name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.LAsgn{Position: pos, Name: name, Value: val}, nil
	case "iasgn":
		name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.IAsgn{Position: pos, Name: name, Value: val}, nil
	case "gasgn":
		name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.GAsgn{Position: pos, Name: name, Value: val}, nil
	case "cdecl":
		name, err := p.parseCDeclName()
		if err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.CDecl{Position: pos, Name: name, Value: val}, nil

	case "array":
		items, err := p.parseNodeList()
		if err != nil {
			return nil, err
		}
		return &ast.ArrayNode{Position: pos, Items: items}, nil
	case "hash":
		items, err := p.parseNodeList()
		if err != nil {
			return nil, err
		}
		return &ast.HashNode{Position: pos, Items: items}, nil

	case "dot2":
		begin, end, err := p.parseRangeEnds()
		if err != nil {
			return nil, err
		}
		return &ast.Dot2{Position: pos, Begin: begin, End: end}, nil
	case "dot3":
		begin, end, err := p.parseRangeEnds()
		if err != nil {
			return nil, err
		}
		return &ast.Dot3{Position: pos, Begin: begin, End: end}, nil

	case "and":
		lhs, rhs, err := p.parseBinaryOperands()
		if err != nil {
			return nil, err
		}
		return &ast.And{Position: pos, Lhs: lhs, Rhs: rhs}, nil
	case "or":
		lhs, rhs, err := p.parseBinaryOperands()
		if err != nil {
			return nil, err
		}
		return &ast.Or{Position: pos, Lhs: lhs, Rhs: rhs}, nil

	case "if":
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		then, err := p.parseExprOrAbsent()
		if err != nil {
			return nil, err
		}
		els, err := p.parseExprOrAbsent()
		if err != nil {
			return nil, err
		}
		return &ast.If{Position: pos, Cond: cond, Then: then, Else: els}, nil

	case "when":
		return p.parseWhen(pos)

	case "case":
		return p.parseCase(pos)

	case "call":
		return p.parseCall(pos, false)

	case "iter":
		return p.parseIter(pos)

	case "yield":
		args, err := p.parseNodeList()
		if err != nil {
			return nil, err
		}
		return &ast.Yield{Position: pos, Args: args}, nil

	case "defn":
		return p.parseDefn(pos)

	case "class":
		return p.parseClass(pos)

	case "args":
		return p.parseArgs(pos)

	case "resbody":
		return p.parseResbody(pos)
	case "rescue":
		return p.parseRescue(pos)
	case "ensure":
		return p.parseEnsure(pos)

	default:
		return nil, fmt.Errorf("unknown tag %q at %d:%d", tag, pos.Line, pos.Column)
	}
}

// parseNodeList parses zero or more expressions up to (but not consuming)
// the closing RPAREN.
func (p *Parser) parseNodeList() ([]ast.Node, error) {
	var nodes []ast.Node
	for p.curTok.Type != token.RPAREN {
		if p.curTok.Type == token.EOF {
			return nil, fmt.Errorf("unexpected EOF inside a list")
		}
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (p *Parser) parseBinaryOperands() (ast.Node, ast.Node, error) {
	lhs, err := p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}

func (p *Parser) parseRangeEnds() (ast.Node, ast.Node, error) {
	begin, err := p.parseExprOrAbsent()
	if err != nil {
		return nil, nil, err
	}
	end, err := p.parseExprOrAbsent()
	if err != nil {
		return nil, nil, err
	}
	return begin, end, nil
}

// parseLitBody parses the contents of `(lit ...)`: a bare INT/FLOAT/SYMBOL
// token, or a nested `(range begin end exclude_end)` form.
func (p *Parser) parseLitBody(pos ast.Position) (ast.Node, error) {
	switch p.curTok.Type {
	case token.INT:
		v, err := strconv.ParseInt(p.curTok.Literal, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed integer literal %q at %d:%d: %w", p.curTok.Literal, p.curTok.Line, p.curTok.Column, err)
		}
		p.nextToken()
		return &ast.Lit{Position: pos, Value: ast.IntLit{Value: v}}, nil

	case token.FLOAT:
		v, err := strconv.ParseFloat(p.curTok.Literal, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed float literal %q at %d:%d: %w", p.curTok.Literal, p.curTok.Line, p.curTok.Column, err)
		}
		p.nextToken()
		return &ast.Lit{Position: pos, Value: ast.FloatLit{Value: v}}, nil

	case token.SYMBOL:
		name := p.curTok.Literal
		p.nextToken()
		return &ast.Lit{Position: pos, Value: ast.SymbolLit{Name: name}}, nil

	case token.LPAREN:
		if err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		if p.curTok.Type != token.IDENT || p.curTok.Literal != "range" {
			return nil, fmt.Errorf("expected a range literal, got %s %q at %d:%d", p.curTok.Type, p.curTok.Literal, p.curTok.Line, p.curTok.Column)
		}
		p.nextToken()
		begin, end, err := p.parseRangeEnds()
		if err != nil {
			return nil, err
		}
		exclude, err := p.parseBoolAtom()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return &ast.Lit{Position: pos, Value: ast.RangeLit{Begin: begin, End: end, ExcludeEnd: exclude}}, nil

	default:
		return nil, fmt.Errorf("unknown literal payload %s %q at %d:%d", p.curTok.Type, p.curTok.Literal, p.curTok.Line, p.curTok.Column)
	}
}

// parseCDeclName parses a cdecl's Name field: a bare atom, or a
// (colon2 ...)/(colon3 ...) form.
func (p *Parser) parseCDeclName() (ast.Node, error) {
	if p.curTok.Type == token.IDENT {
		pos := p.pos()
		name := p.curTok.Literal
		p.nextToken()
		return &ast.Atom{Position: pos, Name: name}, nil
	}
	return p.parseExpr()
}

func (p *Parser) parseWhen(pos ast.Position) (ast.Node, error) {
	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	opts, err := p.parseNodeList()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseExprOrAbsent()
	if err != nil {
		return nil, err
	}
	return &ast.When{Position: pos, Options: opts, Body: body}, nil
}

func (p *Parser) parseCase(pos ast.Position) (ast.Node, error) {
	subject, err := p.parseExprOrAbsent()
	if err != nil {
		return nil, err
	}

	var whens []*ast.When
	for p.curTok.Type == token.LPAREN && p.peekTok.Type == token.IDENT && p.peekTok.Literal == "when" {
		w, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		whens = append(whens, w.(*ast.When))
	}

	els, err := p.parseExprOrAbsent()
	if err != nil {
		return nil, err
	}
	return &ast.Case{Position: pos, Subject: subject, Whens: whens, Else: els}, nil
}

func (p *Parser) parseCall(pos ast.Position, withBlock bool) (*ast.Call, error) {
	recv, err := p.parseExprOrAbsent()
	if err != nil {
		return nil, err
	}
	msg, err := p.parseName()
	if err != nil {
		return nil, err
	}
	args, err := p.parseNodeList()
	if err != nil {
		return nil, err
	}
	return &ast.Call{Position: pos, Receiver: recv, Message: msg, Args: args, WithBlock: withBlock}, nil
}

func (p *Parser) parseIter(pos ast.Position) (ast.Node, error) {
	if p.curTok.Type != token.LPAREN || p.peekTok.Type != token.IDENT || p.peekTok.Literal != "call" {
		return nil, fmt.Errorf("expected a call form as the first child of iter at %d:%d", p.curTok.Line, p.curTok.Column)
	}
	callPos := p.pos()
	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	p.nextToken() // past "call"
	call, err := p.parseCall(callPos, true)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	if p.curTok.Type != token.LPAREN || p.peekTok.Type != token.IDENT || p.peekTok.Literal != "args" {
		return nil, fmt.Errorf("expected an args form as the second child of iter at %d:%d", p.curTok.Line, p.curTok.Column)
	}
	argsNode, err := p.parseNode()
	if err != nil {
		return nil, err
	}

	body, err := p.parseExprOrAbsent()
	if err != nil {
		return nil, err
	}

	return &ast.Iter{Position: pos, Call: call, Args: argsNode.(*ast.Args), Body: body}, nil
}

func (p *Parser) parseDefn(pos ast.Position) (ast.Node, error) {
	name, err := p.parseName()
	if err != nil {
		return nil, err
	}
	if p.curTok.Type != token.LPAREN || p.peekTok.Type != token.IDENT || p.peekTok.Literal != "args" {
		return nil, fmt.Errorf("expected an args form in defn at %d:%d", p.curTok.Line, p.curTok.Column)
	}
	argsNode, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	body, err := p.parseNodeList()
	if err != nil {
		return nil, err
	}
	return &ast.Defn{Position: pos, Name: name, Args: argsNode.(*ast.Args), Body: body}, nil
}

func (p *Parser) parseClass(pos ast.Position) (ast.Node, error) {
	name, err := p.parseCDeclName()
	if err != nil {
		return nil, err
	}
	superclass, err := p.parseExprOrAbsent()
	if err != nil {
		return nil, err
	}
	body, err := p.parseNodeList()
	if err != nil {
		return nil, err
	}
	return &ast.ClassNode{Position: pos, Name: name, Superclass: superclass, Body: body}, nil
}

// parseArgs parses the contents of `(args param...)`.
func (p *Parser) parseArgs(pos ast.Position) (*ast.Args, error) {
	var params []ast.Param
	for p.curTok.Type != token.RPAREN {
		if p.curTok.Type == token.EOF {
			return nil, fmt.Errorf("unexpected EOF inside args")
		}
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
	}
	return &ast.Args{Position: pos, Params: params}, nil
}

// parseParam parses one formal-parameter entry: a bare name (simple or
// splat), or a parenthesized group that is either an opt-param
// `(name = default)` or a nested destructure group `(param param...)`.
// The two parenthesized shapes are distinguished by lookahead: an
// opt-param's second token is always the literal atom "=".
func (p *Parser) parseParam() (ast.Param, error) {
	pos := p.pos()

	if p.curTok.Type == token.IDENT {
		name := p.curTok.Literal
		p.nextToken()
		if len(name) > 0 && name[0] == '*' {
			return &ast.SplatParam{Position: pos, Name: name[1:]}, nil
		}
		return &ast.SimpleParam{Position: pos, Name: name}, nil
	}

	if p.curTok.Type != token.LPAREN {
		return nil, fmt.Errorf("expected a parameter, got %s %q at %d:%d", p.curTok.Type, p.curTok.Literal, p.curTok.Line, p.curTok.Column)
	}
	p.nextToken() // past '('

	if p.curTok.Type == token.IDENT && p.peekTok.Type == token.IDENT && p.peekTok.Literal == "=" {
		name := p.curTok.Literal
		p.nextToken() // past name
		p.nextToken() // past "="
		def, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return &ast.OptParam{Position: pos, Name: name, Default: def}, nil
	}

	var nested []ast.Param
	for p.curTok.Type != token.RPAREN {
		if p.curTok.Type == token.EOF {
			return nil, fmt.Errorf("unexpected EOF inside a destructure parameter")
		}
		child, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		nested = append(nested, child)
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.DestructureParam{Position: pos, Params: nested}, nil
}

func (p *Parser) parseResbody(pos ast.Position) (ast.Node, error) {
	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	classes, err := p.parseNodeList()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	var exceptionVar string
	if p.isAbsent() {
		p.nextToken()
	} else {
		exceptionVar, err = p.parseName()
		if err != nil {
			return nil, err
		}
	}

	body, err := p.parseExprOrAbsent()
	if err != nil {
		return nil, err
	}
	return &ast.Resbody{Position: pos, ExceptionClasses: classes, ExceptionVar: exceptionVar, Body: body}, nil
}

func (p *Parser) parseRescue(pos ast.Position) (ast.Node, error) {
	body, err := p.parseExprOrAbsent()
	if err != nil {
		return nil, err
	}

	var handlers []*ast.Resbody
	for p.curTok.Type == token.LPAREN && p.peekTok.Type == token.IDENT && p.peekTok.Literal == "resbody" {
		h, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, h.(*ast.Resbody))
	}

	els, err := p.parseExprOrAbsent()
	if err != nil {
		return nil, err
	}
	return &ast.Rescue{Position: pos, Body: body, Handlers: handlers, Else: els}, nil
}

func (p *Parser) parseEnsure(pos ast.Position) (ast.Node, error) {
	body, err := p.parseExprOrAbsent()
	if err != nil {
		return nil, err
	}
	always, err := p.parseExprOrAbsent()
	if err != nil {
		return nil, err
	}
	return &ast.Ensure{Position: pos, Body: body, Always: always}, nil
}

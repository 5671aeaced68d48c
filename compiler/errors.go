package compiler

import (
	"fmt"

	"github.com/dr8co/loom/ast"
)

// ErrorKind identifies which structured failure a LoweringError reports.
type ErrorKind string

const (
	// ErrUnexpectedRoot: the top-level AST node is not a *ast.Block.
	ErrUnexpectedRoot ErrorKind = "unexpected_root"

	// ErrUnknownConstruct: no transform is registered for a node's tag.
	ErrUnknownConstruct ErrorKind = "unknown_construct"

	// ErrUnknownLiteral: a *ast.Lit's payload is not one of the known kinds.
	ErrUnknownLiteral ErrorKind = "unknown_literal"

	// ErrOddHashItems: a *ast.HashNode has an odd number of children.
	ErrOddHashItems ErrorKind = "odd_hash_items"

	// ErrUnknownConstantName: a constant-owner slot has an unexpected node shape.
	ErrUnknownConstantName ErrorKind = "unknown_constant_name"

	// ErrUnexpectedIterCall: an *ast.Iter's embedded node is not a *ast.Call.
	ErrUnexpectedIterCall ErrorKind = "unexpected_iter_call"
)

// LoweringError is the structured failure surfaced by Lower and every
// per-tag transform. The pass does no local recovery: any LoweringError
// aborts the whole transformation.
type LoweringError struct {
	Kind ErrorKind
	Tag  string
	Pos  ast.Position
	Msg  string
}

func (e *LoweringError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s (%s) at %s: %s", e.Kind, e.Tag, e.Pos, e.Msg)
}

func unexpectedRoot(n ast.Node) error {
	tag, pos := "nil", ast.Position{}
	if n != nil {
		tag, pos = n.Tag(), n.Pos()
	}
	return &LoweringError{
		Kind: ErrUnexpectedRoot,
		Tag:  tag,
		Pos:  pos,
		Msg:  "top-level node must be a block",
	}
}

func unknownConstruct(n ast.Node) error {
	return &LoweringError{
		Kind: ErrUnknownConstruct,
		Tag:  n.Tag(),
		Pos:  n.Pos(),
		Msg:  "no transform registered for this tag",
	}
}

func unknownLiteral(n *ast.Lit) error {
	pos, kind := ast.Position{}, ast.LiteralKind("nil")
	if n != nil {
		pos, kind = n.Pos(), n.Value.Kind()
	}
	return &LoweringError{
		Kind: ErrUnknownLiteral,
		Tag:  "lit",
		Pos:  pos,
		Msg:  fmt.Sprintf("unsupported literal kind %q", kind),
	}
}

func oddHashItems(n *ast.HashNode) error {
	return &LoweringError{
		Kind: ErrOddHashItems,
		Tag:  "hash",
		Pos:  n.Pos(),
		Msg:  fmt.Sprintf("hash literal has %d items, want an even count", len(n.Items)),
	}
}

func unknownConstantName(pos ast.Position, n ast.Node) error {
	tag := "nil"
	if n != nil {
		tag = n.Tag()
	}
	return &LoweringError{
		Kind: ErrUnknownConstantName,
		Tag:  tag,
		Pos:  pos,
		Msg:  "constant owner slot must be an atom, colon2, or colon3",
	}
}

func unexpectedIterCall(n *ast.Iter) error {
	tag := "nil"
	if n.Call != nil {
		tag = n.Call.Tag()
	}
	return &LoweringError{
		Kind: ErrUnexpectedIterCall,
		Tag:  tag,
		Pos:  n.Pos(),
		Msg:  "iter's embedded node must be a call",
	}
}

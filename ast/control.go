package ast

import "strings"

// ArrayNode is an array literal; each Items entry is lowered in order.
type ArrayNode struct {
	Position
	Items []Node
}

func (*ArrayNode) Tag() string { return "array" }
func (a *ArrayNode) String() string {
	var parts []string
	for _, it := range a.Items {
		parts = append(parts, it.String())
	}
	return "(array " + strings.Join(parts, " ") + ")"
}

// HashNode is a hash literal; Items alternates key, value, key, value, ...
// and must therefore have an even length (enforced by the compiler, which
// reports OddHashItems otherwise).
type HashNode struct {
	Position
	Items []Node
}

func (*HashNode) Tag() string { return "hash" }
func (h *HashNode) String() string {
	var parts []string
	for _, it := range h.Items {
		parts = append(parts, it.String())
	}
	return "(hash " + strings.Join(parts, " ") + ")"
}

// Dot2 is an inclusive range expression (`a..b`).
type Dot2 struct {
	Position
	Begin, End Node
}

func (*Dot2) Tag() string { return "dot2" }
func (d *Dot2) String() string {
	return "(dot2 " + nodeOrNil(d.Begin) + " " + nodeOrNil(d.End) + ")"
}

// Dot3 is an exclusive range expression (`a...b`).
type Dot3 struct {
	Position
	Begin, End Node
}

func (*Dot3) Tag() string { return "dot3" }
func (d *Dot3) String() string {
	return "(dot3 " + nodeOrNil(d.Begin) + " " + nodeOrNil(d.End) + ")"
}

func nodeOrNil(n Node) string {
	if n == nil {
		return "nil"
	}
	return n.String()
}

// And is short-circuit logical and.
type And struct {
	Position
	Lhs, Rhs Node
}

func (*And) Tag() string     { return "and" }
func (a *And) String() string { return "(and " + a.Lhs.String() + " " + a.Rhs.String() + ")" }

// Or is short-circuit logical or.
type Or struct {
	Position
	Lhs, Rhs Node
}

func (*Or) Tag() string     { return "or" }
func (o *Or) String() string { return "(or " + o.Lhs.String() + " " + o.Rhs.String() + ")" }

// If is a conditional expression. Then and Else may be nil, meaning the
// branch is absent (the compiler lowers an absent branch as `nil`).
type If struct {
	Position
	Cond, Then, Else Node
}

func (*If) Tag() string { return "if" }
func (i *If) String() string {
	return "(if " + i.Cond.String() + " " + nodeOrNil(i.Then) + " " + nodeOrNil(i.Else) + ")"
}

// When is one branch of a Case: Options is the (possibly multi-element)
// list of pattern expressions, Body is the branch's value.
type When struct {
	Position
	Options []Node
	Body    Node
}

func (*When) Tag() string { return "when" }
func (w *When) String() string {
	var parts []string
	for _, o := range w.Options {
		parts = append(parts, o.String())
	}
	return "(when (" + strings.Join(parts, " ") + ") " + nodeOrNil(w.Body) + ")"
}

// Case is a pattern-matching conditional. Subject is nil for the
// subject-less form, in which each When's options are folded into a
// chained `or`/`if` ladder instead of tested against a scrutinee via `===`.
type Case struct {
	Position
	Subject Node
	Whens   []*When
	Else    Node
}

func (*Case) Tag() string { return "case" }
func (c *Case) String() string {
	var parts []string
	for _, w := range c.Whens {
		parts = append(parts, w.String())
	}
	return "(case " + nodeOrNil(c.Subject) + " " + strings.Join(parts, " ") + " " + nodeOrNil(c.Else) + ")"
}

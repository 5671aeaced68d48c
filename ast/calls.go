package ast

import "strings"

// Call is a method call. Receiver is nil for an implicit-self call
// (`puts(x)`). WithBlock is true only for the Call embedded in an
// enclosing Iter — a bare `call` standing on its own never carries a
// block, so the parser always builds those with WithBlock false.
type Call struct {
	Position
	Receiver  Node
	Message   string
	Args      []Node
	WithBlock bool
}

func (*Call) Tag() string { return "call" }
func (c *Call) String() string {
	var parts []string
	for _, a := range c.Args {
		parts = append(parts, a.String())
	}
	return "(call " + nodeOrNil(c.Receiver) + " " + c.Message + " " + strings.Join(parts, " ") + ")"
}

// Iter is a block-form call: a Call whose invocation is wrapped with a
// block literal (`xs.each { |x| ... }`). Call must be a *Call; the
// compiler reports UnexpectedIterCall otherwise.
type Iter struct {
	Position
	Call Node
	Args *Args
	Body Node
}

func (*Iter) Tag() string { return "iter" }
func (i *Iter) String() string {
	return "(iter " + i.Call.String() + " " + i.Args.String() + " " + nodeOrNil(i.Body) + ")"
}

// Yield invokes the block passed to the enclosing method.
type Yield struct {
	Position
	Args []Node
}

func (*Yield) Tag() string { return "yield" }
func (y *Yield) String() string {
	var parts []string
	for _, a := range y.Args {
		parts = append(parts, a.String())
	}
	return "(yield " + strings.Join(parts, " ") + ")"
}

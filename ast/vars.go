package ast

import "fmt"

// LVar is a local variable read.
type LVar struct {
	Position
	Name string
}

func (*LVar) Tag() string     { return "lvar" }
func (v *LVar) String() string { return "(lvar " + v.Name + ")" }

// IVar is an instance variable read.
type IVar struct {
	Position
	Name string
}

func (*IVar) Tag() string     { return "ivar" }
func (v *IVar) String() string { return "(ivar " + v.Name + ")" }

// GVar is a global variable read.
type GVar struct {
	Position
	Name string
}

func (*GVar) Tag() string     { return "gvar" }
func (v *GVar) String() string { return "(gvar " + v.Name + ")" }

// Const is a current-scope constant reference (e.g. `Foo`).
type Const struct {
	Position
	Name string
}

func (*Const) Tag() string     { return "const" }
func (c *Const) String() string { return "(const " + c.Name + ")" }

// Colon2 is a namespaced constant reference (e.g. `Foo::Bar`): Namespace is
// an expression, Name is the trailing constant name.
type Colon2 struct {
	Position
	Namespace Node
	Name      string
}

func (*Colon2) Tag() string { return "colon2" }
func (c *Colon2) String() string {
	return fmt.Sprintf("(colon2 %s %s)", c.Namespace.String(), c.Name)
}

// Colon3 is an absolute root-namespace constant reference (e.g. `::Foo`).
type Colon3 struct {
	Position
	Name string
}

func (*Colon3) Tag() string     { return "colon3" }
func (c *Colon3) String() string { return "(colon3 " + c.Name + ")" }

// LAsgn assigns to a local variable.
type LAsgn struct {
	Position
	Name  string
	Value Node
}

func (*LAsgn) Tag() string { return "lasgn" }
func (a *LAsgn) String() string {
	return fmt.Sprintf("(lasgn %s %s)", a.Name, a.Value.String())
}

// IAsgn assigns to an instance variable.
type IAsgn struct {
	Position
	Name  string
	Value Node
}

func (*IAsgn) Tag() string { return "iasgn" }
func (a *IAsgn) String() string {
	return fmt.Sprintf("(iasgn %s %s)", a.Name, a.Value.String())
}

// GAsgn assigns to a global variable.
type GAsgn struct {
	Position
	Name  string
	Value Node
}

func (*GAsgn) Tag() string { return "gasgn" }
func (a *GAsgn) String() string {
	return fmt.Sprintf("(gasgn %s %s)", a.Name, a.Value.String())
}

// CDecl declares (assigns to) a constant. Name is either a bare atomic
// symbol, a *Colon2, or a *Colon3 — resolved by the compiler's
// constant-owner helper.
type CDecl struct {
	Position
	Name  Node
	Value Node
}

func (*CDecl) Tag() string { return "cdecl" }
func (c *CDecl) String() string {
	return fmt.Sprintf("(cdecl %s %s)", c.Name.String(), c.Value.String())
}

// Atom is a bare atomic symbol used as a name in contexts where a plain
// identifier (not a full expression) is expected, such as the Name field
// of a current-scope CDecl. It is not itself lowered as an expression.
type Atom struct {
	Position
	Name string
}

func (*Atom) Tag() string     { return "atom" }
func (a *Atom) String() string { return a.Name }

package ast

import "strings"

// Defn is a method definition.
type Defn struct {
	Position
	Name string
	Args *Args
	Body []Node
}

func (*Defn) Tag() string { return "defn" }
func (d *Defn) String() string {
	var parts []string
	for _, s := range d.Body {
		parts = append(parts, s.String())
	}
	return "(defn " + d.Name + " " + d.Args.String() + " " + strings.Join(parts, " ") + ")"
}

// ClassNode is a class definition. Superclass is nil when the class has no
// explicit superclass (the compiler pushes the root Object class instead).
type ClassNode struct {
	Position
	Name       Node
	Superclass Node
	Body       []Node
}

func (*ClassNode) Tag() string { return "class" }
func (c *ClassNode) String() string {
	var parts []string
	for _, s := range c.Body {
		parts = append(parts, s.String())
	}
	return "(class " + c.Name.String() + " " + nodeOrNil(c.Superclass) + " " + strings.Join(parts, " ") + ")"
}

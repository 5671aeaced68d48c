package ast

import "strings"

// Param is one entry in a formal-parameter list. The compiler's
// argument-list lowering (§4.3) treats the list as "simple" only when every
// entry is a *SimpleParam; any *SplatParam, *OptParam, or
// *DestructureParam forces the "complex" binding path.
type Param interface {
	Node
	paramNode()
}

// SimpleParam is a bare positional parameter name.
type SimpleParam struct {
	Position
	Name string
}

func (*SimpleParam) Tag() string     { return "param" }
func (*SimpleParam) paramNode()      {}
func (p *SimpleParam) String() string { return p.Name }

// SplatParam collects remaining positional arguments (`*rest`). Name is
// "" for an anonymous splat used only to soak up extra arguments.
type SplatParam struct {
	Position
	Name string
}

func (*SplatParam) Tag() string { return "splat_param" }
func (*SplatParam) paramNode()  {}
func (p *SplatParam) String() string {
	return "*" + p.Name
}

// OptParam is a parameter with a default value (`x = 1`), evaluated only
// when the corresponding positional argument is absent.
type OptParam struct {
	Position
	Name    string
	Default Node
}

func (*OptParam) Tag() string { return "opt_param" }
func (*OptParam) paramNode()  {}
func (p *OptParam) String() string {
	return "(" + p.Name + " = " + p.Default.String() + ")"
}

// DestructureParam is a nested parameter group (`(a, (b, c))`), bound by
// unpacking the corresponding positional argument as an array.
type DestructureParam struct {
	Position
	Params []Param
}

func (*DestructureParam) Tag() string { return "destructure_param" }
func (*DestructureParam) paramNode()  {}
func (p *DestructureParam) String() string {
	var parts []string
	for _, c := range p.Params {
		parts = append(parts, c.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Args is a formal-parameter list, shared by Defn and Iter (spec.md §9
// leaves `block_args` vs `defn_args` undifferentiated; this repo follows
// that direction and uses one type for both).
type Args struct {
	Position
	Params []Param
}

func (*Args) Tag() string { return "args" }
func (a *Args) String() string {
	var parts []string
	for _, p := range a.Params {
		parts = append(parts, p.String())
	}
	return "(args " + strings.Join(parts, " ") + ")"
}

// Simple reports whether every parameter is a bare *SimpleParam, i.e. the
// "simple case" of §4.3 applies.
func (a *Args) Simple() bool {
	for _, p := range a.Params {
		if _, ok := p.(*SimpleParam); !ok {
			return false
		}
	}
	return true
}

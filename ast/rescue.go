package ast

import "strings"

// Resbody is one handler branch of a Rescue: ExceptionClasses are tested
// against the in-flight exception in source order, the first match wins.
// An empty ExceptionClasses list means the branch matches any exception
// (the bare `rescue` form). ExceptionVar is "" when the branch doesn't
// bind the exception to a name.
type Resbody struct {
	Position
	ExceptionClasses []Node
	ExceptionVar     string
	Body             Node
}

func (*Resbody) Tag() string { return "resbody" }
func (r *Resbody) String() string {
	var parts []string
	for _, c := range r.ExceptionClasses {
		parts = append(parts, c.String())
	}
	return "(resbody (" + strings.Join(parts, " ") + ") " + r.ExceptionVar + " " + nodeOrNil(r.Body) + ")"
}

// Rescue is a guarded region: Body runs protected, Handlers are attempted
// in order on exception, Else runs only when Body completes without
// raising.
type Rescue struct {
	Position
	Body     Node
	Handlers []*Resbody
	Else     Node
}

func (*Rescue) Tag() string { return "rescue" }
func (r *Rescue) String() string {
	var parts []string
	for _, h := range r.Handlers {
		parts = append(parts, h.String())
	}
	return "(rescue " + nodeOrNil(r.Body) + " " + strings.Join(parts, " ") + " " + nodeOrNil(r.Else) + ")"
}

// Ensure wraps Body (often a *Rescue, sometimes a bare body) so that
// Always runs unconditionally on every exit path from Body, exceptional or
// not.
type Ensure struct {
	Position
	Body   Node
	Always Node
}

func (*Ensure) Tag() string { return "ensure" }
func (e *Ensure) String() string {
	return "(ensure " + nodeOrNil(e.Body) + " " + nodeOrNil(e.Always) + ")"
}

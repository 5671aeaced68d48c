package compiler

import (
	"github.com/dr8co/loom/ast"
	"github.com/dr8co/loom/ir"
)

// lowerRescue implements §4.5's guarded region as a single RescueGuard
// branching scope: the then-side is the protected body (followed by the
// else clause, if any, which replaces the body's own value when no
// exception was raised); the else-side is the handler-dispatch ladder
// built by lowerHandlerLadder. Both sides are lowered to leave the same
// net height so ir.Simulate's branch-balance check holds, matching
// DESIGN.md's Open Question 1 resolution.
func (c *Compiler) lowerRescue(v *ast.Rescue, used bool) (ir.Sequence, error) {
	var seq ir.Sequence
	seq = append(seq, c.open(ir.ScopeRescue))

	bodyUsed := used
	if v.Else != nil {
		bodyUsed = false
	}
	body, err := c.lower(v.Body, bodyUsed)
	if err != nil {
		return nil, err
	}
	seq = append(seq, body...)

	if v.Else != nil {
		els, err := c.lower(v.Else, used)
		if err != nil {
			return nil, err
		}
		seq = append(seq, els...)
	}

	seq = append(seq, c.elseTag(ir.ScopeRescue))

	ladder, err := c.lowerHandlerLadder(v.Handlers, used)
	if err != nil {
		return nil, err
	}
	seq = append(seq, ladder...)

	seq = append(seq, c.close(ir.ScopeRescue))
	return seq, nil
}

// lowerHandlerLadder builds the exception-path side of a rescue region: a
// nested if-chain testing each handler's exception classes against the
// in-flight exception in source order, the first match winning.
//
// ExceptionVar binding is left to the runtime's own handler-entry
// convention: this instruction set has no primitive that fetches the
// in-flight exception value, so there is nothing for a VariableSet to
// bind here (see DESIGN.md). The ladder's terminal case (no handler
// matches) never actually executes — the exception propagates out of the
// region instead — but it still emits a used-shaped placeholder so the
// region's two sides stay height-balanced under ir.Simulate.
func (c *Compiler) lowerHandlerLadder(handlers []*ast.Resbody, used bool) (ir.Sequence, error) {
	if len(handlers) == 0 {
		return pureProducer(used, ir.PushNil{}), nil
	}

	h := handlers[0]
	var seq ir.Sequence
	for _, cls := range h.ExceptionClasses {
		s, err := c.lower(cls, true)
		if err != nil {
			return nil, err
		}
		seq = append(seq, s...)
	}
	seq = append(seq, ir.RescueMatch{ClassCount: len(h.ExceptionClasses)})
	seq = append(seq, c.open(ir.ScopeIf))

	body, err := c.lowerBranch(h.Body, used)
	if err != nil {
		return nil, err
	}
	seq = append(seq, body...)
	seq = append(seq, c.elseTag(ir.ScopeIf))

	rest, err := c.lowerHandlerLadder(handlers[1:], used)
	if err != nil {
		return nil, err
	}
	seq = append(seq, rest...)
	seq = append(seq, c.close(ir.ScopeIf))
	return seq, nil
}

// lowerEnsure wraps the protected body in an EnsureGuard scope (no Else:
// there is only one path through an ensure region's body as far as this
// pass models it) and always lowers Always with used=false afterward —
// its value is discarded in Ruby's own ensure semantics, run purely for
// side effects.
func (c *Compiler) lowerEnsure(v *ast.Ensure, used bool) (ir.Sequence, error) {
	var seq ir.Sequence
	seq = append(seq, c.open(ir.ScopeEnsure))

	body, err := c.lower(v.Body, used)
	if err != nil {
		return nil, err
	}
	seq = append(seq, body...)
	seq = append(seq, c.close(ir.ScopeEnsure))

	always, err := c.lower(v.Always, false)
	if err != nil {
		return nil, err
	}
	return append(seq, always...), nil
}

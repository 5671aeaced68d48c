package compiler

import (
	"github.com/dr8co/loom/ast"
	"github.com/dr8co/loom/ir"
)

// lowerArgs implements §4.3's formal-parameter lowering. used=false (a
// block or method with no parameter list worth binding) emits nothing.
//
// Simple case: every parameter is a bare *ast.SimpleParam, so each one
// binds straight off its positional slot with PushArg+VariableSet.
//
// Complex case: at least one *ast.SplatParam, *ast.OptParam, or
// *ast.DestructureParam is present, so the whole argument list is pushed
// as a single array (PushArgs) and bound by bindParamGroup, which fully
// consumes it.
func (c *Compiler) lowerArgs(args *ast.Args, used bool) (ir.Sequence, error) {
	if !used || args == nil || len(args.Params) == 0 {
		return nil, nil
	}

	if args.Simple() {
		var seq ir.Sequence
		for i, p := range args.Params {
			sp := p.(*ast.SimpleParam)
			seq = append(seq, ir.PushArg{Index: i}, ir.VariableSet{Name: sp.Name, LocalOnly: true})
		}
		return seq, nil
	}

	seq := ir.Sequence{ir.PushArgs{}}
	bound, err := c.bindParamGroup(args.Params)
	if err != nil {
		return nil, err
	}
	return append(seq, bound...), nil
}

// bindParamGroup assumes a single array value already sits on top of the
// operand stack and fully consumes it, binding every parameter's slot in
// order. Each entry's fetch leaves the array undisturbed underneath, so
// the group's own final Pop is the only place the array itself is
// discarded — letting a *ast.DestructureParam recurse into this same
// function against its freshly-fetched element.
func (c *Compiler) bindParamGroup(params []ast.Param) (ir.Sequence, error) {
	var seq ir.Sequence
	for i, p := range params {
		switch v := p.(type) {
		case *ast.SplatParam:
			s, err := c.bindSplat(i, v.Name)
			if err != nil {
				return nil, err
			}
			seq = append(seq, s...)
		default:
			fetch := c.fetchPositional(i)
			seq = append(seq, fetch...)

			bound, err := c.bindFetchedValue(p)
			if err != nil {
				return nil, err
			}
			seq = append(seq, bound...)
		}
	}
	return append(seq, ir.Pop{}), nil
}

// fetchPositional extracts the element at index i from the array sitting
// on top of the stack (a Send to "[]"), leaving the array itself
// untouched beneath the fetched value. It reuses the same
// duplicate-the-receiver-without-consuming-it shape `case`'s subject test
// uses: push the index, PushArgc(1), DupRel(2) to duplicate the array
// two slots below the freshly pushed argc, then Send.
func (c *Compiler) fetchPositional(index int) ir.Sequence {
	return ir.Sequence{
		ir.PushInt{Value: int64(index)},
		ir.PushArgc{Count: 1},
		ir.DupRel{Depth: 2},
		ir.Send{Message: "[]"},
	}
}

// bindSplat extracts params[index:] as a sub-array (built from an
// open-ended range, the same Begin/End-nilable shape dot2/dot3 use for an
// absent bound) and binds or discards it.
func (c *Compiler) bindSplat(index int, name string) (ir.Sequence, error) {
	seq := ir.Sequence{
		ir.PushNil{},
		ir.PushInt{Value: int64(index)},
		ir.PushRange{ExcludeEnd: false},
		ir.PushArgc{Count: 1},
		ir.DupRel{Depth: 2},
		ir.Send{Message: "[]"},
	}
	if name == "" {
		return append(seq, ir.Pop{}), nil
	}
	return append(seq, ir.VariableSet{Name: name, LocalOnly: true}), nil
}

// bindFetchedValue binds a single already-fetched element (sitting on top
// of the stack) to its parameter, for every kind but *ast.SplatParam
// (handled by bindSplat, since a splat fetches a slice rather than a
// single element).
func (c *Compiler) bindFetchedValue(p ast.Param) (ir.Sequence, error) {
	switch v := p.(type) {
	case *ast.SimpleParam:
		return ir.Sequence{ir.VariableSet{Name: v.Name, LocalOnly: true}}, nil

	case *ast.OptParam:
		return c.bindOptParam(v)

	case *ast.DestructureParam:
		return c.bindParamGroup(v.Params)

	default:
		return nil, unknownConstruct(p)
	}
}

// bindOptParam binds the fetched element, substituting the default when
// the element is absent (nil). Both branches leave exactly the bound
// value on the stack.
func (c *Compiler) bindOptParam(v *ast.OptParam) (ir.Sequence, error) {
	var seq ir.Sequence
	seq = append(seq, ir.PushArgc{Count: 0}, ir.DupRel{Depth: 1}, ir.Send{Message: "nil?"})
	seq = append(seq, c.open(ir.ScopeIf))

	seq = append(seq, ir.Pop{})
	def, err := c.lower(v.Default, true)
	if err != nil {
		return nil, err
	}
	seq = append(seq, def...)

	seq = append(seq, c.elseTag(ir.ScopeIf))
	seq = append(seq, c.close(ir.ScopeIf))
	seq = append(seq, ir.VariableSet{Name: v.Name, LocalOnly: true})
	return seq, nil
}

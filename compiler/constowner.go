package compiler

import (
	"github.com/dr8co/loom/ast"
	"github.com/dr8co/loom/ir"
)

// constOwner resolves a constant-defining construct's name slot (§4.6):
// it returns the leaf name to assign or look up, and the instructions that
// push the owner the name is resolved against onto the stack.
//
//   - a bare atom (current-scope constant)  -> (name, [PushSelf])
//   - *ast.Colon2(namespace, name)          -> (name, lower(namespace, used=true))
//   - *ast.Colon3(name)                     -> (name, [PushObjectClass])
func (c *Compiler) constOwner(pos ast.Position, n ast.Node) (string, ir.Sequence, error) {
	switch v := n.(type) {
	case *ast.Atom:
		return v.Name, ir.Sequence{ir.PushSelf{}}, nil
	case *ast.Colon2:
		prep, err := c.lower(v.Namespace, true)
		if err != nil {
			return "", nil, err
		}
		return v.Name, prep, nil
	case *ast.Colon3:
		return v.Name, ir.Sequence{ir.PushObjectClass{}}, nil
	default:
		return "", nil, unknownConstantName(pos, n)
	}
}

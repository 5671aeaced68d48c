package compiler

import (
	"fmt"

	"github.com/dr8co/loom/ir"
)

// scopeStack tracks the LIFO nesting of structured scope markers while the
// compiler emits them, so a mismatched Else/End is caught at the point of
// emission instead of only later by ir.Verify. It plays the role the
// teacher's SymbolTable Outer-pointer chain played for nested lexical
// scopes, but tracks scope *tags*, not variable bindings: this pass never
// resolves a variable to a storage slot (§3 of the lowering spec — kind is
// decided by AST tag alone), so there is no symbol table here.
type scopeStack struct {
	tags []ir.ScopeTag
}

// open pushes a newly-opened scope tag.
func (s *scopeStack) open(tag ir.ScopeTag) {
	s.tags = append(s.tags, tag)
}

// close pops the innermost scope, panicking if it doesn't match tag. A
// mismatch here means the compiler itself emitted an unbalanced sequence,
// which is a bug in this package, not a malformed input.
func (s *scopeStack) close(tag ir.ScopeTag) {
	if len(s.tags) == 0 || s.tags[len(s.tags)-1] != tag {
		panic(fmt.Sprintf("compiler: scope stack mismatch closing %q: %v", tag, s.tags))
	}
	s.tags = s.tags[:len(s.tags)-1]
}

// depth reports how many scopes are currently open.
func (s *scopeStack) depth() int {
	return len(s.tags)
}

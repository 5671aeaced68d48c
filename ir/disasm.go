package ir

import (
	"fmt"
	"strings"
)

// String renders the sequence as one instruction per line, prefixed with
// its index, mirroring the teacher's code.Instructions.String() layout.
func (s Sequence) String() string {
	var out strings.Builder
	for i, instr := range s {
		fmt.Fprintf(&out, "%04d %s\n", i, instr.String())
	}
	return out.String()
}

package ir

import "fmt"

// scopeFrame tracks one open structured-control region while Simulate
// walks a sequence.
//
// Two shapes of scope exist:
//   - Branching (If, RescueGuard, EnsureGuard): the region's body runs on
//     the same operand stack as its surroundings, and when the region has
//     an Else its two sides are mutually exclusive alternatives, not a
//     pair of blocks that both run. Simulate resets height back to
//     entryHeight at Else so the else-side is measured against the same
//     baseline as the then-side, and checks at End that both sides
//     reached the same height — a mismatch means the two branches leave
//     different numbers of values behind, an unsound emission.
//   - Nested (DefineMethod, DefineBlock, DefineClass): the region's body
//     is compiled for a separate invocation (a method or block call, a
//     class body run once at definition time) and never merges its stack
//     with the surrounding sequence. Simulate saves the outer height,
//     resets to 0 for the body, and restores the saved height verbatim at
//     End — these constructs have zero net effect on the enclosing stack
//     by construction.
type scopeFrame struct {
	tag         ScopeTag
	nested      bool
	entryHeight int // branching: height right after the opening instruction's own pop
	savedHeight int // nested: outer height stashed while the body simulates from 0
	sawElse     bool
	thenHeight  int
}

// Simulate walks a sequence and returns the net operand-stack height
// change, checking that the stack never underflows and that every
// branching scope's two sides leave matching heights. Each Send and Yield
// takes its argument count from the most recent PushArgc not already
// claimed by another Send or Yield, so a call whose receiver is itself a
// call (lowered between the outer PushArgc and the outer Send) is counted
// correctly. A Send or Yield with no pending PushArgc counts 0 arguments.
// This is the tool behind testable property 1 (spec.md §8).
func Simulate(seq Sequence) (int, error) {
	height := 0
	var argcs []int // pending PushArgc counts, innermost last
	var stack []*scopeFrame

	popArgc := func() int {
		if len(argcs) == 0 {
			return 0
		}
		n := argcs[len(argcs)-1]
		argcs = argcs[:len(argcs)-1]
		return n
	}

	pop := func(i int, n int) error {
		if height < n {
			return fmt.Errorf("instruction %d (%s): stack underflow, height=%d need=%d", i, seq[i].String(), height, n)
		}
		height -= n
		return nil
	}

	top := func() *scopeFrame {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	openBranch := func(tag ScopeTag) {
		stack = append(stack, &scopeFrame{tag: tag, entryHeight: height})
	}
	openNested := func(tag ScopeTag) {
		stack = append(stack, &scopeFrame{tag: tag, nested: true, savedHeight: height})
		height = 0
	}

	for i, instr := range seq {
		switch v := instr.(type) {
		case PushInt, PushFloat, PushSymbol, PushString,
			PushTrue, PushFalse, PushNil, PushSelf, PushObjectClass,
			PushArg, PushArgs,
			VariableGet, InstanceVariableGet, GlobalVariableGet, Dup:
			height++

		case PushArgc:
			argcs = append(argcs, v.Count)
			height++

		case DupRel:
			height++

		case CreateArray:
			if err := pop(i, v.Count); err != nil {
				return 0, err
			}
			height++

		case CreateHash:
			if err := pop(i, v.Count*2); err != nil {
				return 0, err
			}
			height++

		case PushRange:
			if err := pop(i, 2); err != nil {
				return 0, err
			}
			height++

		case Swap:
			if err := pop(i, 2); err != nil {
				return 0, err
			}
			height += 2

		case Pop:
			if err := pop(i, 1); err != nil {
				return 0, err
			}

		case VariableSet, InstanceVariableSet, GlobalVariableSet:
			if err := pop(i, 1); err != nil {
				return 0, err
			}

		case ConstFind:
			if err := pop(i, 1); err != nil {
				return 0, err
			}
			height++

		case ConstSet:
			if err := pop(i, 2); err != nil {
				return 0, err
			}

		case Send:
			if err := pop(i, popArgc()+2); err != nil {
				return 0, err
			}
			height++

		case Yield:
			if err := pop(i, popArgc()+1); err != nil {
				return 0, err
			}
			height++

		case If:
			if err := pop(i, 1); err != nil {
				return 0, err
			}
			openBranch(ScopeIf)

		case RescueMatch:
			if err := pop(i, v.ClassCount); err != nil {
				return 0, err
			}
			height++

		case RescueGuard:
			openBranch(ScopeRescue)

		case EnsureGuard:
			openBranch(ScopeEnsure)

		case DefineMethod:
			openNested(ScopeDefineMethod)

		case DefineBlock:
			openNested(ScopeDefineBlock)

		case DefineClass:
			openNested(ScopeDefineClass)

		case Else:
			f := top()
			if f == nil || f.tag != v.Scope {
				return 0, fmt.Errorf("instruction %d: Else(%s) without a matching open scope", i, v.Scope)
			}
			if f.nested {
				return 0, fmt.Errorf("instruction %d: Else(%s) inside a nested definition scope", i, v.Scope)
			}
			f.sawElse = true
			f.thenHeight = height
			height = f.entryHeight

		case End:
			f := top()
			if f == nil || f.tag != v.Scope {
				return 0, fmt.Errorf("instruction %d: End(%s) without a matching open scope", i, v.Scope)
			}
			stack = stack[:len(stack)-1]
			if f.nested {
				height = f.savedHeight
				continue
			}
			if f.sawElse && height != f.thenHeight {
				return 0, fmt.Errorf("instruction %d: End(%s) branch height mismatch: then=%d else=%d", i, v.Scope, f.thenHeight, height)
			}

		default:
			return 0, fmt.Errorf("instruction %d: unsimulated instruction %T", i, instr)
		}
	}

	if len(stack) != 0 {
		return 0, fmt.Errorf("unclosed scope(s) at end of sequence: %d open", len(stack))
	}

	return height, nil
}

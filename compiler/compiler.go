// Package compiler implements the AST-to-IR lowering pass: it turns a
// tagged-S-expression AST (package ast) into a flat stack-machine
// instruction stream (package ir).
//
// The pass is a recursive tree transformation dispatched by node tag
// (Compiler.lower). Every transform takes a `used` flag declaring whether
// its caller consumes the resulting value; pure producers elide entirely
// when unused, impure expressions still run but get a trailing Pop. The
// pass holds no state across calls to Lower beyond the scope-nesting
// bookkeeping of a single invocation, so independent calls never
// interfere with one another.
//
// Key components:
//   - Lower: the package's single entry point, requiring a *ast.Block root
//   - Compiler.lower: the per-tag dispatcher (§4.1 of the lowering design)
//   - args.go: formal-parameter-list lowering (§4.3)
//   - rescue.go: exception-handling region lowering (§4.5)
//   - constowner.go: constant-owner resolution (§4.6)
//   - errors.go: the structured failure taxonomy (§7)
package compiler

import (
	"github.com/dr8co/loom/ast"
	"github.com/dr8co/loom/ir"
)

// Compiler lowers one AST into one instruction sequence. It carries no
// state that survives past a single Lower call other than the in-flight
// scope-nesting stack, so a fresh Compiler per invocation (which Lower
// always creates) is free of cross-call interference.
type Compiler struct {
	scopes scopeStack
}

// New creates a Compiler ready to lower a single AST.
func New() *Compiler {
	return &Compiler{}
}

// Lower is the pass's entry point. The root node must be a *ast.Block;
// anything else fails with ErrUnexpectedRoot.
func Lower(root ast.Node, used bool) (ir.Sequence, error) {
	block, ok := root.(*ast.Block)
	if !ok {
		return nil, unexpectedRoot(root)
	}
	c := New()
	return c.lowerBlock(block, used)
}

// lower dispatches a node to its transform by concrete type, which
// corresponds 1:1 with its surface tag (§4.1). nil stands for a
// structurally absent node and lowers as a bare `nil` producer.
func (c *Compiler) lower(n ast.Node, used bool) (ir.Sequence, error) {
	switch v := n.(type) {
	case nil:
		return pureProducer(used, ir.PushNil{}), nil
	case *ast.Block:
		return c.lowerBlock(v, used)
	case *ast.Lit:
		return c.lowerLit(v, used)
	case *ast.Str:
		return pureProducer(used, ir.PushString{Value: v.Value, Len: v.ByteLen}), nil
	case *ast.True:
		return pureProducer(used, ir.PushTrue{}), nil
	case *ast.False:
		return pureProducer(used, ir.PushFalse{}), nil
	case *ast.Nil:
		return pureProducer(used, ir.PushNil{}), nil
	case *ast.Self:
		return pureProducer(used, ir.PushSelf{}), nil
	case *ast.LVar:
		return pureProducer(used, ir.VariableGet{Name: v.Name}), nil
	case *ast.IVar:
		return pureProducer(used, ir.InstanceVariableGet{Name: v.Name}), nil
	case *ast.GVar:
		return pureProducer(used, ir.GlobalVariableGet{Name: v.Name}), nil
	case *ast.Const:
		return c.lowerConst(v, used)
	case *ast.Colon2:
		return c.lowerColon2(v, used)
	case *ast.Colon3:
		return c.lowerColon3(v, used)
	case *ast.LAsgn:
		return c.lowerLAsgn(v, used)
	case *ast.IAsgn:
		return c.lowerIAsgn(v, used)
	case *ast.GAsgn:
		return c.lowerGAsgn(v, used)
	case *ast.CDecl:
		return c.lowerCDecl(v, used)
	case *ast.ArrayNode:
		return c.lowerArray(v, used)
	case *ast.HashNode:
		return c.lowerHash(v, used)
	case *ast.Dot2:
		return c.lowerDot(v.Begin, v.End, false, used)
	case *ast.Dot3:
		return c.lowerDot(v.Begin, v.End, true, used)
	case *ast.And:
		return c.lowerAnd(v, used)
	case *ast.Or:
		return c.lowerOr(v, used)
	case *ast.If:
		return c.lowerIf(v, used)
	case *ast.Case:
		return c.lowerCase(v, used)
	case *ast.Call:
		return c.lowerCall(v, used, v.WithBlock)
	case *ast.Iter:
		return c.lowerIter(v, used)
	case *ast.Yield:
		return c.lowerYield(v, used)
	case *ast.Defn:
		return c.lowerDefn(v, used)
	case *ast.ClassNode:
		return c.lowerClass(v, used)
	case *ast.Rescue:
		return c.lowerRescue(v, used)
	case *ast.Ensure:
		return c.lowerEnsure(v, used)
	default:
		return nil, unknownConstruct(n)
	}
}

// pureProducer renders the fixed-cost pure producers: PushTrue, PushFalse,
// PushNil, PushSelf, and the variable-read family. used=false elides them
// entirely (§3's pure-producer rule).
func pureProducer(used bool, instr ir.Instruction) ir.Sequence {
	if !used {
		return nil
	}
	return ir.Sequence{instr}
}

// maybePop appends a trailing Pop when the construct's value is unused.
// Used by every transform whose underlying evaluation always runs
// (side effects, or values needed mid-computation) regardless of whether
// the caller wants the final result.
func maybePop(seq ir.Sequence, used bool) ir.Sequence {
	if used {
		return seq
	}
	return append(seq, ir.Pop{})
}

// lowerOrNil lowers n with used=true, substituting a bare PushNil when n
// is the absent sentinel. Used where an absent slot is always evaluated
// regardless of the enclosing construct's own used flag (dot2/dot3 and
// range-literal endpoints: their surrounding construct already applies
// its own used-based Pop once, over the whole emission).
func (c *Compiler) lowerOrNil(n ast.Node) (ir.Sequence, error) {
	if n == nil {
		return ir.Sequence{ir.PushNil{}}, nil
	}
	return c.lower(n, true)
}

// lowerBranch lowers a possibly-absent branch with the given used flag,
// substituting PushNil (or nothing, if used is false) when absent. Used
// for if/case branches and iter/defn bodies, where the absent substitute
// should respect the caller's own used flag rather than always being
// materialized.
func (c *Compiler) lowerBranch(n ast.Node, used bool) (ir.Sequence, error) {
	if n == nil {
		return pureProducer(used, ir.PushNil{}), nil
	}
	return c.lower(n, used)
}

// lowerBody implements the last-expression-is-used discipline (§4.4): all
// but the last statement are lowered with used=false, the last inherits
// the body's own used flag. An empty body lowers as a bare nil.
func (c *Compiler) lowerBody(body []ast.Node, used bool) (ir.Sequence, error) {
	if len(body) == 0 {
		return c.lowerBranch(nil, used)
	}
	var seq ir.Sequence
	for _, stmt := range body[:len(body)-1] {
		s, err := c.lower(stmt, false)
		if err != nil {
			return nil, err
		}
		seq = append(seq, s...)
	}
	last, err := c.lower(body[len(body)-1], used)
	if err != nil {
		return nil, err
	}
	return append(seq, last...), nil
}

func (c *Compiler) lowerBlock(v *ast.Block, used bool) (ir.Sequence, error) {
	return c.lowerBody(v.Body, used)
}

// --- `if`-scoped structured-control helpers, shared by and/or/if/case ---

func (c *Compiler) open(tag ir.ScopeTag) ir.Instruction {
	c.scopes.open(tag)
	switch tag {
	case ir.ScopeIf:
		return ir.If{}
	case ir.ScopeRescue:
		return ir.RescueGuard{}
	case ir.ScopeEnsure:
		return ir.EnsureGuard{}
	default:
		panic("compiler: scope tag " + string(tag) + " has no bare opening instruction")
	}
}

func (c *Compiler) elseTag(tag ir.ScopeTag) ir.Instruction {
	return ir.Else{Scope: tag}
}

func (c *Compiler) close(tag ir.ScopeTag) ir.Instruction {
	c.scopes.close(tag)
	return ir.End{Scope: tag}
}

// --- pure producers with a side payload ---

func (c *Compiler) lowerLit(v *ast.Lit, used bool) (ir.Sequence, error) {
	switch lit := v.Value.(type) {
	case ast.IntLit:
		return pureProducer(used, ir.PushInt{Value: lit.Value}), nil
	case ast.FloatLit:
		return pureProducer(used, ir.PushFloat{Value: lit.Value}), nil
	case ast.SymbolLit:
		return pureProducer(used, ir.PushSymbol{Name: lit.Name}), nil
	case ast.RangeLit:
		if !used {
			return nil, nil
		}
		endSeq, err := c.lowerOrNil(lit.End)
		if err != nil {
			return nil, err
		}
		beginSeq, err := c.lowerOrNil(lit.Begin)
		if err != nil {
			return nil, err
		}
		var seq ir.Sequence
		seq = append(seq, endSeq...)
		seq = append(seq, beginSeq...)
		seq = append(seq, ir.PushRange{ExcludeEnd: lit.ExcludeEnd})
		return seq, nil
	default:
		return nil, unknownLiteral(v)
	}
}

func (c *Compiler) lowerConst(v *ast.Const, used bool) (ir.Sequence, error) {
	if !used {
		return nil, nil
	}
	return ir.Sequence{ir.PushSelf{}, ir.ConstFind{Name: v.Name}}, nil
}

func (c *Compiler) lowerColon2(v *ast.Colon2, used bool) (ir.Sequence, error) {
	if !used {
		return nil, nil
	}
	ns, err := c.lower(v.Namespace, true)
	if err != nil {
		return nil, err
	}
	return append(ns, ir.ConstFind{Name: v.Name}), nil
}

func (c *Compiler) lowerColon3(v *ast.Colon3, used bool) (ir.Sequence, error) {
	if !used {
		return nil, nil
	}
	return ir.Sequence{ir.PushObjectClass{}, ir.ConstFind{Name: v.Name}}, nil
}

// --- assignments ---

func (c *Compiler) lowerLAsgn(v *ast.LAsgn, used bool) (ir.Sequence, error) {
	val, err := c.lower(v.Value, true)
	if err != nil {
		return nil, err
	}
	seq := append(ir.Sequence{}, val...)
	seq = append(seq, ir.VariableSet{Name: v.Name})
	if used {
		seq = append(seq, ir.VariableGet{Name: v.Name})
	}
	return seq, nil
}

func (c *Compiler) lowerIAsgn(v *ast.IAsgn, used bool) (ir.Sequence, error) {
	val, err := c.lower(v.Value, true)
	if err != nil {
		return nil, err
	}
	seq := append(ir.Sequence{}, val...)
	seq = append(seq, ir.InstanceVariableSet{Name: v.Name})
	if used {
		seq = append(seq, ir.InstanceVariableGet{Name: v.Name})
	}
	return seq, nil
}

func (c *Compiler) lowerGAsgn(v *ast.GAsgn, used bool) (ir.Sequence, error) {
	val, err := c.lower(v.Value, true)
	if err != nil {
		return nil, err
	}
	seq := append(ir.Sequence{}, val...)
	seq = append(seq, ir.GlobalVariableSet{Name: v.Name})
	if used {
		seq = append(seq, ir.GlobalVariableGet{Name: v.Name})
	}
	return seq, nil
}

// lowerCDecl lowers a constant declaration. The value is evaluated once;
// when used, a Dup keeps a copy alive across ConstSet (which consumes its
// operand), so the declared value remains the expression's result without
// needing a dedicated "peek" instruction.
func (c *Compiler) lowerCDecl(v *ast.CDecl, used bool) (ir.Sequence, error) {
	val, err := c.lower(v.Value, true)
	if err != nil {
		return nil, err
	}
	seq := append(ir.Sequence{}, val...)
	if used {
		seq = append(seq, ir.Dup{})
	}

	name, prep, err := c.constOwner(v.Pos(), v.Name)
	if err != nil {
		return nil, err
	}
	seq = append(seq, prep...)
	seq = append(seq, ir.ConstSet{Name: name})
	return seq, nil
}

// --- aggregates ---

func (c *Compiler) lowerArray(v *ast.ArrayNode, used bool) (ir.Sequence, error) {
	var seq ir.Sequence
	for _, item := range v.Items {
		s, err := c.lower(item, true)
		if err != nil {
			return nil, err
		}
		seq = append(seq, s...)
	}
	seq = append(seq, ir.CreateArray{Count: len(v.Items)})
	return maybePop(seq, used), nil
}

func (c *Compiler) lowerHash(v *ast.HashNode, used bool) (ir.Sequence, error) {
	if len(v.Items)%2 != 0 {
		return nil, oddHashItems(v)
	}
	var seq ir.Sequence
	for _, item := range v.Items {
		s, err := c.lower(item, true)
		if err != nil {
			return nil, err
		}
		seq = append(seq, s...)
	}
	seq = append(seq, ir.CreateHash{Count: len(v.Items) / 2})
	return maybePop(seq, used), nil
}

// --- range sugar ---

func (c *Compiler) lowerDot(begin, end ast.Node, excludeEnd, used bool) (ir.Sequence, error) {
	endSeq, err := c.lowerOrNil(end)
	if err != nil {
		return nil, err
	}
	beginSeq, err := c.lowerOrNil(begin)
	if err != nil {
		return nil, err
	}
	var seq ir.Sequence
	seq = append(seq, endSeq...)
	seq = append(seq, beginSeq...)
	seq = append(seq, ir.PushRange{ExcludeEnd: excludeEnd})
	return maybePop(seq, used), nil
}

// --- short-circuit ---

func (c *Compiler) lowerAnd(v *ast.And, used bool) (ir.Sequence, error) {
	lhs, err := c.lower(v.Lhs, true)
	if err != nil {
		return nil, err
	}
	rhs, err := c.lower(v.Rhs, true)
	if err != nil {
		return nil, err
	}

	var seq ir.Sequence
	seq = append(seq, lhs...)
	seq = append(seq, ir.Dup{}, c.open(ir.ScopeIf))
	seq = append(seq, ir.Pop{})
	seq = append(seq, rhs...)
	seq = append(seq, c.elseTag(ir.ScopeIf))
	seq = append(seq, c.close(ir.ScopeIf))
	return maybePop(seq, used), nil
}

func (c *Compiler) lowerOr(v *ast.Or, used bool) (ir.Sequence, error) {
	lhs, err := c.lower(v.Lhs, true)
	if err != nil {
		return nil, err
	}
	rhs, err := c.lower(v.Rhs, true)
	if err != nil {
		return nil, err
	}

	var seq ir.Sequence
	seq = append(seq, lhs...)
	seq = append(seq, ir.Dup{}, c.open(ir.ScopeIf))
	seq = append(seq, c.elseTag(ir.ScopeIf))
	seq = append(seq, ir.Pop{})
	seq = append(seq, rhs...)
	seq = append(seq, c.close(ir.ScopeIf))
	return maybePop(seq, used), nil
}

// --- conditionals ---

func (c *Compiler) lowerIf(v *ast.If, used bool) (ir.Sequence, error) {
	cond, err := c.lower(v.Cond, true)
	if err != nil {
		return nil, err
	}
	then, err := c.lowerBranch(v.Then, used)
	if err != nil {
		return nil, err
	}
	els, err := c.lowerBranch(v.Else, used)
	if err != nil {
		return nil, err
	}

	var seq ir.Sequence
	seq = append(seq, cond...)
	seq = append(seq, c.open(ir.ScopeIf))
	seq = append(seq, then...)
	seq = append(seq, c.elseTag(ir.ScopeIf))
	seq = append(seq, els...)
	seq = append(seq, c.close(ir.ScopeIf))
	return seq, nil
}

func (c *Compiler) lowerCase(v *ast.Case, used bool) (ir.Sequence, error) {
	if v.Subject != nil {
		return c.lowerCaseWithSubject(v, used)
	}
	return c.lowerWhenLadder(v.Whens, v.Else, used)
}

// lowerCaseWithSubject implements the subject-tested form of §4.2's
// `case` transform: the subject is evaluated once and kept on the stack
// as a scrutinee under each when's `===` test, then discarded with a
// Swap+Pop once a result has been selected.
func (c *Compiler) lowerCaseWithSubject(v *ast.Case, used bool) (ir.Sequence, error) {
	subject, err := c.lower(v.Subject, true)
	if err != nil {
		return nil, err
	}

	var seq ir.Sequence
	seq = append(seq, subject...)

	for _, w := range v.Whens {
		optSeq, err := c.lowerWhenOptions(w.Options)
		if err != nil {
			return nil, err
		}
		seq = append(seq, optSeq...)
		seq = append(seq, c.open(ir.ScopeIf))

		body, err := c.lowerBranch(w.Body, true)
		if err != nil {
			return nil, err
		}
		seq = append(seq, body...)
		seq = append(seq, c.elseTag(ir.ScopeIf))
	}

	els, err := c.lowerBranch(v.Else, true)
	if err != nil {
		return nil, err
	}
	seq = append(seq, els...)

	for range v.Whens {
		seq = append(seq, c.close(ir.ScopeIf))
	}

	seq = append(seq, ir.Swap{}, ir.Pop{})
	return maybePop(seq, used), nil
}

// lowerWhenOptions tests a when branch's (possibly multi-valued) options
// against the scrutinee sitting on the stack, leaving a single boolean
// result without disturbing the scrutinee underneath. Each option test is
// nested as the false-branch of the previous one, so a single batch of
// End(if) at the end closes every scope this loop opened, in the correct
// LIFO order.
func (c *Compiler) lowerWhenOptions(options []ast.Node) (ir.Sequence, error) {
	var seq ir.Sequence
	for _, opt := range options {
		optSeq, err := c.lower(opt, true)
		if err != nil {
			return nil, err
		}
		seq = append(seq, optSeq...)
		seq = append(seq, ir.PushArgc{Count: 1}, ir.DupRel{Depth: 2}, ir.Send{Message: "==="})
		seq = append(seq, c.open(ir.ScopeIf))
		seq = append(seq, ir.PushTrue{})
		seq = append(seq, c.elseTag(ir.ScopeIf))
	}
	seq = append(seq, ir.PushFalse{})
	for range options {
		seq = append(seq, c.close(ir.ScopeIf))
	}
	return seq, nil
}

// lowerWhenLadder implements the subject-less form of `case`: each when's
// options fold right-to-left into an `or`-shaped boolean test, and the
// whens chain into a nested if/else ladder terminated by the else branch.
func (c *Compiler) lowerWhenLadder(whens []*ast.When, els ast.Node, used bool) (ir.Sequence, error) {
	if len(whens) == 0 {
		return c.lowerBranch(els, used)
	}

	w := whens[0]
	cond, err := c.foldOptions(w.Options)
	if err != nil {
		return nil, err
	}

	var seq ir.Sequence
	seq = append(seq, cond...)
	seq = append(seq, c.open(ir.ScopeIf))

	body, err := c.lowerBranch(w.Body, used)
	if err != nil {
		return nil, err
	}
	seq = append(seq, body...)
	seq = append(seq, c.elseTag(ir.ScopeIf))

	rest, err := c.lowerWhenLadder(whens[1:], els, used)
	if err != nil {
		return nil, err
	}
	seq = append(seq, rest...)
	seq = append(seq, c.close(ir.ScopeIf))
	return seq, nil
}

// foldOptions folds a when's options right-to-left via `or` semantics
// (first truthy option wins), always with used=true since the result
// gates the ladder's If.
func (c *Compiler) foldOptions(options []ast.Node) (ir.Sequence, error) {
	if len(options) == 0 {
		return ir.Sequence{ir.PushFalse{}}, nil
	}

	seq, err := c.lower(options[len(options)-1], true)
	if err != nil {
		return nil, err
	}

	for i := len(options) - 2; i >= 0; i-- {
		lhs, err := c.lower(options[i], true)
		if err != nil {
			return nil, err
		}
		var folded ir.Sequence
		folded = append(folded, lhs...)
		folded = append(folded, ir.Dup{}, c.open(ir.ScopeIf))
		folded = append(folded, c.elseTag(ir.ScopeIf))
		folded = append(folded, ir.Pop{})
		folded = append(folded, seq...)
		folded = append(folded, c.close(ir.ScopeIf))
		seq = folded
	}
	return seq, nil
}

// --- calls and blocks ---

func (c *Compiler) lowerCall(v *ast.Call, used bool, withBlock bool) (ir.Sequence, error) {
	var seq ir.Sequence
	for _, a := range v.Args {
		s, err := c.lower(a, true)
		if err != nil {
			return nil, err
		}
		seq = append(seq, s...)
	}
	seq = append(seq, ir.PushArgc{Count: len(v.Args)})

	receiverIsSelf := v.Receiver == nil
	if receiverIsSelf {
		seq = append(seq, ir.PushSelf{})
	} else {
		r, err := c.lower(v.Receiver, true)
		if err != nil {
			return nil, err
		}
		seq = append(seq, r...)
	}

	seq = append(seq, ir.Send{Message: v.Message, ReceiverIsSelf: receiverIsSelf, WithBlock: withBlock})
	return maybePop(seq, used), nil
}

func (c *Compiler) lowerIter(v *ast.Iter, used bool) (ir.Sequence, error) {
	call, ok := v.Call.(*ast.Call)
	if !ok {
		return nil, unexpectedIterCall(v)
	}

	arity := 0
	if v.Args != nil {
		arity = len(v.Args.Params)
	}

	var seq ir.Sequence
	c.scopes.open(ir.ScopeDefineBlock)
	seq = append(seq, ir.DefineBlock{Arity: arity})

	formals, err := c.lowerArgs(v.Args, true)
	if err != nil {
		return nil, err
	}
	seq = append(seq, formals...)

	body, err := c.lowerBranch(v.Body, true)
	if err != nil {
		return nil, err
	}
	seq = append(seq, body...)
	seq = append(seq, c.close(ir.ScopeDefineBlock))

	callSeq, err := c.lowerCall(call, used, true)
	if err != nil {
		return nil, err
	}
	return append(seq, callSeq...), nil
}

func (c *Compiler) lowerYield(v *ast.Yield, used bool) (ir.Sequence, error) {
	var seq ir.Sequence
	for _, a := range v.Args {
		s, err := c.lower(a, true)
		if err != nil {
			return nil, err
		}
		seq = append(seq, s...)
	}
	seq = append(seq, ir.PushArgc{Count: len(v.Args)}, ir.Yield{})
	return maybePop(seq, used), nil
}

// --- definitions ---

// lowerDefn never produces a stack value of its own (defining a method has
// no expression result in this pass's model), so used only determines
// nothing here — there is never a value to pop.
func (c *Compiler) lowerDefn(v *ast.Defn, used bool) (ir.Sequence, error) {
	_ = used
	arity := 0
	if v.Args != nil {
		arity = len(v.Args.Params)
	}

	var seq ir.Sequence
	c.scopes.open(ir.ScopeDefineMethod)
	seq = append(seq, ir.DefineMethod{Name: v.Name, Arity: arity})

	formals, err := c.lowerArgs(v.Args, true)
	if err != nil {
		return nil, err
	}
	seq = append(seq, formals...)

	body, err := c.lowerBody(v.Body, true)
	if err != nil {
		return nil, err
	}
	seq = append(seq, body...)
	seq = append(seq, c.close(ir.ScopeDefineMethod))
	return seq, nil
}

// lowerClass, like lowerDefn, never leaves a value on the stack.
func (c *Compiler) lowerClass(v *ast.ClassNode, used bool) (ir.Sequence, error) {
	_ = used
	var seq ir.Sequence
	if v.Superclass != nil {
		sup, err := c.lower(v.Superclass, true)
		if err != nil {
			return nil, err
		}
		seq = append(seq, sup...)
	} else {
		seq = append(seq, ir.PushObjectClass{})
	}

	name, prep, err := c.constOwner(v.Pos(), v.Name)
	if err != nil {
		return nil, err
	}
	seq = append(seq, prep...)

	c.scopes.open(ir.ScopeDefineClass)
	seq = append(seq, ir.DefineClass{Name: name})

	body, err := c.lowerBody(v.Body, true)
	if err != nil {
		return nil, err
	}
	seq = append(seq, body...)
	seq = append(seq, c.close(ir.ScopeDefineClass))
	return seq, nil
}

package compiler_test

import (
	"sync"
	"testing"

	"github.com/dr8co/loom/ast"
	"github.com/dr8co/loom/compiler"
	"github.com/dr8co/loom/ir"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func block(body ...ast.Node) *ast.Block {
	return &ast.Block{Body: body}
}

func intLit(v int64) *ast.Lit {
	return &ast.Lit{Value: ast.IntLit{Value: v}}
}

func assertLowers(t *testing.T, root ast.Node, used bool, want ir.Sequence) {
	t.Helper()
	got, err := compiler.Lower(root, used)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lower(%s, used=%t) mismatch (-want +got):\n%s", root.String(), used, diff)
	}
}

// --- end-to-end scenarios (spec.md §8) ---

func TestEndToEnd_IntLiteralUsed(t *testing.T) {
	assertLowers(t, block(intLit(42)), true, ir.Sequence{ir.PushInt{Value: 42}})
}

func TestEndToEnd_IntLiteralUnused(t *testing.T) {
	got, err := compiler.Lower(block(intLit(42)), false)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEndToEnd_LocalAssignUnused(t *testing.T) {
	assertLowers(t, block(&ast.LAsgn{Name: "a", Value: intLit(1)}), false,
		ir.Sequence{ir.PushInt{Value: 1}, ir.VariableSet{Name: "a"}})
}

func TestEndToEnd_IfUsed(t *testing.T) {
	root := block(&ast.If{Cond: &ast.True{}, Then: intLit(1), Else: intLit(2)})
	assertLowers(t, root, true, ir.Sequence{
		ir.PushTrue{},
		ir.If{},
		ir.PushInt{Value: 1},
		ir.Else{Scope: ir.ScopeIf},
		ir.PushInt{Value: 2},
		ir.End{Scope: ir.ScopeIf},
	})
}

func TestEndToEnd_AndUnused(t *testing.T) {
	root := block(&ast.And{Lhs: &ast.LVar{Name: "x"}, Rhs: &ast.LVar{Name: "y"}})
	assertLowers(t, root, false, ir.Sequence{
		ir.VariableGet{Name: "x"},
		ir.Dup{},
		ir.If{},
		ir.Pop{},
		ir.VariableGet{Name: "y"},
		ir.Else{Scope: ir.ScopeIf},
		ir.End{Scope: ir.ScopeIf},
		ir.Pop{},
	})
}

func TestEndToEnd_CallUnused(t *testing.T) {
	root := block(&ast.Call{Receiver: nil, Message: "puts", Args: []ast.Node{&ast.Str{Value: "hi", ByteLen: 2}}})
	assertLowers(t, root, false, ir.Sequence{
		ir.PushString{Value: "hi", Len: 2},
		ir.PushArgc{Count: 1},
		ir.PushSelf{},
		ir.Send{Message: "puts", ReceiverIsSelf: true, WithBlock: false},
		ir.Pop{},
	})
}

// --- invariant 1: stack-effect soundness ---

func TestInvariant_StackEffectSoundness(t *testing.T) {
	cases := []ast.Node{
		block(intLit(1), intLit(2)),
		block(&ast.LAsgn{Name: "a", Value: intLit(1)}),
		block(&ast.If{Cond: &ast.True{}, Then: intLit(1), Else: intLit(2)}),
		block(&ast.And{Lhs: &ast.LVar{Name: "x"}, Rhs: &ast.LVar{Name: "y"}}),
		block(&ast.Or{Lhs: &ast.LVar{Name: "x"}, Rhs: &ast.LVar{Name: "y"}}),
		block(&ast.ArrayNode{Items: []ast.Node{intLit(1), intLit(2)}}),
		block(&ast.HashNode{Items: []ast.Node{&ast.Lit{Value: ast.SymbolLit{Name: "a"}}, intLit(1)}}),
		block(&ast.Call{Message: "puts", Args: []ast.Node{intLit(1)}}),
		block(&ast.Defn{Name: "f", Args: &ast.Args{Params: []ast.Param{&ast.SimpleParam{Name: "x"}}}, Body: []ast.Node{&ast.LVar{Name: "x"}}}),
		block(&ast.ClassNode{Name: &ast.Atom{Name: "Foo"}, Body: []ast.Node{intLit(1)}}),
		block(&ast.Case{
			Subject: &ast.LVar{Name: "x"},
			Whens: []*ast.When{
				{Options: []ast.Node{&ast.Lit{Value: ast.SymbolLit{Name: "a"}}}, Body: intLit(1)},
			},
			Else: intLit(0),
		}),
		block(&ast.Rescue{
			Body: &ast.Call{Message: "risky"},
			Handlers: []*ast.Resbody{
				{ExceptionClasses: []ast.Node{&ast.Const{Name: "StandardError"}}, ExceptionVar: "e", Body: intLit(1)},
			},
			Else: nil,
		}),
		block(&ast.Ensure{Body: &ast.Call{Message: "risky"}, Always: &ast.Call{Message: "cleanup"}}),
	}

	for _, root := range cases {
		for _, used := range []bool{true, false} {
			seq, err := compiler.Lower(root, used)
			require.NoError(t, err, "%s used=%t", root.String(), used)

			height, err := ir.Simulate(seq)
			require.NoError(t, err, "%s used=%t: %s", root.String(), used, seq.String())

			want := 0
			if used {
				want = 1
			}
			assert.Equal(t, want, height, "%s used=%t: %s", root.String(), used, seq.String())
		}
	}
}

// --- invariant 2: scope balance ---

func TestInvariant_ScopeBalance(t *testing.T) {
	root := block(&ast.Iter{
		Call: &ast.Call{Receiver: &ast.LVar{Name: "xs"}, Message: "each"},
		Args: &ast.Args{Params: []ast.Param{&ast.SimpleParam{Name: "x"}}},
		Body: &ast.Call{Message: "puts", Args: []ast.Node{&ast.LVar{Name: "x"}}},
	})
	seq, err := compiler.Lower(root, false)
	require.NoError(t, err)
	assert.NoError(t, ir.Verify(seq))
}

// --- invariant 3: pure-producer elision ---

func TestInvariant_PureProducerElision(t *testing.T) {
	cases := []ast.Node{
		intLit(1),
		&ast.Lit{Value: ast.SymbolLit{Name: "a"}},
		&ast.Str{Value: "hi", ByteLen: 2},
		&ast.True{},
		&ast.False{},
		&ast.Nil{},
		&ast.Self{},
		&ast.LVar{Name: "x"},
		&ast.IVar{Name: "x"},
		&ast.GVar{Name: "x"},
		&ast.Const{Name: "X"},
	}
	for _, n := range cases {
		seq, err := compiler.Lower(block(n), false)
		require.NoError(t, err, n.String())
		assert.Empty(t, seq, n.String())
	}
}

// --- invariant 4: body last-used discipline ---

func TestInvariant_BodyLastUsed(t *testing.T) {
	root := block(&ast.LAsgn{Name: "a", Value: intLit(1)}, &ast.LVar{Name: "a"})
	assertLowers(t, root, true, ir.Sequence{
		ir.PushInt{Value: 1},
		ir.VariableSet{Name: "a"},
		ir.VariableGet{Name: "a"},
	})
	assertLowers(t, root, false, ir.Sequence{
		ir.PushInt{Value: 1},
		ir.VariableSet{Name: "a"},
	})
}

// --- invariant 5: determinism ---

func TestInvariant_Determinism(t *testing.T) {
	root := block(
		&ast.If{Cond: &ast.LVar{Name: "ok"}, Then: intLit(1), Else: intLit(2)},
		&ast.Call{Message: "puts", Args: []ast.Node{intLit(3)}},
	)

	first, err := compiler.Lower(root, true)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		got, err := compiler.Lower(root, true)
		require.NoError(t, err)
		require.Equal(t, first, got)
	}
}

func TestLower_ConcurrentCallsDoNotInterfere(t *testing.T) {
	roots := []ast.Node{
		block(intLit(1)),
		block(&ast.LAsgn{Name: "a", Value: intLit(2)}),
		block(&ast.If{Cond: &ast.True{}, Then: intLit(3), Else: intLit(4)}),
		block(&ast.Call{Message: "puts", Args: []ast.Node{intLit(5)}}),
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		root := roots[i%len(roots)]
		wg.Add(1)
		go func(root ast.Node) {
			defer wg.Done()
			_, err := compiler.Lower(root, true)
			assert.NoError(t, err)
		}(root)
	}
	wg.Wait()
}

// --- errors (§7) ---

func TestLower_UnexpectedRoot(t *testing.T) {
	_, err := compiler.Lower(intLit(1), true)
	require.Error(t, err)
	var lerr *compiler.LoweringError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, compiler.ErrUnexpectedRoot, lerr.Kind)
}

func TestLower_OddHashItems(t *testing.T) {
	root := block(&ast.HashNode{Items: []ast.Node{intLit(1), intLit(2), intLit(3)}})
	_, err := compiler.Lower(root, true)
	require.Error(t, err)
	var lerr *compiler.LoweringError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, compiler.ErrOddHashItems, lerr.Kind)
}

func TestLower_UnexpectedIterCall(t *testing.T) {
	root := block(&ast.Iter{
		Call: intLit(1),
		Args: &ast.Args{},
		Body: intLit(2),
	})
	_, err := compiler.Lower(root, false)
	require.Error(t, err)
	var lerr *compiler.LoweringError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, compiler.ErrUnexpectedIterCall, lerr.Kind)
}

func TestLower_UnknownConstantName(t *testing.T) {
	root := block(&ast.CDecl{Name: intLit(1), Value: intLit(2)})
	_, err := compiler.Lower(root, false)
	require.Error(t, err)
	var lerr *compiler.LoweringError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, compiler.ErrUnknownConstantName, lerr.Kind)
}

// TestLower_UnexpectedRoot_Nil covers spec.md §7's nil root case: a nil
// ast.Node fails the *ast.Block assertion the same as any other wrong
// shape, and must not panic reaching into it for a tag/position.
func TestLower_UnexpectedRoot_Nil(t *testing.T) {
	_, err := compiler.Lower(nil, true)
	require.Error(t, err)
	var lerr *compiler.LoweringError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, compiler.ErrUnexpectedRoot, lerr.Kind)
}

// unknownNode is an ast.Node with no registered transform, used to force
// the dispatcher's ErrUnknownConstruct path.
type unknownNode struct{ ast.Position }

func (unknownNode) Tag() string    { return "bogus" }
func (unknownNode) String() string { return "(bogus)" }

func TestLower_UnknownConstruct(t *testing.T) {
	root := block(unknownNode{})
	_, err := compiler.Lower(root, false)
	require.Error(t, err)
	var lerr *compiler.LoweringError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, compiler.ErrUnknownConstruct, lerr.Kind)
}

// bogusLit is an ast.Literal payload of a kind the lowering pass doesn't
// recognize, used to force lowerLit's ErrUnknownLiteral path.
type bogusLit struct{}

func (bogusLit) Kind() ast.LiteralKind { return ast.LiteralKind("bogus") }
func (bogusLit) Inspect() string       { return "bogus" }

func TestLower_UnknownLiteral(t *testing.T) {
	root := block(&ast.Lit{Value: bogusLit{}})
	_, err := compiler.Lower(root, true)
	require.Error(t, err)
	var lerr *compiler.LoweringError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, compiler.ErrUnknownLiteral, lerr.Kind)
}

// --- formal-parameter lowering (§4.3) ---

func TestLower_SimpleArgs(t *testing.T) {
	root := &ast.Defn{
		Name: "add",
		Args: &ast.Args{Params: []ast.Param{
			&ast.SimpleParam{Name: "a"},
			&ast.SimpleParam{Name: "b"},
		}},
		Body: []ast.Node{&ast.LVar{Name: "a"}},
	}
	seq, err := compiler.Lower(block(root), false)
	require.NoError(t, err)
	assert.NoError(t, ir.Verify(seq))

	assert.Contains(t, seq, ir.Instruction(ir.PushArg{Index: 0}))
	assert.Contains(t, seq, ir.Instruction(ir.VariableSet{Name: "a", LocalOnly: true}))
	assert.Contains(t, seq, ir.Instruction(ir.PushArg{Index: 1}))
	assert.Contains(t, seq, ir.Instruction(ir.VariableSet{Name: "b", LocalOnly: true}))
}

func TestLower_ComplexArgsBalance(t *testing.T) {
	root := &ast.Defn{
		Name: "f",
		Args: &ast.Args{Params: []ast.Param{
			&ast.SimpleParam{Name: "a"},
			&ast.OptParam{Name: "b", Default: intLit(1)},
			&ast.DestructureParam{Params: []ast.Param{
				&ast.SimpleParam{Name: "c"},
				&ast.SimpleParam{Name: "d"},
			}},
			&ast.SplatParam{Name: "rest"},
		}},
		Body: []ast.Node{&ast.LVar{Name: "a"}},
	}
	seq, err := compiler.Lower(block(root), false)
	require.NoError(t, err)
	assert.NoError(t, ir.Verify(seq))

	_, err = ir.Simulate(seq)
	assert.NoError(t, err)
}

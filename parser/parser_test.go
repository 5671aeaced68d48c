package parser

import (
	"testing"

	"github.com/dr8co/loom/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiterals(t *testing.T) {
	node, err := Parse(`(lit 42)`)
	require.NoError(t, err)

	lit, ok := node.(*ast.Lit)
	require.True(t, ok, "expected *ast.Lit, got %T", node)
	assert.Equal(t, ast.IntLit{Value: 42}, lit.Value)

	node, err = Parse(`(lit 3.5)`)
	require.NoError(t, err)
	lit = node.(*ast.Lit)
	assert.Equal(t, ast.FloatLit{Value: 3.5}, lit.Value)

	node, err = Parse(`(lit :foo)`)
	require.NoError(t, err)
	lit = node.(*ast.Lit)
	assert.Equal(t, ast.SymbolLit{Name: "foo"}, lit.Value)
}

func TestParseRangeLiteral(t *testing.T) {
	node, err := Parse(`(lit (range (lit 1) (lit 10) false))`)
	require.NoError(t, err)

	lit := node.(*ast.Lit)
	rng, ok := lit.Value.(ast.RangeLit)
	require.True(t, ok)
	assert.False(t, rng.ExcludeEnd)
	assert.Equal(t, int64(1), rng.Begin.(*ast.Lit).Value.(ast.IntLit).Value)
	assert.Equal(t, int64(10), rng.End.(*ast.Lit).Value.(ast.IntLit).Value)
}

func TestParseAssignmentsAndBlock(t *testing.T) {
	node, err := Parse(`(block (lasgn x (lit 1)) (lvar x))`)
	require.NoError(t, err)

	block, ok := node.(*ast.Block)
	require.True(t, ok)
	require.Len(t, block.Body, 2)

	asgn := block.Body[0].(*ast.LAsgn)
	assert.Equal(t, "x", asgn.Name)
	assert.Equal(t, int64(1), asgn.Value.(*ast.Lit).Value.(ast.IntLit).Value)

	lv := block.Body[1].(*ast.LVar)
	assert.Equal(t, "x", lv.Name)
}

func TestParseCallWithAbsentReceiver(t *testing.T) {
	node, err := Parse(`(call _ puts (str "hi"))`)
	require.NoError(t, err)

	call := node.(*ast.Call)
	assert.Nil(t, call.Receiver)
	assert.Equal(t, "puts", call.Message)
	assert.False(t, call.WithBlock)
	require.Len(t, call.Args, 1)
	assert.Equal(t, "hi", call.Args[0].(*ast.Str).Value)
}

func TestParseIfWithAbsentElse(t *testing.T) {
	node, err := Parse(`(if (lvar ok) (lit 1) _)`)
	require.NoError(t, err)

	ifNode := node.(*ast.If)
	assert.NotNil(t, ifNode.Then)
	assert.Nil(t, ifNode.Else)
}

func TestParseCase(t *testing.T) {
	node, err := Parse(`(case (lvar x) (when (:a :b) (lit 1)) (when (:c) (lit 2)) (lit 0))`)
	require.NoError(t, err)

	c := node.(*ast.Case)
	require.Len(t, c.Whens, 2)
	assert.Len(t, c.Whens[0].Options, 2)
	assert.NotNil(t, c.Else)
}

func TestParseIterSetsWithBlock(t *testing.T) {
	node, err := Parse(`(iter (call (lvar xs) each) (args x) (call _ puts (lvar x)))`)
	require.NoError(t, err)

	it := node.(*ast.Iter)
	call := it.Call.(*ast.Call)
	assert.True(t, call.WithBlock)
	assert.Equal(t, "each", call.Message)
	require.Len(t, it.Args.Params, 1)
	assert.Equal(t, "x", it.Args.Params[0].(*ast.SimpleParam).Name)
}

func TestParseArgsVariants(t *testing.T) {
	node, err := Parse(`(args a *rest (b = (lit 1)) (c d))`)
	require.NoError(t, err)

	args := node.(*ast.Args)
	require.Len(t, args.Params, 4)

	assert.Equal(t, "a", args.Params[0].(*ast.SimpleParam).Name)
	assert.Equal(t, "rest", args.Params[1].(*ast.SplatParam).Name)

	opt := args.Params[2].(*ast.OptParam)
	assert.Equal(t, "b", opt.Name)
	assert.Equal(t, int64(1), opt.Default.(*ast.Lit).Value.(ast.IntLit).Value)

	destructure := args.Params[3].(*ast.DestructureParam)
	require.Len(t, destructure.Params, 2)
	assert.Equal(t, "c", destructure.Params[0].(*ast.SimpleParam).Name)
	assert.Equal(t, "d", destructure.Params[1].(*ast.SimpleParam).Name)

	assert.False(t, args.Simple())
}

func TestParseDefnAndClass(t *testing.T) {
	node, err := Parse(`(defn greet (args name) (call _ puts (lvar name)))`)
	require.NoError(t, err)
	defn := node.(*ast.Defn)
	assert.Equal(t, "greet", defn.Name)
	require.Len(t, defn.Body, 1)

	node, err = Parse(`(class Greeter _ (defn greet (args) (lit 1)))`)
	require.NoError(t, err)
	cls := node.(*ast.ClassNode)
	assert.Equal(t, "Greeter", cls.Name.(*ast.Atom).Name)
	assert.Nil(t, cls.Superclass)
	require.Len(t, cls.Body, 1)
}

func TestParseRescueAndEnsure(t *testing.T) {
	node, err := Parse(`(ensure (rescue (call _ risky) (resbody ((const StandardError)) err (lvar err)) _) (call _ cleanup))`)
	require.NoError(t, err)

	ens := node.(*ast.Ensure)
	assert.NotNil(t, ens.Always)

	rsc := ens.Body.(*ast.Rescue)
	require.Len(t, rsc.Handlers, 1)
	assert.Equal(t, "err", rsc.Handlers[0].ExceptionVar)
	assert.Nil(t, rsc.Else)
}

func TestParseUnknownTagIsAnError(t *testing.T) {
	_, err := Parse(`(bogus 1 2)`)
	require.Error(t, err)
}

func TestParseTrailingGarbageIsAnError(t *testing.T) {
	_, err := Parse(`(lit 1) (lit 2)`)
	require.Error(t, err)
}

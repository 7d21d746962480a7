package eval

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-dukhno/pgcore/internal/ast"
	"github.com/alex-dukhno/pgcore/internal/typeinfer"
	"github.com/alex-dukhno/pgcore/internal/types"
	"github.com/alex-dukhno/pgcore/pgerr"
)

func num(n int64) *ast.Node {
	return ast.Leaf(ast.Const(ast.NumberValue(decimal.NewFromInt(n))))
}

func typedTree(t *testing.T, tree *ast.Node) *ast.Node {
	t.Helper()
	_, err := typeinfer.Infer(tree, nil)
	require.NoError(t, err)
	return tree
}

func TestArithmeticAddition(t *testing.T) {
	tree := typedTree(t, ast.BiOp(num(2), ast.OpAdd, num(3)))
	d, err := Eval(tree, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), d.Int64())
}

func TestDivisionByZero(t *testing.T) {
	tree := typedTree(t, ast.BiOp(num(1), ast.OpDiv, num(0)))
	_, err := Eval(tree, nil, nil)
	require.Error(t, err)
}

func TestNullPropagatesThroughArithmetic(t *testing.T) {
	nullNode := ast.Leaf(ast.Const(ast.Null()))
	tree := typedTree(t, ast.BiOp(nullNode, ast.OpAdd, num(1)))
	d, err := Eval(tree, nil, nil)
	require.NoError(t, err)
	assert.True(t, d.IsNull())
}

func TestThreeValuedAndFalseShortCircuitsNull(t *testing.T) {
	falseNode := ast.Leaf(ast.Const(ast.BoolValue(false)))
	nullNode := ast.Leaf(ast.Const(ast.Null()))
	tree := ast.BiOp(falseNode, ast.OpAnd, nullNode)
	tree.Family = types.FamilyBool
	d, err := Eval(tree, nil, nil)
	require.NoError(t, err)
	assert.False(t, d.IsNull())
	assert.False(t, d.Bool())
}

func TestThreeValuedOrTrueShortCircuitsNull(t *testing.T) {
	trueNode := ast.Leaf(ast.Const(ast.BoolValue(true)))
	nullNode := ast.Leaf(ast.Const(ast.Null()))
	tree := ast.BiOp(trueNode, ast.OpOr, nullNode)
	tree.Family = types.FamilyBool
	d, err := Eval(tree, nil, nil)
	require.NoError(t, err)
	assert.False(t, d.IsNull())
	assert.True(t, d.Bool())
}

func TestLikeMatching(t *testing.T) {
	left := ast.Leaf(ast.Const(ast.StringValue("hello world")))
	right := ast.Leaf(ast.Const(ast.StringValue("hello%")))
	tree := ast.BiOp(left, ast.OpLike, right)
	tree.Family = types.FamilyBool
	d, err := Eval(tree, nil, nil)
	require.NoError(t, err)
	assert.True(t, d.Bool())
}

func TestSmallIntOverflowIsError(t *testing.T) {
	tree := typedTree(t, ast.BiOp(num(32000), ast.OpAdd, num(1000)))
	_, err := Eval(tree, nil, nil)
	require.Error(t, err)
}

func TestColumnLookupByOrdinal(t *testing.T) {
	col := ast.Leaf(ast.Column(ast.ColumnRef{Name: "n", Family: types.FamilyInteger, Index: 1}))
	col.Family = types.FamilyInteger
	row := types.Row{types.Int32Datum(10), types.Int32Datum(20)}
	d, err := Eval(col, nil, row)
	require.NoError(t, err)
	assert.Equal(t, int64(20), d.Int64())
}

func TestCastStringToBoolean(t *testing.T) {
	trueLit := ast.Leaf(ast.Const(ast.StringValue("true")))
	tree := ast.CastTo(types.FamilyBool, trueLit)
	d, err := Eval(tree, nil, nil)
	require.NoError(t, err)
	assert.False(t, d.IsNull())
	assert.True(t, d.Bool())
}

func TestCastInvalidStringToBooleanIsInvalidTextRepresentation(t *testing.T) {
	lit := ast.Leaf(ast.Const(ast.StringValue("not-a-bool")))
	tree := ast.CastTo(types.FamilyBool, lit)
	_, err := Eval(tree, nil, nil)
	pgErr, ok := pgerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pgerr.KindInvalidTextRepresentation, pgErr.Kind)
}

func TestCastNumericToBooleanIsInvalidTextRepresentation(t *testing.T) {
	tree := typedTree(t, ast.CastTo(types.FamilyBool, num(1)))
	_, err := Eval(tree, nil, nil)
	pgErr, ok := pgerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pgerr.KindInvalidTextRepresentation, pgErr.Kind)
}

func TestCastIntegerToString(t *testing.T) {
	tree := ast.CastTo(types.FamilyString, ast.Leaf(ast.Column(ast.ColumnRef{Name: "n", Family: types.FamilyInteger, Index: 0})))
	row := types.Row{types.Int32Datum(42)}
	d, err := Eval(tree, nil, row)
	require.NoError(t, err)
	assert.Equal(t, "42", d.Text())
}

func TestStringConcat(t *testing.T) {
	left := ast.Leaf(ast.Const(ast.StringValue("foo")))
	right := ast.Leaf(ast.Const(ast.StringValue("bar")))
	tree := ast.BiOp(left, ast.OpConcat, right)
	tree.Family = types.FamilyString
	d, err := Eval(tree, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "foobar", d.Text())
}

package typeinfer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-dukhno/pgcore/internal/ast"
	"github.com/alex-dukhno/pgcore/internal/types"
)

func constNode(n int64) *ast.Node {
	return ast.Leaf(ast.Const(ast.NumberValue(decimal.NewFromInt(n))))
}

func TestLiteralNarrowestIntegerFamily(t *testing.T) {
	n := constNode(10)
	f, err := Infer(n, nil)
	require.NoError(t, err)
	assert.Equal(t, types.FamilySmallInt, f)

	n = constNode(1 << 20)
	f, err = Infer(n, nil)
	require.NoError(t, err)
	assert.Equal(t, types.FamilyInteger, f)

	n = constNode(1 << 40)
	f, err = Infer(n, nil)
	require.NoError(t, err)
	assert.Equal(t, types.FamilyBigInt, f)
}

func TestMixedIntFloatPromotesToFloat(t *testing.T) {
	left := constNode(1)
	right := ast.Leaf(ast.Const(ast.NumberValue(decimal.NewFromFloat(1.5))))
	node := ast.BiOp(left, ast.OpAdd, right)

	f, err := Infer(node, nil)
	require.NoError(t, err)
	assert.Equal(t, types.FamilyReal, f)
	// the integer side must have been wrapped in an implicit Cast.
	assert.Equal(t, ast.NodeUnOp, node.Left().Kind())
	assert.Equal(t, ast.OpCast, node.Left().Op())
}

func TestNullAdoptsOtherSideFamily(t *testing.T) {
	left := ast.Leaf(ast.Const(ast.Null()))
	right := constNode(5)
	node := ast.BiOp(left, ast.OpAdd, right)

	f, err := Infer(node, nil)
	require.NoError(t, err)
	assert.Equal(t, types.FamilySmallInt, f)
	assert.Equal(t, ast.OpCast, node.Left().Op())
}

func TestBothNullIsUndefined(t *testing.T) {
	node := ast.BiOp(ast.Leaf(ast.Const(ast.Null())), ast.OpAdd, ast.Leaf(ast.Const(ast.Null())))
	_, err := Infer(node, nil)
	require.Error(t, err)
}

func TestStringPlusIntegerIsUndefined(t *testing.T) {
	left := ast.Leaf(ast.Const(ast.StringValue("x")))
	right := constNode(1)
	node := ast.BiOp(left, ast.OpAdd, right)
	_, err := Infer(node, nil)
	require.Error(t, err)
}

func TestComparisonProducesBool(t *testing.T) {
	node := ast.BiOp(constNode(1), ast.OpLt, constNode(2))
	f, err := Infer(node, nil)
	require.NoError(t, err)
	assert.Equal(t, types.FamilyBool, f)
}

func TestParamFamilyFromDeclaredList(t *testing.T) {
	item := ast.Leaf(ast.Param(0))
	f, err := Infer(item, ParamFamilies{types.FamilyBigInt})
	require.NoError(t, err)
	assert.Equal(t, types.FamilyBigInt, f)
}

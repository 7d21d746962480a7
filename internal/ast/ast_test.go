package ast

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/alex-dukhno/pgcore/internal/types"
)

func TestColumnNameIsLowerCased(t *testing.T) {
	it := Column(ColumnRef{Name: "ID", Family: types.FamilyInteger, Index: 0})
	assert.Equal(t, "id", it.ColumnRef().Name)
}

func TestBiOpTreeShape(t *testing.T) {
	left := Leaf(Const(NumberValue(decimal.NewFromInt(1))))
	right := Leaf(Const(NumberValue(decimal.NewFromInt(2))))
	node := BiOp(left, OpAdd, right)

	assert.Equal(t, NodeBiOp, node.Kind())
	assert.Equal(t, OpAdd, node.Op())
	assert.Same(t, left, node.Left())
	assert.Same(t, right, node.Right())
}

func TestUntypedValueKinds(t *testing.T) {
	assert.Equal(t, ValueNull, Null().Kind())
	assert.Equal(t, ValueBool, BoolValue(true).Kind())
	assert.True(t, BoolValue(true).Bool())
	assert.Equal(t, ValueString, StringValue("x").Kind())
	assert.Equal(t, "x", StringValue("x").String())
	n := NumberValue(decimal.NewFromInt(42))
	assert.Equal(t, ValueNumber, n.Kind())
	assert.True(t, decimal.NewFromInt(42).Equal(n.Number()))
}

func TestParamIndex(t *testing.T) {
	item := Param(3)
	assert.Equal(t, ItemParam, item.Kind())
	assert.Equal(t, 3, item.ParamIndex())
}

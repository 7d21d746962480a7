// Package typeinfer is C7: it walks an untyped tree (internal/ast) and
// annotates every BiOp and Const node with a SqlTypeFamily, inserting
// implicit Cast nodes where spec.md §4.7's promotion rules require
// one. Pure translation of that algebra table; no pack dependency
// fits a bespoke type-family lattice (see DESIGN.md).
package typeinfer

import (
	"math"

	"github.com/alex-dukhno/pgcore/internal/ast"
	"github.com/alex-dukhno/pgcore/internal/types"
	"github.com/alex-dukhno/pgcore/pgerr"
)

// ParamFamilies is the declared type-family of each numbered parameter
// (spec.md §4.7's "Input... plus the declared type-family of each
// numbered parameter").
type ParamFamilies []types.SqlTypeFamily

// Infer annotates tree in place and returns the tree's own result
// family (meaningful for the caller's own bookkeeping; every node
// under it also carries its Family field set).
func Infer(tree *ast.Node, params ParamFamilies) (types.SqlTypeFamily, error) {
	if tree == nil {
		return types.FamilyUnknown, nil
	}
	switch tree.Kind() {
	case ast.NodeItem:
		return inferItem(tree, params)
	case ast.NodeUnOp:
		return inferUnOp(tree, params)
	case ast.NodeBiOp:
		return inferBiOp(tree, params)
	}
	return types.FamilyUnknown, pgerr.New(pgerr.KindInternal, "untyped tree node of unknown kind")
}

func inferItem(n *ast.Node, params ParamFamilies) (types.SqlTypeFamily, error) {
	it := n.Item()
	switch it.Kind() {
	case ast.ItemColumn:
		n.Family = it.ColumnRef().Family
	case ast.ItemParam:
		idx := it.ParamIndex()
		if idx < 0 || idx >= len(params) {
			return types.FamilyUnknown, pgerr.New(pgerr.KindUndefinedFunction, "parameter $%d has no declared type", idx+1)
		}
		n.Family = params[idx]
	case ast.ItemConst:
		f, err := literalFamily(it.ConstValue())
		if err != nil {
			return types.FamilyUnknown, err
		}
		n.Family = f
	}
	return n.Family, nil
}

// literalFamily implements spec.md §4.7's "Literal typing" rule.
func literalFamily(v ast.UntypedValue) (types.SqlTypeFamily, error) {
	switch v.Kind() {
	case ast.ValueNull:
		return types.FamilyUnknown, nil
	case ast.ValueBool:
		return types.FamilyBool, nil
	case ast.ValueString:
		return types.FamilyString, nil
	case ast.ValueNumber:
		n := v.Number()
		if n.IsInteger() {
			i := n.IntPart()
			switch {
			case i >= types.SmallIntMin && i <= types.SmallIntMax:
				return types.FamilySmallInt, nil
			case i >= types.IntegerMin && i <= types.IntegerMax:
				return types.FamilyInteger, nil
			case i >= types.BigIntMin && i <= types.BigIntMax:
				return types.FamilyBigInt, nil
			default:
				return types.FamilyUnknown, pgerr.New(pgerr.KindNumericOutOfRange, "integer literal %s exceeds bigint range", n.String())
			}
		}
		f, _ := n.Float64()
		if f >= -math.MaxFloat32 && f <= math.MaxFloat32 {
			return types.FamilyReal, nil
		}
		if math.IsInf(f, 0) {
			return types.FamilyUnknown, pgerr.New(pgerr.KindNumericOutOfRange, "decimal literal %s exceeds double precision range", n.String())
		}
		return types.FamilyDouble, nil
	}
	return types.FamilyUnknown, pgerr.New(pgerr.KindInternal, "untyped value of unknown kind")
}

func inferUnOp(n *ast.Node, params ParamFamilies) (types.SqlTypeFamily, error) {
	operandFamily, err := Infer(n.Left(), params)
	if err != nil {
		return types.FamilyUnknown, err
	}
	switch n.Op() {
	case ast.OpUnaryPlus, ast.OpUnaryMinus, ast.OpSqrt, ast.OpCubeRoot, ast.OpFactorial, ast.OpAbs:
		if !operandFamily.IsNumeric() {
			return types.FamilyUnknown, undefinedFunction(string(n.Op()), operandFamily, types.FamilyUnknown)
		}
		n.Family = operandFamily
	case ast.OpNot:
		if operandFamily != types.FamilyBool {
			return types.FamilyUnknown, undefinedFunction(string(n.Op()), operandFamily, types.FamilyUnknown)
		}
		n.Family = types.FamilyBool
	case ast.OpBitNot:
		if !operandFamily.IsInteger() {
			return types.FamilyUnknown, undefinedFunction(string(n.Op()), operandFamily, types.FamilyUnknown)
		}
		n.Family = operandFamily
	case ast.OpCast:
		// an already-inserted Cast node carries its target family as its
		// own Family; nothing to recompute.
	default:
		return types.FamilyUnknown, pgerr.New(pgerr.KindInternal, "unknown unary operator %q", n.Op())
	}
	return n.Family, nil
}

func inferBiOp(n *ast.Node, params ParamFamilies) (types.SqlTypeFamily, error) {
	leftFamily, err := Infer(n.Left(), params)
	if err != nil {
		return types.FamilyUnknown, err
	}
	rightFamily, err := Infer(n.Right(), params)
	if err != nil {
		return types.FamilyUnknown, err
	}

	// Rule 1: Unknown (null) adopts the other side's family via an
	// inserted Cast; if both are Unknown the operation is undefined.
	if leftFamily == types.FamilyUnknown || rightFamily == types.FamilyUnknown {
		if leftFamily == types.FamilyUnknown && rightFamily == types.FamilyUnknown {
			return types.FamilyUnknown, undefinedFunction(string(n.Op()), leftFamily, rightFamily)
		}
		if leftFamily == types.FamilyUnknown {
			n.SetLeft(ast.CastTo(rightFamily, n.Left()))
			leftFamily = rightFamily
		} else {
			n.SetRight(ast.CastTo(leftFamily, n.Right()))
			rightFamily = leftFamily
		}
	} else if leftFamily != rightFamily {
		// Rule 2: comparable numeric families promote to the wider one.
		if types.Comparable(leftFamily, rightFamily) {
			wider := types.WiderFamily(leftFamily, rightFamily)
			if leftFamily != wider {
				n.SetLeft(ast.CastTo(wider, n.Left()))
				leftFamily = wider
			}
			if rightFamily != wider {
				n.SetRight(ast.CastTo(wider, n.Right()))
				rightFamily = wider
			}
		} else {
			return types.FamilyUnknown, undefinedFunction(string(n.Op()), leftFamily, rightFamily)
		}
	}

	family, err := resultFamily(n.Op(), leftFamily, rightFamily)
	if err != nil {
		return types.FamilyUnknown, err
	}
	n.Family = family
	return family, nil
}

// resultFamily implements spec.md §4.7's "Operator algebra" table,
// given that leftFamily == rightFamily already (inferBiOp unified them
// above, except for operator domains that reject the pairing outright).
func resultFamily(op ast.Op, left, right types.SqlTypeFamily) (types.SqlTypeFamily, error) {
	switch op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod, ast.OpPow:
		if !left.IsNumeric() {
			return types.FamilyUnknown, undefinedFunction(string(op), left, right)
		}
		return left, nil
	case ast.OpLt, ast.OpLe, ast.OpEq, ast.OpGe, ast.OpGt, ast.OpNe:
		if !(left.IsNumeric() || left == types.FamilyString || left == types.FamilyBool) {
			return types.FamilyUnknown, undefinedFunction(string(op), left, right)
		}
		return types.FamilyBool, nil
	case ast.OpShr, ast.OpShl, ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor:
		if !left.IsInteger() {
			return types.FamilyUnknown, undefinedFunction(string(op), left, right)
		}
		return left, nil
	case ast.OpAnd, ast.OpOr:
		if left != types.FamilyBool {
			return types.FamilyUnknown, undefinedFunction(string(op), left, right)
		}
		return types.FamilyBool, nil
	case ast.OpLike, ast.OpNotLike:
		if left != types.FamilyString {
			return types.FamilyUnknown, undefinedFunction(string(op), left, right)
		}
		return types.FamilyBool, nil
	case ast.OpConcat:
		if left != types.FamilyString {
			return types.FamilyUnknown, undefinedFunction(string(op), left, right)
		}
		return types.FamilyString, nil
	}
	return types.FamilyUnknown, pgerr.New(pgerr.KindInternal, "unknown binary operator %q", op)
}

func undefinedFunction(op string, left, right types.SqlTypeFamily) error {
	return pgerr.New(pgerr.KindUndefinedFunction, "operator %s is not defined for %s and %s", op, left, right).
		With("operator", op)
}

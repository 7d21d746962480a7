// Package eval is C8: the typed-tree evaluator. eval(tree, params,
// row) -> Datum, implementing spec.md §4.8's left-to-right strict
// evaluation, null propagation, and overflow-as-error semantics. Pure
// translation of the operator algebra; no pack library applies.
package eval

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alex-dukhno/pgcore/internal/ast"
	"github.com/alex-dukhno/pgcore/internal/types"
	"github.com/alex-dukhno/pgcore/pgerr"
)

// Eval evaluates tree, a C7-typed tree, against the given bound
// parameters and the current row. Column items read row by ordinal;
// Param items read params by ordinal (spec.md §4.8).
func Eval(tree *ast.Node, params []types.Datum, row types.Row) (types.Datum, error) {
	if tree == nil {
		return types.NullDatum(), nil
	}
	switch tree.Kind() {
	case ast.NodeItem:
		return evalItem(tree, params, row)
	case ast.NodeUnOp:
		return evalUnOp(tree, params, row)
	case ast.NodeBiOp:
		return evalBiOp(tree, params, row)
	}
	return types.Datum{}, pgerr.New(pgerr.KindInternal, "typed tree node of unknown kind")
}

func evalItem(n *ast.Node, params []types.Datum, row types.Row) (types.Datum, error) {
	it := n.Item()
	switch it.Kind() {
	case ast.ItemConst:
		return constDatum(it.ConstValue(), n.Family)
	case ast.ItemParam:
		idx := it.ParamIndex()
		if idx < 0 || idx >= len(params) {
			return types.Datum{}, pgerr.New(pgerr.KindProtocolViolation, "parameter $%d not bound", idx+1)
		}
		return params[idx], nil
	case ast.ItemColumn:
		idx := it.ColumnRef().Index
		if idx < 0 || idx >= len(row) {
			return types.Datum{}, pgerr.New(pgerr.KindInternal, "column ordinal %d out of range for row of width %d", idx, len(row))
		}
		return row[idx], nil
	}
	return types.Datum{}, pgerr.New(pgerr.KindInternal, "item of unknown kind")
}

func constDatum(v ast.UntypedValue, family types.SqlTypeFamily) (types.Datum, error) {
	switch v.Kind() {
	case ast.ValueNull:
		return types.NullDatum(), nil
	case ast.ValueBool:
		return types.BoolDatum(v.Bool()), nil
	case ast.ValueString:
		return types.StringDatum(v.String()), nil
	case ast.ValueNumber:
		return numericDatum(v.Number(), family)
	}
	return types.Datum{}, pgerr.New(pgerr.KindInternal, "untyped value of unknown kind")
}

func numericDatum(n decimal.Decimal, family types.SqlTypeFamily) (types.Datum, error) {
	switch family {
	case types.FamilySmallInt, types.FamilyInteger, types.FamilyBigInt:
		v := n.IntPart()
		if !types.InRange(family, v) {
			return types.Datum{}, numericOutOfRange(family)
		}
		return intDatum(family, v), nil
	case types.FamilyReal:
		f, _ := n.Float64()
		return types.Float32Datum(float32(f)), nil
	case types.FamilyDouble:
		f, _ := n.Float64()
		return types.Float64Datum(f), nil
	}
	return types.Datum{}, pgerr.New(pgerr.KindInternal, "numeric literal with non-numeric family %s", family)
}

func numericOutOfRange(f types.SqlTypeFamily) error {
	return pgerr.New(pgerr.KindNumericOutOfRange, "value out of range for %s", f)
}

func evalUnOp(n *ast.Node, params []types.Datum, row types.Row) (types.Datum, error) {
	operand, err := Eval(n.Left(), params, row)
	if err != nil {
		return types.Datum{}, err
	}
	if n.Op() == ast.OpCast {
		return castDatum(operand, n.Family)
	}
	if operand.IsNull() {
		return types.NullDatum(), nil
	}
	switch n.Op() {
	case ast.OpUnaryPlus:
		return operand, nil
	case ast.OpUnaryMinus:
		return negate(operand)
	case ast.OpAbs:
		return abs(operand)
	case ast.OpSqrt:
		return floatUnary(operand, n.Family, math.Sqrt)
	case ast.OpCubeRoot:
		return floatUnary(operand, n.Family, math.Cbrt)
	case ast.OpFactorial:
		return factorial(operand)
	case ast.OpNot:
		return types.BoolDatum(!operand.Bool()), nil
	case ast.OpBitNot:
		return bitNot(operand)
	}
	return types.Datum{}, pgerr.New(pgerr.KindInternal, "unknown unary operator %q", n.Op())
}

// Cast coerces d to target's family, the same conversion an explicit
// `::type` cast node performs (ast.OpCast). Exported so other
// components — the executor's column-family coercion (spec.md §3
// Invariant 3), in particular — can reuse the single conversion table
// instead of re-deriving it.
func Cast(d types.Datum, target types.SqlTypeFamily) (types.Datum, error) {
	return castDatum(d, target)
}

func castDatum(d types.Datum, target types.SqlTypeFamily) (types.Datum, error) {
	if d.IsNull() {
		return types.NullDatum(), nil
	}
	switch target {
	case types.FamilySmallInt, types.FamilyInteger, types.FamilyBigInt:
		var v int64
		if d.Family().IsFloat() {
			v = int64(d.Float64())
		} else {
			v = d.Int64()
		}
		if !types.InRange(target, v) {
			return types.Datum{}, numericOutOfRange(target)
		}
		return intDatum(target, v), nil
	case types.FamilyReal:
		var f float64
		if d.Family().IsInteger() {
			f = float64(d.Int64())
		} else {
			f = d.Float64()
		}
		return types.Float32Datum(float32(f)), nil
	case types.FamilyDouble:
		var f float64
		if d.Family().IsInteger() {
			f = float64(d.Int64())
		} else {
			f = d.Float64()
		}
		return types.Float64Datum(f), nil
	case types.FamilyBool:
		return castBool(d)
	case types.FamilyString:
		return types.StringDatum(d.String()), nil
	}
	return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "cannot cast type %s to %s", d.Family(), target)
}

// castBool parses a string-typed datum the same way
// wire/params.go:decodeTextParam decodes a text boolean parameter; a
// datum already of FamilyBool passes through unchanged. Any other
// source family (or an unrecognized string payload) is *not* a
// coercible cast — spec.md §8 scenario 5 expects
// *invalid-text-representation*, not an internal error.
func castBool(d types.Datum) (types.Datum, error) {
	if d.Family() == types.FamilyBool {
		return d, nil
	}
	if d.Family() != types.FamilyString {
		return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "cannot cast type %s to boolean", d.Family())
	}
	switch d.Text() {
	case "t", "true", "TRUE", "1":
		return types.TrueDatum(), nil
	case "f", "false", "FALSE", "0":
		return types.FalseDatum(), nil
	}
	return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "invalid input syntax for type boolean: %q", d.Text())
}

func intDatum(family types.SqlTypeFamily, v int64) types.Datum {
	switch family {
	case types.FamilySmallInt:
		return types.Int16Datum(int16(v))
	case types.FamilyInteger:
		return types.Int32Datum(int32(v))
	default:
		return types.Int64Datum(v)
	}
}

func negate(d types.Datum) (types.Datum, error) {
	if d.Family().IsFloat() {
		return floatDatumLike(d, -d.Float64()), nil
	}
	v := d.Int64()
	if v == math.MinInt64 || !types.InRange(d.Family(), -v) {
		return types.Datum{}, numericOutOfRange(d.Family())
	}
	return intDatum(d.Family(), -v), nil
}

func abs(d types.Datum) (types.Datum, error) {
	if d.Family().IsFloat() {
		return floatDatumLike(d, math.Abs(d.Float64())), nil
	}
	v := d.Int64()
	if v == math.MinInt64 || !types.InRange(d.Family(), -v) {
		return types.Datum{}, numericOutOfRange(d.Family())
	}
	if v < 0 {
		v = -v
	}
	return intDatum(d.Family(), v), nil
}

func floatDatumLike(d types.Datum, v float64) types.Datum {
	if d.Family() == types.FamilyReal {
		return types.Float32Datum(float32(v))
	}
	return types.Float64Datum(v)
}

func floatUnary(d types.Datum, resultFamily types.SqlTypeFamily, fn func(float64) float64) (types.Datum, error) {
	var f float64
	if d.Family().IsInteger() {
		f = float64(d.Int64())
	} else {
		f = d.Float64()
	}
	r := fn(f)
	if resultFamily == types.FamilyReal {
		return types.Float32Datum(float32(r)), nil
	}
	return types.Float64Datum(r), nil
}

func factorial(d types.Datum) (types.Datum, error) {
	n := d.Int64()
	if n < 0 {
		return types.Datum{}, pgerr.New(pgerr.KindNumericOutOfRange, "factorial of a negative number is undefined")
	}
	var result int64 = 1
	for i := int64(2); i <= n; i++ {
		next, overflow := mulOverflow(result, i)
		if overflow {
			return types.Datum{}, numericOutOfRange(types.FamilyBigInt)
		}
		result = next
	}
	if !types.InRange(d.Family(), result) {
		return types.Datum{}, numericOutOfRange(d.Family())
	}
	return intDatum(d.Family(), result), nil
}

func bitNot(d types.Datum) (types.Datum, error) {
	return intDatum(d.Family(), ^d.Int64()), nil
}

func evalBiOp(n *ast.Node, params []types.Datum, row types.Row) (types.Datum, error) {
	left, err := Eval(n.Left(), params, row)
	if err != nil {
		return types.Datum{}, err
	}
	right, err := Eval(n.Right(), params, row)
	if err != nil {
		return types.Datum{}, err
	}

	// three-valued AND/OR short-circuit on a determining operand even
	// when the other side is null (spec.md §4.8).
	if n.Op() == ast.OpAnd {
		if (!left.IsNull() && !left.Bool()) || (!right.IsNull() && !right.Bool()) {
			return types.FalseDatum(), nil
		}
		if left.IsNull() || right.IsNull() {
			return types.NullDatum(), nil
		}
		return types.TrueDatum(), nil
	}
	if n.Op() == ast.OpOr {
		if (!left.IsNull() && left.Bool()) || (!right.IsNull() && right.Bool()) {
			return types.TrueDatum(), nil
		}
		if left.IsNull() || right.IsNull() {
			return types.NullDatum(), nil
		}
		return types.FalseDatum(), nil
	}

	if n.Op() == ast.OpLike || n.Op() == ast.OpNotLike {
		if left.IsNull() || right.IsNull() {
			return types.NullDatum(), nil
		}
		matched := matchLike(left.Text(), right.Text())
		if n.Op() == ast.OpNotLike {
			matched = !matched
		}
		return types.BoolDatum(matched), nil
	}

	if left.IsNull() || right.IsNull() {
		return types.NullDatum(), nil
	}

	switch n.Op() {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod, ast.OpPow:
		return arith(n.Op(), left, right, n.Family)
	case ast.OpLt, ast.OpLe, ast.OpEq, ast.OpGe, ast.OpGt, ast.OpNe:
		return compare(n.Op(), left, right)
	case ast.OpShr, ast.OpShl, ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor:
		return bitwise(n.Op(), left, right, n.Family)
	case ast.OpConcat:
		return types.StringDatum(left.Text() + right.Text()), nil
	}
	return types.Datum{}, pgerr.New(pgerr.KindInternal, "unknown binary operator %q", n.Op())
}

func arith(op ast.Op, left, right types.Datum, family types.SqlTypeFamily) (types.Datum, error) {
	if family.IsFloat() {
		l, r := asFloat(left), asFloat(right)
		var v float64
		switch op {
		case ast.OpAdd:
			v = l + r
		case ast.OpSub:
			v = l - r
		case ast.OpMul:
			v = l * r
		case ast.OpDiv:
			if r == 0 {
				return types.Datum{}, numericOutOfRange(family)
			}
			v = l / r
		case ast.OpMod:
			if r == 0 {
				return types.Datum{}, numericOutOfRange(family)
			}
			v = math.Mod(l, r)
		case ast.OpPow:
			v = math.Pow(l, r)
		}
		if family == types.FamilyReal {
			return types.Float32Datum(float32(v)), nil
		}
		return types.Float64Datum(v), nil
	}

	l, r := left.Int64(), right.Int64()
	var v int64
	var overflow bool
	switch op {
	case ast.OpAdd:
		v, overflow = addOverflow(l, r)
	case ast.OpSub:
		v, overflow = subOverflow(l, r)
	case ast.OpMul:
		v, overflow = mulOverflow(l, r)
	case ast.OpDiv:
		if r == 0 {
			return types.Datum{}, numericOutOfRange(family)
		}
		v = l / r
	case ast.OpMod:
		if r == 0 {
			return types.Datum{}, numericOutOfRange(family)
		}
		v = l % r
	case ast.OpPow:
		v = int64(math.Pow(float64(l), float64(r)))
	}
	if overflow || !types.InRange(family, v) {
		return types.Datum{}, numericOutOfRange(family)
	}
	return intDatum(family, v), nil
}

func compare(op ast.Op, left, right types.Datum) (types.Datum, error) {
	var cmp int
	switch {
	case left.Family() == types.FamilyString:
		cmp = strings.Compare(left.Text(), right.Text())
	case left.Family() == types.FamilyBool:
		lb, rb := boolRank(left.Bool()), boolRank(right.Bool())
		cmp = lb - rb
	case left.Family().IsFloat() || right.Family().IsFloat():
		l, r := asFloat(left), asFloat(right)
		switch {
		case l < r:
			cmp = -1
		case l > r:
			cmp = 1
		}
	default:
		l, r := left.Int64(), right.Int64()
		switch {
		case l < r:
			cmp = -1
		case l > r:
			cmp = 1
		}
	}
	var result bool
	switch op {
	case ast.OpLt:
		result = cmp < 0
	case ast.OpLe:
		result = cmp <= 0
	case ast.OpEq:
		result = cmp == 0
	case ast.OpGe:
		result = cmp >= 0
	case ast.OpGt:
		result = cmp > 0
	case ast.OpNe:
		result = cmp != 0
	}
	return types.BoolDatum(result), nil
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func bitwise(op ast.Op, left, right types.Datum, family types.SqlTypeFamily) (types.Datum, error) {
	l, r := left.Int64(), right.Int64()
	var v int64
	switch op {
	case ast.OpShr:
		v = l >> uint(r)
	case ast.OpShl:
		v = l << uint(r)
	case ast.OpBitAnd:
		v = l & r
	case ast.OpBitOr:
		v = l | r
	case ast.OpBitXor:
		v = l ^ r
	}
	if !types.InRange(family, v) {
		return types.Datum{}, numericOutOfRange(family)
	}
	return intDatum(family, v), nil
}

func asFloat(d types.Datum) float64 {
	if d.Family().IsFloat() {
		return d.Float64()
	}
	return float64(d.Int64())
}

// matchLike implements SQL LIKE: '%' matches any run of characters,
// '_' matches exactly one, everything else matches literally.
func matchLike(text, pattern string) bool {
	return likeMatch(text, pattern)
}

func likeMatch(s, p string) bool {
	if p == "" {
		return s == ""
	}
	switch p[0] {
	case '%':
		for i := 0; i <= len(s); i++ {
			if likeMatch(s[i:], p[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatch(s[1:], p[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeMatch(s[1:], p[1:])
	}
}

func addOverflow(a, b int64) (int64, bool) {
	v := a + b
	if (b > 0 && v < a) || (b < 0 && v > a) {
		return 0, true
	}
	return v, false
}

func subOverflow(a, b int64) (int64, bool) {
	v := a - b
	if (b < 0 && v < a) || (b > 0 && v > a) {
		return 0, true
	}
	return v, false
}

func mulOverflow(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	v := a * b
	if v/b != a {
		return 0, true
	}
	return v, false
}

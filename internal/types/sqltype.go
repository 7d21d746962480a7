// Package types holds the catalog's closed type system (spec.md §3):
// SqlType and its SqlTypeFamily, the runtime Datum variant, and the
// self-describing packed Row codec (C4).
package types

import "fmt"

// SqlTypeFamily is the equivalence class used by operator resolution
// (spec.md §3/§4.7). Families carry a partial order used for numeric
// promotion.
type SqlTypeFamily int

const (
	FamilyUnknown SqlTypeFamily = iota
	FamilyBool
	FamilyString
	FamilySmallInt
	FamilyInteger
	FamilyBigInt
	FamilyReal
	FamilyDouble
)

func (f SqlTypeFamily) String() string {
	switch f {
	case FamilyBool:
		return "bool"
	case FamilyString:
		return "string"
	case FamilySmallInt:
		return "smallint"
	case FamilyInteger:
		return "integer"
	case FamilyBigInt:
		return "bigint"
	case FamilyReal:
		return "real"
	case FamilyDouble:
		return "double"
	default:
		return "unknown"
	}
}

// IsInteger reports whether f is one of the integer families.
func (f SqlTypeFamily) IsInteger() bool {
	return f == FamilySmallInt || f == FamilyInteger || f == FamilyBigInt
}

// IsFloat reports whether f is one of the floating families.
func (f SqlTypeFamily) IsFloat() bool {
	return f == FamilyReal || f == FamilyDouble
}

// IsNumeric reports whether f is an integer or floating family.
func (f SqlTypeFamily) IsNumeric() bool {
	return f.IsInteger() || f.IsFloat()
}

// numericRank orders the numeric families for promotion: SmallInt <
// Integer < BigInt < Real < Double, with integers promoting into
// floats on a mixed comparison (spec.md §3/§4.7).
var numericRank = map[SqlTypeFamily]int{
	FamilySmallInt: 0,
	FamilyInteger:  1,
	FamilyBigInt:   2,
	FamilyReal:     3,
	FamilyDouble:   4,
}

// Comparable reports whether two numeric families participate in the
// promotion order at all (both numeric).
func Comparable(a, b SqlTypeFamily) bool {
	_, aok := numericRank[a]
	_, bok := numericRank[b]
	return aok && bok
}

// WiderFamily returns the promotion result of a and b; callers must
// first check Comparable.
func WiderFamily(a, b SqlTypeFamily) SqlTypeFamily {
	if numericRank[a] >= numericRank[b] {
		return a
	}
	return b
}

// StrKind distinguishes char(n) (Const, blank-padded by convention —
// padding itself is out of scope) from varchar(n) (Var).
type StrKind int

const (
	StrConst StrKind = iota
	StrVar
)

// NumKind enumerates the fixed-width numeric kinds.
type NumKind int

const (
	NumSmallInt NumKind = iota
	NumInteger
	NumBigInt
	NumReal
	NumDouble
)

// SqlType is the closed concrete-type variant set of spec.md §3.
type SqlType struct {
	kind strOrNum
	// Str fields
	strLen  uint64
	strKind StrKind
	// Num field
	numKind NumKind
	isBool  bool
}

type strOrNum int

const (
	kindBool strOrNum = iota
	kindStr
	kindNum
)

// Bool is the SqlType variant `Bool`.
func Bool() SqlType { return SqlType{kind: kindBool, isBool: true} }

// Str is the SqlType variant `Str{len, kind}` (char(n)/varchar(n)).
func Str(length uint64, kind StrKind) SqlType {
	return SqlType{kind: kindStr, strLen: length, strKind: kind}
}

// Num is the SqlType variant `Num{kind}`.
func Num(kind NumKind) SqlType { return SqlType{kind: kindNum, numKind: kind} }

// IsBool, IsStr, IsNum discriminate the variant.
func (t SqlType) IsBool() bool { return t.kind == kindBool }
func (t SqlType) IsStr() bool  { return t.kind == kindStr }
func (t SqlType) IsNum() bool  { return t.kind == kindNum }

// StrLen and StrKindOf are valid only when IsStr.
func (t SqlType) StrLen() uint64   { return t.strLen }
func (t SqlType) StrKindOf() StrKind { return t.strKind }

// NumKindOf is valid only when IsNum.
func (t SqlType) NumKindOf() NumKind { return t.numKind }

// Family maps a concrete SqlType to its SqlTypeFamily.
func (t SqlType) Family() SqlTypeFamily {
	switch t.kind {
	case kindBool:
		return FamilyBool
	case kindStr:
		return FamilyString
	case kindNum:
		switch t.numKind {
		case NumSmallInt:
			return FamilySmallInt
		case NumInteger:
			return FamilyInteger
		case NumBigInt:
			return FamilyBigInt
		case NumReal:
			return FamilyReal
		case NumDouble:
			return FamilyDouble
		}
	}
	return FamilyUnknown
}

func (t SqlType) String() string {
	switch t.kind {
	case kindBool:
		return "bool"
	case kindStr:
		if t.strKind == StrConst {
			return fmt.Sprintf("char(%d)", t.strLen)
		}
		return fmt.Sprintf("varchar(%d)", t.strLen)
	case kindNum:
		switch t.numKind {
		case NumSmallInt:
			return "smallint"
		case NumInteger:
			return "integer"
		case NumBigInt:
			return "bigint"
		case NumReal:
			return "real"
		case NumDouble:
			return "double precision"
		}
	}
	return "?"
}

// Integer range bounds, used by the executor's numeric-out-of-range
// check (spec.md §4.11) and by type inference's literal typing
// (spec.md §4.7).
const (
	SmallIntMin = -(1 << 15)
	SmallIntMax = (1 << 15) - 1
	IntegerMin  = -(1 << 31)
	IntegerMax  = (1 << 31) - 1
	// BigIntMin/Max equal math.MinInt64/MaxInt64; spelled out so this
	// file needs no "math" import for the common path.
	BigIntMin = -1 << 63
	BigIntMax = 1<<63 - 1
)

// InRange reports whether n fits within the integer family f.
func InRange(f SqlTypeFamily, n int64) bool {
	switch f {
	case FamilySmallInt:
		return n >= SmallIntMin && n <= SmallIntMax
	case FamilyInteger:
		return n >= IntegerMin && n <= IntegerMax
	case FamilyBigInt:
		return true // int64 already fits int64
	default:
		return false
	}
}

// Package ast is C6: the untyped expression tree the query/definition
// planners (C9/C10) build and C7 annotates. Shapes follow spec.md
// §4.6 directly; the tagged-variant-via-private-enum idiom mirrors
// internal/types.SqlType and internal/catalog.Step.
package ast

import (
	"github.com/shopspring/decimal"

	"github.com/alex-dukhno/pgcore/internal/types"
)

// ValueKind discriminates the UntypedValue variant.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueString
	ValueNumber
)

// UntypedValue is `UntypedValue ∈ {String, Number(arbitrary-precision
// decimal), Bool, Null}` (spec.md §4.6). Number carries a
// shopspring/decimal.Decimal so integer and fractional literals of any
// precision survive until C7 assigns a concrete family.
type UntypedValue struct {
	kind ValueKind
	b    bool
	s    string
	n    decimal.Decimal
}

func Null() UntypedValue                     { return UntypedValue{kind: ValueNull} }
func BoolValue(b bool) UntypedValue          { return UntypedValue{kind: ValueBool, b: b} }
func StringValue(s string) UntypedValue      { return UntypedValue{kind: ValueString, s: s} }
func NumberValue(n decimal.Decimal) UntypedValue { return UntypedValue{kind: ValueNumber, n: n} }

func (v UntypedValue) Kind() ValueKind       { return v.kind }
func (v UntypedValue) Bool() bool            { return v.b }
func (v UntypedValue) String() string        { return v.s }
func (v UntypedValue) Number() decimal.Decimal { return v.n }

// ItemKind discriminates the Item variant: `Const | Param | Column`.
type ItemKind int

const (
	ItemConst ItemKind = iota
	ItemParam
	ItemColumn
)

// Item is a leaf of the untyped tree: `Item(Const(UntypedValue) |
// Param(i) | Column{name, sql_type, index})`. Column's sql_type is
// filled in by the planner from the catalog's ColumnDef at tree-build
// time (spec.md §4.6), not by C7 — C7 only annotates operator/constant
// nodes, per §4.7.
type Item struct {
	kind   ItemKind
	constV UntypedValue
	paramI int
	col    ColumnRef
}

// ColumnRef names a resolved column: lower-cased name, its declared
// SqlTypeFamily, and its ordinal index for row lookup at evaluation
// time (C8).
type ColumnRef struct {
	Name   string
	Family types.SqlTypeFamily
	Index  int
}

func Const(v UntypedValue) Item { return Item{kind: ItemConst, constV: v} }
func Param(i int) Item          { return Item{kind: ItemParam, paramI: i} }
func Column(ref ColumnRef) Item { return Item{kind: ItemColumn, col: ColumnRef{Name: lower(ref.Name), Family: ref.Family, Index: ref.Index}} }

func (it Item) Kind() ItemKind      { return it.kind }
func (it Item) ConstValue() UntypedValue { return it.constV }
func (it Item) ParamIndex() int     { return it.paramI }
func (it Item) ColumnRef() ColumnRef { return it.col }

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Op is one of the operator tokens of spec.md §4.7's algebra tables.
type Op string

const (
	OpAdd Op = "+"
	OpSub Op = "-"
	OpMul Op = "*"
	OpDiv Op = "/"
	OpMod Op = "%"
	OpPow Op = "^"

	OpLt  Op = "<"
	OpLe  Op = "<="
	OpEq  Op = "="
	OpGe  Op = ">="
	OpGt  Op = ">"
	OpNe  Op = "<>"

	OpShr Op = ">>"
	OpShl Op = "<<"
	OpBitAnd Op = "&"
	OpBitOr  Op = "|"
	OpBitXor Op = "#"

	OpAnd Op = "AND"
	OpOr  Op = "OR"

	OpLike    Op = "LIKE"
	OpNotLike Op = "NOT LIKE"

	OpConcat Op = "||"

	// unary
	OpUnaryPlus  Op = "u+"
	OpUnaryMinus Op = "u-"
	OpSqrt       Op = "|/"
	OpCubeRoot   Op = "||/"
	OpFactorial  Op = "!"
	OpAbs        Op = "@"
	OpNot        Op = "NOT"
	OpBitNot     Op = "~"
	OpCast       Op = "CAST"
)

// NodeKind discriminates the Node variant: `BiOp | UnOp | Item`.
type NodeKind int

const (
	NodeBiOp NodeKind = iota
	NodeUnOp
	NodeItem
)

// Node is the untyped tree shape: `BiOp{left, op, right} |
// UnOp{op, item} | Item(...)` (spec.md §4.6). Every BiOp/Const node
// gains a Family annotation once C7 (internal/typeinfer) runs; Family
// is FamilyUnknown until then, which also happens to be correct for a
// bare Null literal.
type Node struct {
	kind   NodeKind
	op     Op
	left   *Node
	right  *Node
	item   Item
	Family types.SqlTypeFamily
}

// SetLeft/SetRight let C7 (internal/typeinfer) rewrap an operand in an
// implicit Cast UnOp node (spec.md §4.7: "the smaller side is wrapped
// in a Cast to the larger").
func (n *Node) SetLeft(c *Node)  { n.left = c }
func (n *Node) SetRight(c *Node) { n.right = c }

// CastTo builds the implicit-coercion UnOp node spec.md §4.7 describes.
func CastTo(family types.SqlTypeFamily, operand *Node) *Node {
	return &Node{kind: NodeUnOp, op: OpCast, left: operand, Family: family}
}

func BiOp(left *Node, op Op, right *Node) *Node {
	return &Node{kind: NodeBiOp, op: op, left: left, right: right}
}

func UnOp(op Op, item *Node) *Node {
	return &Node{kind: NodeUnOp, op: op, left: item}
}

func Leaf(it Item) *Node {
	return &Node{kind: NodeItem, item: it}
}

func (n *Node) Kind() NodeKind { return n.kind }
func (n *Node) Op() Op         { return n.op }
func (n *Node) Left() *Node    { return n.left }
func (n *Node) Right() *Node   { return n.right }
func (n *Node) Item() Item     { return n.item }

// Statement is the root of a parsed unit, as produced by the Parser
// boundary of SPEC_FULL.md §4.12. It is a Definition, a Query, or a
// Control statement (the SET/BEGIN/COMMIT/PREPARE/DEALLOCATE
// supplementary surface of SPEC_FULL.md §10); exactly one of the three
// accessors is meaningful, discriminated by IsDefinition/IsControl.
type Statement struct {
	IsDefinition bool
	IsControl    bool
	Def          Definition
	Qry          Query
	Ctl          Control
}

// ControlKind discriminates the Control variant (SPEC_FULL.md §10
// items 1-3: these statements are batch-level bookkeeping, not DDL/DML).
type ControlKind int

const (
	CtlSet ControlKind = iota
	CtlBegin
	CtlCommit
	CtlPrepare
	CtlDeallocate
)

// Control is a parsed SET/BEGIN/COMMIT/PREPARE/DEALLOCATE statement.
type Control struct {
	Kind ControlKind

	// Set
	Name  string
	Value string

	// Prepare
	StmtName string
	PrepareSQL string

	// Deallocate
	DeallocateName string
}

// DefKind discriminates the Definition variant: `CreateSchema |
// DropSchemas | CreateTable | DropTables | CreateIndex` (spec.md
// §4.9).
type DefKind int

const (
	DefCreateSchema DefKind = iota
	DefDropSchemas
	DefCreateTable
	DefDropTables
	DefCreateIndex
)

// ColumnSpec is a parsed `name TYPE` pair, before the planner maps
// DataType to internal/types.SqlType (spec.md §4.9: "varchar defaults
// to length 255 when unspecified").
type ColumnSpec struct {
	Name     string
	TypeName string // e.g. "smallint", "integer", "bigint", "real", "double precision", "bool", "char", "varchar"
	Length   uint64 // meaningful only for char/varchar; 0 means unspecified
	HasLength bool
}

// TableRef is a parsed, not-yet-resolved `schema.table` reference.
type TableRef struct {
	Schema, Table string
}

// Definition is the tagged union of DDL statement shapes.
type Definition struct {
	Kind DefKind

	// CreateSchema / DropSchemas
	SchemaNames []string
	IfExists    bool
	IfNotExists bool
	Cascade     bool

	// CreateTable
	Table   TableRef
	Columns []ColumnSpec

	// DropTables
	Tables []TableRef

	// CreateIndex
	IndexName    string
	IndexTable   TableRef
	IndexColumns []string
}

// QryKind discriminates the Query variant: `Insert | Update | Delete |
// Select` (spec.md §4.10).
type QryKind int

const (
	QryInsert QryKind = iota
	QryUpdate
	QryDelete
	QrySelect
)

// Assignment is one `col = expr` pair of an UPDATE statement.
type Assignment struct {
	Column string
	Value  *Node
}

// Projection is one SELECT output item: either the `*` wildcard or a
// single column reference by name.
type Projection struct {
	Wildcard bool
	Column   string
}

// Query is the tagged union of DML statement shapes. Expression nodes
// (Values, Where, Assignments[i].Value) are built from literals, params
// and name-only Column leaves at this stage — Column resolution to a
// concrete index/family happens in the planner once the target table
// is known.
type Query struct {
	Kind  QryKind
	Table TableRef

	// Insert
	InsertColumns []string
	Values        [][]*Node

	// Update
	Assignments []Assignment

	// Select
	Projections []Projection

	// Update / Delete / Select
	Where *Node
}

// Parser is the boundary SPEC_FULL.md §4.12 describes: a single
// Parse(sql) entry point any SQL frontend implementation (internal/sqlfront
// or a future replacement) must satisfy so the planner (C9/C10) never
// depends on a concrete grammar implementation.
type Parser interface {
	Parse(sql string) (Statement, error)
}

package types

import (
	"strings"

	"github.com/alex-dukhno/pgcore/pgerr"
)

// SchemaName is a lowercase single identifier, unique within the
// catalog (spec.md §3). Case-folding happens at the boundary, in
// FoldIdent.
type SchemaName = string

// FullTableName is the mandatory (schema, table) pair; spec.md §3
// requires qualified names everywhere in DDL/DML.
type FullTableName struct {
	Schema SchemaName
	Table  string
}

func (n FullTableName) String() string { return n.Schema + "." + n.Table }

// FoldIdent case-folds an identifier the way every boundary (parser
// output, wire text) must before it reaches the catalog.
func FoldIdent(s string) string { return strings.ToLower(s) }

// ParseQualifiedName enforces the exactly-two-parts rule of spec.md §3
// and §4.10 ("Resolve schema.table (exactly two parts required);
// unqualified or deeper names are naming-error").
func ParseQualifiedName(raw string) (FullTableName, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return FullTableName{}, pgerr.New(pgerr.KindNamingError,
			"only qualified names are supported, unable to process %q", raw)
	}
	return FullTableName{Schema: FoldIdent(parts[0]), Table: FoldIdent(parts[1])}, nil
}

// ColumnDef is (name, sql_type, ord_num); ordinal is assigned in
// declaration order and never reused (spec.md §3 invariant 2).
type ColumnDef struct {
	Name   string
	Type   SqlType
	OrdNum int
}

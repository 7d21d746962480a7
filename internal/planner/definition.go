// Package planner is C9/C10: it turns a parsed ast.Statement into
// either a SchemaChange (DDL) or a DML Plan, resolving names and
// column layout against the catalog before the executor (C11) runs.
// Pure mapping per spec.md §4.9/§4.10; no pack dependency applies.
package planner

import (
	"github.com/alex-dukhno/pgcore/internal/ast"
	"github.com/alex-dukhno/pgcore/internal/catalog"
	"github.com/alex-dukhno/pgcore/internal/types"
	"github.com/alex-dukhno/pgcore/pgerr"
)

// ChangeKind discriminates the SchemaChange variant.
type ChangeKind int

const (
	ChangeCreateSchema ChangeKind = iota
	ChangeDropSchemas
	ChangeCreateTable
	ChangeDropTables
	ChangeCreateIndex
)

// SchemaChange is C9's output: a fully-resolved catalog mutation ready
// for the executor to hand straight to internal/catalog.
type SchemaChange struct {
	Kind ChangeKind

	SchemaNames []string
	IfExists    bool
	IfNotExists bool
	Cascade     bool

	Table   types.FullTableName
	Columns []types.ColumnDef

	Tables []types.FullTableName

	IndexName    string
	IndexTable   types.FullTableName
	IndexColumns []string
}

// PlanDefinition implements C9: spec.md §4.9's existence preconditions
// plus the DataType -> SqlType mapping ("varchar defaults to length
// 255 when unspecified").
func PlanDefinition(def ast.Definition, cat *catalog.Catalog) (SchemaChange, error) {
	switch def.Kind {
	case ast.DefCreateSchema:
		return SchemaChange{Kind: ChangeCreateSchema, SchemaNames: lowerAll(def.SchemaNames), IfNotExists: def.IfNotExists}, nil

	case ast.DefDropSchemas:
		return SchemaChange{Kind: ChangeDropSchemas, SchemaNames: lowerAll(def.SchemaNames), IfExists: def.IfExists, Cascade: def.Cascade}, nil

	case ast.DefCreateTable:
		schema := types.FoldIdent(def.Table.Schema)
		table := types.FoldIdent(def.Table.Table)
		if !cat.SchemaExists(schema) {
			return SchemaChange{}, pgerr.New(pgerr.KindSchemaDoesNotExist, "schema %q does not exist", schema).With("schema", schema)
		}
		cols, err := mapColumns(def.Columns)
		if err != nil {
			return SchemaChange{}, err
		}
		return SchemaChange{
			Kind:        ChangeCreateTable,
			Table:       types.FullTableName{Schema: schema, Table: table},
			Columns:     cols,
			IfNotExists: def.IfNotExists,
		}, nil

	case ast.DefDropTables:
		refs := make([]types.FullTableName, 0, len(def.Tables))
		for _, ref := range def.Tables {
			schema := types.FoldIdent(ref.Schema)
			if !cat.SchemaExists(schema) {
				return SchemaChange{}, pgerr.New(pgerr.KindSchemaDoesNotExist, "schema %q does not exist", schema).With("schema", schema)
			}
			refs = append(refs, types.FullTableName{Schema: schema, Table: types.FoldIdent(ref.Table)})
		}
		return SchemaChange{Kind: ChangeDropTables, Tables: refs, IfExists: def.IfExists}, nil

	case ast.DefCreateIndex:
		schema := types.FoldIdent(def.IndexTable.Schema)
		table := types.FoldIdent(def.IndexTable.Table)
		if !cat.SchemaExists(schema) {
			return SchemaChange{}, pgerr.New(pgerr.KindSchemaDoesNotExist, "schema %q does not exist", schema).With("schema", schema)
		}
		if !cat.TableExists(schema, table) {
			return SchemaChange{}, pgerr.New(pgerr.KindTableDoesNotExist, "table %q does not exist", table).With("schema", schema).With("table", table)
		}
		for _, col := range def.IndexColumns {
			if _, ok := cat.Column(schema, table, types.FoldIdent(col)); !ok {
				return SchemaChange{}, pgerr.New(pgerr.KindColumnDoesNotExist, "column %q does not exist on %s.%s", col, schema, table).
					With("schema", schema).With("table", table).With("column", col)
			}
		}
		return SchemaChange{
			Kind:         ChangeCreateIndex,
			IndexName:    types.FoldIdent(def.IndexName),
			IndexTable:   types.FullTableName{Schema: schema, Table: table},
			IndexColumns: lowerAll(def.IndexColumns),
		}, nil
	}
	return SchemaChange{}, pgerr.New(pgerr.KindInternal, "definition of unknown kind")
}

func lowerAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = types.FoldIdent(n)
	}
	return out
}

// mapColumns maps parsed ast.ColumnSpec to internal/types.ColumnDef,
// assigning ordinals in declaration order (spec.md §3 invariant 2) and
// defaulting unspecified varchar length to 255 (spec.md §4.9).
func mapColumns(specs []ast.ColumnSpec) ([]types.ColumnDef, error) {
	out := make([]types.ColumnDef, 0, len(specs))
	seen := map[string]bool{}
	for i, spec := range specs {
		name := types.FoldIdent(spec.Name)
		if seen[name] {
			return nil, pgerr.New(pgerr.KindDuplicateColumn, "column %q specified more than once", name).With("column", name)
		}
		seen[name] = true
		sqlType, err := mapDataType(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, types.ColumnDef{Name: name, Type: sqlType, OrdNum: i})
	}
	return out, nil
}

func mapDataType(spec ast.ColumnSpec) (types.SqlType, error) {
	switch spec.TypeName {
	case "bool", "boolean":
		return types.Bool(), nil
	case "smallint", "int2":
		return types.Num(types.NumSmallInt), nil
	case "integer", "int", "int4":
		return types.Num(types.NumInteger), nil
	case "bigint", "int8":
		return types.Num(types.NumBigInt), nil
	case "real", "float4":
		return types.Num(types.NumReal), nil
	case "double precision", "float8":
		return types.Num(types.NumDouble), nil
	case "char", "character":
		length := spec.Length
		if !spec.HasLength {
			length = 1
		}
		return types.Str(length, types.StrConst), nil
	case "varchar", "character varying":
		length := spec.Length
		if !spec.HasLength {
			length = 255
		}
		return types.Str(length, types.StrVar), nil
	}
	return types.SqlType{}, pgerr.New(pgerr.KindFeatureNotSupported, "unsupported column type %q", spec.TypeName)
}

package planner

import (
	"github.com/alex-dukhno/pgcore/internal/ast"
	"github.com/alex-dukhno/pgcore/internal/catalog"
	"github.com/alex-dukhno/pgcore/internal/types"
	"github.com/alex-dukhno/pgcore/pgerr"
)

// PlanKind discriminates the Plan variant: `Insert | Update | Delete |
// Select` (spec.md §4.10).
type PlanKind int

const (
	PlanInsert PlanKind = iota
	PlanUpdate
	PlanDelete
	PlanSelect
)

// ResolvedAssignment is one `col = expr` pair with expr's Column items
// resolved against the target table.
type ResolvedAssignment struct {
	Column types.ColumnDef
	Value  *ast.Node
}

// ResolvedProjection is one SELECT output column, expanded from `*`
// or validated by name, in declaration order.
type ResolvedProjection struct {
	Column types.ColumnDef
}

// Plan is C10's output: a fully name-resolved DML operation ready for
// C11 to execute against catalog + storage.
type Plan struct {
	Kind  PlanKind
	Table types.FullTableName

	// Insert
	InsertColumns []types.ColumnDef
	Rows          [][]*ast.Node

	// Update
	Assignments []ResolvedAssignment

	// Select
	Projections []ResolvedProjection

	// Update / Delete / Select
	Where *ast.Node
}

// PlanQuery implements C10: resolves `schema.table` (exactly two parts
// already enforced by the frontend's table-reference parser),
// resolves columns, and shapes the statement into a Plan.
func PlanQuery(q ast.Query, cat *catalog.Catalog) (Plan, error) {
	schema := types.FoldIdent(q.Table.Schema)
	table := types.FoldIdent(q.Table.Table)
	full := types.FullTableName{Schema: schema, Table: table}

	if !cat.SchemaExists(schema) {
		return Plan{}, pgerr.New(pgerr.KindSchemaDoesNotExist, "schema %q does not exist", schema).With("schema", schema)
	}
	if !cat.TableExists(schema, table) {
		return Plan{}, pgerr.New(pgerr.KindTableDoesNotExist, "table %q does not exist", table).With("schema", schema).With("table", table)
	}
	cols := cat.Columns(schema, table)

	switch q.Kind {
	case ast.QryInsert:
		return planInsert(q, full, cols)
	case ast.QryUpdate:
		return planUpdate(q, full, cols)
	case ast.QryDelete:
		return planDelete(q, full, cols)
	case ast.QrySelect:
		return planSelect(q, full, cols)
	}
	return Plan{}, pgerr.New(pgerr.KindInternal, "query of unknown kind")
}

func planInsert(q ast.Query, full types.FullTableName, cols []types.ColumnDef) (Plan, error) {
	var targets []types.ColumnDef
	if len(q.InsertColumns) == 0 {
		targets = cols
	} else {
		seen := map[string]bool{}
		for _, name := range q.InsertColumns {
			n := types.FoldIdent(name)
			if seen[n] {
				return Plan{}, pgerr.New(pgerr.KindDuplicateColumn, "column %q specified more than once", n).With("column", n)
			}
			seen[n] = true
			cd, ok := findColumn(cols, n)
			if !ok {
				return Plan{}, pgerr.New(pgerr.KindColumnDoesNotExist, "column %q does not exist on %s", n, full).
					With("schema", full.Schema).With("table", full.Table).With("column", n)
			}
			targets = append(targets, cd)
		}
	}
	for _, row := range q.Values {
		if len(row) > len(targets) {
			return Plan{}, pgerr.New(pgerr.KindDatatypeMismatch, "row has more values (%d) than target columns (%d)", len(row), len(targets))
		}
	}
	return Plan{Kind: PlanInsert, Table: full, InsertColumns: targets, Rows: q.Values}, nil
}

func planUpdate(q ast.Query, full types.FullTableName, cols []types.ColumnDef) (Plan, error) {
	assigns := make([]ResolvedAssignment, 0, len(q.Assignments))
	for _, a := range q.Assignments {
		cd, ok := findColumn(cols, types.FoldIdent(a.Column))
		if !ok {
			return Plan{}, pgerr.New(pgerr.KindColumnDoesNotExist, "column %q does not exist on %s", a.Column, full).
				With("schema", full.Schema).With("table", full.Table).With("column", a.Column)
		}
		resolved, err := resolveColumns(a.Value, cols, full)
		if err != nil {
			return Plan{}, err
		}
		assigns = append(assigns, ResolvedAssignment{Column: cd, Value: resolved})
	}
	where, err := resolveColumns(q.Where, cols, full)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Kind: PlanUpdate, Table: full, Assignments: assigns, Where: where}, nil
}

func planDelete(q ast.Query, full types.FullTableName, cols []types.ColumnDef) (Plan, error) {
	where, err := resolveColumns(q.Where, cols, full)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Kind: PlanDelete, Table: full, Where: where}, nil
}

func planSelect(q ast.Query, full types.FullTableName, cols []types.ColumnDef) (Plan, error) {
	var projections []ResolvedProjection
	for _, p := range q.Projections {
		if p.Wildcard {
			for _, cd := range cols {
				projections = append(projections, ResolvedProjection{Column: cd})
			}
			continue
		}
		cd, ok := findColumn(cols, types.FoldIdent(p.Column))
		if !ok {
			return Plan{}, pgerr.New(pgerr.KindColumnDoesNotExist, "column %q does not exist on %s", p.Column, full).
				With("schema", full.Schema).With("table", full.Table).With("column", p.Column)
		}
		projections = append(projections, ResolvedProjection{Column: cd})
	}
	where, err := resolveColumns(q.Where, cols, full)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Kind: PlanSelect, Table: full, Projections: projections, Where: where}, nil
}

func findColumn(cols []types.ColumnDef, name string) (types.ColumnDef, bool) {
	for _, cd := range cols {
		if cd.Name == name {
			return cd, true
		}
	}
	return types.ColumnDef{}, false
}

// resolveColumns rewrites every unresolved Column leaf in tree (built
// by the frontend with only a Name) into one carrying the table's
// actual ordinal Index and SqlTypeFamily, per spec.md §4.10's column
// resolution responsibilities. nil trees (no WHERE clause) pass
// through unchanged.
func resolveColumns(tree *ast.Node, cols []types.ColumnDef, full types.FullTableName) (*ast.Node, error) {
	if tree == nil {
		return nil, nil
	}
	switch tree.Kind() {
	case ast.NodeItem:
		it := tree.Item()
		if it.Kind() != ast.ItemColumn {
			return tree, nil
		}
		ref := it.ColumnRef()
		cd, ok := findColumn(cols, types.FoldIdent(ref.Name))
		if !ok {
			return nil, pgerr.New(pgerr.KindColumnDoesNotExist, "column %q does not exist on %s", ref.Name, full).
				With("schema", full.Schema).With("table", full.Table).With("column", ref.Name)
		}
		return ast.Leaf(ast.Column(ast.ColumnRef{Name: cd.Name, Family: cd.Type.Family(), Index: cd.OrdNum})), nil
	case ast.NodeUnOp:
		resolved, err := resolveColumns(tree.Left(), cols, full)
		if err != nil {
			return nil, err
		}
		tree.SetLeft(resolved)
		return tree, nil
	case ast.NodeBiOp:
		left, err := resolveColumns(tree.Left(), cols, full)
		if err != nil {
			return nil, err
		}
		right, err := resolveColumns(tree.Right(), cols, full)
		if err != nil {
			return nil, err
		}
		tree.SetLeft(left)
		tree.SetRight(right)
		return tree, nil
	}
	return tree, nil
}

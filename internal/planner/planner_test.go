package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-dukhno/pgcore/internal/ast"
	"github.com/alex-dukhno/pgcore/internal/catalog"
	"github.com/alex-dukhno/pgcore/internal/storage"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New(storage.NewMemStore())
	_, err := cat.CreateSchema("shop", false)
	require.NoError(t, err)
	return cat
}

func TestPlanCreateTableDefaultsVarcharLength(t *testing.T) {
	cat := newTestCatalog(t)
	def := ast.Definition{
		Kind:  ast.DefCreateTable,
		Table: ast.TableRef{Schema: "shop", Table: "items"},
		Columns: []ast.ColumnSpec{
			{Name: "name", TypeName: "varchar"},
		},
	}
	change, err := PlanDefinition(def, cat)
	require.NoError(t, err)
	require.Len(t, change.Columns, 1)
	assert.Equal(t, uint64(255), change.Columns[0].Type.StrLen())
}

func TestPlanCreateTableMissingSchemaFails(t *testing.T) {
	cat := newTestCatalog(t)
	def := ast.Definition{
		Kind:  ast.DefCreateTable,
		Table: ast.TableRef{Schema: "ghost", Table: "items"},
	}
	_, err := PlanDefinition(def, cat)
	require.Error(t, err)
}

func TestPlanDuplicateColumnFails(t *testing.T) {
	cat := newTestCatalog(t)
	def := ast.Definition{
		Kind:  ast.DefCreateTable,
		Table: ast.TableRef{Schema: "shop", Table: "items"},
		Columns: []ast.ColumnSpec{
			{Name: "id", TypeName: "integer"},
			{Name: "id", TypeName: "integer"},
		},
	}
	_, err := PlanDefinition(def, cat)
	require.Error(t, err)
}

func TestPlanQueryMissingTableFails(t *testing.T) {
	cat := newTestCatalog(t)
	q := ast.Query{Kind: ast.QrySelect, Table: ast.TableRef{Schema: "shop", Table: "ghost"}}
	_, err := PlanQuery(q, cat)
	require.Error(t, err)
}

func TestPlanSelectWildcardExpandsColumns(t *testing.T) {
	cat := newTestCatalog(t)
	def := ast.Definition{
		Kind:  ast.DefCreateTable,
		Table: ast.TableRef{Schema: "shop", Table: "items"},
		Columns: []ast.ColumnSpec{
			{Name: "id", TypeName: "integer"},
			{Name: "name", TypeName: "varchar"},
		},
	}
	change, err := PlanDefinition(def, cat)
	require.NoError(t, err)
	_, err = cat.CreateTable(change.Table.Schema, change.Table.Table, change.Columns, false)
	require.NoError(t, err)

	q := ast.Query{
		Kind:        ast.QrySelect,
		Table:       ast.TableRef{Schema: "shop", Table: "items"},
		Projections: []ast.Projection{{Wildcard: true}},
	}
	plan, err := PlanQuery(q, cat)
	require.NoError(t, err)
	require.Len(t, plan.Projections, 2)
	assert.Equal(t, "id", plan.Projections[0].Column.Name)
	assert.Equal(t, "name", plan.Projections[1].Column.Name)
}

package executor

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-dukhno/pgcore/internal/ast"
	"github.com/alex-dukhno/pgcore/internal/catalog"
	"github.com/alex-dukhno/pgcore/internal/planner"
	"github.com/alex-dukhno/pgcore/internal/storage"
	"github.com/alex-dukhno/pgcore/internal/types"
)

func newTestExecutor(t *testing.T) (*Executor, *catalog.Catalog) {
	t.Helper()
	store := storage.NewMemStore()
	cat := catalog.New(store)
	_, err := cat.CreateSchema("shop", false)
	require.NoError(t, err)
	cols := []types.ColumnDef{
		{Name: "id", Type: types.Num(types.NumInteger)},
		{Name: "name", Type: types.Str(32, types.StrVar)},
	}
	_, err = cat.CreateTable("shop", "items", cols, false)
	require.NoError(t, err)
	return New(cat, store), cat
}

func numLit(n int64) *ast.Node {
	return ast.Leaf(ast.Const(ast.NumberValue(decimal.NewFromInt(n))))
}

func strLit(s string) *ast.Node {
	return ast.Leaf(ast.Const(ast.StringValue(s)))
}

func TestInsertThenSelect(t *testing.T) {
	exec, cat := newTestExecutor(t)

	insertQuery := ast.Query{
		Kind:   ast.QryInsert,
		Table:  ast.TableRef{Schema: "shop", Table: "items"},
		Values: [][]*ast.Node{{numLit(1), strLit("widget")}},
	}
	plan, err := planner.PlanQuery(insertQuery, cat)
	require.NoError(t, err)
	out, err := exec.Execute(plan, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, RecordsInserted, out.Kind)
	assert.Equal(t, 1, out.Count)

	selectQuery := ast.Query{
		Kind:        ast.QrySelect,
		Table:       ast.TableRef{Schema: "shop", Table: "items"},
		Projections: []ast.Projection{{Wildcard: true}},
	}
	plan, err = planner.PlanQuery(selectQuery, cat)
	require.NoError(t, err)
	out, err = exec.Execute(plan, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, RecordsSelected, out.Kind)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, int64(1), out.Rows[0][0].Int64())
	assert.Equal(t, "widget", out.Rows[0][1].Text())
}

func TestInsertStringTooLongFails(t *testing.T) {
	exec, cat := newTestExecutor(t)
	long := ""
	for i := 0; i < 40; i++ {
		long += "x"
	}
	insertQuery := ast.Query{
		Kind:   ast.QryInsert,
		Table:  ast.TableRef{Schema: "shop", Table: "items"},
		Values: [][]*ast.Node{{numLit(1), strLit(long)}},
	}
	plan, err := planner.PlanQuery(insertQuery, cat)
	require.NoError(t, err)
	_, err = exec.Execute(plan, nil, nil)
	require.Error(t, err)
}

func TestInsertedIntegerLiteralIsStoredWithColumnFamily(t *testing.T) {
	store := storage.NewMemStore()
	cat := catalog.New(store)
	_, err := cat.CreateSchema("shop", false)
	require.NoError(t, err)
	cols := []types.ColumnDef{{Name: "price", Type: types.Num(types.NumReal)}}
	_, err = cat.CreateTable("shop", "prices", cols, false)
	require.NoError(t, err)
	exec := New(cat, store)

	insertQuery := ast.Query{
		Kind:   ast.QryInsert,
		Table:  ast.TableRef{Schema: "shop", Table: "prices"},
		Values: [][]*ast.Node{{numLit(5)}},
	}
	plan, err := planner.PlanQuery(insertQuery, cat)
	require.NoError(t, err)
	out, err := exec.Execute(plan, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, RecordsInserted, out.Kind)

	selectQuery := ast.Query{
		Kind:        ast.QrySelect,
		Table:       ast.TableRef{Schema: "shop", Table: "prices"},
		Projections: []ast.Projection{{Wildcard: true}},
	}
	plan, err = planner.PlanQuery(selectQuery, cat)
	require.NoError(t, err)
	out, err = exec.Execute(plan, nil, nil)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, types.FamilyReal, out.Rows[0][0].Family())
	assert.Equal(t, float64(5), out.Rows[0][0].Float64())
}

func TestUpdateWithWhere(t *testing.T) {
	exec, cat := newTestExecutor(t)
	for _, v := range []struct {
		id   int64
		name string
	}{{1, "a"}, {2, "b"}} {
		insertQuery := ast.Query{
			Kind:   ast.QryInsert,
			Table:  ast.TableRef{Schema: "shop", Table: "items"},
			Values: [][]*ast.Node{{numLit(v.id), strLit(v.name)}},
		}
		plan, err := planner.PlanQuery(insertQuery, cat)
		require.NoError(t, err)
		_, err = exec.Execute(plan, nil, nil)
		require.NoError(t, err)
	}

	where := ast.BiOp(ast.Leaf(ast.Column(ast.ColumnRef{Name: "id"})), ast.OpEq, numLit(2))
	updateQuery := ast.Query{
		Kind:        ast.QryUpdate,
		Table:       ast.TableRef{Schema: "shop", Table: "items"},
		Assignments: []ast.Assignment{{Column: "name", Value: strLit("z")}},
		Where:       where,
	}
	plan, err := planner.PlanQuery(updateQuery, cat)
	require.NoError(t, err)
	out, err := exec.Execute(plan, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, RecordsUpdated, out.Kind)
	assert.Equal(t, 1, out.Count)
}

func TestDeleteAll(t *testing.T) {
	exec, cat := newTestExecutor(t)
	insertQuery := ast.Query{
		Kind:   ast.QryInsert,
		Table:  ast.TableRef{Schema: "shop", Table: "items"},
		Values: [][]*ast.Node{{numLit(1), strLit("a")}, {numLit(2), strLit("b")}},
	}
	plan, err := planner.PlanQuery(insertQuery, cat)
	require.NoError(t, err)
	_, err = exec.Execute(plan, nil, nil)
	require.NoError(t, err)

	deleteQuery := ast.Query{Kind: ast.QryDelete, Table: ast.TableRef{Schema: "shop", Table: "items"}}
	plan, err = planner.PlanQuery(deleteQuery, cat)
	require.NoError(t, err)
	out, err := exec.Execute(plan, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, RecordsDeleted, out.Kind)
	assert.Equal(t, 2, out.Count)
}

package catalog

import (
	"testing"

	"github.com/alex-dukhno/pgcore/internal/storage"
	"github.com/alex-dukhno/pgcore/internal/types"
	"github.com/alex-dukhno/pgcore/pgerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog() *Catalog {
	return New(storage.NewMemStore())
}

func TestCreateAndDropSchema(t *testing.T) {
	c := newTestCatalog()
	_, err := c.CreateSchema("sales", false)
	require.NoError(t, err)
	assert.True(t, c.SchemaExists("sales"))

	_, err = c.DropSchemas([]string{"sales"}, false, false)
	require.NoError(t, err)
	assert.False(t, c.SchemaExists("sales"))
}

func TestCreateSchemaAlreadyExists(t *testing.T) {
	c := newTestCatalog()
	_, err := c.CreateSchema("sales", false)
	require.NoError(t, err)

	_, err = c.CreateSchema("sales", false)
	require.Error(t, err)
	pgErr, ok := pgerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pgerr.KindSchemaAlreadyExists, pgErr.Kind)
	assert.True(t, c.SchemaExists("sales"))
}

func TestCreateSchemaIfNotExistsIsNoop(t *testing.T) {
	c := newTestCatalog()
	_, err := c.CreateSchema("sales", false)
	require.NoError(t, err)

	_, err = c.CreateSchema("sales", true)
	require.NoError(t, err)
}

func TestDropSchemaDoesNotExist(t *testing.T) {
	c := newTestCatalog()
	_, err := c.DropSchemas([]string{"ghost"}, false, false)
	require.Error(t, err)
	pgErr, ok := pgerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pgerr.KindSchemaDoesNotExist, pgErr.Kind)
}

func TestDropSchemaIfExistsIsNoop(t *testing.T) {
	c := newTestCatalog()
	_, err := c.DropSchemas([]string{"ghost"}, true, false)
	require.NoError(t, err)
}

func TestDropSchemaWithTablesWithoutCascadeFails(t *testing.T) {
	c := newTestCatalog()
	_, err := c.CreateSchema("sales", false)
	require.NoError(t, err)
	_, err = c.CreateTable("sales", "orders", nil, false)
	require.NoError(t, err)

	_, err = c.DropSchemas([]string{"sales"}, false, false)
	require.Error(t, err)
	pgErr, ok := pgerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pgerr.KindSchemaHasDependants, pgErr.Kind)

	// catalog state must be unchanged: schema and table both survive.
	assert.True(t, c.SchemaExists("sales"))
	assert.True(t, c.TableExists("sales", "orders"))
}

func TestDropSchemaCascadeRemovesTables(t *testing.T) {
	c := newTestCatalog()
	_, err := c.CreateSchema("sales", false)
	require.NoError(t, err)
	_, err = c.CreateTable("sales", "orders", nil, false)
	require.NoError(t, err)
	_, err = c.CreateTable("sales", "invoices", nil, false)
	require.NoError(t, err)

	_, err = c.DropSchemas([]string{"sales"}, false, true)
	require.NoError(t, err)
	assert.False(t, c.SchemaExists("sales"))
}

func TestCreateTableRequiresExistingSchema(t *testing.T) {
	c := newTestCatalog()
	_, err := c.CreateTable("ghost", "orders", nil, false)
	require.Error(t, err)
	pgErr, ok := pgerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pgerr.KindSchemaDoesNotExist, pgErr.Kind)
}

func TestCreateTableIfNotExistsPreservesExistingColumns(t *testing.T) {
	c := newTestCatalog()
	_, err := c.CreateSchema("sales", false)
	require.NoError(t, err)

	cols := []types.ColumnDef{{Name: "id", Type: types.Num(types.NumInteger)}}
	_, err = c.CreateTable("sales", "orders", cols, false)
	require.NoError(t, err)

	// a second CREATE TABLE IF NOT EXISTS with a different column list
	// must leave the existing table's columns untouched.
	differentCols := []types.ColumnDef{
		{Name: "id", Type: types.Num(types.NumInteger)},
		{Name: "total", Type: types.Num(types.NumDouble)},
	}
	_, err = c.CreateTable("sales", "orders", differentCols, true)
	require.NoError(t, err)

	got := c.Columns("sales", "orders")
	require.Len(t, got, 1)
	assert.Equal(t, "id", got[0].Name)
}

func TestCreateTableAlreadyExistsWithoutIfNotExistsFails(t *testing.T) {
	c := newTestCatalog()
	_, err := c.CreateSchema("sales", false)
	require.NoError(t, err)
	_, err = c.CreateTable("sales", "orders", nil, false)
	require.NoError(t, err)

	_, err = c.CreateTable("sales", "orders", nil, false)
	require.Error(t, err)
	pgErr, ok := pgerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pgerr.KindTableAlreadyExists, pgErr.Kind)
}

func TestDropTableDoesNotExist(t *testing.T) {
	c := newTestCatalog()
	_, err := c.CreateSchema("sales", false)
	require.NoError(t, err)

	_, err = c.DropTables([]types.FullTableName{{Schema: "sales", Table: "ghost"}}, false)
	require.Error(t, err)
	pgErr, ok := pgerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pgerr.KindTableDoesNotExist, pgErr.Kind)
}

func TestDropTableMissingSchemaReportsSchemaNotTable(t *testing.T) {
	c := newTestCatalog()
	_, err := c.DropTables([]types.FullTableName{{Schema: "ghost", Table: "orders"}}, false)
	require.Error(t, err)
	pgErr, ok := pgerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pgerr.KindSchemaDoesNotExist, pgErr.Kind)
}

func TestDropTableIfExistsIsNoop(t *testing.T) {
	c := newTestCatalog()
	_, err := c.CreateSchema("sales", false)
	require.NoError(t, err)

	_, err = c.DropTables([]types.FullTableName{{Schema: "sales", Table: "ghost"}}, true)
	require.NoError(t, err)
}

func TestDropTablesDuplicateNamesAreIndependent(t *testing.T) {
	c := newTestCatalog()
	_, err := c.CreateSchema("sales", false)
	require.NoError(t, err)
	_, err = c.CreateTable("sales", "orders", nil, false)
	require.NoError(t, err)

	// the list names "orders" twice; the first drop removes it, the
	// second must then report table-does-not-exist rather than panic
	// or silently double-drop, since each name is processed independently.
	names := []types.FullTableName{
		{Schema: "sales", Table: "orders"},
		{Schema: "sales", Table: "orders"},
	}
	_, err = c.DropTables(names, false)
	require.Error(t, err)
	pgErr, ok := pgerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pgerr.KindTableDoesNotExist, pgErr.Kind)
	assert.False(t, c.TableExists("sales", "orders"))
}

func TestNextKeyIsBigEndianMonotonic(t *testing.T) {
	c := newTestCatalog()
	_, err := c.CreateSchema("sales", false)
	require.NoError(t, err)
	_, err = c.CreateTable("sales", "orders", nil, false)
	require.NoError(t, err)

	k1, err := c.NextKey("sales", "orders")
	require.NoError(t, err)
	k2, err := c.NextKey("sales", "orders")
	require.NoError(t, err)
	assert.Less(t, string(k1), string(k2))
}

func TestColumnOrdinalsAssignedInDeclarationOrder(t *testing.T) {
	c := newTestCatalog()
	_, err := c.CreateSchema("sales", false)
	require.NoError(t, err)
	cols := []types.ColumnDef{
		{Name: "id", Type: types.Num(types.NumInteger)},
		{Name: "name", Type: types.Str(32, types.StrVar)},
	}
	_, err = c.CreateTable("sales", "orders", cols, false)
	require.NoError(t, err)

	got := c.Columns("sales", "orders")
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].OrdNum)
	assert.Equal(t, 1, got[1].OrdNum)
}

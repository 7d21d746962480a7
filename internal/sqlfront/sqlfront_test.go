package sqlfront

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-dukhno/pgcore/internal/ast"
)

func TestSplitStatementsBasic(t *testing.T) {
	got := SplitStatements("SELECT 1; SELECT 2 ; ")
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, got)
}

func TestSplitStatementsIgnoresSemicolonInString(t *testing.T) {
	got := SplitStatements("INSERT INTO t VALUES ('a;b')")
	require.Len(t, got, 1)
	assert.Equal(t, "INSERT INTO t VALUES ('a;b')", got[0])
}

func TestSplitStatementsEmpty(t *testing.T) {
	assert.Empty(t, SplitStatements("   ;  ;"))
}

func TestParseCreateSchema(t *testing.T) {
	p := New()
	stmt, err := p.Parse("CREATE SCHEMA shop")
	require.NoError(t, err)
	require.True(t, stmt.IsDefinition)
	assert.Equal(t, ast.DefCreateSchema, stmt.Def.Kind)
	assert.Equal(t, []string{"shop"}, stmt.Def.SchemaNames)
}

func TestParseCreateTable(t *testing.T) {
	p := New()
	stmt, err := p.Parse("CREATE TABLE shop.items (id integer, name varchar(32))")
	require.NoError(t, err)
	require.True(t, stmt.IsDefinition)
	assert.Equal(t, ast.DefCreateTable, stmt.Def.Kind)
	assert.Equal(t, "shop", stmt.Def.Table.Schema)
	assert.Equal(t, "items", stmt.Def.Table.Table)
	require.Len(t, stmt.Def.Columns, 2)
	assert.Equal(t, "id", stmt.Def.Columns[0].Name)
	assert.Equal(t, "integer", stmt.Def.Columns[0].TypeName)
}

func TestParseSelect(t *testing.T) {
	p := New()
	stmt, err := p.Parse("SELECT * FROM shop.items WHERE id = 1")
	require.NoError(t, err)
	require.False(t, stmt.IsDefinition)
	require.False(t, stmt.IsControl)
	assert.Equal(t, ast.QrySelect, stmt.Qry.Kind)
	require.NotNil(t, stmt.Qry.Where)
}

func TestParseSet(t *testing.T) {
	p := New()
	stmt, err := p.Parse("SET client_encoding = 'UTF8'")
	require.NoError(t, err)
	require.True(t, stmt.IsControl)
	assert.Equal(t, ast.CtlSet, stmt.Ctl.Kind)
	assert.Equal(t, "client_encoding", stmt.Ctl.Name)
}

func TestParseBegin(t *testing.T) {
	p := New()
	stmt, err := p.Parse("BEGIN")
	require.NoError(t, err)
	require.True(t, stmt.IsControl)
	assert.Equal(t, ast.CtlBegin, stmt.Ctl.Kind)
}

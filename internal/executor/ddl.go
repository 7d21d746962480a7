package executor

import (
	"github.com/alex-dukhno/pgcore/internal/catalog"
	"github.com/alex-dukhno/pgcore/internal/planner"
	"github.com/alex-dukhno/pgcore/pgerr"
)

// ApplyChange dispatches a planner.SchemaChange (C9's output) to the
// matching Catalog mutator, completing the DDL half of C11's
// responsibility ("DDL dispatch against the catalog", spec.md §1).
func (e *Executor) ApplyChange(change planner.SchemaChange) (catalog.Outcome, error) {
	switch change.Kind {
	case planner.ChangeCreateSchema:
		var outcome catalog.Outcome
		for _, name := range change.SchemaNames {
			o, err := e.cat.CreateSchema(name, change.IfNotExists)
			if err != nil {
				return 0, err
			}
			outcome = o
		}
		return outcome, nil
	case planner.ChangeDropSchemas:
		return e.cat.DropSchemas(change.SchemaNames, change.IfExists, change.Cascade)
	case planner.ChangeCreateTable:
		return e.cat.CreateTable(change.Table.Schema, change.Table.Table, change.Columns, change.IfNotExists)
	case planner.ChangeDropTables:
		return e.cat.DropTables(change.Tables, change.IfExists)
	case planner.ChangeCreateIndex:
		return e.cat.CreateIndex(change.IndexTable.Schema, change.IndexTable.Table, change.IndexName, change.IndexColumns)
	}
	return 0, pgerr.New(pgerr.KindInternal, "schema change of unknown kind")
}

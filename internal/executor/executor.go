// Package executor is C11: it drives a planner.Plan against
// internal/catalog and the storage.Store collaborator, evaluating
// per-row expressions with C7/C8 and enforcing spec.md §4.11's
// per-column constraints. Grounded on spec.md §4.11's numbered
// procedure for each statement shape; no pack dependency applies to a
// bespoke row-constraint executor (see DESIGN.md).
package executor

import (
	"github.com/alex-dukhno/pgcore/internal/ast"
	"github.com/alex-dukhno/pgcore/internal/catalog"
	"github.com/alex-dukhno/pgcore/internal/eval"
	"github.com/alex-dukhno/pgcore/internal/planner"
	"github.com/alex-dukhno/pgcore/internal/storage"
	"github.com/alex-dukhno/pgcore/internal/typeinfer"
	"github.com/alex-dukhno/pgcore/internal/types"
	"github.com/alex-dukhno/pgcore/pgerr"
)

// OutcomeKind discriminates the DML outcome variant.
type OutcomeKind int

const (
	RecordsInserted OutcomeKind = iota
	RecordsUpdated
	RecordsDeleted
	RecordsSelected
)

// Outcome is the result of executing a Plan: a count plus, for
// Select, the emitted column descriptions and rows.
type Outcome struct {
	Kind    OutcomeKind
	Count   int
	Columns []types.ColumnDef
	Rows    []types.Row
}

// Executor ties a Catalog to the storage.Store it manages keys and
// trees in.
type Executor struct {
	cat   *catalog.Catalog
	store storage.Store
}

func New(cat *catalog.Catalog, store storage.Store) *Executor {
	return &Executor{cat: cat, store: store}
}

// Execute runs plan to completion (spec.md §4.11 and §4.10/§4.11's
// numbered per-statement procedures). paramFamilies is the declared
// type-family of each numbered parameter the session bound (spec.md
// §4.7's C7 input); it may be nil for a statement with no parameters.
func (e *Executor) Execute(plan planner.Plan, params []types.Datum, paramFamilies typeinfer.ParamFamilies) (Outcome, error) {
	switch plan.Kind {
	case planner.PlanInsert:
		return e.execInsert(plan, params, paramFamilies)
	case planner.PlanUpdate:
		return e.execUpdate(plan, params, paramFamilies)
	case planner.PlanDelete:
		return e.execDelete(plan, params, paramFamilies)
	case planner.PlanSelect:
		return e.execSelect(plan, params, paramFamilies)
	}
	return Outcome{}, pgerr.New(pgerr.KindInternal, "plan of unknown kind")
}

func (e *Executor) execInsert(plan planner.Plan, params []types.Datum, paramFamilies typeinfer.ParamFamilies) (Outcome, error) {
	var pairs []storage.KV
	for _, rowExprs := range plan.Rows {
		row := make(types.Row, len(plan.InsertColumns))
		for i, cd := range plan.InsertColumns {
			var expr *ast.Node
			if i < len(rowExprs) {
				expr = rowExprs[i]
			} else {
				expr = ast.Leaf(ast.Const(ast.Null()))
			}
			if _, err := typeinfer.Infer(expr, paramFamilies); err != nil {
				return Outcome{}, err
			}
			d, err := eval.Eval(expr, params, nil)
			if err != nil {
				return Outcome{}, err
			}
			if err := checkColumnConstraint(d, cd); err != nil {
				return Outcome{}, err
			}
			d, err = coerceToColumn(d, cd)
			if err != nil {
				return Outcome{}, err
			}
			row[i] = d
		}
		key, err := e.cat.NextKey(plan.Table.Schema, plan.Table.Table)
		if err != nil {
			return Outcome{}, err
		}
		pairs = append(pairs, storage.KV{Key: key, Value: types.PackRow(row)})
	}
	n, err := e.store.Write(plan.Table.Schema, plan.Table.Table, pairs)
	if err != nil {
		return Outcome{}, pgerr.Wrap(err, pgerr.KindInternal, "write to %s", plan.Table)
	}
	return Outcome{Kind: RecordsInserted, Count: n}, nil
}

func (e *Executor) execUpdate(plan planner.Plan, params []types.Datum, paramFamilies typeinfer.ParamFamilies) (Outcome, error) {
	if plan.Where != nil {
		if _, err := typeinfer.Infer(plan.Where, paramFamilies); err != nil {
			return Outcome{}, err
		}
	}
	for _, a := range plan.Assignments {
		if _, err := typeinfer.Infer(a.Value, paramFamilies); err != nil {
			return Outcome{}, err
		}
	}
	cursor, err := e.store.Read(plan.Table.Schema, plan.Table.Table)
	if err != nil {
		return Outcome{}, pgerr.Wrap(err, pgerr.KindInternal, "read %s", plan.Table)
	}
	var pairs []storage.KV
	n := 0
	for cursor.Next() {
		kv := cursor.KV()
		row, err := types.UnpackRow(kv.Value)
		if err != nil {
			return Outcome{}, pgerr.Wrap(err, pgerr.KindInternal, "unpack row in %s", plan.Table)
		}
		if plan.Where != nil {
			match, err := evalWhere(plan.Where, params, row)
			if err != nil {
				return Outcome{}, err
			}
			if !match {
				continue
			}
		}
		updated := append(types.Row(nil), row...)
		for _, a := range plan.Assignments {
			d, err := eval.Eval(a.Value, params, row)
			if err != nil {
				return Outcome{}, err
			}
			if err := checkColumnConstraint(d, a.Column); err != nil {
				return Outcome{}, err
			}
			d, err = coerceToColumn(d, a.Column)
			if err != nil {
				return Outcome{}, err
			}
			updated[a.Column.OrdNum] = d
		}
		pairs = append(pairs, storage.KV{Key: kv.Key, Value: types.PackRow(updated)})
		n++
	}
	if len(pairs) > 0 {
		if _, err := e.store.Write(plan.Table.Schema, plan.Table.Table, pairs); err != nil {
			return Outcome{}, pgerr.Wrap(err, pgerr.KindInternal, "write to %s", plan.Table)
		}
	}
	return Outcome{Kind: RecordsUpdated, Count: n}, nil
}

func (e *Executor) execDelete(plan planner.Plan, params []types.Datum, paramFamilies typeinfer.ParamFamilies) (Outcome, error) {
	if plan.Where != nil {
		if _, err := typeinfer.Infer(plan.Where, paramFamilies); err != nil {
			return Outcome{}, err
		}
	}
	cursor, err := e.store.Read(plan.Table.Schema, plan.Table.Table)
	if err != nil {
		return Outcome{}, pgerr.Wrap(err, pgerr.KindInternal, "read %s", plan.Table)
	}
	var keys [][]byte
	for cursor.Next() {
		kv := cursor.KV()
		if plan.Where != nil {
			row, err := types.UnpackRow(kv.Value)
			if err != nil {
				return Outcome{}, pgerr.Wrap(err, pgerr.KindInternal, "unpack row in %s", plan.Table)
			}
			match, err := evalWhere(plan.Where, params, row)
			if err != nil {
				return Outcome{}, err
			}
			if !match {
				continue
			}
		}
		keys = append(keys, kv.Key)
	}
	n, err := e.store.Delete(plan.Table.Schema, plan.Table.Table, keys)
	if err != nil {
		return Outcome{}, pgerr.Wrap(err, pgerr.KindInternal, "delete from %s", plan.Table)
	}
	return Outcome{Kind: RecordsDeleted, Count: n}, nil
}

func (e *Executor) execSelect(plan planner.Plan, params []types.Datum, paramFamilies typeinfer.ParamFamilies) (Outcome, error) {
	if plan.Where != nil {
		if _, err := typeinfer.Infer(plan.Where, paramFamilies); err != nil {
			return Outcome{}, err
		}
	}
	cursor, err := e.store.Read(plan.Table.Schema, plan.Table.Table)
	if err != nil {
		return Outcome{}, pgerr.Wrap(err, pgerr.KindInternal, "read %s", plan.Table)
	}
	columns := make([]types.ColumnDef, len(plan.Projections))
	for i, p := range plan.Projections {
		columns[i] = p.Column
	}
	var rows []types.Row
	for cursor.Next() {
		kv := cursor.KV()
		row, err := types.UnpackRow(kv.Value)
		if err != nil {
			return Outcome{}, pgerr.Wrap(err, pgerr.KindInternal, "unpack row in %s", plan.Table)
		}
		if plan.Where != nil {
			match, err := evalWhere(plan.Where, params, row)
			if err != nil {
				return Outcome{}, err
			}
			if !match {
				continue
			}
		}
		out := make(types.Row, len(plan.Projections))
		for i, p := range plan.Projections {
			out[i] = row[p.Column.OrdNum]
		}
		rows = append(rows, out)
	}
	return Outcome{Kind: RecordsSelected, Count: len(rows), Columns: columns, Rows: rows}, nil
}

func evalWhere(where *ast.Node, params []types.Datum, row types.Row) (bool, error) {
	d, err := eval.Eval(where, params, row)
	if err != nil {
		return false, err
	}
	return !d.IsNull() && d.Bool(), nil
}

// checkColumnConstraint implements spec.md §4.11's per-column Insert
// checks, reused verbatim for Update.
func checkColumnConstraint(d types.Datum, col types.ColumnDef) error {
	if d.IsNull() {
		return nil
	}
	family := col.Type.Family()
	switch {
	case family.IsInteger():
		if !d.Family().IsInteger() {
			return invalidTextRepresentation(d, col)
		}
		if !types.InRange(family, d.Int64()) {
			return pgerr.New(pgerr.KindNumericOutOfRange, "value %s out of range for column %q", d.String(), col.Name).
				With("column", col.Name)
		}
	case family.IsFloat():
		if !d.Family().IsNumeric() {
			return invalidTextRepresentation(d, col)
		}
	case family == types.FamilyString:
		if d.Family() != types.FamilyString {
			return invalidTextRepresentation(d, col)
		}
		if col.Type.StrLen() > 0 && uint64(len(d.Text())) > col.Type.StrLen() {
			return pgerr.New(pgerr.KindStringDataRightTruncation, "value too long for column %q (max %d)", col.Name, col.Type.StrLen()).
				With("column", col.Name)
		}
	case family == types.FamilyBool:
		if d.Family() != types.FamilyBool {
			return invalidTextRepresentation(d, col)
		}
	}
	return nil
}

// coerceToColumn converts d to col's declared family once
// checkColumnConstraint has confirmed the value is admissible, so the
// stored datum always carries the column's family (spec.md §3
// Invariant 3) rather than the narrower or wider family the
// evaluated expression happened to produce — e.g. an integer literal
// inserted into a real column is stored as a Float32Datum, not an
// Int16Datum.
func coerceToColumn(d types.Datum, col types.ColumnDef) (types.Datum, error) {
	if d.IsNull() {
		return d, nil
	}
	return eval.Cast(d, col.Type.Family())
}

func invalidTextRepresentation(d types.Datum, col types.ColumnDef) error {
	return pgerr.New(pgerr.KindInvalidTextRepresentation, "value %q cannot be coerced into column %q of type %s", d.String(), col.Name, col.Type).
		With("column", col.Name)
}

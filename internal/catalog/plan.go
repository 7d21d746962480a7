package catalog

import (
	"github.com/alex-dukhno/pgcore/internal/storage"
	"github.com/alex-dukhno/pgcore/internal/types"
	"github.com/alex-dukhno/pgcore/pgerr"
)

// Step is one primitive, tagged-variant plan step of spec.md §4.5's
// table. Steps are interpreted in order by (*Catalog).run.
type Step interface {
	apply(c *Catalog) (existed bool, err error)
}

// StepGroup is one skip-aware slice of steps: skip_steps_if lets the
// group be short-circuited once the group's first CheckExistence probe
// is known (spec.md §4.5).
type StepGroup struct {
	SkipIf SkipPolicy
	Steps  []Step
}

// SystemOperation is the ordered catalog plan of spec.md §3: an
// ordered sequence of step-groups.
type SystemOperation struct {
	Groups []StepGroup
}

// run executes a plan transactionally: it commits iff every
// non-skipped step succeeds (spec.md §4.5 "Execution semantics").
// Because Catalog holds a single process-wide write lock, a failed
// step simply stops before mutating anything further — nothing has to
// be rolled back, matching "A failed step surfaces as a typed error
// naming the offending object."
func (c *Catalog) run(op SystemOperation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, group := range op.Groups {
		if len(group.Steps) == 0 {
			continue
		}
		first := group.Steps[0]
		existed, err := first.apply(c)
		if err != nil {
			return err
		}
		skip := (group.SkipIf == SkipIfExists && existed) ||
			(group.SkipIf == SkipIfNotExists && !existed)
		if skip {
			continue
		}
		for _, step := range group.Steps[1:] {
			if _, err := step.apply(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- CheckExistence ---

// checkExistence probes an object's presence. Which direction is a
// failure depends on whether this is a create path (failIfExists true)
// or a drop path (failIfExists false); suppress is set by the builder when a
// skip policy (IF EXISTS / IF NOT EXISTS) is in play for this group,
// in which case the probe result drives StepGroup skipping instead of
// raising an error (spec.md §4.5).
type checkExistence struct {
	kind          ObjectKind
	schema, table string
	failIfExists  bool
	suppress      bool
}

func (s checkExistence) apply(c *Catalog) (bool, error) {
	var exists, schemaMissing bool
	switch s.kind {
	case KindSchema:
		_, exists = c.schemas[s.schema]
	case KindTable:
		se, ok := c.schemas[s.schema]
		if ok {
			_, exists = se.tables[s.table]
		} else {
			schemaMissing = true
		}
	}
	if s.failIfExists {
		if exists && !s.suppress {
			if s.kind == KindSchema {
				return exists, pgerr.New(pgerr.KindSchemaAlreadyExists, "schema %q already exists", s.schema).With("schema", s.schema)
			}
			return exists, pgerr.New(pgerr.KindTableAlreadyExists, "table %q already exists", s.table).With("schema", s.schema).With("table", s.table)
		}
		return exists, nil
	}
	// drop path: failure is absence. When the table's schema is itself
	// missing, report that as the offending object.
	if !exists && !s.suppress {
		if s.kind == KindSchema || schemaMissing {
			return exists, pgerr.New(pgerr.KindSchemaDoesNotExist, "schema %q does not exist", s.schema).With("schema", s.schema)
		}
		return exists, pgerr.New(pgerr.KindTableDoesNotExist, "table %q does not exist", s.table).With("schema", s.schema).With("table", s.table)
	}
	return exists, nil
}

// --- CheckDependants ---

type checkDependants struct {
	schema string
}

func (s checkDependants) apply(c *Catalog) (bool, error) {
	se, ok := c.schemas[s.schema]
	if ok && len(se.tables) > 0 {
		return true, pgerr.New(pgerr.KindSchemaHasDependants, "schema %q has dependent objects", s.schema).With("schema", s.schema)
	}
	return false, nil
}

// --- folder/file steps (storage namespace/tree) ---

type createFolder struct{ name string }

func (s createFolder) apply(c *Catalog) (bool, error) {
	if err := c.store.CreateNamespace(s.name); err != nil {
		return false, pgerr.Wrap(err, pgerr.KindInternal, "create namespace %q", s.name)
	}
	return false, nil
}

type removeFolder struct {
	name        string
	onlyIfEmpty bool
}

func (s removeFolder) apply(c *Catalog) (bool, error) {
	if err := c.store.DropNamespace(s.name); err != nil {
		if err == storage.ErrNamespaceNotEmpty && !s.onlyIfEmpty {
			return false, nil
		}
		return false, pgerr.Wrap(err, pgerr.KindInternal, "drop namespace %q", s.name)
	}
	return false, nil
}

type createFile struct{ folder, name string }

func (s createFile) apply(c *Catalog) (bool, error) {
	if err := c.store.CreateTree(s.folder, s.name); err != nil {
		return false, pgerr.Wrap(err, pgerr.KindInternal, "create tree %s.%s", s.folder, s.name)
	}
	return false, nil
}

type removeFile struct{ folder, name string }

func (s removeFile) apply(c *Catalog) (bool, error) {
	if err := c.store.DropTree(s.folder, s.name); err != nil {
		return false, pgerr.Wrap(err, pgerr.KindInternal, "drop tree %s.%s", s.folder, s.name)
	}
	return false, nil
}

// --- metadata record steps ---

type createSchemaRecord struct{ name string }

func (s createSchemaRecord) apply(c *Catalog) (bool, error) {
	c.schemas[s.name] = &schemaEntry{tables: map[string]*tableEntry{}}
	return false, nil
}

type removeSchemaRecord struct{ name string }

func (s removeSchemaRecord) apply(c *Catalog) (bool, error) {
	delete(c.schemas, s.name)
	return false, nil
}

type createTableRecord struct {
	schema, table string
}

func (s createTableRecord) apply(c *Catalog) (bool, error) {
	se := c.schemas[s.schema]
	se.tables[s.table] = &tableEntry{}
	return false, nil
}

type removeTableRecord struct{ schema, table string }

func (s removeTableRecord) apply(c *Catalog) (bool, error) {
	se, ok := c.schemas[s.schema]
	if ok {
		delete(se.tables, s.table)
	}
	return false, nil
}

type createColumnRecord struct {
	schema, table string
	name          string
	sqlType       types.SqlType
}

func (s createColumnRecord) apply(c *Catalog) (bool, error) {
	te := c.schemas[s.schema].tables[s.table]
	ord := te.nextCol
	te.nextCol++
	te.columns = append(te.columns, types.ColumnDef{Name: s.name, Type: s.sqlType, OrdNum: ord})
	return false, nil
}

type removeColumns struct{ schema, table string }

func (s removeColumns) apply(c *Catalog) (bool, error) {
	se, ok := c.schemas[s.schema]
	if ok {
		if te, ok := se.tables[s.table]; ok {
			te.columns = nil
		}
	}
	return false, nil
}

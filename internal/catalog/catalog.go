// Package catalog is C5: schemas, tables, and columns, plus the
// ordered Step/SystemOperation plan executor with skip policy
// (spec.md §4.5). Modeled after design note §9 ("Catalog as ordered
// plan... Store steps as a tagged variant; execute by interpreting the
// list") and guarded the way
// hamzaKhattat-ara-production-system/internal/router/did_manager.go
// guards its in-memory maps with a sync.RWMutex.
package catalog

import (
	"encoding/binary"
	"sync"

	"github.com/alex-dukhno/pgcore/internal/storage"
	"github.com/alex-dukhno/pgcore/internal/types"
	"github.com/alex-dukhno/pgcore/pgerr"
)

type tableEntry struct {
	columns []types.ColumnDef
	nextCol int
	seq     uint64
}

type schemaEntry struct {
	tables map[string]*tableEntry
}

// Catalog is process-wide state: "created at engine start, destroyed
// at engine stop" (design note §9), held behind one shared handle and
// guarded by a single write lock, as the design notes direct.
type Catalog struct {
	mu      sync.RWMutex
	schemas map[string]*schemaEntry
	store   storage.Store
}

// New constructs an empty catalog backed by store.
func New(store storage.Store) *Catalog {
	return &Catalog{schemas: map[string]*schemaEntry{}, store: store}
}

// ObjectKind names the kind of catalog object a step or error refers
// to.
type ObjectKind int

const (
	KindSchema ObjectKind = iota
	KindTable
	KindColumn
	KindIndex
)

// SkipPolicy is the skip_steps_if field of a SystemOperation
// step-group (spec.md §3/§4.5).
type SkipPolicy int

const (
	SkipNone SkipPolicy = iota
	SkipIfExists
	SkipIfNotExists
)

// Outcome is one of the SystemOperation results of spec.md §3.
type Outcome int

const (
	SchemaCreated Outcome = iota
	SchemaDropped
	TableCreated
	TableDropped
	IndexCreated
)

// NextKey draws the next big-endian sequence value for (schema, table),
// satisfying spec.md §3's Key invariant: big-endian so lexicographic
// byte order matches insertion order.
func (c *Catalog) NextKey(schema, table string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	se, ok := c.schemas[schema]
	if !ok {
		return nil, pgerr.New(pgerr.KindSchemaDoesNotExist, "schema %q does not exist", schema).With("schema", schema)
	}
	te, ok := se.tables[table]
	if !ok {
		return nil, pgerr.New(pgerr.KindTableDoesNotExist, "table %q does not exist", table).With("table", table)
	}
	te.seq++
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, te.seq)
	return key, nil
}

// SchemaExists and TableExists let planners (C9/C10) probe for their
// existence preconditions without going through a full plan.
func (c *Catalog) SchemaExists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.schemas[name]
	return ok
}

func (c *Catalog) TableExists(schema, table string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	se, ok := c.schemas[schema]
	if !ok {
		return false
	}
	_, ok = se.tables[table]
	return ok
}

// Columns returns the column definitions of a table in ordinal order,
// or nil if the table does not exist.
func (c *Catalog) Columns(schema, table string) []types.ColumnDef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	se, ok := c.schemas[schema]
	if !ok {
		return nil
	}
	te, ok := se.tables[table]
	if !ok {
		return nil
	}
	out := make([]types.ColumnDef, len(te.columns))
	copy(out, te.columns)
	return out
}

// Column looks up a single column by name.
func (c *Catalog) Column(schema, table, column string) (types.ColumnDef, bool) {
	for _, cd := range c.Columns(schema, table) {
		if cd.Name == column {
			return cd, true
		}
	}
	return types.ColumnDef{}, false
}

// Tables lists the table names declared in schema, for CASCADE drop
// expansion.
func (c *Catalog) Tables(schema string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	se, ok := c.schemas[schema]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(se.tables))
	for t := range se.tables {
		names = append(names, t)
	}
	return names
}

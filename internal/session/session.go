// Package session is C3: per-connection prepared-statement/portal
// bookkeeping plus the process-wide connection-id/secret-key
// Supervisor used for CancelRequest (spec.md §4.3). The per-name
// replace-and-invalidate map shape is grounded in the lifecycle
// `lib/pq/connector.go`'s Connector manages over a single connection's
// configuration, guarded the way the rest of this engine guards shared
// maps (a single sync.RWMutex over all of a Session's maps).
package session

import (
	"sync"

	"github.com/alex-dukhno/pgcore/internal/ast"
	"github.com/alex-dukhno/pgcore/internal/planner"
	"github.com/alex-dukhno/pgcore/internal/typeinfer"
	"github.com/alex-dukhno/pgcore/internal/types"
)

// PreparedStatement is the result of a Parse message: the statement's
// AST plus the parameter type families the frontend declared.
type PreparedStatement struct {
	Name          string
	Statement     ast.Statement
	ParamFamilies typeinfer.ParamFamilies
}

// Portal is the result of a Bind message: a prepared statement bound
// to concrete parameter values, plus the requested result formats.
// IsControl/Ctl carry a bound SET/BEGIN/COMMIT/PREPARE/DEALLOCATE
// statement (SPEC_FULL.md §10); exactly one of Ctl, Change, Plan is
// meaningful, discriminated the same way ast.Statement discriminates
// its own variants.
type Portal struct {
	Name          string
	StatementName string
	Plan          planner.Plan
	IsDefinition  bool
	Change        planner.SchemaChange
	IsControl     bool
	Ctl           ast.Control
	Params        []types.Datum
	ResultFormats []int16
}

// Session holds one connection's named statements and portals (spec.md
// §4.3), plus the SET-visible connection properties (SPEC_FULL.md
// §10 item 1). Names may be the empty string — the "unnamed" statement
// or portal — and are looked up the same way as any other name.
type Session struct {
	mu         sync.RWMutex
	statements map[string]*PreparedStatement
	portals    map[string]*Portal
	// portalsByStmt tracks which portals depend on which statement, so
	// a replacing Parse can invalidate them in one pass.
	portalsByStmt map[string]map[string]bool
	properties    map[string]string
}

// New returns an empty Session.
func New() *Session {
	return &Session{
		statements:    make(map[string]*PreparedStatement),
		portals:       make(map[string]*Portal),
		portalsByStmt: make(map[string]map[string]bool),
		properties:    make(map[string]string),
	}
}

// SetProperty records a SET name = value acknowledgement.
func (s *Session) SetProperty(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[name] = value
}

// GetProperty looks up a session property set via SetProperty.
func (s *Session) GetProperty(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.properties[name]
	return v, ok
}

// SetStatement stores a prepared statement under name, replacing any
// prior statement of the same name. Per spec.md §4.3, replacing a
// statement implicitly invalidates every portal bound to it.
func (s *Session) SetStatement(name string, stmt *PreparedStatement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidatePortalsLocked(name)
	s.statements[name] = stmt
}

func (s *Session) invalidatePortalsLocked(stmtName string) {
	for portalName := range s.portalsByStmt[stmtName] {
		delete(s.portals, portalName)
	}
	delete(s.portalsByStmt, stmtName)
}

// GetStatement looks up a prepared statement by name.
func (s *Session) GetStatement(name string) (*PreparedStatement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statements[name]
	return st, ok
}

// RemoveStatement drops a prepared statement and every portal bound to
// it (the effect of a frontend Close targeting a statement).
func (s *Session) RemoveStatement(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidatePortalsLocked(name)
	delete(s.statements, name)
}

// SetPortal stores a portal under name, replacing any prior portal of
// the same name, and records its dependency on stmtName.
func (s *Session) SetPortal(name string, stmtName string, portal *Portal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portals[name] = portal
	if s.portalsByStmt[stmtName] == nil {
		s.portalsByStmt[stmtName] = make(map[string]bool)
	}
	s.portalsByStmt[stmtName][name] = true
}

// GetPortal looks up a portal by name.
func (s *Session) GetPortal(name string) (*Portal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.portals[name]
	return p, ok
}

// RemovePortal drops a single portal (the effect of a frontend Close
// targeting a portal).
func (s *Session) RemovePortal(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.portals, name)
	for stmtName, set := range s.portalsByStmt {
		delete(set, name)
		if len(set) == 0 {
			delete(s.portalsByStmt, stmtName)
		}
	}
}

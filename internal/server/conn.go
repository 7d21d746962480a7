package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/alex-dukhno/pgcore/internal/ast"
	"github.com/alex-dukhno/pgcore/internal/executor"
	"github.com/alex-dukhno/pgcore/internal/planner"
	"github.com/alex-dukhno/pgcore/internal/proto"
	"github.com/alex-dukhno/pgcore/internal/session"
	"github.com/alex-dukhno/pgcore/internal/sqlfront"
	"github.com/alex-dukhno/pgcore/internal/typeinfer"
	"github.com/alex-dukhno/pgcore/internal/types"
	"github.com/alex-dukhno/pgcore/internal/wire"
	"github.com/alex-dukhno/pgcore/pgerr"
)

// conn is one connection's state machine (spec.md §4.2): New →
// HandShake → Authenticated → AllocateBackendKey → Established, then
// the Established-state frontend dispatch loop.
type conn struct {
	engine   *Engine
	raw      net.Conn
	buf      []byte
	sess     *session.Session
	username string

	connID, secretKey int32
	txStatus          byte

	ctx           context.Context
	cancel        context.CancelFunc
	skipUntilSync bool
}

// readFrame accumulates bytes from c until decode reports a complete
// message (consumed > 0), per DecodeStartup/DecodeFrontend's
// consumed==0-means-incomplete convention.
func readFrame[T any](c net.Conn, buf *[]byte, decode func([]byte) (T, int, error)) (T, error) {
	for {
		v, n, err := decode(*buf)
		if err != nil {
			var zero T
			return zero, err
		}
		if n > 0 {
			*buf = append([]byte(nil), (*buf)[n:]...)
			return v, nil
		}
		chunk := make([]byte, 65536)
		m, rerr := c.Read(chunk)
		if rerr != nil {
			var zero T
			return zero, rerr
		}
		*buf = append(*buf, chunk[:m]...)
	}
}

// SendAuthRequest and RecvResponse implement auth.Exchanger, letting
// internal/auth's backends drive their challenge/response exchange
// without knowing about connection framing.
func (c *conn) SendAuthRequest(code proto.AuthCode, data []byte) error {
	_, err := c.raw.Write(wire.EncodeAuthRequest(code, data))
	return err
}

func (c *conn) RecvResponse() ([]byte, error) {
	return readFrame(c.raw, &c.buf, wire.DecodeAuthResponse)
}

func (c *conn) send(b []byte) error {
	_, err := c.raw.Write(b)
	return err
}

func (c *conn) sendBackend(m wire.Backend) error {
	return c.send(wire.EncodeBackend(m))
}

func (c *conn) sendReadyForQuery() error {
	return c.sendBackend(wire.Backend{Kind: wire.BackReadyForQuery, TxStatus: c.txStatus})
}

func (c *conn) sendError(err error) error {
	pe, ok := pgerr.As(err)
	if !ok {
		pe = pgerr.Wrap(err, pgerr.KindInternal, "unexpected error")
	}
	c.engine.metrics().QueryHandled("", pe)
	return c.sendBackend(wire.Backend{
		Kind:     wire.BackErrorResponse,
		Severity: "ERROR",
		Code:     pe.SQLState(),
		Message:  pe.Error(),
	})
}

func (c *conn) sendCommandComplete(tag string) error {
	c.engine.metrics().QueryHandled(tag, nil)
	return c.sendBackend(wire.Backend{Kind: wire.BackCommandComplete, Tag: tag})
}

// serve drives the full connection lifecycle and always closes raw on
// return.
func (c *conn) serve() {
	defer c.raw.Close()
	log := c.engine.logger()

	user, err := c.negotiateStartup()
	if err != nil {
		if err != errCancelHandled {
			log.WithError(err).Debug("pgcore: startup negotiation failed")
		}
		return
	}
	c.username = user

	if err := c.engine.Auth.Authenticate(c, user); err != nil {
		c.sendError(err)
		return
	}
	if err := c.sendBackend(wire.Backend{Kind: wire.BackAuthenticationOK}); err != nil {
		return
	}

	for _, kv := range [][2]string{
		{"client_encoding", "UTF8"},
		{"DateStyle", "ISO"},
		{"integer_datetimes", "off"},
		{"server_version", c.engine.ServerVersion},
	} {
		if err := c.sendBackend(wire.Backend{Kind: wire.BackParameterStatus, Name: kv[0], Value: kv[1]}); err != nil {
			return
		}
	}

	id, secret, ok := c.engine.Supervisor.Alloc()
	if !ok {
		c.sendError(pgerr.New(pgerr.KindInternal, "connection id space exhausted"))
		return
	}
	c.connID, c.secretKey = id, secret
	defer c.engine.Supervisor.Free(id)

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.engine.registerCancel(id, c.cancel)
	defer c.engine.unregisterCancel(id)

	if err := c.sendBackend(wire.Backend{Kind: wire.BackBackendKeyData, ConnID: id, SecretKey: secret}); err != nil {
		return
	}
	c.txStatus = 'I'
	if err := c.sendReadyForQuery(); err != nil {
		return
	}

	c.sess = session.New()
	c.engine.metrics().ConnOpened()
	defer c.engine.metrics().ConnClosed()
	log = log.WithField("conn_id", id)

	for {
		front, err := readFrame(c.raw, &c.buf, wire.DecodeFrontend)
		if err != nil {
			return
		}
		if err := c.dispatch(front); err != nil {
			log.WithError(err).Debug("pgcore: connection closing")
			return
		}
	}
}

// errCancelHandled is returned by negotiateStartup for every
// CancelRequest, whether or not its key verified: the spec directs the server to simply close, no
// ErrorResponse, no further handshake.
var errCancelHandled = fmt.Errorf("server: cancel request handled")

func (c *conn) negotiateStartup() (string, error) {
	for {
		msg, err := readFrame(c.raw, &c.buf, wire.DecodeStartup)
		if err != nil {
			return "", err
		}
		switch msg.Kind {
		case wire.FrontSslRequest:
			if c.engine.TLSConfig != nil {
				if err := c.send([]byte{'S'}); err != nil {
					return "", err
				}
				tlsConn := tls.Server(c.raw, c.engine.TLSConfig)
				if err := tlsConn.Handshake(); err != nil {
					return "", err
				}
				c.raw = tlsConn
				c.buf = nil
			} else if err := c.send([]byte{'N'}); err != nil {
				return "", err
			}
		case wire.FrontCancelRequest:
			if c.engine.Supervisor.Verify(msg.ConnID, msg.SecretKey) {
				c.engine.requestCancel(msg.ConnID)
			}
			return "", errCancelHandled
		case wire.FrontSetup:
			if msg.Version != proto.ProtocolVersion30 {
				return "", fmt.Errorf("server: unsupported protocol version %#x", msg.Version)
			}
			return msg.Props["user"], nil
		default:
			return "", fmt.Errorf("server: unexpected message kind %d during startup", msg.Kind)
		}
	}
}

// dispatch handles one Established-state frontend message.
func (c *conn) dispatch(front wire.Frontend) error {
	if c.skipUntilSync {
		switch front.Kind {
		case wire.FrontSync:
			c.skipUntilSync = false
			return c.sendReadyForQuery()
		case wire.FrontTerminate:
			return fmt.Errorf("server: terminated")
		default:
			return nil
		}
	}

	switch front.Kind {
	case wire.FrontQuery:
		return c.handleSimpleQuery(front.SQL)
	case wire.FrontParse:
		return c.handleParse(front)
	case wire.FrontBind:
		return c.handleBind(front)
	case wire.FrontDescribe:
		return c.handleDescribe(front)
	case wire.FrontExecute:
		return c.handleExecute(front)
	case wire.FrontClose:
		return c.handleClose(front)
	case wire.FrontSync:
		return c.sendReadyForQuery()
	case wire.FrontFlush:
		return nil
	case wire.FrontTerminate:
		return fmt.Errorf("server: terminated")
	}
	return fmt.Errorf("server: unhandled frontend message kind %d", front.Kind)
}

// --- simple query ---

func (c *conn) handleSimpleQuery(sql string) error {
	stmts := sqlfront.SplitStatements(sql)
	if len(stmts) == 0 {
		if err := c.sendBackend(wire.Backend{Kind: wire.BackEmptyQueryResponse}); err != nil {
			return err
		}
		return c.sendReadyForQuery()
	}
	for _, text := range stmts {
		select {
		case <-c.ctx.Done():
			c.sendError(pgerr.New(pgerr.KindQueryCancelled, "canceled by user request"))
			continue
		default:
		}
		stmt, err := c.engine.Parser.Parse(text)
		if err != nil {
			c.sendError(err)
			continue
		}
		if err := c.runStatement(stmt, nil, nil); err != nil {
			return err
		}
	}
	return c.sendReadyForQuery()
}

// runStatement executes one parsed statement to completion (DDL,
// control, or a fully-bound DML plan) and writes its response, without
// emitting ReadyForQuery — the caller (simple query batch or portal
// Execute) owns that.
func (c *conn) runStatement(stmt ast.Statement, params []types.Datum, paramFamilies typeinfer.ParamFamilies) error {
	switch {
	case stmt.IsControl:
		tag, err := c.execControl(stmt.Ctl)
		if err != nil {
			return c.sendError(err)
		}
		return c.sendCommandComplete(tag)

	case stmt.IsDefinition:
		change, err := planner.PlanDefinition(stmt.Def, c.engine.Catalog)
		if err != nil {
			return c.sendError(err)
		}
		if _, err := c.engine.Executor.ApplyChange(change); err != nil {
			return c.sendError(err)
		}
		return c.sendCommandComplete(ddlTag(change.Kind))

	default:
		plan, err := planner.PlanQuery(stmt.Qry, c.engine.Catalog)
		if err != nil {
			return c.sendError(err)
		}
		_, err = c.runPlan(plan, params, paramFamilies)
		return err
	}
}

// runPlan executes plan and writes its response. The returned bool
// reports whether the failure (if any) is a SQL-level execution error
// already written via sendError, as opposed to a socket-write error
// surfaced through err — the extended-query caller needs that
// distinction to know when to enter skipUntilSync (spec.md §7).
func (c *conn) runPlan(plan planner.Plan, params []types.Datum, paramFamilies typeinfer.ParamFamilies) (bool, error) {
	outcome, err := c.engine.Executor.Execute(plan, params, paramFamilies)
	if err != nil {
		return true, c.sendError(err)
	}
	if outcome.Kind == executor.RecordsSelected {
		if err := c.sendRowDescription(outcome.Columns, nil); err != nil {
			return false, err
		}
		for _, row := range outcome.Rows {
			if err := c.sendBackend(wire.Backend{Kind: wire.BackDataRow, Row: row}); err != nil {
				return false, err
			}
		}
	}
	return false, c.sendCommandComplete(queryTag(outcome))
}

// execControl implements the SET/BEGIN/COMMIT/PREPARE/DEALLOCATE
// supplementary surface of SPEC_FULL.md §10.
func (c *conn) execControl(ctl ast.Control) (string, error) {
	switch ctl.Kind {
	case ast.CtlSet:
		c.sess.SetProperty(ctl.Name, ctl.Value)
		return "SET", nil
	case ast.CtlBegin:
		return "BEGIN", nil
	case ast.CtlCommit:
		return "COMMIT", nil
	case ast.CtlPrepare:
		stmt, err := c.engine.Parser.Parse(ctl.PrepareSQL)
		if err != nil {
			return "", err
		}
		c.sess.SetStatement(ctl.StmtName, &session.PreparedStatement{Name: ctl.StmtName, Statement: stmt})
		return "PREPARE", nil
	case ast.CtlDeallocate:
		c.sess.RemoveStatement(ctl.DeallocateName)
		return "DEALLOCATE", nil
	}
	return "", pgerr.New(pgerr.KindInternal, "control statement of unknown kind")
}

func ddlTag(kind planner.ChangeKind) string {
	switch kind {
	case planner.ChangeCreateSchema:
		return "CREATE SCHEMA"
	case planner.ChangeDropSchemas:
		return "DROP SCHEMA"
	case planner.ChangeCreateTable:
		return "CREATE TABLE"
	case planner.ChangeDropTables:
		return "DROP TABLE"
	case planner.ChangeCreateIndex:
		return "CREATE INDEX"
	}
	return "?"
}

func queryTag(o executor.Outcome) string {
	switch o.Kind {
	case executor.RecordsInserted:
		return fmt.Sprintf("INSERT 0 %d", o.Count)
	case executor.RecordsUpdated:
		return fmt.Sprintf("UPDATE %d", o.Count)
	case executor.RecordsDeleted:
		return fmt.Sprintf("DELETE %d", o.Count)
	case executor.RecordsSelected:
		return fmt.Sprintf("SELECT %d", o.Count)
	}
	return "?"
}

func (c *conn) sendRowDescription(cols []types.ColumnDef, formats []int16) error {
	fields := make([]wire.FieldDesc, len(cols))
	for i, cd := range cols {
		oid := wire.OIDForFamily(cd.Type.Family())
		fields[i] = wire.FieldDesc{Name: cd.Name, Type: oid, Length: wire.TypeLen(oid)}
	}
	return c.sendBackend(wire.Backend{Kind: wire.BackRowDescription, Fields: fields})
}

// --- extended query protocol ---

func (c *conn) handleParse(front wire.Frontend) error {
	stmt, err := c.engine.Parser.Parse(front.SQL)
	if err != nil {
		c.skipUntilSync = true
		return c.sendError(err)
	}
	families := make(typeinfer.ParamFamilies, len(front.ParamTypeOIDs))
	for i, oid := range front.ParamTypeOIDs {
		families[i] = wire.OIDToFamily(oid)
	}
	c.sess.SetStatement(front.StmtName, &session.PreparedStatement{
		Name:          front.StmtName,
		Statement:     stmt,
		ParamFamilies: families,
	})
	return c.sendBackend(wire.Backend{Kind: wire.BackParseComplete})
}

func (c *conn) handleBind(front wire.Frontend) error {
	stmt, ok := c.sess.GetStatement(front.Statement)
	if !ok {
		c.skipUntilSync = true
		return c.sendError(pgerr.New(pgerr.KindPreparedStmtDoesNotExist, "prepared statement %q does not exist", front.Statement))
	}

	params := make([]types.Datum, len(front.RawParams))
	for i, raw := range front.RawParams {
		family := types.FamilyUnknown
		if i < len(stmt.ParamFamilies) {
			family = stmt.ParamFamilies[i]
		}
		format := wire.ParamFormat(front.ParamFormats, i)
		d, err := wire.DecodeParam(raw, format, family)
		if err != nil {
			c.skipUntilSync = true
			return c.sendError(err)
		}
		params[i] = d
	}

	portal := &session.Portal{
		Name:          front.Portal,
		StatementName: front.Statement,
		ResultFormats: front.ResultFormats,
		Params:        params,
		IsDefinition:  stmt.Statement.IsDefinition,
		IsControl:     stmt.Statement.IsControl,
		Ctl:           stmt.Statement.Ctl,
	}
	switch {
	case stmt.Statement.IsControl:
		// nothing further to plan.
	case stmt.Statement.IsDefinition:
		change, err := planner.PlanDefinition(stmt.Statement.Def, c.engine.Catalog)
		if err != nil {
			c.skipUntilSync = true
			return c.sendError(err)
		}
		portal.Change = change
	default:
		plan, err := planner.PlanQuery(stmt.Statement.Qry, c.engine.Catalog)
		if err != nil {
			c.skipUntilSync = true
			return c.sendError(err)
		}
		portal.Plan = plan
	}
	c.sess.SetPortal(front.Portal, front.Statement, portal)
	return c.sendBackend(wire.Backend{Kind: wire.BackBindComplete})
}

func (c *conn) handleDescribe(front wire.Frontend) error {
	switch front.TargetKind {
	case proto.DescribeStatement:
		stmt, ok := c.sess.GetStatement(front.Name)
		if !ok {
			c.skipUntilSync = true
			return c.sendError(pgerr.New(pgerr.KindPreparedStmtDoesNotExist, "prepared statement %q does not exist", front.Name))
		}
		fields := make([]wire.FieldDesc, len(stmt.ParamFamilies))
		for i, f := range stmt.ParamFamilies {
			fields[i] = wire.FieldDesc{Type: wire.OIDForFamily(f)}
		}
		if err := c.sendBackend(wire.Backend{Kind: wire.BackParameterDescription, Fields: fields}); err != nil {
			return err
		}
		if !stmt.Statement.IsDefinition && !stmt.Statement.IsControl && stmt.Statement.Qry.Kind == ast.QrySelect {
			cols, err := c.describeSelectColumns(stmt.Statement.Qry)
			if err != nil {
				c.skipUntilSync = true
				return c.sendError(err)
			}
			return c.sendRowDescription(cols, nil)
		}
		return c.sendBackend(wire.Backend{Kind: wire.BackNoData})

	case proto.DescribePortal:
		portal, ok := c.sess.GetPortal(front.Name)
		if !ok {
			c.skipUntilSync = true
			return c.sendError(pgerr.New(pgerr.KindPortalDoesNotExist, "portal %q does not exist", front.Name))
		}
		if !portal.IsDefinition && !portal.IsControl && portal.Plan.Kind == planner.PlanSelect {
			cols := make([]types.ColumnDef, len(portal.Plan.Projections))
			for i, p := range portal.Plan.Projections {
				cols[i] = p.Column
			}
			return c.sendRowDescription(cols, portal.ResultFormats)
		}
		return c.sendBackend(wire.Backend{Kind: wire.BackNoData})
	}
	return pgerr.New(pgerr.KindProtocolViolation, "describe of unknown target kind")
}

// describeSelectColumns resolves a not-yet-bound SELECT's projected
// columns for ParameterDescription/RowDescription ahead of Bind,
// mirroring the column resolution planner.PlanQuery performs.
func (c *conn) describeSelectColumns(q ast.Query) ([]types.ColumnDef, error) {
	plan, err := planner.PlanQuery(q, c.engine.Catalog)
	if err != nil {
		return nil, err
	}
	cols := make([]types.ColumnDef, len(plan.Projections))
	for i, p := range plan.Projections {
		cols[i] = p.Column
	}
	return cols, nil
}

func (c *conn) handleExecute(front wire.Frontend) error {
	portal, ok := c.sess.GetPortal(front.Portal)
	if !ok {
		c.skipUntilSync = true
		return c.sendError(pgerr.New(pgerr.KindPortalDoesNotExist, "portal %q does not exist", front.Portal))
	}

	select {
	case <-c.ctx.Done():
		c.skipUntilSync = true
		return c.sendError(pgerr.New(pgerr.KindQueryCancelled, "canceled by user request"))
	default:
	}

	switch {
	case portal.IsControl:
		tag, err := c.execControl(portal.Ctl)
		if err != nil {
			c.skipUntilSync = true
			return c.sendError(err)
		}
		return c.sendCommandComplete(tag)
	case portal.IsDefinition:
		if _, err := c.engine.Executor.ApplyChange(portal.Change); err != nil {
			c.skipUntilSync = true
			return c.sendError(err)
		}
		return c.sendCommandComplete(ddlTag(portal.Change.Kind))
	default:
		stmt, _ := c.sess.GetStatement(portal.StatementName)
		var families typeinfer.ParamFamilies
		if stmt != nil {
			families = stmt.ParamFamilies
		}
		sqlErr, err := c.runPlan(portal.Plan, portal.Params, families)
		if sqlErr {
			c.skipUntilSync = true
		}
		return err
	}
}

func (c *conn) handleClose(front wire.Frontend) error {
	switch front.TargetKind {
	case proto.DescribeStatement:
		c.sess.RemoveStatement(front.Name)
	case proto.DescribePortal:
		c.sess.RemovePortal(front.Name)
	}
	return c.sendBackend(wire.Backend{Kind: wire.BackCloseComplete})
}

package sqlfront

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alex-dukhno/pgcore/internal/ast"
	"github.com/alex-dukhno/pgcore/internal/types"
	"github.com/alex-dukhno/pgcore/pgerr"
)

// Parser is the one concrete ast.Parser this engine ships with
// (SPEC_FULL.md §4.12).
type Parser struct{}

func New() Parser { return Parser{} }

func (Parser) Parse(sql string) (ast.Statement, error) {
	sql = strings.TrimSpace(sql)
	toks, err := lex(sql)
	if err != nil {
		return ast.Statement{}, err
	}
	p := &parser{toks: toks}
	stmt, err := p.parseStatement()
	if err != nil {
		return ast.Statement{}, err
	}
	p.skipPunct(";")
	if p.cur().kind != tokEOF {
		return ast.Statement{}, pgerr.New(pgerr.KindSyntaxError, "unexpected trailing input near %q", p.cur().text)
	}
	return stmt, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) isKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokKeyword && t.text == kw
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return pgerr.New(pgerr.KindSyntaxError, "expected %s, got %q", kw, p.cur().text)
	}
	p.advance()
	return nil
}

func (p *parser) isPunct(s string) bool {
	t := p.cur()
	return (t.kind == tokPunct || t.kind == tokOp) && t.text == s
}

func (p *parser) skipPunct(s string) bool {
	if p.isPunct(s) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectPunct(s string) error {
	if !p.skipPunct(s) {
		return pgerr.New(pgerr.KindSyntaxError, "expected %q, got %q", s, p.cur().text)
	}
	return nil
}

func (p *parser) expectIdent() (string, error) {
	t := p.cur()
	if t.kind != tokIdent && t.kind != tokKeyword {
		return "", pgerr.New(pgerr.KindSyntaxError, "expected identifier, got %q", t.text)
	}
	p.advance()
	return t.text, nil
}

func (p *parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.isKeyword("CREATE"):
		return p.parseCreate()
	case p.isKeyword("DROP"):
		return p.parseDrop()
	case p.isKeyword("INSERT"):
		q, err := p.parseInsert()
		return ast.Statement{Qry: q}, err
	case p.isKeyword("UPDATE"):
		q, err := p.parseUpdate()
		return ast.Statement{Qry: q}, err
	case p.isKeyword("DELETE"):
		q, err := p.parseDelete()
		return ast.Statement{Qry: q}, err
	case p.isKeyword("SELECT"):
		q, err := p.parseSelect()
		return ast.Statement{Qry: q}, err
	case p.isKeyword("SET"):
		return p.parseSet()
	case p.isKeyword("BEGIN"):
		p.advance()
		return ast.Statement{IsControl: true, Ctl: ast.Control{Kind: ast.CtlBegin}}, nil
	case p.isKeyword("COMMIT"):
		p.advance()
		return ast.Statement{IsControl: true, Ctl: ast.Control{Kind: ast.CtlCommit}}, nil
	case p.isKeyword("PREPARE"):
		return p.parsePrepare()
	case p.isKeyword("DEALLOCATE"):
		return p.parseDeallocate()
	}
	return ast.Statement{}, pgerr.New(pgerr.KindSyntaxError, "unrecognized statement starting at %q", p.cur().text)
}

// --- DDL ---

func (p *parser) parseCreate() (ast.Statement, error) {
	p.advance() // CREATE
	switch {
	case p.isKeyword("SCHEMA"):
		p.advance()
		ifNotExists := p.parseIfNotExists()
		name, err := p.expectIdent()
		if err != nil {
			return ast.Statement{}, err
		}
		return ast.Statement{IsDefinition: true, Def: ast.Definition{
			Kind: ast.DefCreateSchema, SchemaNames: []string{name}, IfNotExists: ifNotExists,
		}}, nil
	case p.isKeyword("TABLE"):
		p.advance()
		ifNotExists := p.parseIfNotExists()
		ref, err := p.parseTableRef()
		if err != nil {
			return ast.Statement{}, err
		}
		if err := p.expectPunct("("); err != nil {
			return ast.Statement{}, err
		}
		var cols []ast.ColumnSpec
		for {
			col, err := p.parseColumnSpec()
			if err != nil {
				return ast.Statement{}, err
			}
			cols = append(cols, col)
			if p.skipPunct(",") {
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return ast.Statement{}, err
		}
		return ast.Statement{IsDefinition: true, Def: ast.Definition{
			Kind: ast.DefCreateTable, Table: ref, Columns: cols, IfNotExists: ifNotExists,
		}}, nil
	case p.isKeyword("INDEX"):
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return ast.Statement{}, err
		}
		if err := p.expectKeyword("ON"); err != nil {
			return ast.Statement{}, err
		}
		ref, err := p.parseTableRef()
		if err != nil {
			return ast.Statement{}, err
		}
		if err := p.expectPunct("("); err != nil {
			return ast.Statement{}, err
		}
		var cols []string
		for {
			c, err := p.expectIdent()
			if err != nil {
				return ast.Statement{}, err
			}
			cols = append(cols, c)
			if p.skipPunct(",") {
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return ast.Statement{}, err
		}
		return ast.Statement{IsDefinition: true, Def: ast.Definition{
			Kind: ast.DefCreateIndex, IndexName: name, IndexTable: ref, IndexColumns: cols,
		}}, nil
	}
	return ast.Statement{}, pgerr.New(pgerr.KindSyntaxError, "expected SCHEMA, TABLE, or INDEX after CREATE")
}

func (p *parser) parseIfNotExists() bool {
	if p.isKeyword("IF") {
		save := p.pos
		p.advance()
		if p.isKeyword("NOT") {
			p.advance()
			if p.isKeyword("EXISTS") {
				p.advance()
				return true
			}
		}
		p.pos = save
	}
	return false
}

func (p *parser) parseIfExists() bool {
	if p.isKeyword("IF") {
		save := p.pos
		p.advance()
		if p.isKeyword("EXISTS") {
			p.advance()
			return true
		}
		p.pos = save
	}
	return false
}

func (p *parser) parseDrop() (ast.Statement, error) {
	p.advance() // DROP
	switch {
	case p.isKeyword("SCHEMA"):
		p.advance()
		ifExists := p.parseIfExists()
		var names []string
		for {
			n, err := p.expectIdent()
			if err != nil {
				return ast.Statement{}, err
			}
			names = append(names, n)
			if p.skipPunct(",") {
				continue
			}
			break
		}
		cascade := false
		if p.isKeyword("CASCADE") {
			p.advance()
			cascade = true
		}
		return ast.Statement{IsDefinition: true, Def: ast.Definition{
			Kind: ast.DefDropSchemas, SchemaNames: names, IfExists: ifExists, Cascade: cascade,
		}}, nil
	case p.isKeyword("TABLE"):
		p.advance()
		ifExists := p.parseIfExists()
		var refs []ast.TableRef
		for {
			ref, err := p.parseTableRef()
			if err != nil {
				return ast.Statement{}, err
			}
			refs = append(refs, ref)
			if p.skipPunct(",") {
				continue
			}
			break
		}
		return ast.Statement{IsDefinition: true, Def: ast.Definition{
			Kind: ast.DefDropTables, Tables: refs, IfExists: ifExists,
		}}, nil
	}
	return ast.Statement{}, pgerr.New(pgerr.KindSyntaxError, "expected SCHEMA or TABLE after DROP")
}

func (p *parser) parseTableRef() (ast.TableRef, error) {
	schema, err := p.expectIdent()
	if err != nil {
		return ast.TableRef{}, err
	}
	if err := p.expectPunct("."); err != nil {
		return ast.TableRef{}, pgerr.New(pgerr.KindNamingError, "only qualified schema.table names are supported")
	}
	table, err := p.expectIdent()
	if err != nil {
		return ast.TableRef{}, err
	}
	return ast.TableRef{Schema: schema, Table: table}, nil
}

func (p *parser) parseColumnSpec() (ast.ColumnSpec, error) {
	name, err := p.expectIdent()
	if err != nil {
		return ast.ColumnSpec{}, err
	}
	typeName, length, hasLength, err := p.parseDataType()
	if err != nil {
		return ast.ColumnSpec{}, err
	}
	return ast.ColumnSpec{Name: name, TypeName: typeName, Length: length, HasLength: hasLength}, nil
}

func (p *parser) parseDataType() (name string, length uint64, hasLength bool, err error) {
	t := p.cur()
	if t.kind != tokKeyword && t.kind != tokIdent {
		return "", 0, false, pgerr.New(pgerr.KindSyntaxError, "expected a data type, got %q", t.text)
	}
	p.advance()
	name = strings.ToLower(t.text)
	switch name {
	case "double":
		if err := p.expectKeyword("PRECISION"); err != nil {
			return "", 0, false, err
		}
		name = "double precision"
	case "character":
		if p.isKeyword("VARYING") {
			p.advance()
			name = "character varying"
		}
	}
	if p.skipPunct("(") {
		numTok := p.cur()
		if numTok.kind != tokNumber {
			return "", 0, false, pgerr.New(pgerr.KindSyntaxError, "expected a length, got %q", numTok.text)
		}
		p.advance()
		n, convErr := strconv.ParseUint(numTok.text, 10, 64)
		if convErr != nil {
			return "", 0, false, pgerr.New(pgerr.KindSyntaxError, "invalid length %q", numTok.text)
		}
		length, hasLength = n, true
		if err := p.expectPunct(")"); err != nil {
			return "", 0, false, err
		}
	}
	return name, length, hasLength, nil
}

// --- DML ---

func (p *parser) parseInsert() (ast.Query, error) {
	p.advance() // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return ast.Query{}, err
	}
	ref, err := p.parseTableRef()
	if err != nil {
		return ast.Query{}, err
	}
	var cols []string
	if p.skipPunct("(") {
		for {
			c, err := p.expectIdent()
			if err != nil {
				return ast.Query{}, err
			}
			cols = append(cols, c)
			if p.skipPunct(",") {
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return ast.Query{}, err
		}
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return ast.Query{}, err
	}
	var rows [][]*ast.Node
	for {
		if err := p.expectPunct("("); err != nil {
			return ast.Query{}, err
		}
		var row []*ast.Node
		for {
			e, err := p.parseExpr(0)
			if err != nil {
				return ast.Query{}, err
			}
			row = append(row, e)
			if p.skipPunct(",") {
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return ast.Query{}, err
		}
		rows = append(rows, row)
		if p.skipPunct(",") {
			continue
		}
		break
	}
	return ast.Query{Kind: ast.QryInsert, Table: ref, InsertColumns: cols, Values: rows}, nil
}

func (p *parser) parseUpdate() (ast.Query, error) {
	p.advance() // UPDATE
	ref, err := p.parseTableRef()
	if err != nil {
		return ast.Query{}, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return ast.Query{}, err
	}
	var assigns []ast.Assignment
	for {
		col, err := p.expectIdent()
		if err != nil {
			return ast.Query{}, err
		}
		if err := p.expectPunct("="); err != nil {
			return ast.Query{}, err
		}
		val, err := p.parseExpr(0)
		if err != nil {
			return ast.Query{}, err
		}
		assigns = append(assigns, ast.Assignment{Column: col, Value: val})
		if p.skipPunct(",") {
			continue
		}
		break
	}
	where, err := p.parseOptionalWhere()
	if err != nil {
		return ast.Query{}, err
	}
	return ast.Query{Kind: ast.QryUpdate, Table: ref, Assignments: assigns, Where: where}, nil
}

func (p *parser) parseDelete() (ast.Query, error) {
	p.advance() // DELETE
	if err := p.expectKeyword("FROM"); err != nil {
		return ast.Query{}, err
	}
	ref, err := p.parseTableRef()
	if err != nil {
		return ast.Query{}, err
	}
	where, err := p.parseOptionalWhere()
	if err != nil {
		return ast.Query{}, err
	}
	return ast.Query{Kind: ast.QryDelete, Table: ref, Where: where}, nil
}

func (p *parser) parseSelect() (ast.Query, error) {
	p.advance() // SELECT
	var projections []ast.Projection
	for {
		if p.isPunct("*") {
			p.advance()
			projections = append(projections, ast.Projection{Wildcard: true})
		} else {
			name, err := p.expectIdent()
			if err != nil {
				return ast.Query{}, err
			}
			projections = append(projections, ast.Projection{Column: name})
		}
		if p.skipPunct(",") {
			continue
		}
		break
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return ast.Query{}, err
	}
	ref, err := p.parseTableRef()
	if err != nil {
		return ast.Query{}, err
	}
	where, err := p.parseOptionalWhere()
	if err != nil {
		return ast.Query{}, err
	}
	return ast.Query{Kind: ast.QrySelect, Table: ref, Projections: projections, Where: where}, nil
}

func (p *parser) parseOptionalWhere() (*ast.Node, error) {
	if !p.isKeyword("WHERE") {
		return nil, nil
	}
	p.advance()
	return p.parseExpr(0)
}

// --- control statements (SPEC_FULL.md §10) ---

func (p *parser) parseSet() (ast.Statement, error) {
	p.advance() // SET
	name, err := p.expectIdent()
	if err != nil {
		return ast.Statement{}, err
	}
	if !p.skipPunct("=") {
		if t := p.cur(); !(t.kind == tokIdent && strings.EqualFold(t.text, "TO")) { // tolerate `SET x TO y` phrasing, same semantics as `=`
			return ast.Statement{}, pgerr.New(pgerr.KindSyntaxError, "expected = after SET %s", name)
		}
		p.advance()
	}
	t := p.cur()
	var value string
	switch t.kind {
	case tokString, tokIdent, tokKeyword, tokNumber:
		value = t.text
		p.advance()
	default:
		return ast.Statement{}, pgerr.New(pgerr.KindSyntaxError, "expected a value after SET %s =", name)
	}
	return ast.Statement{IsControl: true, Ctl: ast.Control{Kind: ast.CtlSet, Name: name, Value: value}}, nil
}

func (p *parser) parsePrepare() (ast.Statement, error) {
	p.advance() // PREPARE
	name, err := p.expectIdent()
	if err != nil {
		return ast.Statement{}, err
	}
	if err := p.expectKeyword("AS"); err != nil {
		return ast.Statement{}, err
	}
	// the remainder of the statement, up to EOF, is the prepared SQL
	// text, re-parsed independently by the caller (internal/server).
	var b strings.Builder
	for p.cur().kind != tokEOF && !p.isPunct(";") {
		b.WriteString(p.cur().text)
		b.WriteByte(' ')
		p.advance()
	}
	return ast.Statement{IsControl: true, Ctl: ast.Control{Kind: ast.CtlPrepare, StmtName: name, PrepareSQL: strings.TrimSpace(b.String())}}, nil
}

func (p *parser) parseDeallocate() (ast.Statement, error) {
	p.advance() // DEALLOCATE
	name, err := p.expectIdent()
	if err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{IsControl: true, Ctl: ast.Control{Kind: ast.CtlDeallocate, DeallocateName: name}}, nil
}

// --- expressions ---

// binOpInfo carries the precedence and ast.Op spelling of one binary
// operator token (spec.md §4.7's operator algebra).
type binOpInfo struct {
	prec int
	op   ast.Op
}

var binOps = map[string]binOpInfo{
	"OR":      {1, ast.OpOr},
	"AND":     {2, ast.OpAnd},
	"LIKE":    {3, ast.OpLike},
	"=":       {3, ast.OpEq},
	"<":       {3, ast.OpLt},
	"<=":      {3, ast.OpLe},
	">":       {3, ast.OpGt},
	">=":      {3, ast.OpGe},
	"<>":      {3, ast.OpNe},
	"|":       {4, ast.OpBitOr},
	"#":       {4, ast.OpBitXor},
	"&":       {5, ast.OpBitAnd},
	"<<":      {6, ast.OpShl},
	">>":      {6, ast.OpShr},
	"||":      {7, ast.OpConcat},
	"+":       {8, ast.OpAdd},
	"-":       {8, ast.OpSub},
	"*":       {9, ast.OpMul},
	"/":       {9, ast.OpDiv},
	"%":       {9, ast.OpMod},
	"^":       {10, ast.OpPow},
}

// parseExpr implements precedence-climbing over binOps, handling the
// two-word NOT LIKE operator and the postfix CAST/`::` forms inline.
func (p *parser) parseExpr(minPrec int) (*ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if p.skipPunct("::") {
			typeName, _, _, err := p.parseDataType()
			if err != nil {
				return nil, err
			}
			left = ast.UnOp(ast.OpCast, left)
			left.Family = familyForTypeName(typeName)
			continue
		}
		opText, isNotLike := p.peekOperator()
		info, ok := binOps[opText]
		if !ok || info.prec < minPrec {
			return left, nil
		}
		p.consumeOperator(opText, isNotLike)
		op := info.op
		if isNotLike {
			op = ast.OpNotLike
		}
		right, err := p.parseExpr(info.prec + 1)
		if err != nil {
			return nil, err
		}
		left = ast.BiOp(left, op, right)
	}
}

// peekOperator reports the operator spelling at the cursor without
// consuming it, recognizing the two-token "NOT LIKE" form.
func (p *parser) peekOperator() (string, bool) {
	t := p.cur()
	if t.kind == tokKeyword && t.text == "NOT" {
		nxt := p.toks[p.pos+1]
		if nxt.kind == tokKeyword && nxt.text == "LIKE" {
			return "LIKE", true
		}
		return "", false
	}
	if t.kind == tokKeyword && (t.text == "AND" || t.text == "OR" || t.text == "LIKE") {
		return t.text, false
	}
	if t.kind == tokOp || t.kind == tokPunct {
		return t.text, false
	}
	return "", false
}

func (p *parser) consumeOperator(text string, isNotLike bool) {
	if isNotLike {
		p.advance() // NOT
		p.advance() // LIKE
		return
	}
	p.advance()
}

// unaryOps maps a prefix token to its Op spelling (spec.md §4.7's
// unary arithmetic/logical/bitwise operators).
var unaryOps = map[string]ast.Op{
	"+":   ast.OpUnaryPlus,
	"-":   ast.OpUnaryMinus,
	"|/":  ast.OpSqrt,
	"||/": ast.OpCubeRoot,
	"!":   ast.OpFactorial,
	"@":   ast.OpAbs,
	"~":   ast.OpBitNot,
}

func (p *parser) parseUnary() (*ast.Node, error) {
	if p.isKeyword("NOT") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnOp(ast.OpNot, operand), nil
	}
	if p.isKeyword("CAST") {
		return p.parseCast()
	}
	t := p.cur()
	if t.kind == tokOp {
		if op, ok := unaryOps[t.text]; ok {
			p.advance()
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return ast.UnOp(op, operand), nil
		}
	}
	return p.parsePrimary()
}

func (p *parser) parseCast() (*ast.Node, error) {
	p.advance() // CAST
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	operand, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	typeName, _, _, err := p.parseDataType()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	node := ast.UnOp(ast.OpCast, operand)
	node.Family = familyForTypeName(typeName)
	return node, nil
}

func (p *parser) parsePrimary() (*ast.Node, error) {
	t := p.cur()
	switch {
	case p.isPunct("("):
		p.advance()
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	case t.kind == tokNumber:
		p.advance()
		d, convErr := decimal.NewFromString(t.text)
		if convErr != nil {
			return nil, pgerr.New(pgerr.KindSyntaxError, "invalid numeric literal %q", t.text)
		}
		return ast.Leaf(ast.Const(ast.NumberValue(d))), nil
	case t.kind == tokString:
		p.advance()
		return ast.Leaf(ast.Const(ast.StringValue(t.text))), nil
	case t.kind == tokParam:
		p.advance()
		n, convErr := strconv.Atoi(t.text)
		if convErr != nil || n < 1 {
			return nil, pgerr.New(pgerr.KindSyntaxError, "invalid parameter index %q", t.text)
		}
		return ast.Leaf(ast.Param(n - 1)), nil
	case t.kind == tokKeyword && t.text == "NULL":
		p.advance()
		return ast.Leaf(ast.Const(ast.Null())), nil
	case t.kind == tokKeyword && t.text == "TRUE":
		p.advance()
		return ast.Leaf(ast.Const(ast.BoolValue(true))), nil
	case t.kind == tokKeyword && t.text == "FALSE":
		p.advance()
		return ast.Leaf(ast.Const(ast.BoolValue(false))), nil
	case t.kind == tokIdent:
		p.advance()
		// Column resolution (name -> ordinal/family) happens later in
		// the planner (C9/C10); this leaf carries only the name.
		return ast.Leaf(ast.Column(ast.ColumnRef{Name: t.text})), nil
	}
	return nil, pgerr.New(pgerr.KindSyntaxError, "unexpected token %q in expression", t.text)
}

// familyForTypeName maps a parsed data-type name to its
// SqlTypeFamily, for the explicit Cast node this parser builds
// directly (spec.md §4.7's "Explicit Cast(SqlTypeFamily)"); the
// concrete-width mapping used by CREATE TABLE column definitions
// lives in internal/planner.mapDataType.
func familyForTypeName(name string) types.SqlTypeFamily {
	switch name {
	case "bool", "boolean":
		return types.FamilyBool
	case "smallint", "int2":
		return types.FamilySmallInt
	case "integer", "int", "int4":
		return types.FamilyInteger
	case "bigint", "int8":
		return types.FamilyBigInt
	case "real", "float4":
		return types.FamilyReal
	case "double precision", "float8":
		return types.FamilyDouble
	case "char", "character", "varchar", "character varying":
		return types.FamilyString
	}
	return types.FamilyUnknown
}

// Package sqlfront supplies SPEC_FULL.md §4.12's one concrete
// ast.Parser implementation: a hand-rolled recursive-descent parser
// over a rune scanner, grounded in the `scanner` type of
// `lib/pq/conn.go`/`lib/pq/url.go`. It is a best-effort stand-in for
// the out-of-scope SQL frontend spec.md §1 names as an external
// collaborator, sufficient to drive every §8 end-to-end scenario.
package sqlfront

import (
	"strings"
	"unicode"

	"github.com/alex-dukhno/pgcore/pgerr"
)

// tokenKind discriminates one lexical token.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokKeyword
	tokNumber
	tokString // single-quoted literal
	tokParam  // $n
	tokPunct  // , ( ) ; . * etc
	tokOp     // operator tokens: + - * / % ^ < <= = >= > <> << >> & | # || :: ~
)

type token struct {
	kind tokenKind
	text string
}

// keywords this frontend recognizes; scanned identifiers matching one
// (case-insensitively) are re-tagged tokKeyword with upper-cased text.
var keywords = map[string]bool{
	"CREATE": true, "DROP": true, "SCHEMA": true, "TABLE": true, "INDEX": true,
	"IF": true, "NOT": true, "EXISTS": true, "CASCADE": true, "ON": true,
	"INSERT": true, "INTO": true, "VALUES": true, "UPDATE": true, "SET": true,
	"DELETE": true, "FROM": true, "WHERE": true, "SELECT": true, "AND": true,
	"OR": true, "LIKE": true, "NULL": true, "TRUE": true, "FALSE": true,
	"CAST": true, "AS": true, "BEGIN": true, "COMMIT": true, "PREPARE": true,
	"DEALLOCATE": true, "BOOL": true, "BOOLEAN": true, "SMALLINT": true,
	"INTEGER": true, "INT": true, "INT2": true, "INT4": true, "INT8": true,
	"BIGINT": true, "REAL": true, "DOUBLE": true, "PRECISION": true,
	"CHAR": true, "CHARACTER": true, "VARCHAR": true, "VARYING": true,
	"FLOAT4": true, "FLOAT8": true,
}

// scanner is the rune cursor, lifted in shape from lib/pq's scanner
// (conn.go): a rune slice consumed front-to-back with a lookahead
// Peek on top of Next.
type scanner struct {
	s []rune
	i int
}

func newScanner(s string) *scanner { return &scanner{s: []rune(s)} }

func (s *scanner) next() (rune, bool) {
	if s.i >= len(s.s) {
		return 0, false
	}
	r := s.s[s.i]
	s.i++
	return r, true
}

func (s *scanner) peek() (rune, bool) {
	if s.i >= len(s.s) {
		return 0, false
	}
	return s.s[s.i], true
}

func (s *scanner) skipSpaces() {
	for {
		r, ok := s.peek()
		if !ok || !unicode.IsSpace(r) {
			return
		}
		s.i++
	}
}

// lex tokenizes the full statement text eagerly, the simplest shape
// for a recursive-descent parser working over a small, fixed grammar.
func lex(sql string) ([]token, error) {
	sc := newScanner(sql)
	var toks []token
	for {
		sc.skipSpaces()
		r, ok := sc.peek()
		if !ok {
			break
		}
		switch {
		case r == '\'':
			s, err := lexString(sc)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokString, s})
		case r == '$':
			sc.next()
			start := sc.i
			for {
				r, ok := sc.peek()
				if !ok || !unicode.IsDigit(r) {
					break
				}
				sc.i++
			}
			toks = append(toks, token{tokParam, string(sc.s[start:sc.i])})
		case unicode.IsDigit(r):
			toks = append(toks, lexNumber(sc))
		case unicode.IsLetter(r) || r == '_':
			id := lexIdent(sc)
			up := strings.ToUpper(id)
			if keywords[up] {
				toks = append(toks, token{tokKeyword, up})
			} else {
				toks = append(toks, token{tokIdent, id})
			}
		case strings.ContainsRune(",()*;.", r):
			sc.next()
			toks = append(toks, token{tokPunct, string(r)})
		default:
			op, err := lexOperator(sc)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokOp, op})
		}
	}
	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}

func lexString(sc *scanner) (string, error) {
	sc.next() // opening quote
	var b strings.Builder
	for {
		r, ok := sc.next()
		if !ok {
			return "", pgerr.New(pgerr.KindSyntaxError, "unterminated string literal")
		}
		if r == '\'' {
			if next, ok := sc.peek(); ok && next == '\'' {
				sc.next()
				b.WriteRune('\'')
				continue
			}
			return b.String(), nil
		}
		b.WriteRune(r)
	}
}

func lexNumber(sc *scanner) token {
	start := sc.i
	for {
		r, ok := sc.peek()
		if !ok || (!unicode.IsDigit(r) && r != '.') {
			break
		}
		sc.i++
	}
	return token{tokNumber, string(sc.s[start:sc.i])}
}

func lexIdent(sc *scanner) string {
	start := sc.i
	for {
		r, ok := sc.peek()
		if !ok || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			break
		}
		sc.i++
	}
	return string(sc.s[start:sc.i])
}

// multi-char operator table, longest first so "<=" isn't mis-lexed as "<".
var multiCharOps = []string{"||/", "|/", "<=", ">=", "<>", "<<", ">>", "||", "::"}

func lexOperator(sc *scanner) (string, error) {
	rest := string(sc.s[sc.i:])
	for _, op := range multiCharOps {
		if strings.HasPrefix(rest, op) {
			sc.i += len([]rune(op))
			return op, nil
		}
	}
	r, _ := sc.next()
	switch r {
	case '+', '-', '*', '/', '%', '^', '<', '=', '>', '&', '|', '#', '~', '@', '!':
		return string(r), nil
	}
	return "", pgerr.New(pgerr.KindSyntaxError, "unexpected character %q", r)
}

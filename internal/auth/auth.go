// Package auth implements the backend side of the authentication
// handshake C2 (internal/server) drives (spec.md §4.2/§6): cleartext
// password (the spec-mandated default, accepted unconditionally),
// SCRAM-SHA-256, and GSSAPI. Grounded on lib/pq's client-side mirror
// of the same exchanges (scram.go, krb.go, auth/kerberos), flipped to
// the server role, per DESIGN.md.
package auth

import (
	"github.com/alex-dukhno/pgcore/internal/proto"
)

// Method selects which wire sub-protocol a Backend speaks, chosen by
// the surrounding configuration (SPEC_FULL.md §2 Configuration).
type Method string

const (
	MethodCleartext Method = "cleartext"
	MethodSCRAM     Method = "scram-sha-256"
	MethodGSSAPI    Method = "gssapi"
)

// Exchanger lets a Backend speak the authentication sub-protocol
// without depending on internal/server or internal/wire directly: it
// sends one AuthenticationRequest sub-message and reads back the
// frontend's raw response payload (the bytes following message tag
// and length, exactly as lib/pq/conn.go's recv1Buf hands its callers
// the message body).
type Exchanger interface {
	SendAuthRequest(code proto.AuthCode, data []byte) error
	RecvResponse() ([]byte, error)
}

// Backend authenticates one connection for the given username and
// returns an error if the exchange failed.
type Backend interface {
	Method() Method
	Authenticate(ex Exchanger, username string) error
}

// CredentialStore resolves a username to its cleartext password, the
// minimal lookup SCRAM needs to compute a salted verifier. A
// production deployment would back this with a real user catalog;
// the core ships a static in-memory map (internal/config wires it).
type CredentialStore interface {
	Lookup(username string) (password string, ok bool)
}

// StaticStore is the trivial CredentialStore the default configuration
// uses.
type StaticStore map[string]string

func (s StaticStore) Lookup(username string) (string, bool) {
	p, ok := s[username]
	return p, ok
}

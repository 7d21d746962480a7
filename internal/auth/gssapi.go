package auth

// Server-side GSSAPI backend, grounded on lib/pq/krb.go's Gss
// interface and lib/pq/auth/kerberos's client provider, adapted to the
// server role: accept an AP-REQ token and verify it against a keytab
// rather than producing one. Uses github.com/jcmturner/gokrb5/v8,
// already the teacher's (indirect) Kerberos dependency.

import (
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/service"

	"github.com/alex-dukhno/pgcore/internal/proto"
	"github.com/alex-dukhno/pgcore/pgerr"
)

// GSSAPI validates a client's Kerberos service ticket against a
// keytab, selectable via configuration `auth.method=gssapi`
// (SPEC_FULL.md §2 Domain Stack).
type GSSAPI struct {
	Keytab *keytab.Keytab
}

func (GSSAPI) Method() Method { return MethodGSSAPI }

func (g GSSAPI) Authenticate(ex Exchanger, username string) error {
	if err := ex.SendAuthRequest(proto.AuthReqGSS, nil); err != nil {
		return pgerr.Wrap(err, pgerr.KindProtocolViolation, "send AuthenticationGSS")
	}
	token, err := ex.RecvResponse()
	if err != nil {
		return pgerr.Wrap(err, pgerr.KindProtocolViolation, "read GSS response token")
	}

	var apReq messages.APReq
	if err := apReq.Unmarshal(token); err != nil {
		return pgerr.Wrap(err, pgerr.KindProtocolViolation, "unmarshal AP-REQ")
	}
	ok, creds, err := service.VerifyAPREQ(&apReq, &service.Settings{Keytab: g.Keytab})
	if err != nil {
		return pgerr.Wrap(err, pgerr.KindProtocolViolation, "verify AP-REQ")
	}
	if !ok {
		return pgerr.New(pgerr.KindProtocolViolation, "GSSAPI authentication failed for user %q", username)
	}
	if creds != nil && creds.CName().PrincipalNameString() != "" && creds.CName().PrincipalNameString() != username {
		return pgerr.New(pgerr.KindProtocolViolation, "GSSAPI principal %q does not match startup user %q", creds.CName().PrincipalNameString(), username)
	}
	return nil
}

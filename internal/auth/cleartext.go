package auth

import (
	"github.com/alex-dukhno/pgcore/internal/proto"
	"github.com/alex-dukhno/pgcore/pgerr"
)

// Cleartext is spec.md §4.2/§6's mandatory default: any password sent
// back by the frontend is accepted, its contents never inspected.
type Cleartext struct{}

func (Cleartext) Method() Method { return MethodCleartext }

func (Cleartext) Authenticate(ex Exchanger, username string) error {
	if err := ex.SendAuthRequest(proto.AuthReqCleartext, nil); err != nil {
		return pgerr.Wrap(err, pgerr.KindProtocolViolation, "send AuthenticationCleartextPassword")
	}
	if _, err := ex.RecvResponse(); err != nil {
		return pgerr.Wrap(err, pgerr.KindProtocolViolation, "read password response")
	}
	return nil
}

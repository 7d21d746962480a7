package wire

import (
	"fmt"

	"github.com/alex-dukhno/pgcore/internal/proto"
)

// DecodeStartup decodes the single untagged message a frontend sends
// before authentication: SSLRequest, CancelRequest, or the Setup
// (StartupMessage) itself (spec.md §4.1/§4.2). It returns consumed==0
// with a nil error when buf doesn't yet hold a complete message —
// callers should read more bytes and retry.
func DecodeStartup(buf []byte) (Frontend, int, error) {
	if len(buf) < 4 {
		return Frontend{}, 0, nil
	}
	var rb readBuf = buf
	length := int(rb.int32())
	if length < 4 {
		return Frontend{}, 0, fmt.Errorf("wire: invalid startup message length %d", length)
	}
	if length > proto.MaxMessageLen {
		return Frontend{}, 0, fmt.Errorf("wire: startup message too large: %d bytes", length)
	}
	if len(buf) < length {
		return Frontend{}, 0, nil
	}
	body := readBuf(buf[4:length])
	code := body.int32()

	switch code {
	case proto.NegotiateSSLCode:
		return Frontend{Kind: FrontSslRequest}, length, nil
	case proto.CancelRequestCode:
		connID := body.int32()
		secret := body.int32()
		return Frontend{Kind: FrontCancelRequest, ConnID: connID, SecretKey: secret}, length, nil
	default:
		props := map[string]string{}
		for len(body) > 1 {
			key, err := body.string()
			if err != nil {
				return Frontend{}, 0, err
			}
			if key == "" {
				break
			}
			val, err := body.string()
			if err != nil {
				return Frontend{}, 0, err
			}
			props[key] = val
		}
		return Frontend{Kind: FrontSetup, Version: code, Props: props}, length, nil
	}
}

// DecodeFrontend decodes one tagged frontend message (spec.md §4.1's
// "Frontend variants consumed") once the connection is past startup.
// As with DecodeStartup, consumed==0 with a nil error means buf is
// incomplete.
func DecodeFrontend(buf []byte) (Frontend, int, error) {
	if len(buf) < 5 {
		return Frontend{}, 0, nil
	}
	tag := proto.RequestCode(buf[0])
	var lenBuf readBuf = buf[1:5]
	length := int(lenBuf.int32())
	if length < 4 {
		return Frontend{}, 0, fmt.Errorf("wire: invalid message length %d for tag %s", length, tag)
	}
	if length > proto.MaxMessageLen {
		return Frontend{}, 0, fmt.Errorf("wire: message too large: %d bytes", length)
	}
	total := 1 + length
	if len(buf) < total {
		return Frontend{}, 0, nil
	}
	body := readBuf(buf[5:total])

	switch tag {
	case proto.Query:
		sql, err := body.string()
		if err != nil {
			return Frontend{}, 0, err
		}
		return Frontend{Kind: FrontQuery, SQL: sql}, total, nil

	case proto.Parse:
		name, err := body.string()
		if err != nil {
			return Frontend{}, 0, err
		}
		sql, err := body.string()
		if err != nil {
			return Frontend{}, 0, err
		}
		n := body.int16()
		oids := make([]OID, n)
		for i := range oids {
			oids[i] = OID(body.int32())
		}
		return Frontend{Kind: FrontParse, StmtName: name, SQL: sql, ParamTypeOIDs: oids}, total, nil

	case proto.Bind:
		portal, err := body.string()
		if err != nil {
			return Frontend{}, 0, err
		}
		stmt, err := body.string()
		if err != nil {
			return Frontend{}, 0, err
		}
		nFormats := body.int16()
		formats := make([]int16, nFormats)
		for i := range formats {
			formats[i] = body.int16()
		}
		nParams := body.int16()
		params := make([][]byte, nParams)
		for i := range params {
			n := body.int32()
			if n < 0 {
				params[i] = nil
				continue
			}
			v, err := body.next(int(n))
			if err != nil {
				return Frontend{}, 0, err
			}
			buf := make([]byte, len(v))
			copy(buf, v)
			params[i] = buf
		}
		nResults := body.int16()
		results := make([]int16, nResults)
		for i := range results {
			results[i] = body.int16()
		}
		return Frontend{
			Kind: FrontBind, Portal: portal, Statement: stmt,
			ParamFormats: formats, RawParams: params, ResultFormats: results,
		}, total, nil

	case proto.Describe:
		kind := proto.DescribeKind(body.byte())
		name, err := body.string()
		if err != nil {
			return Frontend{}, 0, err
		}
		return Frontend{Kind: FrontDescribe, TargetKind: kind, Name: name}, total, nil

	case proto.Execute:
		portal, err := body.string()
		if err != nil {
			return Frontend{}, 0, err
		}
		maxRows := body.int32()
		return Frontend{Kind: FrontExecute, Portal: portal, MaxRows: maxRows}, total, nil

	case proto.Close:
		kind := proto.DescribeKind(body.byte())
		name, err := body.string()
		if err != nil {
			return Frontend{}, 0, err
		}
		return Frontend{Kind: FrontClose, TargetKind: kind, Name: name}, total, nil

	case proto.Sync:
		return Frontend{Kind: FrontSync}, total, nil

	case proto.Flush:
		return Frontend{Kind: FrontFlush}, total, nil

	case proto.Terminate:
		return Frontend{Kind: FrontTerminate}, total, nil

	default:
		return Frontend{}, 0, fmt.Errorf("wire: unrecognized frontend message tag %s", tag)
	}
}

// EncodeAuthRequest renders one AuthenticationRequest sub-message
// carrying an arbitrary payload (the SCRAM/GSSAPI challenge/response
// bytes internal/auth's backends exchange), since those payloads don't
// fit the fixed Backend variants in messages.go.
func EncodeAuthRequest(code proto.AuthCode, data []byte) []byte {
	b := newWriteBuf(proto.AuthenticationReq)
	b.int32(int32(code))
	b.bytes(data)
	return b.wrap()
}

// DecodeAuthResponse decodes one PasswordMessage-tagged frontend
// message (shared by cleartext password, SASLInitialResponse,
// SASLResponse, and GSSResponse — they all carry tag 'p') and returns
// its raw body, letting internal/auth interpret the bytes however its
// sub-protocol requires. Framing mirrors DecodeFrontend's two-phase
// peek-then-read convention.
func DecodeAuthResponse(buf []byte) ([]byte, int, error) {
	if len(buf) < 5 {
		return nil, 0, nil
	}
	tag := proto.RequestCode(buf[0])
	if tag != proto.PasswordMessage {
		return nil, 0, fmt.Errorf("wire: expected password/SASL response, got tag %s", tag)
	}
	var lenBuf readBuf = buf[1:5]
	length := int(lenBuf.int32())
	if length < 4 {
		return nil, 0, fmt.Errorf("wire: invalid message length %d for tag %s", length, tag)
	}
	total := 1 + length
	if len(buf) < total {
		return nil, 0, nil
	}
	body := make([]byte, length-4)
	copy(body, buf[5:total])
	return body, total, nil
}

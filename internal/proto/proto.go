// Package proto holds the byte-level constants of the PostgreSQL v3
// frontend/backend protocol: request/response message tags, the
// authentication sub-codes, and the handful of protocol-version and
// startup sentinels every connection negotiates against.
package proto

import (
	"fmt"
	"strconv"
)

// Constants from pqcomm.h.
const (
	ProtocolVersion30 = (3 << 16) | 0
	CancelRequestCode = (1234 << 16) | 5678
	NegotiateSSLCode  = (1234 << 16) | 5679
	NegotiateGSSCode  = (1234 << 16) | 5680
)

// MaxMessageLen bounds a single frame's payload; frames claiming more
// are a protocol violation rather than a legitimate oversized message.
const MaxMessageLen = 1 << 30

// RequestCode is a message tag sent by the frontend.
type RequestCode byte

const (
	Bind            = RequestCode('B')
	Close           = RequestCode('C')
	Describe        = RequestCode('D')
	Execute         = RequestCode('E')
	Flush           = RequestCode('H')
	Parse           = RequestCode('P')
	Query           = RequestCode('Q')
	Sync            = RequestCode('S')
	Terminate       = RequestCode('X')
	PasswordMessage = RequestCode('p')
	SASLInitialResp = RequestCode('p')
	SASLResp        = RequestCode('p')
	GSSResponse     = RequestCode('p')
)

func (r RequestCode) String() string {
	s, ok := map[RequestCode]string{
		Bind: "Bind", Close: "Close", Describe: "Describe", Execute: "Execute",
		Flush: "Flush", Parse: "Parse", Query: "Query", Sync: "Sync",
		Terminate: "Terminate", PasswordMessage: "PasswordMessage",
	}[r]
	if !ok {
		s = "<unknown>"
	}
	c := string(r)
	if r <= 0x1f || r == 0x7f {
		c = fmt.Sprintf("0x%x", byte(r))
	}
	return "(" + c + ") " + s
}

// ResponseCode is a message tag sent by the backend.
type ResponseCode byte

const (
	ParseComplete        = ResponseCode('1')
	BindComplete         = ResponseCode('2')
	CloseComplete        = ResponseCode('3')
	CommandComplete      = ResponseCode('C')
	DataRow              = ResponseCode('D')
	ErrorResponse        = ResponseCode('E')
	EmptyQueryResponse   = ResponseCode('I')
	BackendKeyData       = ResponseCode('K')
	NoticeResponse       = ResponseCode('N')
	AuthenticationReq    = ResponseCode('R')
	ParameterStatus      = ResponseCode('S')
	RowDescription       = ResponseCode('T')
	ReadyForQuery        = ResponseCode('Z')
	NoData               = ResponseCode('n')
	ParameterDescription = ResponseCode('t')
)

func (r ResponseCode) String() string {
	s, ok := map[ResponseCode]string{
		ParseComplete: "ParseComplete", BindComplete: "BindComplete",
		CloseComplete: "CloseComplete", CommandComplete: "CommandComplete",
		DataRow: "DataRow", ErrorResponse: "ErrorResponse",
		EmptyQueryResponse: "EmptyQueryResponse", BackendKeyData: "BackendKeyData",
		NoticeResponse: "NoticeResponse", AuthenticationReq: "AuthRequest",
		ParameterStatus: "ParamStatus", RowDescription: "RowDescription",
		ReadyForQuery: "ReadyForQuery", NoData: "NoData",
		ParameterDescription: "ParamDescription",
	}[r]
	if !ok {
		s = "<unknown>"
	}
	c := string(r)
	if r <= 0x1f || r == 0x7f {
		c = fmt.Sprintf("0x%x", byte(r))
	}
	return "(" + c + ") " + s
}

// AuthCode is an authentication sub-code sent within an
// AuthenticationRequest backend message.
type AuthCode int32

const (
	AuthReqOK        = AuthCode(0)
	AuthReqCleartext = AuthCode(3)
	AuthReqGSS       = AuthCode(7)
	AuthReqGSSCont   = AuthCode(8)
	AuthReqSASL      = AuthCode(10)
	AuthReqSASLCont  = AuthCode(11)
	AuthReqSASLFin   = AuthCode(12)
)

func (a AuthCode) String() string {
	s, ok := map[AuthCode]string{
		AuthReqOK: "ok", AuthReqCleartext: "cleartext", AuthReqGSS: "gss",
		AuthReqGSSCont: "gss-continue", AuthReqSASL: "sasl",
		AuthReqSASLCont: "sasl-continue", AuthReqSASLFin: "sasl-final",
	}[a]
	if !ok {
		s = "<unknown>"
	}
	return s + " (" + strconv.Itoa(int(a)) + ")"
}

// DescribeKind distinguishes a Describe/Close message's target.
type DescribeKind byte

const (
	DescribePortal    DescribeKind = 'P'
	DescribeStatement DescribeKind = 'S'
)

package wire

import (
	"github.com/alex-dukhno/pgcore/internal/proto"
	"github.com/alex-dukhno/pgcore/internal/types"
)

// FrontendKind discriminates the Frontend message variant consumed by
// C1 (spec.md §4.1's "Frontend variants consumed").
type FrontendKind int

const (
	FrontQuery FrontendKind = iota
	FrontParse
	FrontBind
	FrontDescribe
	FrontExecute
	FrontClose
	FrontSync
	FrontFlush
	FrontTerminate
	FrontSslRequest
	FrontSetup
	FrontCancelRequest
)

// Frontend is the tagged-union decode result of DecodeFrontend.
type Frontend struct {
	Kind FrontendKind

	// Query
	SQL string

	// Parse
	StmtName      string
	ParamTypeOIDs []OID

	// Bind
	Portal        string
	Statement     string
	ParamFormats  []int16
	RawParams     [][]byte
	ResultFormats []int16

	// Describe / Close
	TargetKind proto.DescribeKind
	Name       string

	// Execute
	MaxRows int32

	// Setup
	Version int32
	Props   map[string]string

	// CancelRequest
	ConnID    int32
	SecretKey int32
}

// BackendKind discriminates the Backend message variant produced by
// C1 (spec.md §4.1's "Backend variants produced").
type BackendKind int

const (
	BackAuthenticationOK BackendKind = iota
	BackAuthenticationCleartext
	BackParameterStatus
	BackBackendKeyData
	BackReadyForQuery
	BackRowDescription
	BackDataRow
	BackCommandComplete
	BackParseComplete
	BackBindComplete
	BackCloseComplete
	BackNoData
	BackParameterDescription
	BackErrorResponse
	BackEmptyQueryResponse
	BackNoticeResponse
)

// FieldDesc is one RowDescription column.
type FieldDesc struct {
	Name   string
	Type   OID
	Length int16
}

// Backend is the tagged-union argument to EncodeBackend.
type Backend struct {
	Kind BackendKind

	// ParameterStatus
	Name  string
	Value string

	// BackendKeyData
	ConnID    int32
	SecretKey int32

	// ReadyForQuery
	TxStatus byte

	// RowDescription
	Fields []FieldDesc

	// DataRow
	Row types.Row

	// CommandComplete
	Tag string

	// ErrorResponse / NoticeResponse
	Severity string
	Code     string
	Message  string
}

// EncodeBackend renders a Backend message to its wire frame. Every
// backend message knows its own length and tag (spec.md §4.1).
func EncodeBackend(m Backend) []byte {
	switch m.Kind {
	case BackAuthenticationOK:
		b := newWriteBuf(proto.AuthenticationReq)
		b.int32(int32(proto.AuthReqOK))
		return b.wrap()
	case BackAuthenticationCleartext:
		b := newWriteBuf(proto.AuthenticationReq)
		b.int32(int32(proto.AuthReqCleartext))
		return b.wrap()
	case BackParameterStatus:
		b := newWriteBuf(proto.ParameterStatus)
		b.string(m.Name)
		b.string(m.Value)
		return b.wrap()
	case BackBackendKeyData:
		b := newWriteBuf(proto.BackendKeyData)
		b.int32(m.ConnID)
		b.int32(m.SecretKey)
		return b.wrap()
	case BackReadyForQuery:
		b := newWriteBuf(proto.ReadyForQuery)
		b.byte(m.TxStatus)
		return b.wrap()
	case BackRowDescription:
		b := newWriteBuf(proto.RowDescription)
		b.int16(int16(len(m.Fields)))
		for _, f := range m.Fields {
			b.string(f.Name)
			b.int32(0)    // table OID
			b.int16(0)    // column attribute number
			b.int32(int32(f.Type))
			b.int16(f.Length)
			b.int32(-1) // type modifier
			b.int16(0)  // format code: text
		}
		return b.wrap()
	case BackDataRow:
		b := newWriteBuf(proto.DataRow)
		b.int16(int16(len(m.Row)))
		for _, d := range m.Row {
			if d.IsNull() {
				b.int32(-1)
				continue
			}
			text := datumText(d)
			b.int32(int32(len(text)))
			b.bytes([]byte(text))
		}
		return b.wrap()
	case BackCommandComplete:
		b := newWriteBuf(proto.CommandComplete)
		b.string(m.Tag)
		return b.wrap()
	case BackParseComplete:
		return newWriteBuf(proto.ParseComplete).wrap()
	case BackBindComplete:
		return newWriteBuf(proto.BindComplete).wrap()
	case BackCloseComplete:
		return newWriteBuf(proto.CloseComplete).wrap()
	case BackNoData:
		return newWriteBuf(proto.NoData).wrap()
	case BackParameterDescription:
		b := newWriteBuf(proto.ParameterDescription)
		b.int16(int16(len(m.Fields)))
		for _, f := range m.Fields {
			b.int32(int32(f.Type))
		}
		return b.wrap()
	case BackEmptyQueryResponse:
		return newWriteBuf(proto.EmptyQueryResponse).wrap()
	case BackErrorResponse, BackNoticeResponse:
		tag := proto.ErrorResponse
		if m.Kind == BackNoticeResponse {
			tag = proto.NoticeResponse
		}
		b := newWriteBuf(tag)
		b.byte('S')
		b.string(m.Severity)
		b.byte('C')
		b.string(m.Code)
		b.byte('M')
		b.string(m.Message)
		b.byte(0)
		return b.wrap()
	}
	return nil
}

// datumText renders a Datum in PostgreSQL's text wire format (spec.md
// §4.1 leaves the exact representation to "standard PostgreSQL" field
// layouts; this engine always answers in text format, format-code 0).
func datumText(d types.Datum) string {
	switch d.Tag {
	case types.TagTrue:
		return "t"
	case types.TagFalse:
		return "f"
	default:
		return d.String()
	}
}

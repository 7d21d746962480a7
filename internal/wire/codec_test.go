package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-dukhno/pgcore/internal/proto"
	"github.com/alex-dukhno/pgcore/internal/types"
)

func TestDecodeStartupSetupMessage(t *testing.T) {
	b := &writeBuf{buf: []byte{0, 0, 0, 0}} // Setup has no tag byte, only length prefix
	b.int32(proto.ProtocolVersion30)
	b.string("user")
	b.string("alice")
	b.byte(0)
	raw := b.buf
	putLen(raw)

	msg, n, err := DecodeStartup(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, FrontSetup, msg.Kind)
	assert.Equal(t, "alice", msg.Props["user"])
}

func TestDecodeStartupSslRequest(t *testing.T) {
	b := &writeBuf{buf: []byte{0, 0, 0, 0}}
	b.int32(proto.NegotiateSSLCode)
	raw := b.buf
	putLen(raw)

	msg, n, err := DecodeStartup(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, FrontSslRequest, msg.Kind)
}

func TestDecodeStartupIncomplete(t *testing.T) {
	msg, n, err := DecodeStartup([]byte{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, Frontend{}, msg)
}

func TestDecodeFrontendQuery(t *testing.T) {
	wb := &writeBuf{buf: []byte{byte(proto.Query), 0, 0, 0, 0}}
	wb.string("select 1")
	raw := wb.wrap()

	msg, n, err := DecodeFrontend(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, FrontQuery, msg.Kind)
	assert.Equal(t, "select 1", msg.SQL)
}

func TestDecodeFrontendIncomplete(t *testing.T) {
	wb := &writeBuf{buf: []byte{byte(proto.Query), 0, 0, 0, 0}}
	wb.string("select 1")
	raw := wb.wrap()

	msg, n, err := DecodeFrontend(raw[:len(raw)-2])
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, Frontend{}, msg)
}

func TestDecodeFrontendSync(t *testing.T) {
	wb := &writeBuf{buf: []byte{byte(proto.Sync), 0, 0, 0, 0}}
	raw := wb.wrap()

	msg, n, err := DecodeFrontend(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, FrontSync, msg.Kind)
}

func TestEncodeBackendDataRowAndRowDescription(t *testing.T) {
	desc := EncodeBackend(Backend{Kind: BackRowDescription, Fields: []FieldDesc{
		{Name: "id", Type: OIDInt4, Length: 4},
	}})
	assert.Equal(t, byte(proto.RowDescription), desc[0])

	row := EncodeBackend(Backend{Kind: BackDataRow, Row: types.Row{
		types.Int32Datum(7), types.NullDatum(),
	}})
	assert.Equal(t, byte(proto.DataRow), row[0])
}

func TestEncodeBackendErrorResponse(t *testing.T) {
	raw := EncodeBackend(Backend{
		Kind: BackErrorResponse, Severity: "ERROR", Code: "42P01", Message: "relation does not exist",
	})
	assert.Equal(t, byte(proto.ErrorResponse), raw[0])
}

// putLen patches a startup-style (no tag byte) message's 4-byte length
// prefix in place, the analogue of writeBuf.wrap for untagged frames.
func putLen(raw []byte) {
	n := len(raw)
	raw[0] = byte(n >> 24)
	raw[1] = byte(n >> 16)
	raw[2] = byte(n >> 8)
	raw[3] = byte(n)
}

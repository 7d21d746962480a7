package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-dukhno/pgcore/internal/proto"
)

// fakeExchanger is an in-memory stand-in for a connection, letting
// tests drive a Backend without any wire framing or real sockets.
type fakeExchanger struct {
	sent      []sentRequest
	responses [][]byte
}

type sentRequest struct {
	code proto.AuthCode
	data []byte
}

func (f *fakeExchanger) SendAuthRequest(code proto.AuthCode, data []byte) error {
	f.sent = append(f.sent, sentRequest{code, data})
	return nil
}

func (f *fakeExchanger) RecvResponse() ([]byte, error) {
	if len(f.responses) == 0 {
		return nil, nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r, nil
}

func TestCleartextAcceptsAnyPassword(t *testing.T) {
	ex := &fakeExchanger{responses: [][]byte{[]byte("whatever\x00")}}
	err := Cleartext{}.Authenticate(ex, "alice")
	require.NoError(t, err)
	require.Len(t, ex.sent, 1)
	assert.Equal(t, proto.AuthReqCleartext, ex.sent[0].code)
}

func TestCleartextMethod(t *testing.T) {
	assert.Equal(t, MethodCleartext, Cleartext{}.Method())
}

func TestStaticStoreLookup(t *testing.T) {
	s := StaticStore{"alice": "s3cret"}
	pw, ok := s.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "s3cret", pw)

	_, ok = s.Lookup("bob")
	assert.False(t, ok)
}

func TestSCRAMRejectsUnknownUser(t *testing.T) {
	backend := SCRAM{Store: StaticStore{}}
	ex := &fakeExchanger{}
	err := backend.Authenticate(ex, "ghost")
	require.Error(t, err)
}

func TestSCRAMMethod(t *testing.T) {
	assert.Equal(t, MethodSCRAM, SCRAM{}.Method())
}

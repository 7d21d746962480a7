package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/alex-dukhno/pgcore/internal/proto"
)

// readBuf is the decode-side cursor, lifted from lib/pq/buf.go's
// readBuf: a byte slice that consumes itself front-to-back as fields
// are read off it.
type readBuf []byte

func (b *readBuf) int32() int32 {
	n := int32(binary.BigEndian.Uint32(*b))
	*b = (*b)[4:]
	return n
}

func (b *readBuf) int16() int16 {
	n := int16(binary.BigEndian.Uint16(*b))
	*b = (*b)[2:]
	return n
}

func (b *readBuf) byte() byte {
	c := (*b)[0]
	*b = (*b)[1:]
	return c
}

func (b *readBuf) string() (string, error) {
	i := bytes.IndexByte(*b, 0)
	if i < 0 {
		return "", fmt.Errorf("wire: unterminated string field")
	}
	s := (*b)[:i]
	*b = (*b)[i+1:]
	return string(s), nil
}

func (b *readBuf) next(n int) ([]byte, error) {
	if len(*b) < n {
		return nil, fmt.Errorf("wire: truncated field, need %d bytes, have %d", n, len(*b))
	}
	v := (*b)[:n]
	*b = (*b)[n:]
	return v, nil
}

// writeBuf is the encode-side builder, lifted from lib/pq/buf.go's
// writeBuf: it reserves a 4-byte length prefix, appends fields, then
// patches the prefix once the message is complete.
type writeBuf struct {
	buf []byte
}

func newWriteBuf(tag proto.ResponseCode) *writeBuf {
	return &writeBuf{buf: []byte{byte(tag), 0, 0, 0, 0}}
}

func (b *writeBuf) int32(n int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(n))
	b.buf = append(b.buf, tmp[:]...)
}

func (b *writeBuf) int16(n int16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(n))
	b.buf = append(b.buf, tmp[:]...)
}

func (b *writeBuf) byte(c byte) { b.buf = append(b.buf, c) }

func (b *writeBuf) string(s string) {
	b.buf = append(append(b.buf, s...), 0)
}

func (b *writeBuf) bytes(v []byte) { b.buf = append(b.buf, v...) }

// wrap finalizes the message: patches the length prefix (counted from
// byte 1, after the tag) and returns the full tag+length+payload frame.
func (b *writeBuf) wrap() []byte {
	binary.BigEndian.PutUint32(b.buf[1:5], uint32(len(b.buf)-1))
	return b.buf
}

package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Row is an ordered sequence of Datum matching a table's column
// ordinals (spec.md §3).
type Row []Datum

// PackRow serializes a Row as a concatenation of (tag_byte, payload)
// elements (spec.md §4.4), in the self-describing style of
// lib/pq/hstore/encoder.go and lib/pq/array.go's encode functions:
// each element knows how to write and re-read itself without any
// outside schema.
func PackRow(row Row) []byte {
	size := 0
	for _, d := range row {
		size += 1 + d.WireSize()
	}
	buf := make([]byte, 0, size)
	for _, d := range row {
		buf = appendDatum(buf, d)
	}
	return buf
}

func appendDatum(buf []byte, d Datum) []byte {
	buf = append(buf, byte(d.Tag))
	switch d.Tag {
	case TagNull, TagTrue, TagFalse:
		// no payload
	case TagInt16:
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], uint16(int16(d.i)))
		buf = append(buf, tmp[:]...)
	case TagInt32:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(int32(d.i)))
		buf = append(buf, tmp[:]...)
	case TagInt64:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(d.i))
		buf = append(buf, tmp[:]...)
	case TagFloat32:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], math.Float32bits(float32(d.f64)))
		buf = append(buf, tmp[:]...)
	case TagFloat64:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], math.Float64bits(d.f64))
		buf = append(buf, tmp[:]...)
	case TagString:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(len(d.s)))
		buf = append(buf, tmp[:]...)
		buf = append(buf, d.s...)
	}
	return buf
}

// UnpackRow deserializes a packed Row. Per spec.md §4.4, deserialization
// requires only the bytes themselves; the representation is
// self-describing and needs no schema.
func UnpackRow(data []byte) (Row, error) {
	var row Row
	b := data
	for len(b) > 0 {
		d, rest, err := readDatum(b)
		if err != nil {
			return nil, err
		}
		row = append(row, d)
		b = rest
	}
	return row, nil
}

func readDatum(b []byte) (Datum, []byte, error) {
	if len(b) < 1 {
		return Datum{}, nil, fmt.Errorf("types: truncated row: missing tag byte")
	}
	tag := DatumTag(b[0])
	b = b[1:]
	switch tag {
	case TagNull:
		return NullDatum(), b, nil
	case TagTrue:
		return TrueDatum(), b, nil
	case TagFalse:
		return FalseDatum(), b, nil
	case TagInt16:
		if len(b) < 2 {
			return Datum{}, nil, fmt.Errorf("types: truncated int16 datum")
		}
		v := int16(binary.BigEndian.Uint16(b[:2]))
		return Int16Datum(v), b[2:], nil
	case TagInt32:
		if len(b) < 4 {
			return Datum{}, nil, fmt.Errorf("types: truncated int32 datum")
		}
		v := int32(binary.BigEndian.Uint32(b[:4]))
		return Int32Datum(v), b[4:], nil
	case TagInt64:
		if len(b) < 8 {
			return Datum{}, nil, fmt.Errorf("types: truncated int64 datum")
		}
		v := int64(binary.BigEndian.Uint64(b[:8]))
		return Int64Datum(v), b[8:], nil
	case TagFloat32:
		if len(b) < 4 {
			return Datum{}, nil, fmt.Errorf("types: truncated float32 datum")
		}
		v := math.Float32frombits(binary.BigEndian.Uint32(b[:4]))
		return Float32Datum(v), b[4:], nil
	case TagFloat64:
		if len(b) < 8 {
			return Datum{}, nil, fmt.Errorf("types: truncated float64 datum")
		}
		v := math.Float64frombits(binary.BigEndian.Uint64(b[:8]))
		return Float64Datum(v), b[8:], nil
	case TagString:
		if len(b) < 8 {
			return Datum{}, nil, fmt.Errorf("types: truncated string length")
		}
		n := binary.BigEndian.Uint64(b[:8])
		b = b[8:]
		if uint64(len(b)) < n {
			return Datum{}, nil, fmt.Errorf("types: truncated string payload")
		}
		s := string(b[:n])
		return StringDatum(s), b[n:], nil
	default:
		return Datum{}, nil, fmt.Errorf("types: unknown datum tag %d", tag)
	}
}

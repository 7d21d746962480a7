package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRowRoundTrip checks spec.md §8 invariant 1: unpack(pack(row)) == row.
func TestRowRoundTrip(t *testing.T) {
	rows := []Row{
		{},
		{NullDatum()},
		{TrueDatum(), FalseDatum(), NullDatum()},
		{Int16Datum(-32768), Int32Datum(2147483647), Int64Datum(-1)},
		{Float32Datum(1.5), Float64Datum(-2.25)},
		{StringDatum(""), StringDatum("hello, \x00 world")},
		{Int16Datum(1), StringDatum("mixed"), NullDatum(), TrueDatum()},
	}
	for _, row := range rows {
		packed := PackRow(row)
		got, err := UnpackRow(packed)
		require.NoError(t, err)
		require.Len(t, got, len(row))
		for i := range row {
			assert.Equal(t, row[i].Tag, got[i].Tag)
			switch row[i].Tag {
			case TagInt16, TagInt32, TagInt64:
				assert.Equal(t, row[i].Int64(), got[i].Int64())
			case TagFloat32, TagFloat64:
				assert.Equal(t, row[i].Float64(), got[i].Float64())
			case TagString:
				assert.Equal(t, row[i].Text(), got[i].Text())
			}
		}
	}
}

func TestUnpackRowTruncated(t *testing.T) {
	_, err := UnpackRow([]byte{byte(TagInt32), 0, 0})
	require.Error(t, err)
}

func TestInRange(t *testing.T) {
	assert.True(t, InRange(FamilySmallInt, 32767))
	assert.False(t, InRange(FamilySmallInt, 32768))
	assert.True(t, InRange(FamilyInteger, -2147483648))
	assert.False(t, InRange(FamilyInteger, -2147483649))
	assert.True(t, InRange(FamilyBigInt, BigIntMax))
}

func TestWiderFamily(t *testing.T) {
	assert.Equal(t, FamilyInteger, WiderFamily(FamilySmallInt, FamilyInteger))
	assert.Equal(t, FamilyDouble, WiderFamily(FamilyReal, FamilyDouble))
	assert.True(t, Comparable(FamilyInteger, FamilyDouble))
	assert.False(t, Comparable(FamilyString, FamilyInteger))
}

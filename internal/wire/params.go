package wire

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/alex-dukhno/pgcore/internal/types"
	"github.com/alex-dukhno/pgcore/pgerr"
)

// ParamFormat resolves the format code (0=text, 1=binary) that
// applies to the i-th bind parameter, implementing the Bind message's
// shorthand rule: zero formats means "text for all", one format means
// "that format for all", otherwise one format per parameter
// (standard PostgreSQL v3 behavior, spec.md §4.1).
func ParamFormat(formats []int16, i int) int16 {
	switch len(formats) {
	case 0:
		return 0
	case 1:
		return formats[0]
	default:
		return formats[i]
	}
}

// DecodeParam turns one Bind RawParams entry into a Datum, given the
// wire format it was sent in and the family the session's Parse
// message declared for it (spec.md §4.1/§4.7). raw == nil is the SQL
// NULL encoding.
func DecodeParam(raw []byte, format int16, family types.SqlTypeFamily) (types.Datum, error) {
	if raw == nil {
		return types.NullDatum(), nil
	}
	if format == 1 {
		return decodeBinaryParam(raw, family)
	}
	return decodeTextParam(string(raw), family)
}

func decodeBinaryParam(raw []byte, family types.SqlTypeFamily) (types.Datum, error) {
	switch family {
	case types.FamilyBool:
		if len(raw) != 1 {
			return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "malformed binary bool parameter")
		}
		return types.BoolDatum(raw[0] != 0), nil
	case types.FamilySmallInt:
		if len(raw) != 2 {
			return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "malformed binary smallint parameter")
		}
		return types.Int16Datum(int16(binary.BigEndian.Uint16(raw))), nil
	case types.FamilyInteger:
		if len(raw) != 4 {
			return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "malformed binary integer parameter")
		}
		return types.Int32Datum(int32(binary.BigEndian.Uint32(raw))), nil
	case types.FamilyBigInt:
		if len(raw) != 8 {
			return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "malformed binary bigint parameter")
		}
		return types.Int64Datum(int64(binary.BigEndian.Uint64(raw))), nil
	case types.FamilyReal:
		if len(raw) != 4 {
			return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "malformed binary real parameter")
		}
		return types.Float32Datum(math.Float32frombits(binary.BigEndian.Uint32(raw))), nil
	case types.FamilyDouble:
		if len(raw) != 8 {
			return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "malformed binary double parameter")
		}
		return types.Float64Datum(math.Float64frombits(binary.BigEndian.Uint64(raw))), nil
	case types.FamilyString:
		return types.StringDatum(string(raw)), nil
	}
	return types.Datum{}, pgerr.New(pgerr.KindFeatureNotSupported, "unsupported parameter family for binary decode")
}

func decodeTextParam(s string, family types.SqlTypeFamily) (types.Datum, error) {
	switch family {
	case types.FamilyBool:
		switch s {
		case "t", "true", "TRUE", "1":
			return types.TrueDatum(), nil
		case "f", "false", "FALSE", "0":
			return types.FalseDatum(), nil
		}
		return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "invalid input syntax for type boolean: %q", s)
	case types.FamilySmallInt:
		n, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "invalid input syntax for type smallint: %q", s)
		}
		return types.Int16Datum(int16(n)), nil
	case types.FamilyInteger:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "invalid input syntax for type integer: %q", s)
		}
		return types.Int32Datum(int32(n)), nil
	case types.FamilyBigInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "invalid input syntax for type bigint: %q", s)
		}
		return types.Int64Datum(n), nil
	case types.FamilyReal:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "invalid input syntax for type real: %q", s)
		}
		return types.Float32Datum(float32(f)), nil
	case types.FamilyDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.Datum{}, pgerr.New(pgerr.KindInvalidTextRepresentation, "invalid input syntax for type double precision: %q", s)
		}
		return types.Float64Datum(f), nil
	case types.FamilyString:
		return types.StringDatum(s), nil
	}
	return types.Datum{}, pgerr.New(pgerr.KindFeatureNotSupported, "unsupported parameter family for text decode")
}

// OIDToFamily maps a frontend-declared parameter type OID (Parse
// message's ParamTypeOIDs) back to the family C7 needs (spec.md
// §4.7's "declared type-family of each numbered parameter").
func OIDToFamily(o OID) types.SqlTypeFamily {
	switch o {
	case OIDBool:
		return types.FamilyBool
	case OIDInt2:
		return types.FamilySmallInt
	case OIDInt4:
		return types.FamilyInteger
	case OIDInt8:
		return types.FamilyBigInt
	case OIDFloat4:
		return types.FamilyReal
	case OIDFloat8:
		return types.FamilyDouble
	case OIDChar, OIDVarchar:
		return types.FamilyString
	default:
		return types.FamilyUnknown
	}
}

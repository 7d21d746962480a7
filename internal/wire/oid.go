package wire

import "github.com/alex-dukhno/pgcore/internal/types"

// OID is a PostgreSQL type object identifier, as used in
// RowDescription/ParameterDescription (spec.md §4.1).
type OID int32

// Fixed type-OID table of spec.md §4.1, extended with the standard
// PostgreSQL float4/float8 OIDs (spec.md §6: "Message tags and field
// layouts as in standard PostgreSQL") since §4.1's table only lists
// the integer/string/bool family and the type system also has Real
// and Double.
const (
	OIDBool    OID = 16
	OIDChar    OID = 18
	OIDInt8    OID = 20 // bigint
	OIDInt2    OID = 21 // smallint
	OIDInt4    OID = 23 // int
	OIDFloat4  OID = 700
	OIDFloat8  OID = 701
	OIDVarchar OID = 1043
)

// TypeLen is the matching fixed-length table; -1 denotes
// variable-length (varchar).
func TypeLen(o OID) int16 {
	switch o {
	case OIDBool, OIDChar:
		return 1
	case OIDInt2:
		return 2
	case OIDInt4, OIDFloat4:
		return 4
	case OIDInt8, OIDFloat8:
		return 8
	default:
		return -1
	}
}

// OIDForFamily maps a catalog SqlTypeFamily to its wire OID.
func OIDForFamily(f types.SqlTypeFamily) OID {
	switch f {
	case types.FamilyBool:
		return OIDBool
	case types.FamilySmallInt:
		return OIDInt2
	case types.FamilyInteger:
		return OIDInt4
	case types.FamilyBigInt:
		return OIDInt8
	case types.FamilyReal:
		return OIDFloat4
	case types.FamilyDouble:
		return OIDFloat8
	case types.FamilyString:
		return OIDVarchar
	default:
		return OIDVarchar
	}
}

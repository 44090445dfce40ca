// Package format holds the small enumerations shared across bufr packages.
package format

import "strings"

type (
	DataType        uint8
	CompressionType uint8
)

const (
	TypeUndefined DataType = 0x0 // TypeUndefined marks an element whose unit is unknown.
	TypeNumeric   DataType = 0x1 // TypeNumeric represents scaled numeric values.
	TypeCodeTable DataType = 0x2 // TypeCodeTable represents code table values (integers).
	TypeFlagTable DataType = 0x3 // TypeFlagTable represents flag table bit sets (integers).
	TypeCCITTIA5  DataType = 0x4 // TypeCCITTIA5 represents character data, 8 bits per character.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 block compression.
	CompressionGzip CompressionType = 0x5 // CompressionGzip represents gzip streams.
)

func (t DataType) String() string {
	switch t {
	case TypeNumeric:
		return "Numeric"
	case TypeCodeTable:
		return "CodeTable"
	case TypeFlagTable:
		return "FlagTable"
	case TypeCCITTIA5:
		return "CCITT IA5"
	default:
		return "Undefined"
	}
}

// IsTable reports whether values of this type are table entries rather than measurements.
func (t DataType) IsTable() bool {
	return t == TypeCodeTable || t == TypeFlagTable
}

// DataTypeFromUnit derives the data type from a Table B unit string. Unknown units are
// numeric, matching the WMO convention that anything not a table or character field
// is a scaled quantity.
func DataTypeFromUnit(unit string) DataType {
	u := strings.ToUpper(strings.TrimSpace(unit))
	u = strings.ReplaceAll(u, " ", "")
	switch {
	case strings.HasPrefix(u, "FLAGTABLE"), strings.HasPrefix(u, "TABLEFLAG"):
		return TypeFlagTable
	case strings.HasPrefix(u, "CODETABLE"), strings.HasPrefix(u, "TABLECODE"):
		return TypeCodeTable
	case strings.HasPrefix(u, "CCITTIA5"), strings.HasPrefix(u, "CHARACTER"):
		return TypeCCITTIA5
	default:
		return TypeNumeric
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionGzip:
		return "Gzip"
	default:
		return "Unknown"
	}
}

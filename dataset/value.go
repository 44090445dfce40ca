package dataset

import (
	"strconv"
	"strings"
)

// Kind tells which representation a Value holds.
type Kind uint8

const (
	KindMissing Kind = iota // all bits set in the data section
	KindNumeric             // scaled number, code or flag table entry
	KindString              // CCITT IA5 character data
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "Numeric"
	case KindString:
		return "String"
	default:
		return "Missing"
	}
}

// Value is an interpreted element value. The zero value is missing.
type Value struct {
	kind Kind
	num  float64
	str  string
}

// Missing returns the missing value.
func Missing() Value { return Value{} }

// Numeric returns a numeric value.
func Numeric(f float64) Value { return Value{kind: KindNumeric, num: f} }

// String returns a character value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Kind returns the representation.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the value is missing.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Float returns the numeric value.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumeric
}

// Int returns the numeric value truncated to an integer, as used for code and flag
// tables.
func (v Value) Int() (int64, bool) {
	return int64(v.num), v.kind == KindNumeric
}

// Text returns the character value with trailing spaces removed.
func (v Value) Text() (string, bool) {
	return strings.TrimRight(v.str, " "), v.kind == KindString
}

// Raw returns the character value as decoded, including padding.
func (v Value) Raw() string { return v.str }

// Equal reports whether both values have the same kind and content.
func (v Value) Equal(other Value) bool {
	return v == other
}

// String renders the value for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindNumeric:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.str)
	default:
		return "MISSING"
	}
}

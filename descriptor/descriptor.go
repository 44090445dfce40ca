// Package descriptor defines the BUFR descriptor value type.
//
// A descriptor is an (F, X, Y) triple: F selects the class (element, replication,
// operator or sequence), X the category and Y the entry within the category. On the
// wire a descriptor occupies 16 bits (2 bits F, 6 bits X, 8 bits Y); in tables and
// APIs it is commonly written as the six digit integer FXXYYY, which is also how
// Descriptor stores it:
//
//	d := descriptor.New(3, 1, 25) // 301025
//	d.F()                         // 3
//	d.Class()                     // descriptor.Sequence
//	d.String()                    // "301025"
//
// Descriptors are comparable values and can be used directly as map keys.
package descriptor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/bufr/errs"
)

// Descriptor is a BUFR descriptor encoded as F*100000 + X*1000 + Y.
type Descriptor int

// Class is the tagged variant selected by the F field.
type Class uint8

const (
	Element     Class = 0 // F=0, Table B element descriptor
	Replication Class = 1 // F=1, replication descriptor
	Operator    Class = 2 // F=2, Table C operator descriptor
	Sequence    Class = 3 // F=3, Table D sequence descriptor
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case Element:
		return "Element"
	case Replication:
		return "Replication"
	case Operator:
		return "Operator"
	case Sequence:
		return "Sequence"
	default:
		return "Unknown"
	}
}

// Limits of the descriptor fields.
const (
	MaxF = 3
	MaxX = 63
	MaxY = 255
)

// New builds a descriptor from its fields. The fields are not validated; use Valid.
func New(f, x, y int) Descriptor {
	return Descriptor(f*100000 + x*1000 + y)
}

// FromUint16 decodes the 16-bit wire representation used in section 3.
func FromUint16(v uint16) Descriptor {
	return New(int(v>>14), int(v>>8)&0x3F, int(v&0xFF))
}

// Parse parses "FXXYYY" (for example "301025" or "1025") and "F-XX-YYY" notations.
func Parse(s string) (Descriptor, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, "-") == 2 {
		parts := strings.Split(s, "-")
		f, err1 := strconv.Atoi(parts[0])
		x, err2 := strconv.Atoi(parts[1])
		y, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return 0, fmt.Errorf("%w: %q", errs.ErrInvalidDescriptor, s)
		}
		d := New(f, x, y)
		if !validFields(f, x, y) {
			return 0, fmt.Errorf("%w: %q", errs.ErrInvalidDescriptor, s)
		}

		return d, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q", errs.ErrInvalidDescriptor, s)
	}
	d := Descriptor(v)
	if !d.Valid() {
		return 0, fmt.Errorf("%w: %q", errs.ErrInvalidDescriptor, s)
	}

	return d, nil
}

// F returns the class field.
func (d Descriptor) F() int { return int(d) / 100000 }

// X returns the category field.
func (d Descriptor) X() int { return (int(d) / 1000) % 100 }

// Y returns the entry field.
func (d Descriptor) Y() int { return int(d) % 1000 }

// Class returns the variant selected by F.
func (d Descriptor) Class() Class { return Class(d.F()) }

// Valid reports whether the descriptor fits the 16-bit wire representation.
func (d Descriptor) Valid() bool {
	if d < 0 {
		return false
	}

	return validFields(d.F(), d.X(), d.Y())
}

// Uint16 returns the 16-bit wire representation.
func (d Descriptor) Uint16() uint16 {
	return uint16(d.F()&0x3)<<14 | uint16(d.X()&0x3F)<<8 | uint16(d.Y()&0xFF)
}

// String renders the descriptor as six zero-padded digits.
func (d Descriptor) String() string {
	return fmt.Sprintf("%06d", int(d))
}

// IsLocal reports whether the descriptor lies in the range reserved for local use.
func (d Descriptor) IsLocal() bool {
	return d.X() > 47 || (d.Y() > 191 && d.Y() <= 255)
}

// IsQualifier reports whether d is an element of the qualifier classes 01 to 09.
func (d Descriptor) IsQualifier() bool {
	return d.F() == 0 && d.X() >= 1 && d.X() <= 9
}

// IsCoordinate reports whether d is an element of the time and location classes 04 to 07.
func (d Descriptor) IsCoordinate() bool {
	return d.F() == 0 && d.X() >= 4 && d.X() <= 7
}

// IsClass31 reports whether d belongs to class 31 (data description operator qualifiers).
// Operators 201, 202, 204 and 207 never apply to class 31 elements.
func (d Descriptor) IsClass31() bool {
	return d.F() == 0 && d.X() == 31
}

// IsDelayedFactor reports whether d is one of the delayed replication or repetition
// factors that may follow a 1XX000 descriptor.
func (d Descriptor) IsDelayedFactor() bool {
	switch d {
	case 31000, 31001, 31002, 31011, 31012:
		return true
	default:
		return false
	}
}

// FromInts converts a list of FXXYYY integers.
func FromInts(codes ...int) []Descriptor {
	out := make([]Descriptor, len(codes))
	for i, c := range codes {
		out[i] = Descriptor(c)
	}

	return out
}

// Ints converts descriptors back to FXXYYY integers.
func Ints(ds []Descriptor) []int {
	out := make([]int, len(ds))
	for i, d := range ds {
		out[i] = int(d)
	}

	return out
}

func validFields(f, x, y int) bool {
	return f >= 0 && f <= MaxF && x >= 0 && x <= MaxX && y >= 0 && y <= MaxY
}

package message

import (
	"fmt"
	"time"

	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/errs"
)

// Section1 is the identification section.
type Section1 struct {
	Edition          int
	MasterTable      int // 0 for meteorology
	Centre           int
	SubCentre        int
	UpdateSequence   int
	HasSection2      bool
	Category         int // data category, table A
	SubCategory      int // international sub-category, edition 4 only
	LocalSubCategory int
	MasterVersion    int
	LocalVersion     int
	Year             int // four digits in edition 4, year of century before
	Month            int
	Day              int
	Hour             int
	Minute           int
	Second           int // edition 4 only
	Local            []byte
}

// Minimum section 1 lengths per edition.
const (
	section1MinLen  = 17
	section1MinLen4 = 22
)

// ParseSection1 decodes section 1 of the given edition, including its length octets.
func ParseSection1(b []byte, edition int) (Section1, error) {
	s := Section1{Edition: edition}

	minLen := section1MinLen
	if edition >= 4 {
		minLen = section1MinLen4
	}
	if len(b) < minLen {
		return s, fmt.Errorf("%w: section 1 has %d octets, need %d", errs.ErrInvalidMessage, len(b), minLen)
	}

	s.MasterTable = int(b[3])
	p := 4
	switch edition {
	case 2:
		s.Centre = uint16be(b[p:])
		p += 2
	case 3:
		s.SubCentre = int(b[p])
		s.Centre = int(b[p+1])
		p += 2
	default:
		s.Centre = uint16be(b[p:])
		s.SubCentre = uint16be(b[p+2:])
		p += 4
	}

	s.UpdateSequence = int(b[p])
	s.HasSection2 = b[p+1]&0x80 != 0
	s.Category = int(b[p+2])
	p += 3
	if edition >= 4 {
		s.SubCategory = int(b[p])
		p++
	}
	s.LocalSubCategory = int(b[p])
	s.MasterVersion = int(b[p+1])
	s.LocalVersion = int(b[p+2])
	p += 3

	if edition >= 4 {
		s.Year = uint16be(b[p:])
		p += 2
	} else {
		s.Year = int(b[p])
		p++
	}
	s.Month = int(b[p])
	s.Day = int(b[p+1])
	s.Hour = int(b[p+2])
	s.Minute = int(b[p+3])
	p += 4
	if edition >= 4 {
		s.Second = int(b[p])
		p++
	}

	// editions 2 and 3 pad section 1 to an even length
	if p < len(b) && (edition >= 4 || len(b)-p > 1) {
		s.Local = b[p:]
	}

	return s, nil
}

// FullYear returns the four digit year; editions before 4 carry the year of the
// century, read as 1970 to 2069.
func (s Section1) FullYear() int {
	if s.Edition >= 4 || s.Year > 100 {
		return s.Year
	}
	yy := s.Year % 100
	if yy < 70 {
		return 2000 + yy
	}

	return 1900 + yy
}

// Time returns the reference time in UTC.
func (s Section1) Time() time.Time {
	return time.Date(s.FullYear(), time.Month(s.Month), s.Day, s.Hour, s.Minute, s.Second, 0, time.UTC)
}

// Section 3 flag bits.
const (
	FlagObserved   = 0x80
	FlagCompressed = 0x40
)

// Section3 is the data description section.
type Section3 struct {
	Subsets     int
	Observed    bool
	Compressed  bool
	Descriptors []descriptor.Descriptor
}

// ParseSection3 decodes section 3, including its length octets.
//
// The descriptor count is (length - 7) / 2; a trailing odd padding octet is ignored.
func ParseSection3(b []byte) (Section3, error) {
	var s Section3
	if len(b) < 7 {
		return s, fmt.Errorf("%w: section 3 has %d octets, need 7", errs.ErrInvalidMessage, len(b))
	}

	s.Subsets = uint16be(b[4:])
	s.Observed = b[6]&FlagObserved != 0
	s.Compressed = b[6]&FlagCompressed != 0

	n := (len(b) - 7) / 2
	s.Descriptors = make([]descriptor.Descriptor, n)
	for i := range n {
		v := uint16(b[7+2*i])<<8 | uint16(b[8+2*i])
		s.Descriptors[i] = descriptor.FromUint16(v)
	}

	return s, nil
}

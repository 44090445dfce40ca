package tables

import (
	"fmt"
	"strings"

	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/errs"
	"github.com/arloliu/bufr/format"
)

// MaxElementWidth is the widest Table B element the decoder accepts, in bits.
// Character elements are bounded separately by the 8 bit per character rule.
const MaxElementWidth = 32 * 8 * 8

// TableBEntry describes an element descriptor.
//
// Entries are immutable once loaded into a Registry; the registry hands out pointers to
// its own copies.
type TableBEntry struct {
	Descriptor descriptor.Descriptor
	Name       string
	Unit       string
	Scale      int
	Reference  int64
	Width      int // data width in bits
	Type       format.DataType
}

// Chars returns the number of characters of a CCITT IA5 element, zero otherwise.
func (e *TableBEntry) Chars() int {
	if e.Type != format.TypeCCITTIA5 {
		return 0
	}

	return e.Width / 8
}

// validate checks the required fields and derives Type from Unit when it is unset.
func (e *TableBEntry) validate() error {
	if !e.Descriptor.Valid() || e.Descriptor.Class() != descriptor.Element {
		return fmt.Errorf("%w: table B descriptor %06d is not an element", errs.ErrTableLoad, int(e.Descriptor))
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: table B %s: missing name", errs.ErrTableLoad, e.Descriptor)
	}
	if e.Width <= 0 || e.Width > MaxElementWidth {
		return fmt.Errorf("%w: table B %s: invalid width %d", errs.ErrTableLoad, e.Descriptor, e.Width)
	}
	if e.Type == format.TypeUndefined {
		e.Type = format.DataTypeFromUnit(e.Unit)
	}
	if e.Type != format.TypeCCITTIA5 && e.Width > 64 {
		return fmt.Errorf("%w: table B %s: numeric width %d exceeds 64 bits", errs.ErrTableLoad, e.Descriptor, e.Width)
	}
	if e.Type == format.TypeCCITTIA5 && e.Width%8 != 0 {
		return fmt.Errorf("%w: table B %s: character width %d is not a multiple of 8", errs.ErrTableLoad, e.Descriptor, e.Width)
	}

	return nil
}

// TableDEntry describes a sequence descriptor.
type TableDEntry struct {
	Descriptor descriptor.Descriptor
	Name       string
	Members    []descriptor.Descriptor
}

// Descriptors returns a copy of the member descriptors.
func (e *TableDEntry) Descriptors() []descriptor.Descriptor {
	out := make([]descriptor.Descriptor, len(e.Members))
	copy(out, e.Members)

	return out
}

func (e *TableDEntry) validate() error {
	if !e.Descriptor.Valid() || e.Descriptor.Class() != descriptor.Sequence {
		return fmt.Errorf("%w: table D descriptor %06d is not a sequence", errs.ErrTableLoad, int(e.Descriptor))
	}
	if len(e.Members) == 0 {
		return fmt.Errorf("%w: table D %s: no members", errs.ErrTableLoad, e.Descriptor)
	}
	for _, m := range e.Members {
		if !m.Valid() {
			return fmt.Errorf("%w: table D %s: invalid member %06d", errs.ErrTableLoad, e.Descriptor, int(m))
		}
	}

	return nil
}

package decoder

import (
	"fmt"

	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/errs"
	"github.com/arloliu/bufr/format"
	"github.com/arloliu/bufr/tables"
)

// Class 31 elements with a decoder defined meaning.
const (
	dataPresentIndicator   descriptor.Descriptor = 31031
	associatedSignificance descriptor.Descriptor = 31021
)

// Operand values of Table C operators.
const (
	markerCancel    = 0
	markerEnd       = 255
	changeWidthBias = 128
	negativeSign    = 1
)

// opContext is the operator state of one subset, or of all subsets of a compressed
// message. A fresh context is created for every subset.
type opContext struct {
	widthDelta int                             // 201YYY
	scaleDelta int                             // 202YYY
	refBits    int                             // 203YYY definition phase, 0 outside
	refs       map[descriptor.Descriptor]int64 // 203YYY new reference values
	assoc      []int                           // 204YYY widths, innermost last
	signif     int                             // last 031021 value, -1 if none
	localWidth int                             // 206YYY width of the next element
	increase   int                             // 207YYY
	ccittChars int                             // 208YYY
	notPresent int                             // 221YYY descriptors left

	bm bitmap
}

func newContext() *opContext {
	return &opContext{signif: -1}
}

// associatedBits returns the total width of the active associated fields.
func (c *opContext) associatedBits() int {
	n := 0
	for _, w := range c.assoc {
		n += w
	}

	return n
}

// field is the effective encoding of one numeric element.
type field struct {
	width int
	scale int
	ref   int64
}

// numericField applies the active operators to e.
//
// Class 31 elements and code or flag table elements are not affected by 201, 202
// and 207. New reference values defined by 203 apply to any element.
func (c *opContext) numericField(e *tables.TableBEntry) (field, error) {
	f := field{width: e.Width, scale: e.Scale, ref: e.Reference}
	if r, ok := c.refs[e.Descriptor]; ok {
		f.ref = r
	}
	if e.Descriptor.IsClass31() || e.Type.IsTable() {
		return f, nil
	}

	f.width += c.widthDelta
	f.scale += c.scaleDelta
	if y := c.increase; y > 0 {
		f.scale += y
		f.width += (10*y + 2) / 3
		f.ref *= pow10(y)
	}
	if f.width <= 0 || f.width > 64 {
		return f, fmt.Errorf("%w: effective width %d of %s", errs.ErrDecode, f.width, e.Descriptor)
	}

	return f, nil
}

// charCount returns the number of characters of a CCITT IA5 element.
func (c *opContext) charCount(e *tables.TableBEntry) int {
	if c.ccittChars > 0 {
		return c.ccittChars
	}

	return e.Chars()
}

// apply updates the context for a Table C operator. Operators that read or emit data
// (205, the 2XX255 markers and bitmap control) are handled by the pass; apply reports
// false for them.
func (c *opContext) apply(d descriptor.Descriptor) (bool, error) {
	y := d.Y()
	switch d.X() {
	case 1:
		c.widthDelta = bias(y)
	case 2:
		c.scaleDelta = bias(y)
	case 3:
		switch y {
		case markerCancel:
			c.refs = nil
			c.refBits = 0
		case markerEnd:
			c.refBits = 0
		default:
			if c.refs == nil {
				c.refs = make(map[descriptor.Descriptor]int64)
			}
			c.refBits = y
		}
	case 4:
		if y == 0 {
			if len(c.assoc) == 0 {
				return true, fmt.Errorf("%w: 204000 without an associated field", errs.ErrDecode)
			}
			c.assoc = c.assoc[:len(c.assoc)-1]
		} else {
			c.assoc = append(c.assoc, y)
		}
	case 6:
		c.localWidth = y
	case 7:
		c.increase = y
	case 8:
		c.ccittChars = y
	case 21:
		c.notPresent = y
	default:
		return false, nil
	}

	return true, nil
}

func bias(y int) int {
	if y == 0 {
		return 0
	}

	return y - changeWidthBias
}

// notPresentExempt reports whether d is still decoded inside a 221YYY range. Qualifiers
// of classes 01 to 09 and class 31 elements are always present.
func notPresentExempt(d descriptor.Descriptor) bool {
	return d.IsQualifier() || d.IsClass31()
}

// referenceValue converts a sign and magnitude field of width bits.
func referenceValue(raw uint64, width int) int64 {
	sign := raw >> uint(width-1)
	mag := int64(raw & (1<<uint(width-1) - 1))
	if sign == negativeSign {
		return -mag
	}

	return mag
}

func pow10(n int) int64 {
	v := int64(1)
	for range n {
		v *= 10
	}

	return v
}

// isCharacter reports whether e is decoded as text.
func isCharacter(e *tables.TableBEntry) bool {
	return e.Type == format.TypeCCITTIA5
}

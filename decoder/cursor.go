package decoder

import (
	"fmt"

	"github.com/arloliu/bufr/errs"
	"github.com/arloliu/bufr/internal/bitio"
)

// cursor reads the fields of one element for every subset decoded by a pass.
//
// Uncompressed data is decoded one subset at a time, so the plain cursor has a single
// lane. Compressed data interleaves the subsets element by element and the compressed
// cursor returns one value per subset from each field.
type cursor interface {
	lanes() int
	offset() int
	remaining() int

	// uints reads an unsigned field of width bits into vals. When missingAllowed is set,
	// lanes whose field has all bits set are flagged in miss.
	uints(width int, missingAllowed bool, vals []uint64, miss []bool) error

	// chars reads a character field of n octets per lane. Lanes whose octets are all
	// 0xFF are flagged in miss.
	chars(n int, strs []string, miss []bool) error
}

type plainCursor struct {
	r *bitio.Reader
}

func (c *plainCursor) lanes() int     { return 1 }
func (c *plainCursor) offset() int    { return c.r.Offset() }
func (c *plainCursor) remaining() int { return c.r.Remaining() }

func (c *plainCursor) uints(width int, missingAllowed bool, vals []uint64, miss []bool) error {
	v, err := c.r.ReadBits(width)
	if err != nil {
		return err
	}
	vals[0] = v
	miss[0] = missingAllowed && bitio.AllOnes(v, width)

	return nil
}

func (c *plainCursor) chars(n int, strs []string, miss []bool) error {
	b, err := c.r.ReadBytes(n)
	if err != nil {
		return err
	}
	strs[0] = string(b)
	miss[0] = allFF(b)

	return nil
}

// incrementWidthBits is the width of the NBINC field preceding compressed increments.
const incrementWidthBits = 6

type compressedCursor struct {
	r *bitio.Reader
	n int
}

func (c *compressedCursor) lanes() int     { return c.n }
func (c *compressedCursor) offset() int    { return c.r.Offset() }
func (c *compressedCursor) remaining() int { return c.r.Remaining() }

// uints reads the local reference R0, the increment width and one increment per subset.
func (c *compressedCursor) uints(width int, missingAllowed bool, vals []uint64, miss []bool) error {
	r0, err := c.r.ReadBits(width)
	if err != nil {
		return err
	}
	nbinc, err := c.r.ReadBits(incrementWidthBits)
	if err != nil {
		return err
	}

	if nbinc == 0 {
		m := missingAllowed && bitio.AllOnes(r0, width)
		for i := range c.n {
			vals[i] = r0
			miss[i] = m
		}

		return nil
	}
	if int(nbinc) > width {
		return fmt.Errorf("%w: increment width %d exceeds element width %d", errs.ErrDecode, nbinc, width)
	}

	for i := range c.n {
		inc, err := c.r.ReadBits(int(nbinc))
		if err != nil {
			return err
		}
		if missingAllowed && bitio.AllOnes(inc, int(nbinc)) {
			vals[i], miss[i] = 0, true
			continue
		}
		vals[i], miss[i] = r0+inc, false
	}

	return nil
}

// chars reads R0 as n octets followed by the character count; a zero count means every
// subset holds R0, otherwise each subset carries its own count octets.
func (c *compressedCursor) chars(n int, strs []string, miss []bool) error {
	r0, err := c.r.ReadBytes(n)
	if err != nil {
		return err
	}
	nbinc, err := c.r.ReadBits(incrementWidthBits)
	if err != nil {
		return err
	}

	if nbinc == 0 {
		s, m := string(r0), allFF(r0)
		for i := range c.n {
			strs[i], miss[i] = s, m
		}

		return nil
	}

	for i := range c.n {
		b, err := c.r.ReadBytes(int(nbinc))
		if err != nil {
			return err
		}
		strs[i], miss[i] = string(b), allFF(b)
	}

	return nil
}

func allFF(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c != 0xff {
			return false
		}
	}

	return true
}

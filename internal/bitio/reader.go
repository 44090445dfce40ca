// Package bitio reads and writes MSB-first bit streams.
//
// BUFR data sections pack values without byte alignment: a 12 bit element can start at
// any bit of any octet. Reader extracts such fields; Writer produces them and is used by
// tests to synthesize data sections.
package bitio

import (
	"fmt"

	"github.com/arloliu/bufr/errs"
)

// Reader reads bit fields from a byte slice, most significant bit first.
type Reader struct {
	data   []byte
	offset int // current bit offset
	nbits  int // total number of bits available
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data, nbits: len(data) * 8}
}

// Offset returns the current bit offset.
func (r *Reader) Offset() int {
	return r.offset
}

// Len returns the total number of bits.
func (r *Reader) Len() int {
	return r.nbits
}

// Remaining returns the number of bits left to read.
func (r *Reader) Remaining() int {
	return r.nbits - r.offset
}

// Seek moves to an absolute bit offset.
func (r *Reader) Seek(offset int) error {
	if offset < 0 || offset > r.nbits {
		return fmt.Errorf("%w: seek to bit %d of %d", errs.ErrTruncatedData, offset, r.nbits)
	}
	r.offset = offset

	return nil
}

// Skip advances by n bits.
func (r *Reader) Skip(n int) error {
	if n < 0 || n > r.Remaining() {
		return fmt.Errorf("%w: skip %d bits at %d, %d remaining", errs.ErrTruncatedData, n, r.offset, r.Remaining())
	}
	r.offset += n

	return nil
}

// ReadBits reads an unsigned field of up to 64 bits.
func (r *Reader) ReadBits(n int) (uint64, error) {
	if n < 0 || n > 64 {
		return 0, fmt.Errorf("%w: invalid bit count %d", errs.ErrDecode, n)
	}
	if n == 0 {
		return 0, nil
	}
	if n > r.Remaining() {
		return 0, fmt.Errorf("%w: need %d bits at %d, %d remaining", errs.ErrTruncatedData, n, r.offset, r.Remaining())
	}

	var v uint64
	left := n
	for left > 0 {
		byteOffset := r.offset >> 3
		bitOffset := r.offset & 7
		avail := 8 - bitOffset
		take := min(avail, left)

		b := uint64(r.data[byteOffset])
		b >>= uint(avail - take)
		b &= (1 << uint(take)) - 1

		v = v<<uint(take) | b
		r.offset += take
		left -= take
	}

	return v, nil
}

// ReadBit reads a single bit.
func (r *Reader) ReadBit() (bool, error) {
	v, err := r.ReadBits(1)

	return v == 1, err
}

// ReadBytes reads n octets; the input need not be byte aligned.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n*8 > r.Remaining() {
		return nil, fmt.Errorf("%w: need %d octets at bit %d, %d bits remaining", errs.ErrTruncatedData, n, r.offset, r.Remaining())
	}

	out := make([]byte, n)
	if r.offset&7 == 0 {
		start := r.offset >> 3
		copy(out, r.data[start:start+n])
		r.offset += n * 8

		return out, nil
	}
	for i := range out {
		v, _ := r.ReadBits(8)
		out[i] = byte(v)
	}

	return out, nil
}

// AllOnes reports whether the low n bits of v are all set.
func AllOnes(v uint64, n int) bool {
	if n <= 0 {
		return false
	}
	if n >= 64 {
		return v == ^uint64(0)
	}

	return v == (uint64(1)<<uint(n))-1
}

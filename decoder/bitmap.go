package decoder

import (
	"fmt"

	"github.com/arloliu/bufr/dataset"
	"github.com/arloliu/bufr/errs"
)

// Bitmap operators (X of 2XXYYY).
const (
	opQuality     = 22
	opSubstituted = 23
	opStatistic   = 24
	opDifference  = 25
	opReplaced    = 32
	opCancelRefs  = 35
	opDefineMap   = 36
	opReuseMap    = 37
)

// bitmap tracks the data present bitmap of the active quality, substitution,
// statistics, difference or replacement section.
//
// A bitmap is a run of 031031 elements, 0 meaning present. Its bits map onto the data
// values decoded before the operator that opened the section, aligned to the last of
// them and never reaching back past the last 235000.
type bitmap struct {
	op         int // operator that opened the section, 0 if none
	limit      int // number of values decoded when the section was opened
	backStart  int // first value a bitmap may refer to
	collecting bool
	bits       []bool // present flags in decoding order
	store      bool   // keep the next bitmap for 237000
	refs       []int  // indices of the values flagged present
	next       int
	stored     []int
}

// open starts the section of operator op.
func (b *bitmap) open(op, limit int) {
	b.op = op
	b.limit = limit
	b.collecting = true
	b.bits = b.bits[:0]
	b.refs = nil
	b.next = 0
}

func (b *bitmap) pendingBits() bool {
	return b.collecting && len(b.bits) > 0
}

// add records one 031031 value.
func (b *bitmap) add(raw uint64) {
	b.bits = append(b.bits, raw == 0)
}

// finish maps the collected bits onto the values of s.
func (b *bitmap) finish(s *dataset.Subset) error {
	b.collecting = false

	var candidates []int
	for j := b.backStart; j < b.limit; j++ {
		v, err := s.Descriptor(j)
		if err != nil {
			break
		}
		if v.Role == dataset.RoleData && !v.Descriptor.IsClass31() {
			candidates = append(candidates, j)
		}
	}
	if len(b.bits) > len(candidates) {
		return fmt.Errorf("%w: bitmap of %d bits covers only %d values", errs.ErrDecode, len(b.bits), len(candidates))
	}

	candidates = candidates[len(candidates)-len(b.bits):]
	b.refs = make([]int, 0, len(candidates))
	for i, present := range b.bits {
		if present {
			b.refs = append(b.refs, candidates[i])
		}
	}
	if b.store {
		b.stored = b.refs
		b.store = false
	}

	return nil
}

// reuse activates the bitmap defined by 236000.
func (b *bitmap) reuse() error {
	if b.stored == nil {
		return fmt.Errorf("%w: 237000 without a bitmap defined by 236000", errs.ErrDecode)
	}
	b.collecting = false
	b.refs = b.stored
	b.next = 0

	return nil
}

// nextRef returns the index of the next value flagged present.
func (b *bitmap) nextRef() (int, bool) {
	if b.collecting || b.next >= len(b.refs) {
		return dataset.NotFound, false
	}
	j := b.refs[b.next]
	b.next++

	return j, true
}

// cancel drops all bitmaps; values decoded before size can no longer be referenced.
func (b *bitmap) cancel(size int) {
	*b = bitmap{backStart: size, bits: b.bits[:0]}
}

// Package dataset holds decoded BUFR data.
//
// A Dataset has one Subset per subset declared in section 3 of the message; a Subset is
// the ordered list of DecodedValues produced by expanding the message template against
// the tables. Values keep the nesting path they were decoded at, so callers can tell
// which replication iteration or sequence instance produced them:
//
//	sub, err := ds.Subset(0)
//	if err != nil {
//	    return err
//	}
//	for j := sub.Find(12101, 0); j >= 0; j = sub.Find(12101, j+1) {
//	    v, _ := sub.Descriptor(j)
//	    fmt.Println(v.Path, v.Value)
//	}
//
// Datasets and subsets are built once by the decoder and read-only afterwards.
package dataset

import (
	"fmt"
	"iter"

	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/errs"
)

// Dataset is the ordered list of subsets decoded from one message.
type Dataset struct {
	subsets     []*Subset
	descriptors []descriptor.Descriptor
	compressed  bool
}

// New creates an empty dataset for a message with the given section 3 contents.
func New(descs []descriptor.Descriptor, compressed bool, capacity int) *Dataset {
	return &Dataset{
		subsets:     make([]*Subset, 0, capacity),
		descriptors: descs,
		compressed:  compressed,
	}
}

// Append adds a decoded subset.
func (ds *Dataset) Append(s *Subset) {
	ds.subsets = append(ds.subsets, s)
}

// Size returns the number of decoded subsets. A nil Dataset has none.
func (ds *Dataset) Size() int {
	if ds == nil {
		return 0
	}

	return len(ds.subsets)
}

// Subset returns subset i.
func (ds *Dataset) Subset(i int) (*Subset, error) {
	if i < 0 || i >= len(ds.subsets) {
		return nil, fmt.Errorf("%w: subset %d of %d", errs.ErrIndexOutOfRange, i, len(ds.subsets))
	}

	return ds.subsets[i], nil
}

// All iterates over the subsets in order.
func (ds *Dataset) All() iter.Seq2[int, *Subset] {
	return func(yield func(int, *Subset) bool) {
		for i, s := range ds.subsets {
			if !yield(i, s) {
				return
			}
		}
	}
}

// Descriptors returns the unexpanded section 3 descriptors the data was decoded with.
func (ds *Dataset) Descriptors() []descriptor.Descriptor {
	out := make([]descriptor.Descriptor, len(ds.descriptors))
	copy(out, ds.descriptors)

	return out
}

// Compressed reports whether the message used compressed data.
func (ds *Dataset) Compressed() bool {
	return ds.compressed
}

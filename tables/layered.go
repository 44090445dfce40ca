package tables

import (
	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/errs"
)

// Layered chains registries; entries of later layers shadow earlier ones.
//
// It is used to compose templates and decodes from a standard table plus local tables
// without merging them into a single registry.
type Layered []Lookup

var _ Lookup = Layered(nil)

// FetchTableB searches the layers from last to first.
func (l Layered) FetchTableB(d descriptor.Descriptor) (*TableBEntry, error) {
	for i := len(l) - 1; i >= 0; i-- {
		if e, err := l[i].FetchTableB(d); err == nil {
			return e, nil
		}
	}

	return nil, &errs.DescriptorError{Descriptor: int(d), Err: errs.ErrUnknownDescriptor}
}

// FetchTableD searches the layers from last to first.
func (l Layered) FetchTableD(d descriptor.Descriptor) (*TableDEntry, error) {
	for i := len(l) - 1; i >= 0; i-- {
		if e, err := l[i].FetchTableD(d); err == nil {
			return e, nil
		}
	}

	return nil, &errs.DescriptorError{Descriptor: int(d), Err: errs.ErrUnknownDescriptor}
}

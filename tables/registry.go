package tables

import (
	"fmt"
	"sync/atomic"

	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/errs"
)

// Lookup resolves element and sequence descriptors.
//
// Registry implements Lookup, and so does Layered, which chains several registries.
// The expander and the decoder only depend on this interface.
type Lookup interface {
	FetchTableB(d descriptor.Descriptor) (*TableBEntry, error)
	FetchTableD(d descriptor.Descriptor) (*TableDEntry, error)
}

// Registry holds the Table B and Table D entries of one master table version.
//
// A registry is populated by one or more Load calls and then shared read-only by any
// number of concurrent decodes. Load must not run concurrently with readers; call Freeze
// once loading is done to have further loads rejected.
type Registry struct {
	version int
	tableB  map[descriptor.Descriptor]*TableBEntry
	tableD  map[descriptor.Descriptor]*TableDEntry
	sources []string
	frozen  atomic.Bool
}

var _ Lookup = (*Registry)(nil)

// New creates an empty registry for the given master table version.
func New(masterVersion int) *Registry {
	return &Registry{
		version: masterVersion,
		tableB:  make(map[descriptor.Descriptor]*TableBEntry),
		tableD:  make(map[descriptor.Descriptor]*TableDEntry),
	}
}

// Load ingests the entries of src.
//
// With merge set, the entries are layered over the current contents and a descriptor
// present in both is replaced by the one from src. Without merge, the registry contents
// are replaced by src entirely. Within one source a later duplicate wins as well.
//
// Load is atomic: if any entry of src is malformed the registry is left unchanged and
// an error wrapping errs.ErrTableLoad is returned.
//
// Parameters:
//   - src: the table source
//   - merge: layer over existing entries instead of replacing them
//
// Returns:
//   - error: errs.ErrTableLoad for malformed sources, errs.ErrRegistryFrozen after Freeze
func (r *Registry) Load(src Source, merge bool) error {
	if r.frozen.Load() {
		return errs.ErrRegistryFrozen
	}
	if src == nil {
		return fmt.Errorf("%w: nil source", errs.ErrTableLoad)
	}

	bEntries, err := src.TableB()
	if err != nil {
		return fmt.Errorf("%w: %s: table B: %w", errs.ErrTableLoad, src.Name(), err)
	}
	dEntries, err := src.TableD()
	if err != nil {
		return fmt.Errorf("%w: %s: table D: %w", errs.ErrTableLoad, src.Name(), err)
	}

	size := len(bEntries)
	if merge {
		size += len(r.tableB)
	}
	tableB := make(map[descriptor.Descriptor]*TableBEntry, size)
	size = len(dEntries)
	if merge {
		size += len(r.tableD)
	}
	tableD := make(map[descriptor.Descriptor]*TableDEntry, size)

	if merge {
		for k, v := range r.tableB {
			tableB[k] = v
		}
		for k, v := range r.tableD {
			tableD[k] = v
		}
	}

	for i := range bEntries {
		e := bEntries[i]
		if err := e.validate(); err != nil {
			return fmt.Errorf("%s[%d]: %w", src.Name(), i, err)
		}
		tableB[e.Descriptor] = &e
	}
	for i := range dEntries {
		e := dEntries[i]
		if err := e.validate(); err != nil {
			return fmt.Errorf("%s[%d]: %w", src.Name(), i, err)
		}
		e.Members = e.Descriptors()
		tableD[e.Descriptor] = &e
	}

	r.tableB = tableB
	r.tableD = tableD
	if merge {
		r.sources = append(r.sources, src.Name())
	} else {
		r.sources = []string{src.Name()}
	}

	return nil
}

// FetchTableB returns the element entry for d.
//
// The returned entry is shared and must not be modified. An absent descriptor yields an
// *errs.DescriptorError wrapping errs.ErrUnknownDescriptor.
func (r *Registry) FetchTableB(d descriptor.Descriptor) (*TableBEntry, error) {
	if e, ok := r.tableB[d]; ok {
		return e, nil
	}

	return nil, &errs.DescriptorError{Descriptor: int(d), Err: errs.ErrUnknownDescriptor}
}

// FetchTableD returns the sequence entry for d.
func (r *Registry) FetchTableD(d descriptor.Descriptor) (*TableDEntry, error) {
	if e, ok := r.tableD[d]; ok {
		return e, nil
	}

	return nil, &errs.DescriptorError{Descriptor: int(d), Err: errs.ErrUnknownDescriptor}
}

// MasterVersion returns the master table version the registry was created for.
func (r *Registry) MasterVersion() int {
	return r.version
}

// Freeze rejects any further Load call with errs.ErrRegistryFrozen.
func (r *Registry) Freeze() {
	r.frozen.Store(true)
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// LenB returns the number of Table B entries.
func (r *Registry) LenB() int { return len(r.tableB) }

// LenD returns the number of Table D entries.
func (r *Registry) LenD() int { return len(r.tableD) }

// Sources returns the names of the sources that make up the current contents.
func (r *Registry) Sources() []string {
	out := make([]string, len(r.sources))
	copy(out, r.sources)

	return out
}

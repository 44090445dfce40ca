// Package template builds validated descriptor templates and compares them by expansion.
//
// A Template is an ordered descriptor list checked against one or more table
// registries. It is built incrementally with Allocate and Add, then Finalize expands it
// completely; two finalized templates are compatible when their expansions are
// identical, regardless of how the top level descriptors were written:
//
//	a, _ := template.Allocate(descriptor.FromInts(301025), reg, 0)
//	b, _ := template.Allocate(descriptor.FromInts(10001, 10002), reg, 0)
//	_ = a.Finalize()
//	_ = b.Finalize()
//	same, _ := a.Compare(b) // true
package template

import (
	"fmt"
	"slices"

	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/errs"
	"github.com/arloliu/bufr/expand"
	"github.com/arloliu/bufr/internal/hash"
	"github.com/arloliu/bufr/internal/options"
	"github.com/arloliu/bufr/tables"
)

// Option configures a Template.
type Option = options.Option[*Template]

// WithLimits sets the expansion limits used by Finalize.
func WithLimits(l expand.Limits) Option {
	return options.NoError(func(t *Template) {
		t.limits = l
	})
}

// Template is an ordered, validated descriptor list.
//
// A Template is not safe for concurrent modification; once finalized it is read-only
// and may be shared.
type Template struct {
	descs  []descriptor.Descriptor
	layers tables.Layered
	limits expand.Limits

	finalized    bool
	instructions []expand.Instruction
	codes        []int
	fingerprint  uint64
}

// Allocate creates a template from an initial descriptor list validated against lookup.
//
// Element descriptors must exist in lookup, except one directly following a 206YYY
// operator. Sequence descriptors are only resolved by Finalize, so they may reference
// entries that a later Add brings in.
//
// Parameters:
//   - initial: descriptors to start with, may be empty
//   - lookup: tables the descriptors are validated against
//   - capacityHint: expected final number of top level descriptors
//   - opts: optional settings
//
// Returns:
//   - *Template: the unfinalized template
//   - error: errs.ErrTemplateValidation when a descriptor cannot be resolved
func Allocate(initial []descriptor.Descriptor, lookup tables.Lookup, capacityHint int, opts ...Option) (*Template, error) {
	if lookup == nil {
		return nil, fmt.Errorf("%w: nil table lookup", errs.ErrTemplateValidation)
	}

	t := &Template{
		descs: make([]descriptor.Descriptor, 0, max(capacityHint, len(initial))),
	}
	if err := options.Apply(t, opts...); err != nil {
		return nil, err
	}
	if err := t.append(initial, lookup); err != nil {
		return nil, err
	}

	return t, nil
}

// Add appends descriptors validated against lookup, which may differ from the
// registry the template was allocated with. Entries of later lookups take precedence
// during Finalize.
func (t *Template) Add(more []descriptor.Descriptor, lookup tables.Lookup) error {
	if t.finalized {
		return errs.ErrTemplateFrozen
	}
	if lookup == nil {
		return fmt.Errorf("%w: nil table lookup", errs.ErrTemplateValidation)
	}

	return t.append(more, lookup)
}

func (t *Template) append(more []descriptor.Descriptor, lookup tables.Lookup) error {
	prev := descriptor.Descriptor(0)
	if n := len(t.descs); n > 0 {
		prev = t.descs[n-1]
	}

	for _, d := range more {
		if !d.Valid() {
			return fmt.Errorf("%w: %w: %06d", errs.ErrTemplateValidation, errs.ErrInvalidDescriptor, int(d))
		}
		if d.Class() == descriptor.Element && !isLocalWidth(prev) {
			if _, err := lookup.FetchTableB(d); err != nil {
				return fmt.Errorf("%w: %w", errs.ErrTemplateValidation, err)
			}
		}
		prev = d
	}

	t.descs = append(t.descs, more...)
	if !slices.ContainsFunc(t.layers, func(l tables.Lookup) bool { return sameRegistry(l, lookup) }) {
		t.layers = append(t.layers, lookup)
	}

	return nil
}

// sameRegistry compares registries by identity; other lookups are never deduplicated.
func sameRegistry(a, b tables.Lookup) bool {
	ra, okA := a.(*tables.Registry)
	rb, okB := b.(*tables.Registry)

	return okA && okB && ra == rb
}

func isLocalWidth(d descriptor.Descriptor) bool {
	return d.Class() == descriptor.Operator && d.X() == 6
}

// Finalize expands the template completely and makes it immutable.
//
// Every element and sequence reached by the expansion must resolve; failures wrap both
// errs.ErrTemplateValidation and the expansion error (errs.ErrUnknownDescriptor,
// errs.ErrCyclicTemplate, ...). Calling Finalize on a finalized template is a no-op.
func (t *Template) Finalize() error {
	if t.finalized {
		return nil
	}

	ins, err := expand.Expand(t.layers, t.descs, t.limits)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrTemplateValidation, err)
	}

	t.instructions = ins
	t.codes = expand.Codes(ins)
	t.fingerprint = hash.Codes(t.codes)
	t.finalized = true

	return nil
}

// Compare reports whether both templates expand to the same elementary sequence.
//
// Returns errs.ErrTemplateNotFinalized if either template is not finalized.
func (t *Template) Compare(other *Template) (bool, error) {
	if !t.finalized || other == nil || !other.finalized {
		return false, errs.ErrTemplateNotFinalized
	}
	if t.fingerprint != other.fingerprint {
		return false, nil
	}

	return slices.Equal(t.codes, other.codes), nil
}

// Finalized reports whether Finalize succeeded.
func (t *Template) Finalized() bool {
	return t.finalized
}

// Descriptors returns a copy of the top level descriptors.
func (t *Template) Descriptors() []descriptor.Descriptor {
	return slices.Clone(t.descs)
}

// Len returns the number of top level descriptors.
func (t *Template) Len() int {
	return len(t.descs)
}

// Instructions returns the expansion computed by Finalize.
func (t *Template) Instructions() ([]expand.Instruction, error) {
	if !t.finalized {
		return nil, errs.ErrTemplateNotFinalized
	}

	return slices.Clone(t.instructions), nil
}

// Fingerprint returns the xxHash64 of the expanded descriptor codes.
func (t *Template) Fingerprint() (uint64, error) {
	if !t.finalized {
		return 0, errs.ErrTemplateNotFinalized
	}

	return t.fingerprint, nil
}

// Lookup returns the tables used for expansion, later layers first in precedence.
func (t *Template) Lookup() tables.Lookup {
	return t.layers
}

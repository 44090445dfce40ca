// Package errs defines the error values returned by the bufr packages.
//
// Every failure is reported either as one of the sentinel errors below, wrapped with
// additional context through fmt.Errorf("%w: ..."), or as one of the structured error
// types (DescriptorError, DecodeError) that unwrap to a sentinel. Callers should test
// errors with errors.Is and extract details with errors.As:
//
//	ds, err := decoder.Decode(msg, registry)
//	var de *errs.DecodeError
//	if errors.As(err, &de) {
//	    // subsets 0..de.Subset-1 are still available in ds
//	}
package errs

import (
	"errors"
	"fmt"
)

// Table errors.
var (
	// ErrTableLoad is returned when a table source is malformed. The registry is left unchanged.
	ErrTableLoad = errors.New("table load failed")
	// ErrUnknownDescriptor is returned when an element or sequence descriptor is absent from the tables.
	ErrUnknownDescriptor = errors.New("unknown descriptor")
	// ErrInvalidDescriptor is returned when an F/X/Y triple is outside the BUFR descriptor space.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
	// ErrRegistryFrozen is returned when loading into a registry that has been frozen.
	ErrRegistryFrozen = errors.New("table registry is frozen")
	// ErrNoCandidates is returned when a table version is selected from an empty candidate list.
	ErrNoCandidates = errors.New("no table registry candidates")
)

// Template errors.
var (
	ErrTemplateValidation   = errors.New("template validation failed")
	ErrTemplateFrozen       = errors.New("template is finalized")
	ErrTemplateNotFinalized = errors.New("template is not finalized")
)

// Expansion errors.
var (
	// ErrCyclicTemplate is returned when a Table D sequence contains itself directly or transitively.
	ErrCyclicTemplate = errors.New("cyclic sequence descriptor")
	// ErrInvalidReplication is returned for malformed replication descriptors or out of range counts.
	ErrInvalidReplication = errors.New("invalid replication")
	// ErrNestingTooDeep is returned when expansion exceeds the configured nesting depth.
	ErrNestingTooDeep = errors.New("descriptor nesting too deep")
	// ErrExpansionTooLarge is returned when a structural expansion exceeds the instruction limit.
	ErrExpansionTooLarge = errors.New("descriptor expansion too large")
	// ErrCountPending is returned when the walker is advanced before a delayed replication count was resolved.
	ErrCountPending = errors.New("delayed replication count not resolved")
)

// Decode errors.
var (
	ErrDecode                 = errors.New("decode failed")
	ErrTruncatedData          = errors.New("truncated data section")
	ErrInvalidMessage         = errors.New("invalid BUFR message")
	ErrUnsupportedEdition     = errors.New("unsupported BUFR edition")
	ErrUnsupportedMasterTable = errors.New("unsupported master table")
	ErrUnsupportedOperator    = errors.New("unsupported operator descriptor")
)

// ErrIndexOutOfRange is returned by bounds-checked dataset accessors.
var ErrIndexOutOfRange = errors.New("index out of range")

// DescriptorError reports a failure tied to one descriptor and the nesting path at which
// it was reached.
type DescriptorError struct {
	Descriptor int    // FXXYYY code of the offending descriptor
	Path       string // rendered nesting path, empty at top level
	Err        error  // sentinel describing the failure
}

// Error implements the error interface.
func (e *DescriptorError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v: %06d", e.Err, e.Descriptor)
	}

	return fmt.Sprintf("%v: %06d at %s", e.Err, e.Descriptor, e.Path)
}

// Unwrap returns the sentinel error.
func (e *DescriptorError) Unwrap() error {
	return e.Err
}

// DecodeError reports where decoding of a message stopped.
//
// Subsets with an index lower than Subset were decoded successfully and remain
// available in the dataset returned alongside the error.
type DecodeError struct {
	Reason    string // short human readable reason
	Subset    int    // index of the subset being decoded
	BitOffset int    // bit offset into the data section where decoding stopped
	Err       error  // underlying cause
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode failed in subset %d at bit %d: %s", e.Subset, e.BitOffset, e.Reason)
	}

	return fmt.Sprintf("decode failed in subset %d at bit %d: %s: %v", e.Subset, e.BitOffset, e.Reason, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrDecode so every DecodeError matches errors.Is(err, ErrDecode).
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

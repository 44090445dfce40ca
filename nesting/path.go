// Package nesting records where in the descriptor tree a decoded value came from.
//
// A Path is the ordered list of markers from the subset root down to the value: one
// marker per enclosing sequence expansion and one per enclosing replication group.
// Paths are immutable once handed out; the expander shares one Path value between
// all instructions emitted while the nesting does not change.
package nesting

import (
	"strconv"
	"strings"

	"github.com/arloliu/bufr/descriptor"
)

// Kind identifies what produced a nesting level.
type Kind uint8

const (
	KindSequence    Kind = iota + 1 // expansion of a Table D descriptor
	KindReplication                 // one iteration of a replication group
)

func (k Kind) String() string {
	switch k {
	case KindSequence:
		return "Sequence"
	case KindReplication:
		return "Replication"
	default:
		return "Unknown"
	}
}

// Marker is a single nesting level.
//
// For KindReplication, Index is the zero-based iteration of the group and Descriptor the
// 1XXYYY replicator. For KindSequence, Index counts earlier sibling expansions of the same
// sequence descriptor within the enclosing frame.
type Marker struct {
	Kind       Kind
	Descriptor descriptor.Descriptor
	Index      int
	Delayed    bool // replication count was read from the data stream
}

// String renders the marker as "301025#0" or "103000[2]".
func (m Marker) String() string {
	if m.Kind == KindReplication {
		return m.Descriptor.String() + "[" + strconv.Itoa(m.Index) + "]"
	}

	return m.Descriptor.String() + "#" + strconv.Itoa(m.Index)
}

// Path is the ordered stack of markers from the root; the zero value is the top level.
type Path []Marker

// Depth returns the number of nesting levels.
func (p Path) Depth() int {
	return len(p)
}

// At returns the marker at level i, 0 being the outermost.
func (p Path) At(i int) (Marker, bool) {
	if i < 0 || i >= len(p) {
		return Marker{}, false
	}

	return p[i], true
}

// Innermost returns the deepest marker.
func (p Path) Innermost() (Marker, bool) {
	return p.At(len(p) - 1)
}

// InnermostReplication returns the deepest replication marker.
func (p Path) InnermostReplication() (Marker, bool) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Kind == KindReplication {
			return p[i], true
		}
	}

	return Marker{}, false
}

// Replications returns the iteration indices of the replication levels, outermost first.
func (p Path) Replications() []int {
	var out []int
	for _, m := range p {
		if m.Kind == KindReplication {
			out = append(out, m.Index)
		}
	}

	return out
}

// Equal reports whether both paths have the same markers.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}

	return true
}

// String renders the path as slash separated markers.
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, m := range p {
		if i > 0 {
			sb.WriteByte('/')
		}
		sb.WriteString(m.String())
	}

	return sb.String()
}

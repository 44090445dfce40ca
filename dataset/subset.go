package dataset

import (
	"fmt"
	"iter"

	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/errs"
	"github.com/arloliu/bufr/nesting"
	"github.com/arloliu/bufr/tables"
)

// NotFound is returned by Subset.Find when no value matches.
const NotFound = -1

// Role tells what a decoded value stands for.
type Role uint8

const (
	RoleData                Role = iota // regular element value
	RoleReplicationFactor               // delayed replication or repetition factor
	RoleReferenceDefinition             // new reference value defined by 203YYY
	RoleCharacterData                   // characters inserted by 205YYY
	RoleDataPresent                     // bitmap bit (031031) following a bitmap operator
	RoleQuality                         // quality information following 222000
	RoleSubstituted                     // substituted value following 223255
	RoleFirstOrderStatistic             // statistic value following 224255
	RoleDifference                      // difference statistic following 225255
	RoleReplaced                        // replaced or retained value following 232255
)

func (r Role) String() string {
	switch r {
	case RoleData:
		return "Data"
	case RoleReplicationFactor:
		return "ReplicationFactor"
	case RoleReferenceDefinition:
		return "ReferenceDefinition"
	case RoleCharacterData:
		return "CharacterData"
	case RoleDataPresent:
		return "DataPresent"
	case RoleQuality:
		return "Quality"
	case RoleSubstituted:
		return "Substituted"
	case RoleFirstOrderStatistic:
		return "FirstOrderStatistic"
	case RoleDifference:
		return "Difference"
	case RoleReplaced:
		return "Replaced"
	default:
		return "Unknown"
	}
}

// Associated is the associated field prefixed to an element by 204YYY.
type Associated struct {
	Bits         int    // width of the associated field
	Value        uint64 // raw field value
	Significance int    // value of the last 031021 element, -1 if none
	Missing      bool   // all bits set
}

// DecodedValue is one decoded element instance.
type DecodedValue struct {
	Descriptor descriptor.Descriptor
	// Entry is the Table B definition used, with operator overrides not applied. It is
	// nil for 205YYY character data and for local elements decoded through 206YYY.
	Entry *tables.TableBEntry
	Value Value
	Path  nesting.Path
	Role  Role
	// Ref is the index within the subset of the value a bitmap driven value refers to,
	// or NotFound.
	Ref        int
	Associated *Associated
}

// IsMissing reports whether the value is missing.
func (v *DecodedValue) IsMissing() bool {
	return v.Value.IsMissing()
}

// Depth returns the nesting depth of the value, zero at top level.
func (v *DecodedValue) Depth() int {
	return v.Path.Depth()
}

// Marker returns the nesting marker at level i, 0 being the outermost.
func (v *DecodedValue) Marker(i int) (nesting.Marker, bool) {
	return v.Path.At(i)
}

// String renders the value for diagnostics.
func (v *DecodedValue) String() string {
	if len(v.Path) == 0 {
		return fmt.Sprintf("%s=%s", v.Descriptor, v.Value)
	}

	return fmt.Sprintf("%s/%s=%s", v.Path, v.Descriptor, v.Value)
}

// Subset is the ordered list of values of one subset.
type Subset struct {
	values []DecodedValue
}

// NewSubset creates an empty subset.
func NewSubset(capacity int) *Subset {
	return &Subset{values: make([]DecodedValue, 0, capacity)}
}

// Append adds a value and returns its index.
func (s *Subset) Append(v DecodedValue) int {
	s.values = append(s.values, v)

	return len(s.values) - 1
}

// Size returns the number of values.
func (s *Subset) Size() int {
	return len(s.values)
}

// Descriptor returns the j-th decoded value.
func (s *Subset) Descriptor(j int) (*DecodedValue, error) {
	if j < 0 || j >= len(s.values) {
		return nil, fmt.Errorf("%w: value %d of %d", errs.ErrIndexOutOfRange, j, len(s.values))
	}

	return &s.values[j], nil
}

// Find returns the index of the first value with descriptor d at or after start, or
// NotFound. A negative start searches from the beginning; the search never wraps.
func (s *Subset) Find(d descriptor.Descriptor, start int) int {
	start = max(start, 0)
	for j := start; j < len(s.values); j++ {
		if s.values[j].Descriptor == d {
			return j
		}
	}

	return NotFound
}

// FindAll iterates over the indices of every value with descriptor d.
func (s *Subset) FindAll(d descriptor.Descriptor) iter.Seq[int] {
	return func(yield func(int) bool) {
		for j := s.Find(d, 0); j != NotFound; j = s.Find(d, j+1) {
			if !yield(j) {
				return
			}
		}
	}
}

// All iterates over the values in order.
func (s *Subset) All() iter.Seq2[int, *DecodedValue] {
	return func(yield func(int, *DecodedValue) bool) {
		for j := range s.values {
			if !yield(j, &s.values[j]) {
				return
			}
		}
	}
}

// CoordinateAt returns the value of coordinate descriptor d in effect at index j.
//
// Coordinates (classes 04 to 07) stay in effect for all following elements until
// redefined, so this is the most recent occurrence of d at or before j. A missing
// occurrence cancels the coordinate and yields false.
func (s *Subset) CoordinateAt(j int, d descriptor.Descriptor) (Value, bool) {
	if j >= len(s.values) {
		j = len(s.values) - 1
	}
	for ; j >= 0; j-- {
		v := &s.values[j]
		if v.Descriptor == d && v.Role == RoleData {
			if v.IsMissing() {
				return Missing(), false
			}

			return v.Value, true
		}
	}

	return Missing(), false
}

package expand

import (
	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/nesting"
	"github.com/arloliu/bufr/tables"
)

// Kind is the kind of an elementary instruction.
type Kind uint8

const (
	KindElement  Kind = iota + 1 // decode one Table B element
	KindOperator                 // apply a Table C operator to the decode context
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindOperator:
		return "Operator"
	default:
		return "Unknown"
	}
}

// Instruction is one step of an expanded descriptor sequence.
type Instruction struct {
	Kind       Kind
	Descriptor descriptor.Descriptor
	// Entry is the Table B definition of an element. It is nil for operators and for an
	// element absent from the tables that follows a 206YYY operator.
	Entry *tables.TableBEntry
	// Path is the nesting at which the instruction was emitted. Paths are shared
	// between instructions and must not be modified.
	Path nesting.Path
	// Factor marks the element carrying a delayed replication count. The walker stops
	// until the count is passed to ResolveCount.
	Factor bool
	// Replicator is the 1XX000 descriptor a factor belongs to.
	Replicator descriptor.Descriptor
}

// FactorCount converts the decoded value of a delayed factor into the number of
// group expansions.
//
// Replication factors (031000, 031001, 031002) give the count directly. Repetition
// factors (031011, 031012) repeat the data of a single expansion, so the group is
// expanded once whenever the factor is positive.
func FactorCount(d descriptor.Descriptor, value int64) int64 {
	switch d {
	case 31011, 31012:
		if value > 0 {
			return 1
		}

		return 0
	default:
		return value
	}
}

// Codes returns the descriptor codes of the instructions in order.
func Codes(ins []Instruction) []int {
	out := make([]int, len(ins))
	for i := range ins {
		out[i] = int(ins[i].Descriptor)
	}

	return out
}

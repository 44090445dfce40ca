// Package expand turns a nested descriptor sequence into a flat list of elementary
// instructions.
//
// Table D sequences are replaced by their members, replication groups are repeated and
// operator descriptors are passed through for the decoder to interpret. Every emitted
// instruction carries the nesting.Path it was reached through.
//
// Two modes share one Walker implementation:
//
//   - structural (Expand, NewStructuralWalker): no data is read, every delayed
//     replication group is expanded once. Template finalization uses this mode.
//   - live (NewWalker): the decoder reads each delayed replication factor from the
//     data section and reports the count back with ResolveCount.
//
// Example:
//
//	w := expand.NewWalker(reg, sec3.Descriptors, expand.Limits{})
//	for {
//	    ins, ok, err := w.Next()
//	    if err != nil || !ok {
//	        break
//	    }
//	    v := decodeValue(ins)
//	    if ins.Factor {
//	        err = w.ResolveCount(int(expand.FactorCount(ins.Descriptor, v)))
//	    }
//	}
package expand

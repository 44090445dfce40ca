// Package decoder turns the data section of a framed BUFR message into a dataset.
//
// # Overview
//
// The decoder drives an expand.Walker in live mode over the section 3 descriptors and
// reads one field from the data section for every element the walker emits. Delayed
// replication factors are read as they come and passed back to the walker, so the
// expansion follows the counts present in the data.
//
// Each element value is computed from its Table B entry as
//
//	value = (raw + reference) * 10^-scale
//
// A field with all bits set is missing, except for delayed replication factors and
// one bit fields.
//
// # Operators
//
// Table C operators change how later elements are read. The decoder keeps their state
// in a context that is reset for every subset:
//
//	201YYY  change data width by YYY-128 bits
//	202YYY  change scale by YYY-128
//	203YYY  define new reference values of YYY bits, until 203255; 203000 cancels
//	204YYY  prefix elements with a YYY bit associated field; 204000 removes it
//	205YYY  insert YYY characters
//	206YYY  the next element is YYY bits wide, and may be a local element
//	207YYY  increase scale, reference and width
//	208YYY  change the width of character elements to YYY characters
//	221YYY  the next YYY elements carry no data, except classes 01 to 09 and 31
//	222000  quality information follows, with a data present bitmap
//	223000  substituted values follow, each marked by 223255
//	224000  first order statistics follow, each marked by 224255
//	225000  difference statistics follow, each marked by 225255
//	232000  replaced or retained values follow, each marked by 232255
//	235000  cancel backward references
//	236000  define the next bitmap for reuse
//	237000  reuse the defined bitmap; 237255 cancels it
//
// Operators 201, 202 and 207 do not apply to class 31 elements, nor to code table,
// flag table or character elements. Any other operator fails with
// errs.ErrUnsupportedOperator.
//
// Values that a bitmap section refers back to keep the index of the referenced value
// in DecodedValue.Ref, and their Role tells the kind of section.
//
// # Compression
//
// In compressed messages every element holds the values of all subsets: a local
// reference, a 6 bit increment width and one increment per subset. The decoder reads
// such messages in a single pass producing all subsets at once. Replication counts,
// reference definitions and bitmaps must then be identical across subsets.
//
// # Errors
//
// A failure in subset k of an uncompressed message returns the subsets decoded before
// it together with an *errs.DecodeError naming subset k and the bit offset of the
// failing element. Its Err is an *errs.DescriptorError carrying the descriptor and
// nesting path:
//
//	ds, err := decoder.Decode(msg, reg)
//	var de *errs.DecodeError
//	if errors.As(err, &de) {
//	    log.Printf("kept %d of %d subsets: %v", ds.Size(), msg.Section3.Subsets, err)
//	}
package decoder

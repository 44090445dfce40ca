// Package hash computes xxHash64 fingerprints used for fast equality rejection.
package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Codes computes the xxHash64 of a sequence of descriptor codes.
//
// Each code is hashed as a 4 byte little endian value, so the fingerprint depends on
// both the values and their order. Equal sequences always have equal fingerprints;
// callers must still compare the sequences when fingerprints match.
func Codes(codes []int) uint64 {
	d := xxhash.New()
	var buf [4]byte
	for _, c := range codes {
		binary.LittleEndian.PutUint32(buf[:], uint32(c))
		_, _ = d.Write(buf[:])
	}

	return d.Sum64()
}

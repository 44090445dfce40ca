package compress

// ZstdCompressor handles Zstandard feeds, the format most archive mirrors use for
// daily bulletin files.
//
// The implementation is pure Go (klauspost/compress) unless the module is built with
// cgo and the gozstd tag, which switches to the libzstd binding of valyala/gozstd.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a Zstd codec.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}

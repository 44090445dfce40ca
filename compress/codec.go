package compress

import (
	"fmt"

	"github.com/arloliu/bufr/format"
)

// Compressor compresses a bulletin feed or archive.
type Compressor interface {
	// Compress returns the compressed form of data. The returned slice is owned by the
	// caller and data is not modified.
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a compressed bulletin feed.
//
// Implementations are safe for concurrent use.
type Decompressor interface {
	// Decompress returns the original bytes of data, or an error if data is corrupt or
	// was produced by a different algorithm.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec returns a new Codec for compressionType.
//
// Parameters:
//   - compressionType: the algorithm
//   - target: what the codec is for, used in the error message
//
// Returns:
//   - Codec: the codec
//   - error: unknown compression type
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	case format.CompressionGzip:
		return NewGzipCompressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
	format.CompressionGzip: NewGzipCompressor(),
}

// GetCodec returns the shared built-in Codec for compressionType.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}

// Package compress unwraps compressed BUFR feeds.
//
// Bulletins rarely travel bare. Archive mirrors ship daily files as gzip or Zstd, some
// high volume satellite feeds use LZ4 frames, and caches often keep S2 blocks. Each
// algorithm is a Codec selected by format.CompressionType:
//
//	codec, err := compress.GetCodec(format.CompressionGzip)
//	if err != nil {
//	    return err
//	}
//	raw, err := codec.Decompress(archive)
//
// GetCodec returns shared codecs that are safe for concurrent use; CreateCodec builds
// a new one.
//
// The Zstd codec is pure Go by default. Building with cgo and the gozstd tag switches
// it to libzstd:
//
//	go build -tags gozstd ./...
package compress

// Package source reads BUFR messages out of bulletin feeds.
//
// Feeds are rarely a clean concatenation of messages. GTS bulletins wrap each message
// in an abbreviated heading and trailer, archives add padding, and some files are
// compressed as a whole. The Reader scans for the "BUFR" start marker, trusts the
// declared length, and accepts the message only when "7777" ends it. Anything else is
// skipped.
//
//	r, err := source.NewReader(f, source.WithCompression(format.CompressionGzip))
//	if err != nil {
//	    return err
//	}
//	for msg, err := range r.All() {
//	    if err != nil {
//	        log.Print(err)
//	        continue
//	    }
//	    ...
//	}
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/arloliu/bufr/compress"
	"github.com/arloliu/bufr/errs"
	"github.com/arloliu/bufr/format"
	"github.com/arloliu/bufr/internal/options"
	"github.com/arloliu/bufr/internal/pool"
	"github.com/arloliu/bufr/message"
)

const (
	headerLen = 8 // section 0
	// minMessageLen covers sections 0 and 5 plus the smallest sections 1, 3 and 4.
	minMessageLen = headerLen + 17 + 7 + 4 + 4
)

// Reader yields the messages of a feed in order. It is not safe for concurrent use.
type Reader struct {
	r   io.Reader
	cfg config
	buf *pool.ByteBuffer
	eof bool

	consumed int64 // stream offset of buf[0]
	offset   int64
	skipped  int64
}

// NewReader creates a Reader over r.
//
// With a compression other than format.CompressionNone the feed is read fully and
// decompressed first.
func NewReader(r io.Reader, opts ...Option) (*Reader, error) {
	cfg := defaultConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	if cfg.compression != format.CompressionNone {
		packed, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("source: read feed: %w", err)
		}
		codec, err := compress.GetCodec(cfg.compression)
		if err != nil {
			return nil, err
		}
		raw, err := codec.Decompress(packed)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		r = bytes.NewReader(raw)
	}

	return &Reader{r: r, cfg: cfg, buf: pool.GetBulletinBuffer()}, nil
}

// NewBytesReader creates a Reader over an in-memory feed.
func NewBytesReader(b []byte, opts ...Option) (*Reader, error) {
	return NewReader(bytes.NewReader(b), opts...)
}

// Offset returns the stream offset of the message last returned by Next, counted in
// decompressed bytes.
func (r *Reader) Offset() int64 { return r.offset }

// Skipped returns the number of bytes skipped so far because they were not part of a
// message.
func (r *Reader) Skipped() int64 { return r.skipped }

// Next returns the next message of the feed.
//
// The returned message owns its bytes. Next returns io.EOF at the end of the feed.
// A message that is framed correctly but cannot be parsed, such as one of an
// unsupported edition, is returned as an error and the reader moves past it. A message
// cut short by the end of the feed yields errs.ErrTruncatedData.
func (r *Reader) Next() (*message.Message, error) {
	if r.buf == nil {
		return nil, io.EOF
	}

	for {
		start, err := r.seek()
		if err != nil {
			r.release()
			return nil, err
		}
		r.discard(start, true)

		if err := r.fill(headerLen); err != nil {
			return nil, r.truncated(err)
		}

		b := r.buf.Bytes()
		length := int(b[4])<<16 | int(b[5])<<8 | int(b[6])
		if length < minMessageLen || length > r.cfg.maxSize {
			r.cfg.logger.Debug("skipping false BUFR marker", "offset", r.consumed, "length", length)
			r.discard(1, true)

			continue
		}

		if err := r.fill(length); err != nil {
			// a bogus length may run past a real message further on
			if errors.Is(err, io.ErrUnexpectedEOF) && bytes.Contains(r.buf.Bytes()[1:], message.StartMarker) {
				r.discard(1, true)
				continue
			}

			return nil, r.truncated(err)
		}

		b = r.buf.Bytes()
		if !bytes.Equal(b[length-4:length], message.EndMarker) {
			r.cfg.logger.Debug("skipping message without end marker", "offset", r.consumed, "length", length)
			r.discard(1, true)

			continue
		}

		raw := make([]byte, length)
		copy(raw, b[:length])
		r.offset = r.consumed
		r.discard(length, false)

		msg, err := message.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("source: message at offset %d: %w", r.offset, err)
		}

		return msg, nil
	}
}

// All iterates over the remaining messages. Iteration continues after parse errors and
// stops at the end of the feed or on a read error.
func (r *Reader) All() iter.Seq2[*message.Message, error] {
	return func(yield func(*message.Message, error) bool) {
		for {
			msg, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(msg, err) {
				return
			}
			if err != nil && !errors.Is(err, errs.ErrInvalidMessage) && !errors.Is(err, errs.ErrUnsupportedEdition) {
				return
			}
		}
	}
}

// Close releases the read buffer. It does not close the underlying reader.
func (r *Reader) Close() error {
	r.release()
	return nil
}

// seek returns the buffer index of the next start marker, reading as needed.
func (r *Reader) seek() (int, error) {
	for {
		b := r.buf.Bytes()
		if i := bytes.Index(b, message.StartMarker); i >= 0 {
			return i, nil
		}

		// keep a tail that may hold the start of a split marker
		if keep := len(message.StartMarker) - 1; len(b) > keep {
			r.discard(len(b)-keep, true)
		}
		if r.eof {
			r.skipped += int64(r.buf.Len())
			return 0, io.EOF
		}
		if err := r.read(); err != nil {
			return 0, err
		}
	}
}

func (r *Reader) fill(n int) error {
	for r.buf.Len() < n {
		if r.eof {
			return io.ErrUnexpectedEOF
		}
		if err := r.read(); err != nil {
			return err
		}
	}

	return nil
}

func (r *Reader) read() error {
	_, err := r.buf.Fill(r.r, readChunk)
	if errors.Is(err, io.EOF) {
		r.eof = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("source: read feed: %w", err)
	}

	return nil
}

func (r *Reader) discard(n int, skip bool) {
	if n == 0 {
		return
	}
	r.buf.Discard(n)
	r.consumed += int64(n)
	if skip {
		r.skipped += int64(n)
	}
}

func (r *Reader) truncated(err error) error {
	offset := r.consumed
	r.skipped += int64(r.buf.Len())
	r.release()
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("source: message at offset %d: %w", offset, errs.ErrTruncatedData)
	}

	return err
}

func (r *Reader) release() {
	if r.buf != nil {
		pool.PutBulletinBuffer(r.buf)
		r.buf = nil
	}
}

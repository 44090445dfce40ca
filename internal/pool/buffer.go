// Package pool provides sync.Pool backed buffers and scratch slices.
package pool

import (
	"io"
	"sync"
)

const (
	// BulletinBufferDefaultSize is the initial capacity of pooled bulletin buffers.
	BulletinBufferDefaultSize = 1024 * 64 // 64KiB
	// BulletinBufferMaxThreshold caps the capacity of buffers returned to the pool.
	BulletinBufferMaxThreshold = 1024 * 1024 * 4 // 4MiB
)

// ByteBuffer is a growable byte slice.
type ByteBuffer struct {
	B []byte
}

// NewByteBuffer creates a buffer with the given capacity.
func NewByteBuffer(size int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, size)}
}

// Bytes returns the buffered data.
func (bb *ByteBuffer) Bytes() []byte { return bb.B }

// Len returns the number of buffered bytes.
func (bb *ByteBuffer) Len() int { return len(bb.B) }

// Reset empties the buffer and keeps its memory.
func (bb *ByteBuffer) Reset() { bb.B = bb.B[:0] }

// Write appends data.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)

	return len(data), nil
}

// Discard drops the first n buffered bytes, shifting the rest to the front.
func (bb *ByteBuffer) Discard(n int) {
	if n >= len(bb.B) {
		bb.B = bb.B[:0]
		return
	}
	m := copy(bb.B, bb.B[n:])
	bb.B = bb.B[:m]
}

// Fill appends up to size bytes from r and returns the count read.
//
// It reads at most once, so short reads from streaming readers are reported as is.
func (bb *ByteBuffer) Fill(r io.Reader, size int) (int, error) {
	if cap(bb.B)-len(bb.B) < size {
		grown := make([]byte, len(bb.B), max(2*cap(bb.B), len(bb.B)+size))
		copy(grown, bb.B)
		bb.B = grown
	}
	start := len(bb.B)
	n, err := r.Read(bb.B[start : start+size])
	bb.B = bb.B[:start+n]

	return n, err
}

// ByteBufferPool recycles ByteBuffers, discarding those grown past maxThreshold.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool of buffers with the given initial size.
func NewByteBufferPool(defaultSize, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any { return NewByteBuffer(defaultSize) },
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves an empty buffer.
func (p *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := p.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a buffer to the pool.
func (p *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}
	if p.maxThreshold > 0 && cap(bb.B) > p.maxThreshold {
		return
	}
	bb.Reset()
	p.pool.Put(bb)
}

var bulletinPool = NewByteBufferPool(BulletinBufferDefaultSize, BulletinBufferMaxThreshold)

// GetBulletinBuffer retrieves a buffer from the default bulletin pool.
func GetBulletinBuffer() *ByteBuffer {
	return bulletinPool.Get()
}

// PutBulletinBuffer returns a buffer to the default bulletin pool.
func PutBulletinBuffer(bb *ByteBuffer) {
	bulletinPool.Put(bb)
}

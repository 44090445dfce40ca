package bitio

// Writer appends bit fields to a byte buffer, most significant bit first.
//
// The zero value is ready to use. A partially filled final octet is padded with zero
// bits by Bytes.
type Writer struct {
	buf   []byte
	nbits int
}

// NewWriter creates a Writer with room for capacity octets.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Len returns the number of bits written.
func (w *Writer) Len() int {
	return w.nbits
}

// WriteBits appends the low n bits of v; n is clamped to 64.
func (w *Writer) WriteBits(v uint64, n int) {
	if n > 64 {
		n = 64
	}
	for i := n - 1; i >= 0; i-- {
		if w.nbits&7 == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>uint(i)&1 == 1 {
			w.buf[len(w.buf)-1] |= 1 << uint(7-w.nbits&7)
		}
		w.nbits++
	}
}

// WriteOnes appends n set bits, the BUFR missing value pattern.
func (w *Writer) WriteOnes(n int) {
	for n > 0 {
		k := min(n, 64)
		w.WriteBits(^uint64(0), k)
		n -= k
	}
}

// WriteBytes appends the bytes of p as 8 bit fields.
func (w *Writer) WriteBytes(p []byte) {
	for _, b := range p {
		w.WriteBits(uint64(b), 8)
	}
}

// WriteString appends s as n characters, padding with spaces or truncating.
func (w *Writer) WriteString(s string, n int) {
	for i := range n {
		c := byte(' ')
		if i < len(s) {
			c = s[i]
		}
		w.WriteBits(uint64(c), 8)
	}
}

// Align pads with zero bits up to the next octet boundary.
func (w *Writer) Align() {
	if rem := w.nbits & 7; rem != 0 {
		w.nbits += 8 - rem
	}
}

// Bytes returns the written data. The slice aliases the internal buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

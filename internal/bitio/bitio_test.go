package bitio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bufr/errs"
)

func TestReadBits(t *testing.T) {
	// 1010 1100 | 0011 0101 | 1111 0000
	r := NewReader([]byte{0xAC, 0x35, 0xF0})
	require.Equal(t, 24, r.Len())

	v, err := r.ReadBits(3)
	require.NoError(t, err)
	require.Equal(t, uint64(0b101), v)

	v, err = r.ReadBits(9)
	require.NoError(t, err)
	require.Equal(t, uint64(0b011000011), v)
	require.Equal(t, 12, r.Offset())

	b, err := r.ReadBit()
	require.NoError(t, err)
	require.False(t, b)

	v, err = r.ReadBits(10)
	require.NoError(t, err)
	require.Equal(t, uint64(0b1011111000), v)
	require.Equal(t, 1, r.Remaining())

	_, err = r.ReadBits(2)
	require.ErrorIs(t, err, errs.ErrTruncatedData)
	require.Equal(t, 23, r.Offset(), "failed read must not advance")

	v, err = r.ReadBits(0)
	require.NoError(t, err)
	require.Zero(t, v)

	_, err = r.ReadBits(65)
	require.Error(t, err)
}

func TestReadBits64(t *testing.T) {
	data := []byte{0x80, 0, 0, 0, 0, 0, 0, 1, 0xFF}
	r := NewReader(data)
	require.NoError(t, r.Skip(4))

	v, err := r.ReadBits(64)
	require.NoError(t, err)
	require.Equal(t, uint64(0x000000000000001F), v)
	require.Equal(t, 4, r.Remaining())
}

func TestReadBytes(t *testing.T) {
	r := NewReader([]byte("ABCD"))
	got, err := r.ReadBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte("AB"), got)

	w := &Writer{}
	w.WriteBits(1, 3)
	w.WriteBytes([]byte("HI"))
	r = NewReader(w.Bytes())
	require.NoError(t, r.Skip(3))
	got, err = r.ReadBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte("HI"), got)

	_, err = r.ReadBytes(1)
	require.ErrorIs(t, err, errs.ErrTruncatedData)
}

func TestSeekAndSkip(t *testing.T) {
	r := NewReader([]byte{0x0F})
	require.NoError(t, r.Seek(4))
	v, err := r.ReadBits(4)
	require.NoError(t, err)
	require.Equal(t, uint64(0xF), v)

	require.ErrorIs(t, r.Seek(9), errs.ErrTruncatedData)
	require.ErrorIs(t, r.Skip(1), errs.ErrTruncatedData)
	require.ErrorIs(t, r.Seek(-1), errs.ErrTruncatedData)
}

func TestWriterRoundTrip(t *testing.T) {
	fields := []struct {
		v uint64
		n int
	}{
		{5, 3}, {0, 1}, {1023, 10}, {0xDEADBEEF, 32}, {1, 1}, {0x123456789ABCDEF0, 64}, {77, 7},
	}

	w := NewWriter(16)
	for _, f := range fields {
		w.WriteBits(f.v, f.n)
	}
	w.WriteString("AB", 3)
	w.WriteOnes(70)

	total := 3 + 1 + 10 + 32 + 1 + 64 + 7 + 24 + 70
	require.Equal(t, total, w.Len())

	r := NewReader(w.Bytes())
	for _, f := range fields {
		got, err := r.ReadBits(f.n)
		require.NoError(t, err)
		require.Equal(t, f.v, got)
	}
	s, err := r.ReadBytes(3)
	require.NoError(t, err)
	require.Equal(t, "AB ", string(s))

	ones, err := r.ReadBits(64)
	require.NoError(t, err)
	require.True(t, AllOnes(ones, 64))
	ones, err = r.ReadBits(6)
	require.NoError(t, err)
	require.True(t, AllOnes(ones, 6))
}

func TestWriterAlign(t *testing.T) {
	w := &Writer{}
	w.WriteBits(1, 1)
	w.Align()
	require.Equal(t, 8, w.Len())
	w.WriteBits(0xFF, 8)
	require.Equal(t, []byte{0x80, 0xFF}, w.Bytes())
}

func TestAllOnes(t *testing.T) {
	require.True(t, AllOnes(0x7, 3))
	require.False(t, AllOnes(0x6, 3))
	require.False(t, AllOnes(0, 0))
	require.True(t, AllOnes(^uint64(0), 64))
}

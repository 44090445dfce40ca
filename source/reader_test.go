package source

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bufr/compress"
	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/errs"
	"github.com/arloliu/bufr/format"
	"github.com/arloliu/bufr/internal/bufrtest"
)

func testMessage(t *testing.T, centre int) []byte {
	t.Helper()

	data := bufrtest.NewData().Uint(10, 7).Uint(27315, 16).Bytes()
	m := bufrtest.NewMessage([]descriptor.Descriptor{1001, 12101}, 1, data)
	m.Centre = centre

	return m.Bytes()
}

// bulletin wraps a message the way GTS feeds do: SOH, sequence, heading, ETX.
func bulletin(msg []byte) []byte {
	var b bytes.Buffer
	b.WriteString("\x01\r\r\n123\r\r\nISMD01 EGRR 051200\r\r\n")
	b.Write(msg)
	b.WriteString("\r\r\n\x03")

	return b.Bytes()
}

func readAll(t *testing.T, r *Reader) []int {
	t.Helper()

	var centres []int
	for msg, err := range r.All() {
		require.NoError(t, err)
		centres = append(centres, msg.Section1.Centre)
	}

	return centres
}

func TestReaderFeed(t *testing.T) {
	var feed []byte
	feed = append(feed, bulletin(testMessage(t, 98))...)
	feed = append(feed, bulletin(testMessage(t, 74))...)
	feed = append(feed, "trailing garbage"...)

	r, err := NewBytesReader(feed)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, []int{98, 74}, readAll(t, r))
	require.Positive(t, r.Skipped())

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReaderOffsets(t *testing.T) {
	first := testMessage(t, 98)
	feed := append([]byte("xx"), first...)
	feed = append(feed, testMessage(t, 74)...)

	r, err := NewBytesReader(feed)
	require.NoError(t, err)

	_, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, int64(2), r.Offset())

	_, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, int64(2+len(first)), r.Offset())
	require.Equal(t, int64(2), r.Skipped())
}

func TestReaderSmallReads(t *testing.T) {
	feed := append(bulletin(testMessage(t, 98)), bulletin(testMessage(t, 7))...)

	r, err := NewReader(iotest.OneByteReader(bytes.NewReader(feed)))
	require.NoError(t, err)

	require.Equal(t, []int{98, 7}, readAll(t, r))
}

func TestReaderFalseStarts(t *testing.T) {
	msg := testMessage(t, 98)

	// a "BUFR" inside the heading with an absurd length, and one whose end marker is wrong
	var feed []byte
	feed = append(feed, "BUFR\x00\x00\x01"...)
	feed = append(feed, "BUFR\x00\x00\x30\x04"...)
	feed = append(feed, bytes.Repeat([]byte{'z'}, 60)...)
	feed = append(feed, msg...)

	r, err := NewBytesReader(feed)
	require.NoError(t, err)

	require.Equal(t, []int{98}, readAll(t, r))
}

func TestReaderBogusLengthBeforeMessage(t *testing.T) {
	msg := testMessage(t, 98)
	feed := append([]byte("BUFR\x00\xff\xff\x04"), msg...)

	r, err := NewBytesReader(feed)
	require.NoError(t, err)

	require.Equal(t, []int{98}, readAll(t, r))
}

func TestReaderTruncated(t *testing.T) {
	msg := testMessage(t, 98)
	feed := append(testMessage(t, 74), msg[:len(msg)-10]...)

	r, err := NewBytesReader(feed)
	require.NoError(t, err)

	first, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, 74, first.Section1.Centre)

	_, err = r.Next()
	require.ErrorIs(t, err, errs.ErrTruncatedData)

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReaderUnsupportedEditionContinues(t *testing.T) {
	data := bufrtest.NewData().Uint(10, 7).Bytes()
	old := bufrtest.NewMessage([]descriptor.Descriptor{1001}, 1, data)
	old.Edition = 3
	raw := old.Bytes()
	raw[7] = 1

	feed := append(raw, testMessage(t, 98)...)
	r, err := NewBytesReader(feed)
	require.NoError(t, err)

	var got []int
	var failures int
	for msg, err := range r.All() {
		if err != nil {
			require.ErrorIs(t, err, errs.ErrUnsupportedEdition)
			failures++

			continue
		}
		got = append(got, msg.Section1.Centre)
	}
	require.Equal(t, 1, failures)
	require.Equal(t, []int{98}, got)
}

func TestReaderMaxMessageSize(t *testing.T) {
	msg := testMessage(t, 98)

	r, err := NewBytesReader(msg, WithMaxMessageSize(len(msg)-1))
	require.NoError(t, err)
	require.Empty(t, readAll(t, r))
	require.Equal(t, int64(len(msg)), r.Skipped())

	_, err = NewBytesReader(msg, WithMaxMessageSize(0))
	require.Error(t, err)
}

func TestReaderCompressedFeeds(t *testing.T) {
	feed := append(bulletin(testMessage(t, 98)), bulletin(testMessage(t, 74))...)

	for _, typ := range []format.CompressionType{format.CompressionGzip, format.CompressionZstd, format.CompressionLZ4, format.CompressionS2} {
		t.Run(typ.String(), func(t *testing.T) {
			codec, err := compress.GetCodec(typ)
			require.NoError(t, err)
			packed, err := codec.Compress(feed)
			require.NoError(t, err)

			r, err := NewBytesReader(packed, WithCompression(typ))
			require.NoError(t, err)
			require.Equal(t, []int{98, 74}, readAll(t, r))
		})
	}

	_, err := NewBytesReader(feed, WithCompression(format.CompressionType(42)))
	require.Error(t, err)

	_, err = NewBytesReader([]byte("not gzip"), WithCompression(format.CompressionGzip))
	require.Error(t, err)
}

func TestReaderReadError(t *testing.T) {
	boom := errors.New("boom")
	r, err := NewReader(io.MultiReader(bytes.NewReader([]byte("xxBU")), iotest.ErrReader(boom)))
	require.NoError(t, err)

	_, err = r.Next()
	require.ErrorIs(t, err, boom)
}

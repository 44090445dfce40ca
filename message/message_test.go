package message_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/errs"
	"github.com/arloliu/bufr/internal/bufrtest"
	"github.com/arloliu/bufr/message"
)

func TestParseEditions(t *testing.T) {
	descs := descriptor.FromInts(301025, 12101)
	data := []byte{0xde, 0xad, 0xbe, 0xef}

	for _, edition := range []int{2, 3, 4} {
		t.Run(fmt.Sprintf("edition %d", edition), func(t *testing.T) {
			built := bufrtest.NewMessage(descs, 3, data)
			built.Edition = edition
			built.Centre = 74
			built.SubCentre = 5
			built.Category = 2
			built.SubCategory = 7
			built.LocalSubCategory = 9
			built.LocalVersion = 1
			if edition == 2 {
				built.SubCentre = 0
			}
			raw := built.Bytes()

			m, err := message.Parse(raw)
			require.NoError(t, err)
			require.Equal(t, edition, m.Edition)
			require.Equal(t, len(raw), m.Length)

			s1 := m.Section1
			require.Equal(t, 74, s1.Centre)
			require.Equal(t, built.SubCentre, s1.SubCentre)
			require.Equal(t, 2, s1.Category)
			require.Equal(t, 9, s1.LocalSubCategory)
			require.Equal(t, 13, s1.MasterVersion)
			require.Equal(t, 1, s1.LocalVersion)
			require.False(t, s1.HasSection2)
			require.Empty(t, s1.Local)
			if edition == 4 {
				require.Equal(t, 7, s1.SubCategory)
				require.Equal(t, time.Date(2024, 3, 5, 12, 30, 15, 0, time.UTC), s1.Time())
			} else {
				require.Zero(t, s1.SubCategory)
				require.Equal(t, 24, s1.Year)
				require.Equal(t, time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC), s1.Time())
			}

			require.Equal(t, 3, m.Section3.Subsets)
			require.True(t, m.Section3.Observed)
			require.False(t, m.Section3.Compressed)
			require.Equal(t, descs, m.Section3.Descriptors)
			require.Equal(t, data, m.Data)
		})
	}
}

func TestParseSection2AndLocal(t *testing.T) {
	built := bufrtest.NewMessage(descriptor.FromInts(1001), 1, []byte{0, 0})
	built.Section2 = []byte("local")
	built.Local = []byte{1, 2, 3}
	built.Compressed = true

	m, err := message.Parse(built.Bytes())
	require.NoError(t, err)
	require.True(t, m.Section1.HasSection2)
	require.Equal(t, []byte("local"), m.Section2)
	require.Equal(t, []byte{1, 2, 3}, m.Section1.Local)
	require.True(t, m.Section3.Compressed)
}

func TestParseTrailingBytes(t *testing.T) {
	raw := bufrtest.NewMessage(descriptor.FromInts(1001), 1, []byte{0, 0}).Bytes()
	n := len(raw)
	raw = append(raw, []byte("BUFRgarbage")...)

	m, err := message.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, n, m.Length)
}

func TestParseErrors(t *testing.T) {
	good := bufrtest.NewMessage(descriptor.FromInts(1001), 1, []byte{0, 0}).Bytes()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"short", func(b []byte) []byte { return b[:6] }, errs.ErrInvalidMessage},
		{"start marker", func(b []byte) []byte { b[0] = 'X'; return b }, errs.ErrInvalidMessage},
		{"edition 1", func(b []byte) []byte { b[7] = 1; return b }, errs.ErrUnsupportedEdition},
		{"edition 5", func(b []byte) []byte { b[7] = 5; return b }, errs.ErrUnsupportedEdition},
		{"declared too long", func(b []byte) []byte { b[6]++; return b }, errs.ErrInvalidMessage},
		{"truncated", func(b []byte) []byte { return b[:len(b)-2] }, errs.ErrInvalidMessage},
		{"end marker", func(b []byte) []byte { b[len(b)-1] = '8'; return b }, errs.ErrInvalidMessage},
		{"section 1 length", func(b []byte) []byte { b[10] = 0xff; return b }, errs.ErrInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.mutate(append([]byte(nil), good...))
			_, err := message.Parse(raw)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseSection3(t *testing.T) {
	b := []byte{0, 0, 12, 0, 0, 2, 0xc0, 0x01, 0x01, 0xc1, 0x19, 0}
	s, err := message.ParseSection3(b)
	require.NoError(t, err)
	require.Equal(t, 2, s.Subsets)
	require.True(t, s.Observed)
	require.True(t, s.Compressed)
	require.Equal(t, descriptor.FromInts(1001, 301025), s.Descriptors)

	_, err = message.ParseSection3(b[:5])
	require.ErrorIs(t, err, errs.ErrInvalidMessage)
}

func TestFullYear(t *testing.T) {
	require.Equal(t, 2024, message.Section1{Edition: 3, Year: 24}.FullYear())
	require.Equal(t, 1998, message.Section1{Edition: 3, Year: 98}.FullYear())
	require.Equal(t, 2000, message.Section1{Edition: 3, Year: 100}.FullYear())
	require.Equal(t, 2024, message.Section1{Edition: 4, Year: 2024}.FullYear())
}

// Package bufrtest synthesizes BUFR messages for tests.
package bufrtest

import (
	"time"

	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/internal/bitio"
)

// Message describes a message to build. Zero fields get the defaults of NewMessage.
type Message struct {
	Edition          int
	MasterTable      int
	Centre           int
	SubCentre        int
	UpdateSequence   int
	Category         int
	SubCategory      int
	LocalSubCategory int
	MasterVersion    int
	LocalVersion     int
	Time             time.Time
	Local            []byte // extra section 1 octets
	Section2         []byte // nil omits section 2
	Subsets          int
	Compressed       bool
	Descriptors      []descriptor.Descriptor
	Data             []byte
}

// NewMessage returns an edition 4 message for master table version 13 carrying data.
func NewMessage(descs []descriptor.Descriptor, subsets int, data []byte) Message {
	return Message{
		Edition:       4,
		Centre:        98,
		MasterVersion: 13,
		Time:          time.Date(2024, 3, 5, 12, 30, 15, 0, time.UTC),
		Subsets:       subsets,
		Descriptors:   descs,
		Data:          data,
	}
}

// Bytes encodes the message.
func (m Message) Bytes() []byte {
	sec1 := m.section1()
	var sec2 []byte
	if m.Section2 != nil {
		sec2 = m.section(append([]byte{0}, m.Section2...))
	}

	s3 := []byte{0, byte(m.Subsets >> 8), byte(m.Subsets), 0x80}
	if m.Compressed {
		s3[3] |= 0x40
	}
	for _, d := range m.Descriptors {
		v := d.Uint16()
		s3 = append(s3, byte(v>>8), byte(v))
	}
	sec3 := m.section(s3)
	sec4 := m.section(append([]byte{0}, m.Data...))

	total := 8 + len(sec1) + len(sec2) + len(sec3) + len(sec4) + 4
	out := make([]byte, 0, total)
	out = append(out, 'B', 'U', 'F', 'R')
	out = appendUint24(out, total)
	out = append(out, byte(m.Edition))
	out = append(out, sec1...)
	out = append(out, sec2...)
	out = append(out, sec3...)
	out = append(out, sec4...)

	return append(out, '7', '7', '7', '7')
}

func (m Message) section1() []byte {
	var b []byte
	b = append(b, byte(m.MasterTable))
	switch m.Edition {
	case 2:
		b = append(b, byte(m.Centre>>8), byte(m.Centre))
	case 3:
		b = append(b, byte(m.SubCentre), byte(m.Centre))
	default:
		b = append(b, byte(m.Centre>>8), byte(m.Centre), byte(m.SubCentre>>8), byte(m.SubCentre))
	}

	var flags byte
	if m.Section2 != nil {
		flags = 0x80
	}
	b = append(b, byte(m.UpdateSequence), flags, byte(m.Category))
	if m.Edition >= 4 {
		b = append(b, byte(m.SubCategory))
	}
	b = append(b, byte(m.LocalSubCategory), byte(m.MasterVersion), byte(m.LocalVersion))

	t := m.Time
	if m.Edition >= 4 {
		b = append(b, byte(t.Year()>>8), byte(t.Year()))
	} else {
		b = append(b, byte(t.Year()%100))
	}
	b = append(b, byte(t.Month()), byte(t.Day()), byte(t.Hour()), byte(t.Minute()))
	if m.Edition >= 4 {
		b = append(b, byte(t.Second()))
	}
	b = append(b, m.Local...)

	return m.section(b)
}

// section prefixes body with its 3 octet length; editions before 4 pad to even length.
func (m Message) section(body []byte) []byte {
	n := len(body) + 3
	if m.Edition < 4 && n%2 == 1 {
		body = append(body, 0)
		n++
	}
	out := appendUint24(make([]byte, 0, n), n)

	return append(out, body...)
}

func appendUint24(b []byte, v int) []byte {
	return append(b, byte(v>>16), byte(v>>8), byte(v))
}

// Data wraps a bit writer with helpers for BUFR fields.
type Data struct {
	w *bitio.Writer
}

// NewData creates an empty data section.
func NewData() *Data {
	return &Data{w: bitio.NewWriter(256)}
}

// Uint appends a width bit unsigned field.
func (d *Data) Uint(v uint64, width int) *Data {
	d.w.WriteBits(v, width)
	return d
}

// Missing appends width set bits.
func (d *Data) Missing(width int) *Data {
	d.w.WriteOnes(width)
	return d
}

// Signed appends v as a sign and magnitude field, the form of 203YYY reference values.
func (d *Data) Signed(v int64, width int) *Data {
	if v < 0 {
		d.w.WriteBits(1, 1)
		d.w.WriteBits(uint64(-v), width-1)

		return d
	}
	d.w.WriteBits(0, 1)
	d.w.WriteBits(uint64(v), width-1)

	return d
}

// String appends s padded with spaces to n characters.
func (d *Data) String(s string, n int) *Data {
	d.w.WriteString(s, n)
	return d
}

// Compressed appends one compressed element: the minimum, the increment width and one
// increment per subset. Values flagged in missing are written with all increment bits set.
func (d *Data) Compressed(width int, values []uint64, missing []bool) *Data {
	minV, maxV, all := uint64(0), uint64(0), true
	for i, v := range values {
		if missing != nil && missing[i] {
			continue
		}
		if all || v < minV {
			minV = v
		}
		if all || v > maxV {
			maxV = v
		}
		all = false
	}
	if all {
		d.w.WriteOnes(width)
		d.w.WriteBits(0, 6)

		return d
	}

	anyMissing := false
	for i := range values {
		if missing != nil && missing[i] {
			anyMissing = true
		}
	}
	// all set increment bits mean missing, so the widest increment is span+1
	nbinc := 0
	if span := maxV - minV; span > 0 || anyMissing {
		for (span+1)>>uint(nbinc) != 0 {
			nbinc++
		}
	}

	d.w.WriteBits(minV, width)
	d.w.WriteBits(uint64(nbinc), 6)
	if nbinc == 0 {
		return d
	}
	for i, v := range values {
		if missing != nil && missing[i] {
			d.w.WriteOnes(nbinc)
			continue
		}
		d.w.WriteBits(v-minV, nbinc)
	}

	return d
}

// CompressedStrings appends one compressed character element of n characters per subset.
func (d *Data) CompressedStrings(n int, values []string) *Data {
	same := true
	for _, s := range values[1:] {
		if s != values[0] {
			same = false
		}
	}
	if same {
		d.w.WriteString(values[0], n)
		d.w.WriteBits(0, 6)

		return d
	}

	d.w.WriteBits(0, n*8)
	d.w.WriteBits(uint64(n), 6)
	for _, s := range values {
		d.w.WriteString(s, n)
	}

	return d
}

// Bits returns the number of bits written.
func (d *Data) Bits() int {
	return d.w.Len()
}

// Bytes returns the data section, padded to an even number of octets.
func (d *Data) Bytes() []byte {
	b := d.w.Bytes()
	if len(b)%2 == 1 {
		b = append(b, 0)
	}

	return b
}

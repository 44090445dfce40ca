// Package message frames raw BUFR messages into their sections.
//
// A BUFR message is laid out as
//
//	section 0   "BUFR", total length (3 octets), edition
//	section 1   identification: centre, master table version, reference time
//	section 2   optional local data
//	section 3   subset count, flags, data descriptors
//	section 4   data: the bit packed values
//	section 5   "7777"
//
// Parse handles editions 2, 3 and 4. It validates lengths and markers but does not
// interpret the data section; that requires the descriptor tables and is the job of the
// decoder package.
package message

import (
	"bytes"
	"fmt"

	"github.com/arloliu/bufr/errs"
)

// Marker octets delimiting a message.
var (
	StartMarker = []byte("BUFR")
	EndMarker   = []byte("7777")
)

const section0Len = 8

// Message is a framed BUFR message. Byte slices alias the buffer passed to Parse.
type Message struct {
	Edition  int
	Length   int // total length in octets, as declared in section 0
	Section1 Section1
	Section2 []byte // local data of section 2, nil when absent
	Section3 Section3
	Data     []byte // section 4 payload, starting at its fifth octet
}

// Parse frames a message starting at the first octet of raw.
//
// raw may extend past the end of the message; the declared length is used.
//
// Returns:
//   - *Message: the framed message
//   - error: errs.ErrInvalidMessage for framing errors, errs.ErrUnsupportedEdition for
//     editions other than 2, 3 and 4
func Parse(raw []byte) (*Message, error) {
	if len(raw) < section0Len || !bytes.Equal(raw[:4], StartMarker) {
		return nil, fmt.Errorf("%w: missing BUFR start marker", errs.ErrInvalidMessage)
	}

	m := &Message{
		Length:  uint24(raw[4:]),
		Edition: int(raw[7]),
	}
	if m.Edition < 2 || m.Edition > 4 {
		return nil, fmt.Errorf("%w: edition %d", errs.ErrUnsupportedEdition, m.Edition)
	}
	if m.Length < section0Len+len(EndMarker) || m.Length > len(raw) {
		return nil, fmt.Errorf("%w: declared length %d, %d octets available", errs.ErrInvalidMessage, m.Length, len(raw))
	}
	raw = raw[:m.Length]
	if !bytes.Equal(raw[m.Length-4:], EndMarker) {
		return nil, fmt.Errorf("%w: missing 7777 end marker", errs.ErrInvalidMessage)
	}
	body := raw[section0Len : m.Length-4]

	sec1, rest, err := section(body, "section 1")
	if err != nil {
		return nil, err
	}
	if m.Section1, err = ParseSection1(sec1, m.Edition); err != nil {
		return nil, err
	}

	if m.Section1.HasSection2 {
		var sec2 []byte
		if sec2, rest, err = section(rest, "section 2"); err != nil {
			return nil, err
		}
		if len(sec2) < 4 {
			return nil, fmt.Errorf("%w: section 2 too short", errs.ErrInvalidMessage)
		}
		m.Section2 = sec2[4:]
	}

	sec3, rest, err := section(rest, "section 3")
	if err != nil {
		return nil, err
	}
	if m.Section3, err = ParseSection3(sec3); err != nil {
		return nil, err
	}

	sec4, _, err := section(rest, "section 4")
	if err != nil {
		return nil, err
	}
	if len(sec4) < 4 {
		return nil, fmt.Errorf("%w: section 4 too short", errs.ErrInvalidMessage)
	}
	m.Data = sec4[4:]

	return m, nil
}

// section splits the next length prefixed section off b.
func section(b []byte, name string) ([]byte, []byte, error) {
	if len(b) < 3 {
		return nil, nil, fmt.Errorf("%w: %s: truncated", errs.ErrInvalidMessage, name)
	}
	n := uint24(b)
	if n < 3 || n > len(b) {
		return nil, nil, fmt.Errorf("%w: %s: length %d, %d octets left", errs.ErrInvalidMessage, name, n, len(b))
	}

	return b[:n], b[n:], nil
}

func uint24(b []byte) int {
	return int(b[0])<<16 | int(b[1])<<8 | int(b[2])
}

func uint16be(b []byte) int {
	return int(b[0])<<8 | int(b[1])
}

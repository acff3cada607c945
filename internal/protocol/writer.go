package protocol

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// writer builds an outgoing frame. Its methods panic on values that
// cannot be represented; outgoing packets are constructed by the server
// from validated state, so a failure here is a programming error.
type writer struct {
	sb strings.Builder
}

func newWriter(t ServerPacketType) *writer {
	w := &writer{}
	w.sb.WriteByte(byte('0' + int(t)))
	return w
}

func (w *writer) String() string {
	return w.sb.String()
}

// digit writes a single decimal digit.
func (w *writer) digit(d int) *writer {
	if d < 0 || d > 9 {
		panic(fmt.Sprintf("protocol: digit %d out of range", d))
	}
	w.sb.WriteByte(byte('0' + d))
	return w
}

// intField writes a non-negative integer zero-padded to the given width.
func (w *writer) intField(value, digits int) *writer {
	if value < 0 {
		panic(fmt.Sprintf("protocol: cannot encode negative integer %d", value))
	}
	s := fmt.Sprintf("%0*d", digits, value)
	if len(s) > digits {
		panic(fmt.Sprintf("protocol: integer %d does not fit in %d digits", value, digits))
	}
	w.sb.WriteString(s)
	return w
}

// varString writes a 2-digit length prefix followed by the string.
func (w *writer) varString(s string) *writer {
	w.intField(len(s), 2)
	w.sb.WriteString(s)
	return w
}

// boolField writes "t" or "f".
func (w *writer) boolField(b bool) *writer {
	if b {
		w.sb.WriteByte('t')
	} else {
		w.sb.WriteByte('f')
	}
	return w
}

// uuidField writes the canonical 36-character form of a UUID.
func (w *writer) uuidField(id uuid.UUID) *writer {
	w.sb.WriteString(id.String())
	return w
}

// raw writes a string with no framing; only valid as the final field.
func (w *writer) raw(s string) *writer {
	w.sb.WriteString(s)
	return w
}

package protocol

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// DecodeError describes a malformed incoming frame. It is returned for
// any transport-level garbage; decoding never panics. The caller is
// expected to reject the frame and disconnect the offending transport.
type DecodeError struct {
	PacketType string
	Reason     string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s packet: %s", e.PacketType, e.Reason)
}

// reader consumes the positional fields of a frame after its type digit.
type reader struct {
	packetType string
	data       string
	pos        int
}

func (r *reader) fail(format string, args ...any) *DecodeError {
	return &DecodeError{PacketType: r.packetType, Reason: fmt.Sprintf(format, args...)}
}

// nextString consumes exactly n characters.
func (r *reader) nextString(n int) (string, error) {
	if r.pos+n > len(r.data) {
		return "", r.fail("expected %d more characters, have %d", n, len(r.data)-r.pos)
	}
	s := r.data[r.pos : r.pos+n]
	r.pos += n
	return s, nil
}

// nextInt consumes a fixed-width decimal integer of the given digit count.
func (r *reader) nextInt(digits int) (int, error) {
	s, err := r.nextString(digits)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(s)
	if err != nil || value < 0 {
		return 0, r.fail("expected %d-digit integer, found %q", digits, s)
	}
	return value, nil
}

// nextVarString consumes a length-prefixed string: lengthDigits decimal
// digits of length followed by that many raw characters.
func (r *reader) nextVarString(lengthDigits int) (string, error) {
	length, err := r.nextInt(lengthDigits)
	if err != nil {
		return "", err
	}
	return r.nextString(length)
}

// nextUUID consumes a 36-character canonical UUID.
func (r *reader) nextUUID() (uuid.UUID, error) {
	s, err := r.nextString(36)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, r.fail("expected uuid, found %q", s)
	}
	return id, nil
}

// expectEmpty fails unless every character of the frame was consumed.
func (r *reader) expectEmpty() error {
	if r.pos != len(r.data) {
		return r.fail("unconsumed trailing data %q", r.data[r.pos:])
	}
	return nil
}

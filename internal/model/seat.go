package model

// Seat is one of the two playing roles in a game session, as opposed
// to a spectator, which holds no seat.
type Seat int

const (
	SeatNone Seat = iota
	SeatLight
	SeatDark
)

// Other returns the opposing seat.
func (s Seat) Other() Seat {
	switch s {
	case SeatLight:
		return SeatDark
	case SeatDark:
		return SeatLight
	default:
		return SeatNone
	}
}

func (s Seat) String() string {
	switch s {
	case SeatLight:
		return "light"
	case SeatDark:
		return "dark"
	default:
		return "none"
	}
}

// Digit returns the wire encoding of this seat. The ids are fixed for
// compatibility with existing clients: light is 2, dark is 1, and the
// caller chooses the digit used for "no seat" (3 in seat fields, 0 for
// an empty board tile).
func (s Seat) Digit(noneDigit int) int {
	switch s {
	case SeatLight:
		return 2
	case SeatDark:
		return 1
	default:
		return noneDigit
	}
}

// SeatFromDigit is the inverse of Digit for the two real seats.
// Any other digit maps to SeatNone.
func SeatFromDigit(d int) Seat {
	switch d {
	case 2:
		return SeatLight
	case 1:
		return SeatDark
	default:
		return SeatNone
	}
}

package model

import (
	"fmt"
	"strings"

	"github.com/urnet/gameserver/internal/dependencies/random"
)

const (
	// GameIDAlphabet is the set of characters a game ID may contain.
	GameIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// GameIDLength is the length of the string form of every game ID.
	GameIDLength = 8
)

// MaxGameID is the exclusive upper bound on numeric game IDs,
// len(GameIDAlphabet) ^ GameIDLength.
var MaxGameID = func() int64 {
	max := int64(1)
	for i := 0; i < GameIDLength; i++ {
		max *= int64(len(GameIDAlphabet))
	}
	return max
}()

// GameID is a numeric game identifier. Its string form is a fixed-length
// radix encoding over GameIDAlphabet, used both as the URL-shareable
// identifier of a game and as a protocol field.
type GameID int64

// String renders the ID as its fixed-length, least-significant-first
// encoding over GameIDAlphabet.
func (id GameID) String() string {
	var sb strings.Builder
	sb.Grow(GameIDLength)

	num := int64(id)
	for i := 0; i < GameIDLength; i++ {
		sb.WriteByte(GameIDAlphabet[num%int64(len(GameIDAlphabet))])
		num /= int64(len(GameIDAlphabet))
	}
	return sb.String()
}

// ParseGameID decodes the string form of a game ID. It fails on input of
// the wrong length or containing characters outside GameIDAlphabet.
func ParseGameID(s string) (GameID, error) {
	if len(s) != GameIDLength {
		return 0, fmt.Errorf("game ID %q has length %d, want %d: %w",
			s, len(s), GameIDLength, ErrInvalidGameID)
	}

	var num int64
	for i := GameIDLength - 1; i >= 0; i-- {
		ordinal := strings.IndexByte(GameIDAlphabet, s[i])
		if ordinal < 0 {
			return 0, fmt.Errorf("game ID %q contains invalid character %q: %w",
				s, s[i], ErrInvalidGameID)
		}
		num = num*int64(len(GameIDAlphabet)) + int64(ordinal)
	}
	return GameID(num), nil
}

// RandomGameID generates a uniformly random game ID from the given source.
func RandomGameID(r random.Random) GameID {
	var num int64
	for i := 0; i < GameIDLength; i++ {
		num = num*int64(len(GameIDAlphabet)) + int64(r.Intn(len(GameIDAlphabet)))
	}
	return GameID(num)
}

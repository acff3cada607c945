package model

import (
	"strings"

	"github.com/urnet/gameserver/internal/dependencies/random"
)

// MaxNameLength is the maximum length of a sanitized display name.
const MaxNameLength = 12

// defaultNames are assigned when a client supplies an empty or
// entirely non-ASCII display name.
var defaultNames = []string{"Panda", "Lion", "Tiger", "Bear", "Shark", "Mittens"}

// Identity identifies a participant as propagated into game records.
// ID is derived from the session token; DisplayName is self-reported
// and sanitized.
type Identity struct {
	ID          string
	DisplayName string
}

// SanitizeName strips non-ASCII characters, trims surrounding whitespace,
// truncates to MaxNameLength, and substitutes a randomly chosen default
// name if nothing remains.
func SanitizeName(name string, r random.Random) string {
	var sb strings.Builder
	for _, c := range name {
		if c <= 0x7F {
			sb.WriteRune(c)
		}
	}

	cleaned := strings.TrimSpace(sb.String())
	if cleaned == "" {
		cleaned = defaultNames[r.Intn(len(defaultNames))]
	}
	if len(cleaned) > MaxNameLength {
		cleaned = cleaned[:MaxNameLength]
	}
	return cleaned
}

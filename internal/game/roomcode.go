package game

import (
	rand "math/rand/v2"
	"strings"
)

// codeAlphabet is Crockford's base32 set uppercased: no I, L, O or U, so
// codes survive being read aloud or typed from a phone screen.
const codeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// DefaultCodeLength is the room code length used when none is configured.
const DefaultCodeLength = 6

// NewRoomCode generates a random room code of the given length. Codes are
// opaque and human-typeable; uniqueness among live rooms is the
// registry's concern, not this function's.
func NewRoomCode(rng *rand.Rand, length int) string {
	if length <= 0 {
		length = DefaultCodeLength
	}
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		sb.WriteByte(codeAlphabet[rng.IntN(len(codeAlphabet))])
	}
	return sb.String()
}

// NormalizeRoomCode canonicalizes a client-supplied code. Codes are
// case-insensitive on the wire.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

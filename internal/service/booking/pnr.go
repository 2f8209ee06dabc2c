package booking

import (
	"math/rand/v2"
	"strings"
)

const (
	pnrChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	pnrLength = 6
)

// GeneratePNR returns a random 6-character reference code. Uniqueness is
// enforced by the caller against the booking store, not by this function.
func GeneratePNR() string {
	var b strings.Builder
	b.Grow(pnrLength)
	for i := 0; i < pnrLength; i++ {
		b.WriteByte(pnrChars[rand.IntN(len(pnrChars))])
	}
	return b.String()
}

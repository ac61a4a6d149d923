package app

import "math/rand"

const (
	nameLetters = "abcdefghijklmnopqrstuvwxyz"
	nameDigits  = "0123456789"
)

// randomPlayerName generates a fallback display name of 5 lowercase letters followed
// by 3 digits. Uniqueness within a session is the caller's job.
func randomPlayerName(rnd *rand.Rand) string {
	out := make([]byte, 8)
	for i := 0; i < 5; i++ {
		out[i] = nameLetters[rnd.Intn(len(nameLetters))]
	}
	for i := 5; i < 8; i++ {
		out[i] = nameDigits[rnd.Intn(len(nameDigits))]
	}
	return string(out)
}

package utils

import (
	"crypto/rand"
	"math/big"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomString returns n characters drawn from [a-z0-9].
func RandomString(n int) string {
	max := big.NewInt(int64(len(alphanumeric)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS source is unavailable
			panic(err)
		}
		out[i] = alphanumeric[idx.Int64()]
	}
	return string(out)
}

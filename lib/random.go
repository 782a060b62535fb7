package lib

import (
	"crypto/rand"
	"math/big"
)

const base36 = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomSuffix returns n random lowercase base-36 characters
func RandomSuffix(n int) (string, error) {
	b := make([]byte, n)
	limit := big.NewInt(int64(len(base36)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = base36[idx.Int64()]
	}
	return string(b), nil
}

package krypto

import (
	"crypto/rand"
	"fmt"
)

// genRandomBytes returns n cryptographically random bytes.
func genRandomBytes(n uint32) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}

	return b, nil
}

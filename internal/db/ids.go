package db

import (
	"crypto/rand"
	"encoding/hex"
)

const idRandomBytes = 12

// GenerateID returns a new random identifier with a short type prefix,
// e.g. "rev_3f91…".
func GenerateID(prefix string) (string, error) {
	b := make([]byte, idRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + "_" + hex.EncodeToString(b), nil
}

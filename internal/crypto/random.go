package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

func GenerateRandomKey(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive", ErrInvalidKey)
	}

	bytes := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNonceGeneration, err)
	}
	return bytes, nil
}

// RandomID returns a hex string over size random bytes, used for ticket
// keys and request ids. Unguessable, not sequential.
func RandomID(size int) (string, error) {
	b, err := GenerateRandomKey(size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

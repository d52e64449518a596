package crypto

import "encoding/hex"

type KeyGenerator interface {
	Generate(size int) ([]byte, error)
}

type RandomKeyGenerator struct{}

func NewKeyGenerator() *RandomKeyGenerator {
	return &RandomKeyGenerator{}
}

var _ KeyGenerator = &RandomKeyGenerator{}

func (RandomKeyGenerator) Generate(size int) ([]byte, error) {
	return GenerateRandomKey(size)
}

// TestKeyGenerator always hands out the same key so sealed payloads are
// reproducible in tests.
type TestKeyGenerator struct {
	Key []byte
}

var _ KeyGenerator = &TestKeyGenerator{}

func NewTestKeyGenerator(key ...[]byte) *TestKeyGenerator {
	if len(key) == 0 {
		fixed, _ := hex.DecodeString("112233445566778899aabbccddeeff00112233445566778899aabbccddeeff00")
		return &TestKeyGenerator{Key: fixed}
	}

	return &TestKeyGenerator{Key: key[0]}
}

func (m TestKeyGenerator) Generate(size int) ([]byte, error) {
	if size < len(m.Key) {
		return m.Key[:size], nil
	}
	return m.Key, nil
}

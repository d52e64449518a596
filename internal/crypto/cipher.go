package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

var (
	ErrInvalidKey          = errors.New("invalid key size")
	ErrNonceGeneration     = errors.New("failed to generate nonce")
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	ErrAuthFailed          = errors.New("authentication failed (integrity check)")
	ErrBadPadding          = errors.New("invalid block padding")
)

// Cipher seals and opens ticket payloads. Implementations are stateless;
// a fresh primitive is constructed per call, so no shared-instance locking
// is needed.
type Cipher interface {
	Name() string
	KeySize() int
	Seal(key, plaintext []byte) ([]byte, error)
	Open(key, data []byte) ([]byte, error)
}

// TripleDESCipher is the default ticket cipher: three-key DES-EDE in CBC
// mode with PKCS#7 padding and a random IV prefixed to the ciphertext.
type TripleDESCipher struct{}

var _ Cipher = TripleDESCipher{}

func (TripleDESCipher) Name() string { return "DESede" }
func (TripleDESCipher) KeySize() int { return 24 }

func (TripleDESCipher) Seal(key, plaintext []byte) ([]byte, error) {
	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	padded := padPKCS7(plaintext, block.BlockSize())

	iv := make([]byte, block.BlockSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNonceGeneration, err)
	}

	out := make([]byte, len(iv)+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[len(iv):], padded)
	return out, nil
}

func (TripleDESCipher) Open(key, data []byte) ([]byte, error) {
	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	bs := block.BlockSize()
	if len(data) < 2*bs || len(data)%bs != 0 {
		return nil, fmt.Errorf("%w: bad length %d", ErrMalformedCiphertext, len(data))
	}

	iv, ciphertext := data[:bs], data[bs:]
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	return unpadPKCS7(padded, bs)
}

// AESCipher is the configurable alternative: AES-256-GCM with the nonce
// prefixed to the ciphertext.
type AESCipher struct{}

var _ Cipher = AESCipher{}

func (AESCipher) Name() string { return "AES" }
func (AESCipher) KeySize() int { return 32 }

func (AESCipher) Seal(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNonceGeneration, err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (AESCipher) Open(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("%w: data too short", ErrMalformedCiphertext)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return plaintext, nil
}

func padPKCS7(b []byte, bs int) []byte {
	n := bs - len(b)%bs
	return append(append([]byte{}, b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpadPKCS7(b []byte, bs int) ([]byte, error) {
	if len(b) == 0 || len(b)%bs != 0 {
		return nil, ErrBadPadding
	}

	n := int(b[len(b)-1])
	if n == 0 || n > bs || n > len(b) {
		return nil, ErrBadPadding
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrBadPadding
		}
	}
	return b[:len(b)-n], nil
}

package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	defaultIterations = 4096
	defaultKeySize    = 24
)

type kdfConfig struct {
	iterations int
	keySize    int
}

type KDFOption func(*kdfConfig)

func WithIterations(iter int) KDFOption {
	return func(cfg *kdfConfig) {
		if iter > 0 {
			cfg.iterations = iter
		}
	}
}

func WithKeySize(size int) KDFOption {
	return func(cfg *kdfConfig) {
		if size > 0 {
			cfg.keySize = size
		}
	}
}

// DeriveSealKey turns a configured passphrase into a ticket seal key, for
// deployments that want a stable key instead of the random persisted one.
func DeriveSealKey(passphrase, salt string, opts ...KDFOption) []byte {
	cfg := kdfConfig{iterations: defaultIterations, keySize: defaultKeySize}
	for _, opt := range opts {
		opt(&cfg)
	}

	return pbkdf2.Key(
		[]byte(passphrase),
		[]byte(salt),
		cfg.iterations,
		cfg.keySize,
		sha256.New,
	)
}

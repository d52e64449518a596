package crypto

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha1"
	_ "crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/fedauth/aselect/internal/o11y/logging"
)

var (
	ErrUnknownAlgorithm = errors.New("unknown algorithm or provider")
	ErrNoServerKey      = errors.New("no server private key configured")
	ErrNoSealKey        = errors.New("seal key not initialized")
)

// Config names the algorithms the service runs with. Unknown names fail
// construction; there is no silent fallback.
type Config struct {
	SignatureAlgorithm string // "SHA1withRSA" (default) or "SHA256withRSA"
	CipherAlgorithm    string // "DESede" (default) or "AES"
	RandomAlgorithm    string // "SecureRandom" (default); anything else rejected
	KeyDir             string // PEM key directory, optional
	Passphrase         string // derive the seal key instead of generating one
}

// Service signs and verifies protocol payloads and seals ticket contents.
// Crypto primitives are built per call, so the service is safe for
// concurrent use; only seal-key bootstrap takes a lock.
type Service struct {
	signHash   stdcrypto.Hash
	cipher     Cipher
	passphrase string

	serverKey   *rsa.PrivateKey
	privateKeys map[string]*rsa.PrivateKey
	publicKeys  map[string]*rsa.PublicKey

	mu      sync.RWMutex
	sealKey []byte

	logger *logging.Logger
}

type Option func(*Service)

func WithServerKey(key *rsa.PrivateKey) Option {
	return func(s *Service) { s.serverKey = key }
}

func WithPrivateKey(alias string, key *rsa.PrivateKey) Option {
	return func(s *Service) { s.privateKeys[strings.ToLower(alias)] = key }
}

func WithPublicKey(alias string, key *rsa.PublicKey) Option {
	return func(s *Service) { s.publicKeys[strings.ToLower(alias)] = key }
}

func WithSealKey(key []byte) Option {
	return func(s *Service) { s.sealKey = key }
}

func New(cfg Config, logger *logging.Logger, opts ...Option) (*Service, error) {
	signHash, err := signatureHash(cfg.SignatureAlgorithm)
	if err != nil {
		return nil, err
	}

	cipher, err := cipherFor(cfg.CipherAlgorithm)
	if err != nil {
		return nil, err
	}

	switch cfg.RandomAlgorithm {
	case "", "SecureRandom":
	default:
		return nil, fmt.Errorf("%w: random %q", ErrUnknownAlgorithm, cfg.RandomAlgorithm)
	}

	s := &Service{
		signHash:    signHash,
		cipher:      cipher,
		passphrase:  cfg.Passphrase,
		privateKeys: make(map[string]*rsa.PrivateKey),
		publicKeys:  make(map[string]*rsa.PublicKey),
		logger:      logger,
	}

	if cfg.KeyDir != "" {
		kd, err := loadKeyDir(cfg.KeyDir)
		if err != nil {
			return nil, err
		}
		s.serverKey = kd.serverKey
		s.privateKeys = kd.privateKeys
		s.publicKeys = kd.publicKeys
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func signatureHash(name string) (stdcrypto.Hash, error) {
	switch name {
	case "", "SHA1withRSA":
		return stdcrypto.SHA1, nil
	case "SHA256withRSA":
		return stdcrypto.SHA256, nil
	default:
		return 0, fmt.Errorf("%w: signature %q", ErrUnknownAlgorithm, name)
	}
}

func cipherFor(name string) (Cipher, error) {
	switch name {
	case "", "DESede":
		return TripleDESCipher{}, nil
	case "AES":
		return AESCipher{}, nil
	default:
		return nil, fmt.Errorf("%w: cipher %q", ErrUnknownAlgorithm, name)
	}
}

func (s *Service) Cipher() Cipher { return s.cipher }

func (s *Service) digest(data []byte) []byte {
	h := s.signHash.New()
	h.Write(data)
	return h.Sum(nil)
}

// Sign signs data with the alias's private key when one is registered,
// otherwise with the server default key. The signature is base64.
func (s *Service) Sign(alias string, data []byte) (string, error) {
	key := s.serverKey
	if alias != "" {
		if k, ok := s.privateKeys[strings.ToLower(alias)]; ok {
			key = k
		}
	}
	if key == nil {
		return "", ErrNoServerKey
	}

	sig, err := rsa.SignPKCS1v15(rand.Reader, key, s.signHash, s.digest(data))
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks sig over data against the alias's public key, falling back
// through alias1, alias2, ... until one verifies or the chain runs out.
// Every failure degrades to false; callers get a boolean, never an error.
func (s *Service) Verify(alias string, data []byte, sig string) bool {
	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false
	}

	digest := s.digest(data)
	base := strings.ToLower(alias)

	if pub, ok := s.publicKeys[base]; ok {
		if rsa.VerifyPKCS1v15(pub, s.signHash, digest, raw) == nil {
			return true
		}
	}

	for i := 1; ; i++ {
		pub, ok := s.publicKeys[base+strconv.Itoa(i)]
		if !ok {
			return false
		}
		if rsa.VerifyPKCS1v15(pub, s.signHash, digest, raw) == nil {
			return true
		}
	}
}

// EncryptTicket seals plaintext with the symmetric key and renders it
// URL-safe. DecryptTicket(EncryptTicket(b)) == b for all byte sequences.
func (s *Service) EncryptTicket(plaintext []byte) (string, error) {
	key, err := s.currentSealKey()
	if err != nil {
		return "", err
	}

	sealed, err := s.cipher.Seal(key, plaintext)
	if err != nil {
		return "", err
	}
	return EncodeSealed(sealed), nil
}

func (s *Service) DecryptTicket(sealed string) ([]byte, error) {
	key, err := s.currentSealKey()
	if err != nil {
		return nil, err
	}

	raw, err := DecodeSealed(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return s.cipher.Open(key, raw)
}

func (s *Service) currentSealKey() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sealKey == nil {
		return nil, ErrNoSealKey
	}
	return s.sealKey, nil
}

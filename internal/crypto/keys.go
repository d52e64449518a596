package crypto

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNoPEMBlock = errors.New("no PEM block found")
	ErrNotRSAKey  = errors.New("key is not an RSA key")
)

const (
	// ServerKeyFile holds the server's own private key inside the key
	// directory; everything else is addressed by lowercase alias.
	ServerKeyFile = "server.pem"

	pubSuffix  = ".pub.pem"
	privSuffix = ".pem"
)

func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNoPEMBlock
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return key, nil
}

func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNoPEMBlock
	}

	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return key, nil
}

func EncodePrivateKeyPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

func EncodePublicKeyPEM(key *rsa.PublicKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(key),
	})
}

type keyDir struct {
	serverKey   *rsa.PrivateKey
	privateKeys map[string]*rsa.PrivateKey
	publicKeys  map[string]*rsa.PublicKey
}

// loadKeyDir reads server.pem, per-alias <alias>.pem private keys and
// <alias>.pub.pem public keys. Aliases are lowercased on load.
func loadKeyDir(dir string) (keyDir, error) {
	kd := keyDir{
		privateKeys: make(map[string]*rsa.PrivateKey),
		publicKeys:  make(map[string]*rsa.PublicKey),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return kd, fmt.Errorf("read key dir: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, privSuffix) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return kd, fmt.Errorf("read key %s: %w", name, err)
		}

		switch {
		case name == ServerKeyFile:
			key, err := ParsePrivateKeyPEM(data)
			if err != nil {
				return kd, fmt.Errorf("server key %s: %w", name, err)
			}
			kd.serverKey = key

		case strings.HasSuffix(name, pubSuffix):
			alias := strings.ToLower(strings.TrimSuffix(name, pubSuffix))
			key, err := ParsePublicKeyPEM(data)
			if err != nil {
				return kd, fmt.Errorf("public key %s: %w", name, err)
			}
			kd.publicKeys[alias] = key

		default:
			alias := strings.ToLower(strings.TrimSuffix(name, privSuffix))
			key, err := ParsePrivateKeyPEM(data)
			if err != nil {
				return kd, fmt.Errorf("private key %s: %w", name, err)
			}
			kd.privateKeys[alias] = key
		}
	}

	return kd, nil
}

package crypto_test

import (
	"crypto/rand"
	"crypto/rsa"
	"os"
	"path/filepath"
	"testing"

	"github.com/fedauth/aselect/internal/assert"
	"github.com/fedauth/aselect/internal/crypto"
	"github.com/fedauth/aselect/internal/o11y/logging"
)

func TestKeyDirLoading(t *testing.T) {
	dir := t.TempDir()

	serverKey, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.Err(t, err, nil)
	spKey, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.Err(t, err, nil)

	write := func(name string, data []byte) {
		t.Helper()
		assert.Err(t, os.WriteFile(filepath.Join(dir, name), data, 0o600), nil)
	}

	write("server.pem", crypto.EncodePrivateKeyPEM(serverKey))
	// Mixed-case filename must land under a lowercase alias.
	write("DbAuthSP.pub.pem", crypto.EncodePublicKeyPEM(&spKey.PublicKey))
	write("dbauthsp.pem", crypto.EncodePrivateKeyPEM(spKey))

	svc, err := crypto.New(crypto.Config{KeyDir: dir}, logging.Noop())
	assert.Err(t, err, nil)

	sig, err := svc.Sign("dbauthsp", []byte("payload"))
	assert.Err(t, err, nil)
	assert.True(t, svc.Verify("DBAUTHSP", []byte("payload"), sig))
}

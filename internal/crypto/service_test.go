package crypto_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/fedauth/aselect/internal/assert"
	"github.com/fedauth/aselect/internal/clock"
	"github.com/fedauth/aselect/internal/crypto"
	"github.com/fedauth/aselect/internal/o11y/logging"
	"github.com/fedauth/aselect/internal/storage"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.Err(t, err, nil)
	return key
}

func TestSignVerifyServerKey(t *testing.T) {
	serverKey := testKey(t)

	svc, err := crypto.New(crypto.Config{}, logging.Noop(),
		crypto.WithServerKey(serverKey),
		crypto.WithPublicKey("server", &serverKey.PublicKey),
	)
	assert.Err(t, err, nil)

	sig, err := svc.Sign("", []byte("rid123https://sp.example.orgalice"))
	assert.Err(t, err, nil)

	assert.True(t, svc.Verify("server", []byte("rid123https://sp.example.orgalice"), sig))
	assert.False(t, svc.Verify("server", []byte("tampered payload"), sig))
}

func TestSignPerPrincipalKey(t *testing.T) {
	serverKey := testKey(t)
	spKey := testKey(t)

	svc, err := crypto.New(crypto.Config{}, logging.Noop(),
		crypto.WithServerKey(serverKey),
		crypto.WithPrivateKey("DbAuthSP", spKey),
		crypto.WithPublicKey("dbauthsp", &spKey.PublicKey),
	)
	assert.Err(t, err, nil)

	// Alias lookup is case-insensitive.
	sig, err := svc.Sign("DBAUTHSP", []byte("payload"))
	assert.Err(t, err, nil)
	assert.True(t, svc.Verify("dbauthsp", []byte("payload"), sig))
}

func TestVerifyFallbackChain(t *testing.T) {
	signer := testKey(t)
	decoy := testKey(t)

	// Nothing at the bare alias; the verifying key only lives at alias1.
	svc, err := crypto.New(crypto.Config{}, logging.Noop(),
		crypto.WithServerKey(signer),
		crypto.WithPublicKey("app1", &signer.PublicKey),
	)
	assert.Err(t, err, nil)

	sig, err := svc.Sign("", []byte("data"))
	assert.Err(t, err, nil)
	assert.True(t, svc.Verify("app", []byte("data"), sig))

	// Wrong key at the alias, right key first in the numbered chain.
	svc2, err := crypto.New(crypto.Config{}, logging.Noop(),
		crypto.WithServerKey(signer),
		crypto.WithPublicKey("app", &decoy.PublicKey),
		crypto.WithPublicKey("app1", &signer.PublicKey),
	)
	assert.Err(t, err, nil)
	assert.True(t, svc2.Verify("app", []byte("data"), sig))
}

func TestVerifyNeverPanicsOrErrors(t *testing.T) {
	svc, err := crypto.New(crypto.Config{}, logging.Noop())
	assert.Err(t, err, nil)

	// No alias registered at all.
	assert.False(t, svc.Verify("ghost", []byte("data"), "c2ln"))
	// Signature is not even base64.
	assert.False(t, svc.Verify("ghost", []byte("data"), "%%%not-base64%%%"))
	// Empty everything.
	assert.False(t, svc.Verify("", nil, ""))
}

func TestUnknownAlgorithmsRejected(t *testing.T) {
	_, err := crypto.New(crypto.Config{SignatureAlgorithm: "MD5withRSA"}, logging.Noop())
	assert.Err(t, err, crypto.ErrUnknownAlgorithm)

	_, err = crypto.New(crypto.Config{CipherAlgorithm: "ROT13"}, logging.Noop())
	assert.Err(t, err, crypto.ErrUnknownAlgorithm)

	_, err = crypto.New(crypto.Config{RandomAlgorithm: "XorShift"}, logging.Noop())
	assert.Err(t, err, crypto.ErrUnknownAlgorithm)
}

func TestEncryptDecryptTicket(t *testing.T) {
	for _, alg := range []string{"DESede", "AES"} {
		t.Run(alg, func(t *testing.T) {
			size := 24
			if alg == "AES" {
				size = 32
			}
			key, err := crypto.GenerateRandomKey(size)
			assert.Err(t, err, nil)

			svc, err := crypto.New(crypto.Config{CipherAlgorithm: alg}, logging.Noop(),
				crypto.WithSealKey(key))
			assert.Err(t, err, nil)

			plaintext := []byte(`{"uid":"alice","level":5}`)
			sealed, err := svc.EncryptTicket(plaintext)
			assert.Err(t, err, nil)

			for _, c := range sealed {
				if c == '+' || c == '/' || c == '=' {
					t.Fatalf("unsafe character %q in sealed ticket", c)
				}
			}

			opened, err := svc.DecryptTicket(sealed)
			assert.Err(t, err, nil)
			assert.Equal(t, opened, plaintext)
		})
	}
}

func TestEncryptTicketWithoutKey(t *testing.T) {
	svc, err := crypto.New(crypto.Config{}, logging.Noop())
	assert.Err(t, err, nil)

	_, err = svc.EncryptTicket([]byte("x"))
	assert.Err(t, err, crypto.ErrNoSealKey)
}

func TestBootstrapSealKey(t *testing.T) {
	h := storage.NewMemory(logging.Noop())
	clk := clock.NewTestClock()
	gen := crypto.NewKeyGenerator()

	svc, err := crypto.New(crypto.Config{}, logging.Noop())
	assert.Err(t, err, nil)

	err = svc.BootstrapSealKey(t.Context(), h, clk, gen)
	assert.Err(t, err, nil)

	sealed, err := svc.EncryptTicket([]byte("payload"))
	assert.Err(t, err, nil)

	// A second service bootstrapping from the same store adopts the
	// persisted key and can open what the first sealed.
	svc2, err := crypto.New(crypto.Config{}, logging.Noop())
	assert.Err(t, err, nil)
	err = svc2.BootstrapSealKey(t.Context(), h, clk, gen)
	assert.Err(t, err, nil)

	opened, err := svc2.DecryptTicket(sealed)
	assert.Err(t, err, nil)
	assert.Equal(t, opened, []byte("payload"))
}

func TestBootstrapSealKeyFromPassphrase(t *testing.T) {
	clk := clock.NewTestClock()
	gen := crypto.NewKeyGenerator()
	cfg := crypto.Config{Passphrase: "correct horse battery staple"}

	// Two fresh stores: the derived key is identical without shared state.
	svcA, err := crypto.New(cfg, logging.Noop())
	assert.Err(t, err, nil)
	err = svcA.BootstrapSealKey(t.Context(), storage.NewMemory(logging.Noop()), clk, gen)
	assert.Err(t, err, nil)

	svcB, err := crypto.New(cfg, logging.Noop())
	assert.Err(t, err, nil)
	err = svcB.BootstrapSealKey(t.Context(), storage.NewMemory(logging.Noop()), clk, gen)
	assert.Err(t, err, nil)

	sealed, err := svcA.EncryptTicket([]byte("shared"))
	assert.Err(t, err, nil)

	opened, err := svcB.DecryptTicket(sealed)
	assert.Err(t, err, nil)
	assert.Equal(t, opened, []byte("shared"))
}

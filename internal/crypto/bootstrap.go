package crypto

import (
	"context"
	"errors"
	"fmt"

	"github.com/fedauth/aselect/internal/clock"
	"github.com/fedauth/aselect/internal/storage"
)

// SealKeyRecord is the reserved storage key under which the symmetric seal
// key persists across restarts.
const SealKeyRecord = "aselect.sealkey"

// BootstrapSealKey loads the persisted seal key, or creates and persists
// one. The handler passed here must not itself depend on ticket sealing:
// the seal-key store is plain, which is what breaks the circular
// crypto-needs-storage, storage-needs-crypto dependency.
func (s *Service) BootstrapSealKey(ctx context.Context, h storage.Handler, clk clock.Clock, gen KeyGenerator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := h.Get(ctx, SealKeyRecord)
	if err == nil {
		s.sealKey = key
		return nil
	}
	if !errors.Is(err, storage.ErrNoSuchKey) {
		return fmt.Errorf("load seal key: %w", err)
	}

	if s.passphrase != "" {
		key = DeriveSealKey(s.passphrase, SealKeyRecord, WithKeySize(s.cipher.KeySize()))
	} else {
		key, err = gen.Generate(s.cipher.KeySize())
		if err != nil {
			return fmt.Errorf("generate seal key: %w", err)
		}
	}

	err = h.Put(ctx, SealKeyRecord, key, clk.Now(), storage.InsertOnly)
	if errors.Is(err, storage.ErrDuplicateKey) {
		// Another bootstrap won the insert; adopt its key.
		key, err = h.Get(ctx, SealKeyRecord)
	}
	if err != nil {
		return fmt.Errorf("persist seal key: %w", err)
	}

	s.sealKey = key
	s.logger.Info("seal key initialized", "cipher", s.cipher.Name())
	return nil
}

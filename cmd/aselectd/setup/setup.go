package setup

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fedauth/aselect/internal/crypto"
	"github.com/fedauth/aselect/internal/o11y/logging"
	"github.com/fedauth/aselect/internal/storage"
)

// Tables the server expects when running on the SQL backend. start/ uses
// the same names.
const (
	TicketsTable = "tickets"
	SSOTable     = "sso_index"
	SealKeyTable = "seal_keys"
)

func Run(ctx context.Context, cfg Config) error {
	logger := logging.New()
	logger.Info("Initializing A-Select server",
		"key_dir", cfg.KeyDir,
		"db", cfg.DBPath,
	)

	if err := writeServerKeys(cfg, logger); err != nil {
		return err
	}

	if cfg.DBPath != "" {
		if err := migrate(ctx, cfg, logger); err != nil {
			return err
		}
	}

	logger.Info("Setup complete")
	return nil
}

func writeServerKeys(cfg Config, logger *logging.Logger) error {
	if err := os.MkdirAll(cfg.KeyDir, 0o700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}

	privPath := filepath.Join(cfg.KeyDir, crypto.ServerKeyFile)
	if _, err := os.Stat(privPath); err == nil {
		logger.Info("Server key already exists, keeping it", "path", privPath)
		return nil
	}

	key, err := rsa.GenerateKey(rand.Reader, cfg.Bits)
	if err != nil {
		return fmt.Errorf("generate server key: %w", err)
	}

	if err := os.WriteFile(privPath, crypto.EncodePrivateKeyPEM(key), 0o600); err != nil {
		return fmt.Errorf("write server key: %w", err)
	}

	pubPath := filepath.Join(cfg.KeyDir, "server.pub.pem")
	if err := os.WriteFile(pubPath, crypto.EncodePublicKeyPEM(&key.PublicKey), 0o644); err != nil {
		return fmt.Errorf("write server public key: %w", err)
	}

	logger.Info("Server key pair written",
		"private", privPath,
		"public", pubPath,
		"bits", cfg.Bits,
	)
	return nil
}

func migrate(ctx context.Context, cfg Config, logger *logging.Logger) error {
	for _, table := range []string{TicketsTable, SSOTable, SealKeyTable} {
		store, err := storage.NewSQL(storage.SQLConfig{
			DSN:    cfg.DBPath,
			Table:  table,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("open db for %s: %w", table, err)
		}

		err = store.Migrate(ctx)
		if cerr := store.Destroy(); cerr != nil {
			logger.Warn("closing store failed", "table", table, "err", cerr)
		}
		if err != nil {
			return fmt.Errorf("apply schema for %s: %w", table, err)
		}
	}

	logger.Info("Schema applied", "db", cfg.DBPath)
	return nil
}

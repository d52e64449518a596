package genkey

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fedauth/aselect/internal/crypto"
	"github.com/urfave/cli/v3"
)

var Cmd = &cli.Command{
	Name:  "gen-key",
	Usage: "Generate an RSA key pair for a principal",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "alias",
			Usage:    "Principal alias; the server matches it case-insensitively",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "Directory to write the PEM files to",
			Value: ".",
		},
		&cli.IntFlag{
			Name:  "bits",
			Usage: "RSA key size",
			Value: 2048,
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		alias := strings.ToLower(cmd.String("alias"))
		out := cmd.String("out")

		if err := os.MkdirAll(out, 0o700); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		privPath := filepath.Join(out, alias+".pem")
		if _, err := os.Stat(privPath); err == nil {
			return fmt.Errorf("refusing to overwrite existing key %s", privPath)
		}

		key, err := rsa.GenerateKey(rand.Reader, cmd.Int("bits"))
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}

		if err := os.WriteFile(privPath, crypto.EncodePrivateKeyPEM(key), 0o600); err != nil {
			return fmt.Errorf("write private key: %w", err)
		}

		pubPath := filepath.Join(out, alias+".pub.pem")
		if err := os.WriteFile(pubPath, crypto.EncodePublicKeyPEM(&key.PublicKey), 0o644); err != nil {
			return fmt.Errorf("write public key: %w", err)
		}

		fmt.Printf("Wrote %s and %s\n", privPath, pubPath)
		return nil
	},
}

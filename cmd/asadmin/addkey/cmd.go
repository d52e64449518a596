package addkey

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fedauth/aselect/internal/crypto"
	"github.com/urfave/cli/v3"
)

// add-key installs a peer's public key into the server's key directory so
// the server can verify that peer's request signatures.
var Cmd = &cli.Command{
	Name:  "add-key",
	Usage: "Install a principal's public key into the server key directory",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "alias",
			Usage:    "Principal alias the key is verified under",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "pem",
			Usage:    "Path to the public key PEM file",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "key-dir",
			Usage: "Server key directory",
			Value: "keys",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		alias := strings.ToLower(cmd.String("alias"))
		keyDir := cmd.String("key-dir")

		data, err := os.ReadFile(cmd.String("pem"))
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}

		// Validate before installing; the server fails startup on an
		// unparseable key file.
		if _, err := crypto.ParsePublicKeyPEM(data); err != nil {
			return fmt.Errorf("invalid public key: %w", err)
		}

		if err := os.MkdirAll(keyDir, 0o700); err != nil {
			return fmt.Errorf("create key dir: %w", err)
		}

		dst := filepath.Join(keyDir, alias+".pub.pem")
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("install key: %w", err)
		}

		fmt.Printf("Installed %s\n", dst)
		return nil
	},
}

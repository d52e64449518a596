package setup

import (
	"context"

	"github.com/urfave/cli/v3"
)

var Cmd = &cli.Command{
	Name:  "setup",
	Usage: "Generate the server key pair and prepare the database",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "key-dir",
			Usage: "Directory to write PEM key material to",
			Value: "keys",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "Path to SQLite database (omit to skip schema setup)",
		},
		&cli.IntFlag{
			Name:  "bits",
			Usage: "RSA key size for the server key pair",
			Value: 2048,
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		return Run(ctx, newConfig(cmd))
	},
}

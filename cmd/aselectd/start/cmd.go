package start

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"
)

var Cmd = &cli.Command{
	Name:  "start",
	Usage: "Start the A-Select server",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "server-id",
			Usage:    "Server identifier sent as a-select-server (e.g. as.example.org)",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "organization",
			Usage: "Organization stamped on issued tickets",
		},
		&cli.StringFlag{
			Name:  "port",
			Usage: "HTTP Listen Port (e.g. :8080)",
			Value: ":8080",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Storage backend: memory, basic or sql",
			Value: "memory",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "Path to SQLite database (sql backend)",
			Value: "aselect.db",
		},
		&cli.StringFlag{
			Name:  "key-dir",
			Usage: "Directory holding PEM key material",
			Value: "keys",
		},
		&cli.StringFlag{
			Name:     "users",
			Usage:    "Path to the uid:password:level user file",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "cipher",
			Usage: "Ticket sealing cipher: DESede or AES",
			Value: "DESede",
		},
		&cli.StringFlag{
			Name:  "signature-alg",
			Usage: "Signature algorithm: SHA1withRSA or SHA256withRSA",
			Value: "SHA1withRSA",
		},
		&cli.StringFlag{
			Name:  "passphrase",
			Usage: "Derive the seal key from this passphrase instead of generating one",
		},
		&cli.StringFlag{
			Name:  "cookie-domain",
			Usage: "Domain scope of the single sign-on credential cookie",
		},
		&cli.BoolFlag{
			Name:  "sso",
			Usage: "Enable single sign-on across applications",
			Value: true,
		},
		&cli.DurationFlag{
			Name:  "ticket-lifetime",
			Usage: "How long an untouched ticket stays valid",
			Value: 4 * time.Hour,
		},
		&cli.DurationFlag{
			Name:  "sweep-interval",
			Usage: "How often expired tickets are swept",
			Value: time.Minute,
		},
		&cli.IntFlag{
			Name:  "max-tickets",
			Usage: "Soft bound on concurrent tickets (0 disables)",
		},
		&cli.IntFlag{
			Name:  "allowed-retries",
			Usage: "Failed attempts tolerated before access is denied",
			Value: 3,
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		return Run(ctx, newConfig(cmd))
	},
}

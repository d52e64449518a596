package start

import (
	"time"

	"github.com/urfave/cli/v3"
)

type Config struct {
	ServerID     string
	Organization string
	Port         string

	Backend string
	DBPath  string

	KeyDir       string
	UsersFile    string
	Cipher       string
	SignatureAlg string
	Passphrase   string

	CookieDomain string
	SSOEnabled   bool

	TicketLifetime time.Duration
	SweepInterval  time.Duration
	MaxTickets     int
	AllowedRetries int
}

func newConfig(cmd *cli.Command) Config {
	return Config{
		ServerID:     cmd.String("server-id"),
		Organization: cmd.String("organization"),
		Port:         cmd.String("port"),

		Backend: cmd.String("backend"),
		DBPath:  cmd.String("db"),

		KeyDir:       cmd.String("key-dir"),
		UsersFile:    cmd.String("users"),
		Cipher:       cmd.String("cipher"),
		SignatureAlg: cmd.String("signature-alg"),
		Passphrase:   cmd.String("passphrase"),

		CookieDomain: cmd.String("cookie-domain"),
		SSOEnabled:   cmd.Bool("sso"),

		TicketLifetime: cmd.Duration("ticket-lifetime"),
		SweepInterval:  cmd.Duration("sweep-interval"),
		MaxTickets:     cmd.Int("max-tickets"),
		AllowedRetries: cmd.Int("allowed-retries"),
	}
}

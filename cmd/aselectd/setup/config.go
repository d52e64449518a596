package setup

import "github.com/urfave/cli/v3"

type Config struct {
	KeyDir string
	DBPath string
	Bits   int
}

func newConfig(cmd *cli.Command) Config {
	return Config{
		KeyDir: cmd.String("key-dir"),
		DBPath: cmd.String("db"),
		Bits:   cmd.Int("bits"),
	}
}

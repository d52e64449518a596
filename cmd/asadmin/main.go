package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fedauth/aselect/cmd/asadmin/addkey"
	"github.com/fedauth/aselect/cmd/asadmin/genkey"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "asadmin",
		Usage: "A-Select administration tool",
		Commands: []*cli.Command{
			genkey.Cmd,
			addkey.Cmd,
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

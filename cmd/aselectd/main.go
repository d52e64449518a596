package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fedauth/aselect/cmd/aselectd/setup"
	"github.com/fedauth/aselect/cmd/aselectd/start"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "aselectd",
		Usage: "A-Select authentication server",
		Commands: []*cli.Command{
			setup.Cmd,
			start.Cmd,
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

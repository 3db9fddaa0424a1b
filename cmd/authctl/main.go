package main

import (
	"os"

	"github.com/goliatone/go-auth-session/cmd/authctl/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(cli.Options{}).Execute(); err != nil {
		os.Exit(1)
	}
}

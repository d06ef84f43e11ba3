package main

import (
	"fmt"
	"os"

	"github.com/matic113/freelance-platform-sub003/internal/cli"
	"github.com/matic113/freelance-platform-sub003/internal/cli/formatter"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, formatter.FormatError(err))
		os.Exit(1)
	}
}

func run() error {
	app := &cli.App{
		Serve: serve,
		IsTerminal: func() bool {
			return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		},
	}
	return cli.NewRootCmd(app).Execute()
}

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/danieljhkim/launchcheck/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.Execute(ctx)
	stop()

	if err != nil {
		cli.PrintCommandError(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

// Command eqsat simplifies terms by equality saturation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/eqsat/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "eqsat: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}

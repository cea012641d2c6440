package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/florianilch/kanbanctl/cmd/kanbanctl/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Execute(ctx, os.Args)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "kanbanctl: "+commands.ErrorMessage(err))
		os.Exit(1)
	}
}

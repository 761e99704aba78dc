// Package main provides a standalone service binary for plannr-relay. It is equivalent to `plannr-relay service`.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mkfa/plannr-relay/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cmd.New()
	root.SetArgs(append([]string{"service"}, os.Args[1:]...))
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

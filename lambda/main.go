// Package main provides the Lambda bootstrap for plannr-relay. It is equivalent to `plannr-relay lambda`.
package main

import (
	"context"
	"os"

	"github.com/mkfa/plannr-relay/cmd"
)

func main() {
	root := cmd.New()
	root.SetArgs(append([]string{"lambda"}, os.Args[1:]...))
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// Command pipeshell runs typed command pipelines.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], newStreams())
	stop()
	os.Exit(code)
}

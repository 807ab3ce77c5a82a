// Package main provides the seedbank command: a file-backed store for
// seeds, short observations recorded during an assistant session and
// reviewed later. Every invocation is a short-lived process; concurrent
// invocations coordinate through lock files in the store directory.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}

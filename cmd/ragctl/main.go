// Command ragctl ingests documents into and searches the vector store
// without going through the API or the queue.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(openBackend).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

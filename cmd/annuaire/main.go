package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/annuaire/internal/common"
)

func main() {
	common.SetCrashDir("")
	defer common.ExitOnPanic()

	// SIGINT/SIGTERM stop the scrape between profiles; partial results are kept.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx)
	stop()
	os.Exit(code)
}

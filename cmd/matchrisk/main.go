// Command matchrisk collects matchup data, analyzes worst-matchup risk per
// role and serves the resulting rankings.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/matchrisk/pkg/logger"
)

func main() {
	// Text logging until the configured format is applied.
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Get().Error(ctx, "command failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

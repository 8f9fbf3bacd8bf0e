package osutil

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that is cancelled on the first Ctrl+C or
// SIGTERM. A second signal is left to the default handler, so it kills the
// process even when something ignores the cancellation.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			slog.Warn("interrupted, stopping after cleanup", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigs)
	}()

	return ctx, cancel
}

// Fatal logs err and exits with a non-zero status.
func Fatal(message string, err error) {
	slog.Error(message, "err", err)
	os.Exit(ExitCode(err))
}

// ExitCode is 130 for runs that were interrupted and 1 for everything else.
func ExitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}

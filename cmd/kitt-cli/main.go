package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"kittexport/cmd/kitt-cli/commands"
	"kittexport/internal/components/telemetry"
	"kittexport/lib/osutil"
)

func run(ctx context.Context) error {
	otel, err := telemetry.SetupFromEnv(ctx, "kitt-cli")
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		slog.Warn("telemetry disabled", "err", err)
	default:
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			if err := otel.Shutdown(shutdownCtx); err != nil {
				slog.Warn("flush telemetry", "err", err)
			}
		}()
		telemetry.InstrumentPerfStats(ctx, time.Second*15)
	}

	return commands.ExecuteContext(ctx)
}

func main() {
	telemetry.InitSlog(commands.Verbose(os.Args[1:]))

	ctx, cancel := osutil.SignalContext(context.Background())
	err := run(ctx)
	cancel()
	if err != nil {
		osutil.Fatal("kitt-cli", err)
	}
}

package main

import (
	"context"
	"fpsunlock/cli"
	"fpsunlock/ui"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := cli.Execute(ctx, cli.Deps{
		LaunchGUI: func() error {
			slog.Info("Starting FPS Unlocker...")
			ui.NewMainWindow().ShowAndRun()
			return nil
		},
	})

	stop()
	os.Exit(code)
}

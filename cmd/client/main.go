package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"timecapsule/internal/client/cli"
	"timecapsule/internal/client/config"
	"timecapsule/internal/logging"
)

func main() {

	_ = godotenv.Load(".env")

	ctx := context.Background()
	cfg := config.LoadConfig()

	// diagnostics go to a file so they never interleave with the conversation
	_ = os.MkdirAll(cfg.StateDir, 0o700)
	logger := logging.Logger(logging.Nop{})
	if f, err := os.OpenFile(filepath.Join(cfg.StateDir, "client.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err == nil {
		defer f.Close()
		logger = logging.NewSlogLogger(slog.New(slog.NewTextHandler(f, nil)))
	}

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}
}

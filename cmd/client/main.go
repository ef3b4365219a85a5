package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/pulse/internal/buildinfo"
	"github.com/dmitrijs2005/pulse/internal/client/cli"
	"github.com/dmitrijs2005/pulse/internal/client/config"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/joho/godotenv"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	ctx := context.Background()

	cfg := config.LoadConfig()
	logger := logging.NewTextLogger(os.Stderr, slog.LevelWarn)

	app, err := cli.NewApp(ctx, cfg, logger, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}

package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/pulse/internal/buildinfo"
	"github.com/dmitrijs2005/pulse/internal/server"
	"github.com/dmitrijs2005/pulse/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}

// Command cli is the interactive shell of the storefront engine.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/atelier/internal/app"
	"github.com/dmitrijs2005/atelier/internal/cli"
	"github.com/dmitrijs2005/atelier/internal/config"
	"github.com/dmitrijs2005/atelier/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close()

	cli.NewApp(a, os.Stdin, os.Stdout).Run(ctx)
}

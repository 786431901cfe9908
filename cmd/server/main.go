// Command server runs the storefront engine behind the local JSON API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/atelier/internal/app"
	"github.com/dmitrijs2005/atelier/internal/config"
	"github.com/dmitrijs2005/atelier/internal/httpapi"
	"github.com/dmitrijs2005/atelier/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close()

	logger.Info(ctx, "Starting app...", "store", cfg.StoreDriver, "backup", cfg.Backup.Driver)

	if err := httpapi.New(a).Run(ctx, cfg.HTTPAddr); err != nil {
		logger.Error(ctx, err.Error())
	}
}

package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/atelier/internal/flagx"
)

// parseFlags overlays Config with the short command-line flags listed in the
// package documentation. Unknown arguments are filtered out first so other
// components can keep their own flags.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-l", "-b", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "address and port of the local HTTP API")
	fs.StringVar(&cfg.StoreDriver, "d", cfg.StoreDriver, "store driver (sqlite, postgres, memory)")
	fs.StringVar(&cfg.StoreDSN, "s", cfg.StoreDSN, "store DSN")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.Backup.Driver, "b", cfg.Backup.Driver, "backup driver (file, s3)")
	shutdown := fs.Int("t", int(cfg.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.ShutdownTimeout = time.Duration(*shutdown) * time.Second
}

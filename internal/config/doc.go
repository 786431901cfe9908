// Package config loads runtime configuration for the Atelier CLI and the
// local HTTP daemon.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c / -config or ATELIER_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   listen address of the local HTTP API
//	-d string   store driver: sqlite, postgres or memory
//	-s string   store DSN (file path for sqlite, URL for postgres)
//	-l string   log level: debug, info, warn, error
//	-b string   backup driver: file or s3 (empty disables backups)
//	-t int      HTTP shutdown timeout (seconds)
//
// # JSON schema
//
// Durations use timex.Duration, so "5s" and integer nanoseconds both work:
//
//	{
//	  "http_addr": "127.0.0.1:8080",
//	  "store_driver": "sqlite",
//	  "store_dsn": "atelier.db",
//	  "log_level": "info",
//	  "log_format": "text",
//	  "login_rate_per_minute": 10,
//	  "login_burst": 5,
//	  "shutdown_timeout": "5s",
//	  "backup": {
//	    "driver": "s3",
//	    "dir": "backups",
//	    "s3_bucket": "atelier-backups",
//	    "s3_region": "us-east-1",
//	    "s3_endpoint": "http://127.0.0.1:9000",
//	    "s3_access_key": "admin",
//	    "s3_secret_key": "secretpassword",
//	    "s3_path_style": true
//	  }
//	}
package config

package config

import "time"

// Backup describes where KV snapshots are written. An empty Driver disables
// the backup commands.
type Backup struct {
	Driver      string
	Dir         string
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PathStyle bool
}

// Config holds runtime settings shared by cmd/cli and cmd/server.
type Config struct {
	HTTPAddr           string
	StoreDriver        string
	StoreDSN           string
	LogLevel           string
	LogFormat          string
	LoginRatePerMinute float64
	LoginBurst         int
	ShutdownTimeout    time.Duration
	Backup             Backup
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = "127.0.0.1:8080"
	c.StoreDriver = "sqlite"
	c.StoreDSN = "atelier.db"
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.LoginRatePerMinute = 10
	c.LoginBurst = 5
	c.ShutdownTimeout = 5 * time.Second
	c.Backup = Backup{
		Dir:      "backups",
		S3Region: "us-east-1",
	}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

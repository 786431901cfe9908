package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/atelier/internal/flagx"
	"github.com/dmitrijs2005/atelier/internal/timex"
)

type JsonBackup struct {
	Driver      string `json:"driver"`
	Dir         string `json:"dir"`
	S3Bucket    string `json:"s3_bucket"`
	S3Prefix    string `json:"s3_prefix"`
	S3Region    string `json:"s3_region"`
	S3Endpoint  string `json:"s3_endpoint"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
	S3PathStyle bool   `json:"s3_path_style"`
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer and
// zero-value checks below keep defaults for keys the file omits.
type JsonConfig struct {
	HTTPAddr           string          `json:"http_addr"`
	StoreDriver        string          `json:"store_driver"`
	StoreDSN           string          `json:"store_dsn"`
	LogLevel           string          `json:"log_level"`
	LogFormat          string          `json:"log_format"`
	LoginRatePerMinute *float64        `json:"login_rate_per_minute"`
	LoginBurst         *int            `json:"login_burst"`
	ShutdownTimeout    *timex.Duration `json:"shutdown_timeout"`
	Backup             *JsonBackup     `json:"backup"`
}

// parseJson overlays Config with values from the JSON file named by
// flagx.JsonConfigFlags. It panics on read or decode errors.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.HTTPAddr, jc.HTTPAddr)
	setString(&cfg.StoreDriver, jc.StoreDriver)
	setString(&cfg.StoreDSN, jc.StoreDSN)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	if jc.LoginRatePerMinute != nil {
		cfg.LoginRatePerMinute = *jc.LoginRatePerMinute
	}
	if jc.LoginBurst != nil {
		cfg.LoginBurst = *jc.LoginBurst
	}
	if jc.ShutdownTimeout != nil {
		cfg.ShutdownTimeout = jc.ShutdownTimeout.Duration
	}

	if b := jc.Backup; b != nil {
		setString(&cfg.Backup.Driver, b.Driver)
		setString(&cfg.Backup.Dir, b.Dir)
		setString(&cfg.Backup.S3Bucket, b.S3Bucket)
		setString(&cfg.Backup.S3Prefix, b.S3Prefix)
		setString(&cfg.Backup.S3Region, b.S3Region)
		setString(&cfg.Backup.S3Endpoint, b.S3Endpoint)
		setString(&cfg.Backup.S3AccessKey, b.S3AccessKey)
		setString(&cfg.Backup.S3SecretKey, b.S3SecretKey)
		cfg.Backup.S3PathStyle = cfg.Backup.S3PathStyle || b.S3PathStyle
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

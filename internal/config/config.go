package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Storage  StorageConfig  `yaml:"storage"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
}

type ExchangeConfig struct {
	Name         string        `yaml:"name"`
	RESTEndpoint string        `yaml:"rest_endpoint"`
	APIKey       string        `yaml:"api_key"`
	APISecret    string        `yaml:"api_secret"`
	EnvFile      string        `yaml:"env_file"`
	Timeout      time.Duration `yaml:"timeout"`
	Retry        RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

type FetchConfig struct {
	InstrumentSymbol string `yaml:"instrument_symbol"`
	InstrumentLimit  int    `yaml:"instrument_limit"`
	KlineSymbol      string `yaml:"kline_symbol"`
	KlineInterval    string `yaml:"kline_interval"`
	KlineLimit       int    `yaml:"kline_limit"`
	SkipEmpty        bool   `yaml:"skip_empty"`
	Verify           bool   `yaml:"verify"`
}

type StorageConfig struct {
	Backend string       `yaml:"backend"`
	Dir     string       `yaml:"dir"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
	S3      S3Config     `yaml:"s3"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type ExportConfig struct {
	Parquet ParquetConfig `yaml:"parquet"`
}

type ParquetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dir         string `yaml:"dir"`
	Compression string `yaml:"compression"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

const ExchangeBybit = "bybit"

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// Default returns the settings used for any key the YAML file leaves out.
func Default() Config {
	return Config{
		Exchange: ExchangeConfig{
			Name:         ExchangeBybit,
			RESTEndpoint: "https://api-testnet.bybit.com",
			EnvFile:      ".env",
			Timeout:      10 * time.Second,
			Retry:        RetryConfig{MaxAttempts: 1, InitialBackoff: time.Second},
		},
		Fetch: FetchConfig{
			InstrumentLimit: 100,
			KlineSymbol:     "BTCUSDT",
			KlineInterval:   "60",
			KlineLimit:      200,
			SkipEmpty:       true,
			Verify:          true,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Dir:     "snapshots",
			SQLite:  SQLiteConfig{Path: "snapshots.db"},
		},
		Export: ExportConfig{
			Parquet: ParquetConfig{Dir: "exports", Compression: "snappy"},
		},
		Logging: LoggingConfig{Level: "info"},
		Server:  ServerConfig{Port: 8080},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.Exchange.Name != ExchangeBybit {
		problems = append(problems, fmt.Sprintf("exchange.name %q is not supported, only %s", c.Exchange.Name, ExchangeBybit))
	}
	if c.Exchange.RESTEndpoint == "" {
		problems = append(problems, "exchange.rest_endpoint is required")
	}
	if c.Exchange.Timeout <= 0 {
		problems = append(problems, "exchange.timeout must be positive")
	}
	if c.Fetch.KlineSymbol == "" {
		problems = append(problems, "fetch.kline_symbol is required")
	}
	if c.Fetch.KlineInterval == "" {
		problems = append(problems, "fetch.kline_interval is required")
	}
	if c.Fetch.KlineLimit <= 0 {
		problems = append(problems, "fetch.kline_limit must be positive")
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Dir == "" {
			problems = append(problems, "storage.dir is required for the file backend")
		}
	case BackendSQLite:
		if c.Storage.SQLite.Path == "" {
			problems = append(problems, "storage.sqlite.path is required for the sqlite backend")
		}
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			problems = append(problems, "storage.s3.bucket is required for the s3 backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.backend %q is not one of file, sqlite, s3", c.Storage.Backend))
	}

	if c.Export.Parquet.Enabled && c.Export.Parquet.Dir == "" {
		problems = append(problems, "export.parquet.dir is required when parquet export is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

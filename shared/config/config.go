// Package config loads the server's YAML configuration and watches it for
// changes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backend names.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// ServerConfig holds the listener identity settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// SSLConfig selects between manual certificates and ACME.
type SSLConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Mode         string   `yaml:"mode"` // "manual" or "acme"
	CertFile     string   `yaml:"cert_file"`
	KeyFile      string   `yaml:"key_file"`
	AcmeDomains  []string `yaml:"acme_domains"`
	AcmeEmail    string   `yaml:"acme_email"`
	AcmeCacheDir string   `yaml:"acme_cache_dir"`
}

// Duration parses YAML scalars like "30s" or "1h" via time.ParseDuration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// RedisConfig configures the redis task store.
type RedisConfig struct {
	Addr      string   `yaml:"addr"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
	TTL       Duration `yaml:"ttl"`
}

// PostgresConfig configures the postgres task store.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// StorageConfig selects and configures the task store backend.
type StorageConfig struct {
	Backend  string         `yaml:"backend"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PushConfig configures the webhook dispatcher.
type PushConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// ThrottleConfig bounds per-client request rates on the RPC endpoint.
type ThrottleConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// Config is the root of the YAML file.
type Config struct {
	Server        ServerConfig   `yaml:"server"`
	LogLevel      string         `yaml:"log_level"`
	SSL           SSLConfig      `yaml:"ssl"`
	SigningSecret string         `yaml:"signing_secret"`
	Storage       StorageConfig  `yaml:"storage"`
	Push          PushConfig     `yaml:"push"`
	Throttle      ThrottleConfig `yaml:"throttle"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Address: ":4000", Name: "a2a-server", Version: "0.1.0"},
		LogLevel: "info",
		Storage:  StorageConfig{Backend: BackendMemory},
		Push:     PushConfig{Enabled: true},
	}
}

// Load reads and validates a YAML config file. Missing fields fall back to
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == BackendRedis && c.Storage.Redis.Addr == "" {
		return fmt.Errorf("storage backend %q requires storage.redis.addr", BackendRedis)
	}
	if c.Storage.Backend == BackendPostgres && c.Storage.Postgres.DSN == "" {
		return fmt.Errorf("storage backend %q requires storage.postgres.dsn", BackendPostgres)
	}
	if c.SSL.Enabled {
		switch c.SSL.Mode {
		case "", "manual":
			if c.SSL.CertFile == "" || c.SSL.KeyFile == "" {
				return fmt.Errorf("manual SSL mode requires ssl.cert_file and ssl.key_file")
			}
		case "acme":
			if len(c.SSL.AcmeDomains) == 0 {
				return fmt.Errorf("ACME SSL mode requires at least one domain in ssl.acme_domains")
			}
		default:
			return fmt.Errorf("unknown ssl mode %q", c.SSL.Mode)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "GYMREST_"

type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"DB_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"AUTH_"`
	Engine    EngineConfig    `yaml:"engine" envPrefix:"ENGINE_"`
	Tailscale TailscaleConfig `yaml:"tailscale" envPrefix:"TAILSCALE_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

// DatabaseConfig selects where finished session summaries are kept.
// Driver "postgres" uses the host/port fields; "sqlite" uses Path.
type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DRIVER"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Name     string `yaml:"name" env:"NAME"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
	Path     string `yaml:"path" env:"PATH"`
}

type AuthConfig struct {
	APIKey    string   `yaml:"api_key" env:"API_KEY"`
	Operators []string `yaml:"operators" env:"OPERATORS" envSeparator:","`
	// DevImpersonation honours the X-Dev-User header when Tailscale is off.
	DevImpersonation bool `yaml:"dev_impersonation" env:"DEV_IMPERSONATION"`
}

type EngineConfig struct {
	TickInterval   time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
	WarningSeconds int           `yaml:"warning_seconds" env:"WARNING_SECONDS"`
	NotifyQueue    int           `yaml:"notify_queue" env:"NOTIFY_QUEUE"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Hostname string `yaml:"hostname" env:"HOSTNAME"`
	StateDir string `yaml:"state_dir" env:"STATE_DIR"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// IsOperator reports whether login is listed as a gym master operator.
func (a AuthConfig) IsOperator(login string) bool {
	for _, op := range a.Operators {
		if op == login {
			return true
		}
	}
	return false
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix GYMREST_ and underscore-separated paths:
//
//	GYMREST_SERVER_HOST, GYMREST_SERVER_PORT,
//	GYMREST_DB_DRIVER, GYMREST_DB_HOST, GYMREST_DB_PORT, GYMREST_DB_NAME,
//	GYMREST_DB_USER, GYMREST_DB_PASSWORD, GYMREST_DB_SSLMODE, GYMREST_DB_PATH,
//	GYMREST_AUTH_API_KEY, GYMREST_AUTH_OPERATORS (comma separated),
//	GYMREST_ENGINE_TICK_INTERVAL, GYMREST_ENGINE_WARNING_SECONDS, GYMREST_ENGINE_NOTIFY_QUEUE,
//	GYMREST_TAILSCALE_ENABLED, GYMREST_TAILSCALE_HOSTNAME, GYMREST_TAILSCALE_STATE_DIR,
//	GYMREST_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Engine.TickInterval == 0 {
		c.Engine.TickInterval = time.Second
	}
	if c.Engine.WarningSeconds == 0 {
		c.Engine.WarningSeconds = 10
	}
	if c.Engine.NotifyQueue == 0 {
		c.Engine.NotifyQueue = 256
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "gymrest"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Engine.TickInterval < 0 {
		return fmt.Errorf("engine.tick_interval must be positive")
	}
	if c.Engine.WarningSeconds < 0 {
		return fmt.Errorf("engine.warning_seconds must not be negative")
	}
	if c.Tailscale.Enabled && c.Tailscale.StateDir == "" {
		return fmt.Errorf("tailscale.state_dir is required when tailscale is enabled")
	}
	return nil
}

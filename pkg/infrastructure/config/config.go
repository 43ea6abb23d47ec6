package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// Config holds all application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Company     string          `mapstructure:"company"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Rounding    RoundingConfig  `mapstructure:"rounding"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	Report      ReportConfig    `mapstructure:"report"`
	Server      ServerConfig    `mapstructure:"server"`
	RulesFile   string          `mapstructure:"rules_file"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// DatabaseConfig selects the persistent store. An empty driver keeps everything in memory.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
}

// RedisConfig holds the settings of the distributed order lock
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// RoundingConfig is the default quantity rounding policy
type RoundingConfig struct {
	Precision string `mapstructure:"precision"`
	Method    string `mapstructure:"method"`
}

// SchedulerConfig holds the periodic reconciliation settings
type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// ReportConfig holds flow report settings
type ReportConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	Format      string `mapstructure:"format"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address string        `mapstructure:"address"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig reads fuelrecon.yaml from path (or ./config) and applies FUELRECON_* environment overrides
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetConfigName("fuelrecon")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		// Defaults and environment only
	}

	v.SetEnvPrefix("FUELRECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("company", "")
	v.SetDefault("rules_file", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "file:fuelrecon.db?cache=shared")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "30s")

	v.SetDefault("rounding.precision", "0.001")
	v.SetDefault("rounding.method", "half-up")

	v.SetDefault("scheduler.interval", "5m")

	v.SetDefault("report.concurrency", 4)
	v.SetDefault("report.format", "text")

	v.SetDefault("server.address", "0.0.0.0:8080")
	v.SetDefault("server.timeout", "30s")
}

// Validate checks values viper cannot type-check
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if _, err := c.Rounding.Policy(); err != nil {
		return err
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive, got %s", c.Scheduler.Interval)
	}
	return nil
}

// Policy converts the configured rounding into a domain rounding policy
func (r RoundingConfig) Policy() (entities.Rounding, error) {
	precision, err := decimal.NewFromString(r.Precision)
	if err != nil {
		return entities.Rounding{}, fmt.Errorf("invalid rounding.precision %q: %w", r.Precision, err)
	}
	method, err := entities.ParseRoundingMethod(r.Method)
	if err != nil {
		return entities.Rounding{}, err
	}
	return entities.NewRounding(precision, method)
}

// RunContext builds the per-call context for the configured company and rounding
func (c Config) RunContext() entities.RunContext {
	rc := entities.NewRunContext(c.Company)
	if policy, err := c.Rounding.Policy(); err == nil {
		rc.Rounding = policy
	}
	return rc
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server Server `mapstructure:"server"`
	Store  Store  `mapstructure:"store"`
	Events Events `mapstructure:"events"`
	Log    Log    `mapstructure:"log"`
}

// Server configuration
type Server struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

// Store selects the ledger backend. Driver is memory, postgres or sqlite.
type Store struct {
	Driver         string        `mapstructure:"driver"`
	DSN            string        `mapstructure:"dsn"`
	Path           string        `mapstructure:"path"`
	MaxConns       int32         `mapstructure:"maxConns"`
	ConnectRetries int           `mapstructure:"connectRetries"`
	RetryDelay     time.Duration `mapstructure:"retryDelay"`
}

// Events selects where committed journals are announced. Driver is none, kafka or redis.
type Events struct {
	Driver string `mapstructure:"driver"`
	Kafka  Kafka  `mapstructure:"kafka"`
	Redis  Redis  `mapstructure:"redis"`
}

// Kafka configuration
type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Redis configuration
type Redis struct {
	Addr    string `mapstructure:"addr"`
	Channel string `mapstructure:"channel"`
}

// Log configuration
type Log struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 15*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.path", "ledger.db")
	v.SetDefault("store.maxConns", 10)
	v.SetDefault("store.connectRetries", 5)
	v.SetDefault("store.retryDelay", 2*time.Second)

	v.SetDefault("events.driver", "none")
	v.SetDefault("events.kafka.brokers", []string{})
	v.SetDefault("events.kafka.topic", "ledger.journals")
	v.SetDefault("events.redis.addr", "")
	v.SetDefault("events.redis.channel", "ledger.journals")

	v.SetDefault("log.level", "info")
}

// LoadConfig loads configuration from YAML files and the environment.
// app-config.yaml in configDir is the base; <CONFIG_ENV>.yaml (local by
// default) is merged on top; LEDGER_* variables override both.
func LoadConfig(configDir string) (*Config, error) {
	configEnv := os.Getenv("CONFIG_ENV")
	if configEnv == "" {
		configEnv = "local"
	}

	v := viper.New()
	setDefaults(v)

	// Load base app-config.yaml as template/defaults (if it exists)
	baseConfigPath := fmt.Sprintf("%s/app-config.yaml", configDir)
	if _, err := os.Stat(baseConfigPath); err == nil {
		v.SetConfigFile(baseConfigPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read base config file: %w", err)
		}
	}

	// Merge environment-specific config (e.g., local.yaml when CONFIG_ENV=local)
	envConfigPath := fmt.Sprintf("%s/%s.yaml", configDir, configEnv)
	if _, err := os.Stat(envConfigPath); err == nil {
		v.SetConfigFile(envConfigPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to merge env config file: %w", err)
		}
	}

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("server.port", "LEDGER_SERVER_PORT", "PORT")
	_ = v.BindEnv("store.dsn", "LEDGER_STORE_DSN", "DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected drivers have what they need.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for the postgres driver"))
		}
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	switch c.Events.Driver {
	case "none":
	case "kafka":
		if len(c.Events.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("events.kafka.brokers is required for the kafka driver"))
		}
	case "redis":
		if c.Events.Redis.Addr == "" {
			errs = append(errs, errors.New("events.redis.addr is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events.driver %q", c.Events.Driver))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

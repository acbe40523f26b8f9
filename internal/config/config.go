// Package config loads settings from defaults, an optional config file, a
// .env file, OPNAME_* environment variables and explicit overrides, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. OPNAME_HTTP_ADDR.
const EnvPrefix = "OPNAME"

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Config is the merged application configuration.
type Config struct {
	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	DB struct {
		Path string
	} `mapstructure:"db"`

	Log struct {
		Path string
	} `mapstructure:"log"`

	Admin struct {
		User string
	} `mapstructure:"admin"`

	Store struct {
		Driver  string
		Timeout time.Duration
	} `mapstructure:"store"`

	Mongo struct {
		URI      string
		Database string
	} `mapstructure:"mongo"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

// Options selects the sources Load reads besides defaults and environment.
type Options struct {
	// File is a YAML, TOML or JSON config file. Empty skips it.
	File string
	// EnvFile is a dotenv file. A missing file is ignored.
	EnvFile string
	// Overrides are applied last, keyed like "http.addr".
	Overrides map[string]any
}

func defaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("db.path", "opname.db")
	v.SetDefault("log.path", "")
	v.SetDefault("admin.user", "admin")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.timeout", 10*time.Second)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "opname")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("metrics.enabled", true)
}

// Load reads the configuration.
func Load(opts Options) (Config, error) {
	v := viper.New()
	defaults(v)

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.EnvFile != "" {
		if err := applyEnvFile(v, opts.EnvFile); err != nil {
			return Config{}, err
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// applyEnvFile sets keys from a dotenv file unless the real environment
// already has them. The process environment is not modified.
func applyEnvFile(v *viper.Viper, path string) error {
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := EnvName(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if value, ok := values[name]; ok {
			v.Set(key, value)
		}
	}
	return nil
}

// EnvName returns the environment variable for a config key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
	case DriverMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("store driver mongo needs mongo.uri and mongo.database")
		}
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("store driver postgres needs postgres.dsn")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store.timeout must be positive, got %s", c.Store.Timeout)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}
	return nil
}

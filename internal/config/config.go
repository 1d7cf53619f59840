package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/UnknownOlympus/isomap/internal/ors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the isomap server.
//
// Fields:
// - Env: The current environment (local, development, production).
// - Port: The port of the HTTP API and monitoring endpoints.
// - ORS: openrouteservice credentials and transport limits.
// - Geocoder: Which geocoding provider resolves typed addresses.
// - Planner: Isochrone fetch concurrency and address rules.
// - Cache: Response cache backend.
// - Database: PostgreSQL settings, used by the postgres cache backend.
type Config struct {
	Env      string         `mapstructure:"env"`
	Port     int            `mapstructure:"port"`
	ORS      ORSConfig      `mapstructure:"ors"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	Planner  PlannerConfig  `mapstructure:"planner"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Database PostgresConfig `mapstructure:"postgres"`
}

type ORSConfig struct {
	APIKey    string        `mapstructure:"api_key"`    // OPENROUTESERVICE_API_KEY is accepted as well.
	BaseURL   string        `mapstructure:"base_url"`
	RateLimit float64       `mapstructure:"rate_limit"` // Requests per second.
	Burst     int           `mapstructure:"burst"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type GeocoderConfig struct {
	Provider  string `mapstructure:"provider"`   // openrouteservice, google or nominatim.
	APIKey    string `mapstructure:"api_key"`    // Only used by google.
	RateLimit int    `mapstructure:"rate_limit"` // Requests per second, only used by google.
}

type PlannerConfig struct {
	Workers          int `mapstructure:"workers"`
	MinAddressLength int `mapstructure:"min_address_length"`
}

type CacheConfig struct {
	Backend    string        `mapstructure:"backend"` // none, memory, valkey or postgres.
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
	ValkeyAddr string        `mapstructure:"valkey_addr"`
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"db_name"`
}

const envPrefix = "ISOMAP"

// FileEnv names an explicit config file. Without it config.yaml is looked up
// in the working directory and ./configs, and may be absent.
const FileEnv = "ISOMAP_CONFIG_FILE"

// Load reads .env, the optional config file and ISOMAP_* environment variables,
// then validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if file := os.Getenv(FileEnv); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// ISOMAP_ORS_API_KEY -> ors.api_key
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("ors.api_key", envPrefix+"_ORS_API_KEY", "OPENROUTESERVICE_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad is Load that panics when the configuration is unusable.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("port", 8080)
	v.SetDefault("ors.api_key", "")
	v.SetDefault("ors.base_url", ors.DefaultBaseURL)
	v.SetDefault("ors.rate_limit", 1.0)
	v.SetDefault("ors.burst", 1)
	v.SetDefault("ors.timeout", "15s")
	v.SetDefault("geocoder.provider", "openrouteservice")
	v.SetDefault("geocoder.api_key", "")
	v.SetDefault("geocoder.rate_limit", 50)
	v.SetDefault("planner.workers", 4)
	v.SetDefault("planner.min_address_length", 5)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.valkey_addr", "localhost:6379")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db_name", "isomap")
}

// Validate checks that required fields are present and sane.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ORS.APIKey) == "" {
		return ors.ErrMissingAPIKey
	}

	var errs []string
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("port must be 1-65535, got %d", c.Port))
	}
	if c.ORS.RateLimit <= 0 {
		errs = append(errs, "ors.rate_limit must be positive")
	}
	if c.ORS.Timeout <= 0 {
		errs = append(errs, "ors.timeout must be positive")
	}
	if c.Planner.Workers <= 0 {
		errs = append(errs, "planner.workers must be positive")
	}
	if c.Planner.MinAddressLength <= 0 {
		errs = append(errs, "planner.min_address_length must be positive")
	}
	switch c.Geocoder.Provider {
	case "openrouteservice", "nominatim":
	case "google":
		if c.Geocoder.APIKey == "" {
			errs = append(errs, "geocoder.api_key is required for google")
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported geocoder.provider %q", c.Geocoder.Provider))
	}
	if c.Cache.Backend != "none" && c.Cache.TTL <= 0 {
		errs = append(errs, "cache.ttl must be positive")
	}
	switch c.Cache.Backend {
	case "none", "memory", "valkey":
	case "postgres":
		if c.Database.User == "" {
			errs = append(errs, "postgres.user is required for the postgres cache")
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported cache.backend %q", c.Cache.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

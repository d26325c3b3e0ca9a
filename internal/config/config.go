package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/hohotang/shortlink-core/internal/models"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	ShortLink ShortLinkConfig `mapstructure:"shortlink"`
	Snowflake SnowflakeConfig `mapstructure:"snowflake"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig represents the server configuration
type ServerConfig struct {
	HTTPPort int `mapstructure:"http_port"`
	// GRPCPort of 0 disables the gRPC listener
	GRPCPort int    `mapstructure:"grpc_port"`
	BaseURL  string `mapstructure:"base_url"`
	// TrustForwardedProto makes X-Forwarded-Proto part of the request origin. Enable only behind a proxy
	// that overwrites the header.
	TrustForwardedProto bool          `mapstructure:"trust_forwarded_proto"`
	ShutdownTimeout     time.Duration `mapstructure:"shutdown_timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN builds a lib/pq connection URL from the individual fields
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.DBName,
		RawQuery: url.Values{"sslmode": []string{p.SSLMode}}.Encode(),
	}
	return u.String()
}

// BoltConfig holds the embedded bbolt store settings
type BoltConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig represents the storage configuration
type StorageConfig struct {
	Type     models.StorageType `mapstructure:"type"` // "redis", "postgres", "bolt", "memory"
	RedisURL string             `mapstructure:"redis_url"`
	// PostgresURL takes precedence over the Postgres fields when set
	PostgresURL string         `mapstructure:"postgres_url"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
	Bolt        BoltConfig     `mapstructure:"bolt"`
	// Timeout bounds every store round trip
	Timeout time.Duration `mapstructure:"timeout"`
	// SweepInterval is how often backends without native expiry purge dead entries; 0 disables
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// PostgresDSN returns the connection string for the postgres backend
func (s StorageConfig) PostgresDSN() string {
	if s.PostgresURL != "" {
		return s.PostgresURL
	}
	return s.Postgres.DSN()
}

// ShortLinkConfig holds the key layout and lifetime of short links
type ShortLinkConfig struct {
	KeyPrefix  string        `mapstructure:"key_prefix"`
	CodeLength int           `mapstructure:"code_length"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// SnowflakeConfig represents the configuration for snowflake request ID generation
type SnowflakeConfig struct {
	MachineID int64 `mapstructure:"machine_id"`
}

// TelemetryConfig holds OpenTelemetry settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
	Environment  string `mapstructure:"environment"`
	// MetricInterval is how often metrics are pushed to the collector
	MetricInterval time.Duration `mapstructure:"metric_interval"`
}

// Load loads the configuration using Viper. configFile overrides the search paths when not empty.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// Add multiple search paths for config file
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Read environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("SHORTLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if exists
	err := v.ReadInConfig()
	if err != nil {
		// It's okay if config file doesn't exist
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Printf("Config file not found, using default values")
	} else {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	return Unmarshal(v)
}

// Unmarshal decodes and validates the configuration held by v
func Unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SetDefaults registers every default value on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.trust_forwarded_proto", false)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("storage.type", models.Redis.String())
	v.SetDefault("storage.redis_url", "redis://localhost:6379/0")
	v.SetDefault("storage.postgres_url", "")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "postgres")
	v.SetDefault("storage.postgres.password", "postgres")
	v.SetDefault("storage.postgres.dbname", "shortlink")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.max_open_conns", 25)
	v.SetDefault("storage.postgres.max_idle_conns", 5)
	v.SetDefault("storage.postgres.conn_max_lifetime", time.Minute*15)
	v.SetDefault("storage.bolt.path", "data/shortlink.db")
	v.SetDefault("storage.timeout", 500*time.Millisecond)
	v.SetDefault("storage.sweep_interval", 10*time.Minute)

	v.SetDefault("shortlink.key_prefix", models.DefaultKeyPrefix)
	v.SetDefault("shortlink.code_length", 8)
	v.SetDefault("shortlink.ttl", 7*24*time.Hour)

	v.SetDefault("snowflake.machine_id", 1)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.service_name", "shortlink-core")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.metric_interval", 30*time.Second)
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if err := c.Storage.Type.Validate(); err != nil {
		return err
	}
	if c.ShortLink.CodeLength <= 0 {
		return fmt.Errorf("shortlink.code_length must be positive, got %d", c.ShortLink.CodeLength)
	}
	if c.ShortLink.TTL <= 0 {
		return fmt.Errorf("shortlink.ttl must be positive, got %s", c.ShortLink.TTL)
	}
	if _, err := url.Parse(c.Server.BaseURL); err != nil {
		return fmt.Errorf("server.base_url: %w", err)
	}
	return nil
}

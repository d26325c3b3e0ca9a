package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hohotang/shortlink-core/internal/models"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Unmarshal(v)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, models.Redis, cfg.Storage.Type)
	assert.Equal(t, "su:", cfg.ShortLink.KeyPrefix)
	assert.Equal(t, 8, cfg.ShortLink.CodeLength)
	assert.Equal(t, 7*24*time.Hour, cfg.ShortLink.TTL)
	assert.Equal(t, 500*time.Millisecond, cfg.Storage.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Telemetry.MetricInterval)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shortlink.yaml")
	content := `
server:
  http_port: 9090
storage:
  type: memory
shortlink:
  key_prefix: "test:"
  ttl: 1h
telemetry:
  metric_interval: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("SHORTLINK_SHORTLINK_CODE_LENGTH", "10")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, models.Memory, cfg.Storage.Type)
	assert.Equal(t, "test:", cfg.ShortLink.KeyPrefix)
	assert.Equal(t, time.Hour, cfg.ShortLink.TTL)
	assert.Equal(t, 10, cfg.ShortLink.CodeLength)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.MetricInterval)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{BaseURL: "http://localhost:8080"},
			Storage:   StorageConfig{Type: models.Memory},
			ShortLink: ShortLinkConfig{CodeLength: 8, TTL: time.Hour},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"Unknown storage", func(c *Config) { c.Storage.Type = "mongo" }},
		{"Zero code length", func(c *Config) { c.ShortLink.CodeLength = 0 }},
		{"Negative TTL", func(c *Config) { c.ShortLink.TTL = -time.Second }},
		{"Bad base URL", func(c *Config) { c.Server.BaseURL = "http://[::1" }},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	s := StorageConfig{
		Postgres: PostgresConfig{
			Host: "db", Port: 5432, User: "app", Password: "p@ss",
			DBName: "shortlink", SSLMode: "disable",
		},
	}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/shortlink?sslmode=disable", s.PostgresDSN())

	s.PostgresURL = "postgres://override/db"
	assert.Equal(t, "postgres://override/db", s.PostgresDSN())
}

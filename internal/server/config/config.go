package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	Port          string
	LogLevel      string
	DatabaseURL   string
	AuthToken     string
	MigrationsDir string
	ImageDir      string
	MaxUploadMB   int
	AllowOrigins  []string
}

func Load() Config {
	cfg := Config{
		Port:         envOrDefault("CATALOGD_PORT", "8000"),
		LogLevel:     envOrDefault("CATALOGD_LOG_LEVEL", "info"),
		DatabaseURL:  envOrDefault("CATALOGD_DATABASE_URL", "file:catalog.db"),
		AuthToken:    strings.TrimSpace(os.Getenv("CATALOGD_AUTH_TOKEN")),
		ImageDir:     envOrDefault("CATALOGD_IMAGE_DIR", "images"),
		MaxUploadMB:  IntOrDefault(os.Getenv("CATALOGD_MAX_UPLOAD_MB"), 10),
		AllowOrigins: splitList(envOrDefault("CATALOGD_ALLOW_ORIGINS", "*")),
	}
	cfg.MigrationsDir = envOrDefault("CATALOGD_MIGRATIONS_DIR", filepath.Join("migrations", cfg.Dialect()))
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	}
	return cfg
}

// Dialect is "postgres" for postgres:// URLs and "sqlite" otherwise.
func (c Config) Dialect() string {
	u := strings.ToLower(strings.TrimSpace(c.DatabaseURL))
	if strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

func (c Config) MaxUploadBytes() int64 {
	mb := c.MaxUploadMB
	if mb <= 0 {
		mb = 10
	}
	return int64(mb) << 20
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func IntOrDefault(v string, fallback int) int {
	if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && i > 0 {
		return i
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

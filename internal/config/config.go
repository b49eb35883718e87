package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

const DefaultBaseURL = "https://laptop-kita-3150.vercel.app"

type GoogleConfig struct {
	ClientID      string   `json:"client_id"`
	ClientSecret  string   `json:"client_secret"`
	DeviceAuthURL string   `json:"device_auth_url"`
	TokenURL      string   `json:"token_url"`
	Scopes        []string `json:"scopes"`
}

// TelemetryConfig controls OTLP export. Export is off unless enabled.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"`
	ServiceName string `json:"service_name"`
	Environment string `json:"environment"`
}

type Config struct {
	BaseURL            string          `json:"base_url"`
	Token              string          `json:"token"`
	SessionDB          string          `json:"session_db"`
	RefreshIntervalSec int             `json:"refresh_interval_seconds"`
	Google             GoogleConfig    `json:"google"`
	Telemetry          TelemetryConfig `json:"telemetry"`
	RequestTimeoutSec  int             `json:"-"`
	LogLevel           string          `json:"-"`
}

func Load() Config {
	cfg := Config{}
	loaded := false
	if env := strings.TrimSpace(os.Getenv("LAPTOPKITA_CONFIG")); env != "" {
		if err := json.Unmarshal([]byte(env), &cfg); err == nil {
			loaded = true
		}
	}
	if !loaded {
		paths := []string{os.Getenv("CONFIG_PATH"), "laptopkita.json", "../laptopkita.json"}
		for _, p := range paths {
			if strings.TrimSpace(p) == "" {
				continue
			}
			b, err := os.ReadFile(p)
			if err == nil {
				_ = json.Unmarshal(b, &cfg)
				break
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv("LAPTOPKITA_BASE_URL")); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LAPTOPKITA_TOKEN")); v != "" {
		cfg.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("LAPTOPKITA_SESSION_DB")); v != "" {
		cfg.SessionDB = v
	}
	if v := strings.TrimSpace(os.Getenv("LAPTOPKITA_REFRESH_INTERVAL_SECONDS")); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			cfg.RefreshIntervalSec = i
		}
	}
	applyGoogleEnv(&cfg.Google)
	applyTelemetryEnv(&cfg.Telemetry)

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.SessionDB) == "" {
		cfg.SessionDB = "laptopkita.db"
	}
	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	cfg.RequestTimeoutSec = 30
	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT_SECONDS")); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.RequestTimeoutSec = i
		}
	}
	if len(cfg.Google.Scopes) == 0 {
		cfg.Google.Scopes = []string{"openid", "email", "profile"}
	}
	if strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if strings.TrimSpace(cfg.Telemetry.ServiceName) == "" {
		cfg.Telemetry.ServiceName = "laptopkita"
	}
	if strings.TrimSpace(cfg.Telemetry.Environment) == "" {
		cfg.Telemetry.Environment = "development"
	}
	return cfg
}

func applyTelemetryEnv(t *TelemetryConfig) {
	if v := strings.TrimSpace(os.Getenv("OTEL_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			t.Enabled = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); v != "" {
		t.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")); v != "" {
		t.ServiceName = v
	}
	if v := strings.TrimSpace(os.Getenv("ENVIRONMENT")); v != "" {
		t.Environment = v
	}
}

func applyGoogleEnv(g *GoogleConfig) {
	if v := strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")); v != "" {
		g.ClientID = v
	}
	if v := strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")); v != "" {
		g.ClientSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("GOOGLE_DEVICE_AUTH_URL")); v != "" {
		g.DeviceAuthURL = v
	}
	if v := strings.TrimSpace(os.Getenv("GOOGLE_TOKEN_URL")); v != "" {
		g.TokenURL = v
	}
}

func (c Config) SignInConfigured() bool {
	return strings.TrimSpace(c.Google.ClientID) != ""
}

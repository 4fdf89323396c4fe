package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel   OTelConfig
	GitHub GitHubConfig
	App    GitHubAppConfig
	Relay  RelayConfig
	Topics TopicsConfig
	Env    string
	Port   string
	NodeID int64
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type GitHubConfig struct {
	Owner      string
	Repo       string // empty selects image-basename mode
	Token      string
	APIURL     string
	APIVersion string
	Timeout    time.Duration
}

type GitHubAppConfig struct {
	AppID          int64
	PrivateKey     []byte
	InstallationID int64 // zero enables installation auto-discovery
}

type RelayConfig struct {
	EventType     string
	WebhookSecret string
}

type TopicsConfig struct {
	Allowed []string
	Mode    string // "any" or "all"
}

// Load loads configuration from environment variables. In development a .env
// file in the working directory is loaded first when present.
//
// Missing credentials are not an error here: the relay still starts, reports
// itself degraded on /healthz and fails webhooks with a configuration error.
// Malformed values (non-numeric IDs, unreadable key files, unknown modes) are.
func Load() (Config, error) {
	if getEnv("RELAY_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env:  getEnv("RELAY_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "gh-dispatch-relay"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		GitHub: GitHubConfig{
			Owner:      strings.TrimSpace(getEnv("GH_OWNER", "")),
			Repo:       strings.TrimSpace(getEnv("GH_REPO", "")),
			Token:      strings.TrimSpace(getEnv("GH_TOKEN", "")),
			APIURL:     getEnv("GITHUB_API_URL", "https://api.github.com/"),
			APIVersion: getEnv("GITHUB_API_VERSION", "2022-11-28"),
		},
		Relay: RelayConfig{
			EventType:     getEnv("EVENT_TYPE", "stackrox_copa"),
			WebhookSecret: getEnv("ACS_WEBHOOK_SECRET", ""),
		},
		Topics: TopicsConfig{
			Allowed: splitList(getEnv("ALLOWED_TOPICS", "")),
			Mode:    strings.ToLower(strings.TrimSpace(getEnv("ALLOWED_TOPICS_MODE", "any"))),
		},
	}

	var err error
	if cfg.NodeID, err = getEnvInt64("RELAY_NODE_ID", 0); err != nil {
		return Config{}, err
	}
	if cfg.GitHub.Timeout, err = getEnvDuration("GITHUB_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.App.AppID, err = getEnvInt64("GH_APP_ID", 0); err != nil {
		return Config{}, err
	}
	if cfg.App.InstallationID, err = getEnvInt64("GH_APP_INSTALLATION_ID", 0); err != nil {
		return Config{}, err
	}
	if cfg.App.PrivateKey, err = loadPrivateKey(); err != nil {
		return Config{}, err
	}

	if cfg.Topics.Mode == "" {
		cfg.Topics.Mode = "any"
	}
	if cfg.Topics.Mode != "any" && cfg.Topics.Mode != "all" {
		return Config{}, fmt.Errorf("ALLOWED_TOPICS_MODE must be \"any\" or \"all\", got %q", cfg.Topics.Mode)
	}
	if cfg.GitHub.Timeout <= 0 {
		return Config{}, fmt.Errorf("GITHUB_TIMEOUT must be positive")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c GitHubAppConfig) Enabled() bool {
	return c.AppID != 0 && len(c.PrivateKey) > 0
}

func (c TopicsConfig) Enabled() bool {
	return len(c.Allowed) > 0
}

// StaticRepository reports whether the target repository is fixed by
// configuration rather than derived from the image in each alert.
func (c GitHubConfig) StaticRepository() bool {
	return c.Repo != ""
}

// Ready reports whether every request could in principle be relayed: an owner
// and at least one credential source are configured.
func (c Config) Ready() bool {
	return c.GitHub.Owner != "" && (c.GitHub.Token != "" || c.App.Enabled())
}

// loadPrivateKey reads the App key inline from GH_APP_PRIVATE_KEY or from the
// file named by GH_APP_PRIVATE_KEY_PATH. Inline keys may carry literal "\n"
// sequences, which is how most secret stores flatten PEM blocks.
func loadPrivateKey() ([]byte, error) {
	if inline := getEnv("GH_APP_PRIVATE_KEY", ""); inline != "" {
		return []byte(strings.ReplaceAll(inline, `\n`, "\n")), nil
	}
	path := getEnv("GH_APP_PRIVATE_KEY_PATH", "")
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GH_APP_PRIVATE_KEY_PATH: %w", err)
	}
	return data, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return i, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 10s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

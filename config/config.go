package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/rnp/registry"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Browser     BrowserConfig
	Registry    RegistryConfig
	Concurrency ConcurrencyConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Probe       ProbeConfig
	Log         LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8000 (PORT, then RNP_PORT)
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the per-query Chromium instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in containers).
	NoSandbox bool // default: true

	// SingleProcess runs renderer and browser in one process, for hosts
	// with tight process limits.
	SingleProcess bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is passed to Chromium's --proxy-server.
	Proxy string

	// CDPURL attaches to an already running browser instead of launching
	// one. Each session then gets its own incognito context.
	CDPURL string

	// Stealth enables anti-bot-detection evasions.
	Stealth bool // default: false

	// PageTimeout is the default deadline for every page operation.
	PageTimeout time.Duration // default: 80s

	// BlockedResourceTypes lists resource types to fail without fetching.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// BlockTrackers fails requests to known analytics hosts.
	BlockTrackers bool // default: true

	// ExtraHeaders are sent with every page request.
	ExtraHeaders map[string]string // default: Accept-Language es-PE
}

// RegistryConfig controls the registry query.
type RegistryConfig struct {
	// BaseURL is the supplier-profile application root.
	BaseURL string // default: "https://apps.oece.gob.pe/perfilprov-ui/"

	// QueryTimeout bounds a whole query, browser launch included.
	QueryTimeout time.Duration // default: 3m

	// ReplayDir, when set, serves queries from HTML snapshots in this
	// directory instead of a live browser.
	ReplayDir string
}

// ConcurrencyConfig bounds simultaneous browser sessions.
type ConcurrencyConfig struct {
	// MaxConcurrent is the number of queries allowed in flight.
	MaxConcurrent int // default: 2
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key or client IP.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per identity.
	Burst int // default: 5
}

// ProbeConfig controls the target reachability probe of the health endpoint.
type ProbeConfig struct {
	Timeout time.Duration // default: 5s
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("RNP_HOST", "0.0.0.0"),
			Port: envIntOr("PORT", envIntOr("RNP_PORT", 8000)),
			Mode: envOr("RNP_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:      envBoolOr("RNP_HEADLESS", true),
			NoSandbox:     envBoolOr("RNP_NO_SANDBOX", true),
			SingleProcess: envBoolOr("RNP_SINGLE_PROCESS", true),
			BrowserBin:    os.Getenv("RNP_BROWSER_BIN"),
			Proxy:         os.Getenv("RNP_PROXY"),
			CDPURL:        os.Getenv("RNP_CDP_URL"),
			Stealth:       envBoolOr("RNP_STEALTH", false),
			PageTimeout:   envDurationOr("RNP_PAGE_TIMEOUT", 80*time.Second),
			BlockedResourceTypes: envSliceOr("RNP_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			BlockTrackers: envBoolOr("RNP_BLOCK_TRACKERS", true),
			ExtraHeaders: map[string]string{
				"Accept-Language": envOr("RNP_ACCEPT_LANGUAGE", "es-PE,es;q=0.9"),
			},
		},
		Registry: RegistryConfig{
			BaseURL:      envOr("RNP_BASE_URL", registry.DefaultBaseURL),
			QueryTimeout: envDurationOr("RNP_QUERY_TIMEOUT", 3*time.Minute),
			ReplayDir:    os.Getenv("RNP_REPLAY_DIR"),
		},
		Concurrency: ConcurrencyConfig{
			MaxConcurrent: envIntOr("RNP_MAX_CONCURRENT", 2),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("RNP_AUTH_ENABLED", false),
			APIKeys: envSliceOr("RNP_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("RNP_RATE_RPS", 1.0),
			Burst:             envIntOr("RNP_RATE_BURST", 5),
		},
		Probe: ProbeConfig{
			Timeout: envDurationOr("RNP_PROBE_TIMEOUT", 5*time.Second),
		},
		Log: LogConfig{
			Level:  envOr("RNP_LOG_LEVEL", "info"),
			Format: envOr("RNP_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

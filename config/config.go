package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingBackendURL = errors.New("AGRIBENCH_API_URL is not set")

// Config is the client-side runtime configuration.
type Config struct {
	BackendURL       string
	Token            string
	RequestTimeout   time.Duration
	RateLimitPerMin  int
	RedisAddress     string
	SnapshotLifespan time.Duration
}

func init() {
	// Load env from .env
	godotenv.Load()
}

// Load reads the configuration from the environment. A missing backend URL is
// a hard error so no request is ever built against an empty base.
func Load() (*Config, error) {
	baseURL := strings.TrimSpace(os.Getenv("AGRIBENCH_API_URL"))
	if baseURL == "" {
		return nil, ErrMissingBackendURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("AGRIBENCH_API_URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("AGRIBENCH_API_URL must be an absolute http(s) url, got %q", baseURL)
	}

	return &Config{
		BackendURL:       strings.TrimRight(baseURL, "/"),
		Token:            strings.TrimSpace(os.Getenv("AGRIBENCH_API_TOKEN")),
		RequestTimeout:   time.Duration(intFromEnv("AGRIBENCH_API_TIMEOUT_SECONDS", 30)) * time.Second,
		RateLimitPerMin:  intFromEnv("AGRIBENCH_API_RATE_LIMIT_PER_MIN", 0),
		RedisAddress:     strings.TrimSpace(os.Getenv("REDIS_ADDRESS")),
		SnapshotLifespan: time.Duration(intFromEnv("CACHE_LIFESPAN", 1)) * time.Hour,
	}, nil
}

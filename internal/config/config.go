package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"redirect-manager/internal/tokenhash"
)

// DefaultHopByHopHeaders is stripped from proxied requests and responses
// unless PROXY_HOP_BY_HOP_HEADERS overrides the set.
var DefaultHopByHopHeaders = []string{
	"connection",
	"keep-alive",
	"proxy-authenticate",
	"proxy-authorization",
	"te",
	"trailer",
	"transfer-encoding",
	"upgrade",
}

type Config struct {
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	RequestTimeout     time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	JWTSecret         string
	TokenHashPeppers  []string
	TokenHashAlgo     string
	PasswordHashCost  int
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration

	CacheEnabled bool
	CacheTTL     time.Duration

	ProxyTargetURL      string
	ProxyTimeout        time.Duration
	ProxyHopByHop       []string
	ProxyCustomHeaders  map[string]string

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int

	// Optional first admin account, created at startup when missing.
	BootstrapAdminUsername string
	BootstrapAdminPassword string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		ServerReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 2)),

		JWTSecret:        strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TokenHashPeppers: splitCSV(strings.TrimSpace(os.Getenv("TOKEN_HASH_PEPPERS"))),
		TokenHashAlgo:    getEnv("TOKEN_HASH_ALGORITHM", tokenhash.AlgorithmSHA256),
		PasswordHashCost: getInt("PASSWORD_HASH_COST", 10),
		AccessTokenTTL:   getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  getDuration("REFRESH_TOKEN_TTL", 72*time.Hour),

		CacheEnabled: getBool("CACHE_ENABLED", true),
		CacheTTL:     getDuration("CACHE_TTL", 60*time.Second),

		ProxyTargetURL: getEnv("PROXY_TARGET_URL", "https://example.com"),
		ProxyTimeout:   getDuration("PROXY_TIMEOUT", 10*time.Second),
		ProxyHopByHop:  splitCSV(strings.TrimSpace(os.Getenv("PROXY_HOP_BY_HOP_HEADERS"))),

		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:     getInt("RATE_LIMIT_RPM", 0),
		AuthRateLimitRPM: getInt("AUTH_RATE_LIMIT_RPM", 10),

		BootstrapAdminUsername: strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_USERNAME")),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}

	if len(cfg.ProxyHopByHop) == 0 {
		cfg.ProxyHopByHop = DefaultHopByHopHeaders
	}

	customHeaders, err := parseCustomHeaders(strings.TrimSpace(os.Getenv("PROXY_CUSTOM_HEADERS")))
	if err != nil {
		return nil, err
	}
	cfg.ProxyCustomHeaders = customHeaders

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET is required and must be at least 16 characters")
	}

	if len(c.TokenHashPeppers) == 0 {
		return fmt.Errorf("TOKEN_HASH_PEPPERS requires at least one pepper")
	}

	if c.TokenHashAlgo != tokenhash.AlgorithmSHA256 && c.TokenHashAlgo != tokenhash.AlgorithmSHA512 {
		return fmt.Errorf("TOKEN_HASH_ALGORITHM must be sha256 or sha512")
	}

	if c.PasswordHashCost < 4 {
		return fmt.Errorf("PASSWORD_HASH_COST must be at least 4")
	}

	if _, err := url.Parse(c.ProxyTargetURL); err != nil || c.ProxyTargetURL == "" {
		return fmt.Errorf("PROXY_TARGET_URL must be a valid URL")
	}

	if c.ProxyTimeout <= 0 {
		return fmt.Errorf("PROXY_TIMEOUT must be positive")
	}

	if c.CacheEnabled && c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive when the cache is enabled")
	}

	return nil
}

func parseCustomHeaders(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}

	headers := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &headers); err != nil {
		return nil, fmt.Errorf("PROXY_CUSTOM_HEADERS must be a JSON object with string values: %w", err)
	}
	return headers, nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}

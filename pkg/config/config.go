// Package config loads process configuration: .env, then an optional YAML
// file, then environment variables, each layer overriding the previous one.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"draftbff/pkg/credentials"
	"draftbff/pkg/shop"
)

const (
	DefaultPort            = "8080"
	DefaultAPIVersion      = "2025-01"
	DefaultUpstreamTimeout = 30 * time.Second
	DefaultTokenClockSkew  = 10 * time.Second
)

// Session store backends.
const (
	StoreNone     = ""
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	Env      string `yaml:"env"`
	Port     string `yaml:"port"`
	HTTPAddr string `yaml:"-"`

	// Shop is the canonical domain single-tenant deployments serve. Optional
	// for multi-tenant strategies, enforced when set.
	Shop        string `yaml:"shop"`
	APIKey      string `yaml:"api_key"`
	APISecret   string `yaml:"api_secret"`
	AccessToken string `yaml:"access_token"`
	APIVersion  string `yaml:"api_version"`

	Strategy      credentials.Strategy `yaml:"auth_strategy"`
	TokenExchange bool                 `yaml:"token_exchange"`

	SessionStore     string `yaml:"session_store"`
	RedisURL         string `yaml:"redis_url"`
	DatabaseURL      string `yaml:"database_url"`
	SessionTable     string `yaml:"session_table"`
	SessionKeyPrefix string `yaml:"session_key_prefix"`
	SessionSeedJSON  string `yaml:"session_seed_json"`

	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	UpstreamTimeout    time.Duration `yaml:"upstream_timeout"`
	TokenClockSkew     time.Duration `yaml:"token_clock_skew"`
}

// ValidationError lists every missing or invalid setting at once.
type ValidationError struct {
	Strategy credentials.Strategy
	Missing  []string
	Invalid  []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return fmt.Sprintf("config (strategy %s): %s", e.Strategy, strings.Join(parts, "; "))
}

// Load builds and validates the configuration. A non-nil error means the
// process must not start serving.
func Load() (Config, error) {
	_ = godotenv.Load()
	cfg := Config{}
	if path := os.Getenv("BFF_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Env = env("BFF_ENV", c.Env)
	c.Port = env("PORT", c.Port)
	c.Shop = env("SHOPIFY_SHOP", c.Shop)
	c.APIKey = env("SHOPIFY_API_KEY", c.APIKey)
	c.APISecret = env("SHOPIFY_API_SECRET", c.APISecret)
	c.AccessToken = env("SHOPIFY_ACCESS_TOKEN", c.AccessToken)
	c.APIVersion = env("SHOPIFY_API_VERSION", c.APIVersion)
	c.TokenExchange = envBool("SHOPIFY_TOKEN_EXCHANGE", c.TokenExchange)
	c.SessionStore = strings.ToLower(env("SESSION_STORE", c.SessionStore))
	c.RedisURL = env("REDIS_URL", c.RedisURL)
	c.DatabaseURL = env("DATABASE_URL", c.DatabaseURL)
	c.SessionTable = env("SESSION_TABLE", c.SessionTable)
	c.SessionKeyPrefix = env("SESSION_KEY_PREFIX", c.SessionKeyPrefix)
	c.SessionSeedJSON = env("SESSION_SEED_JSON", c.SessionSeedJSON)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}
	c.UpstreamTimeout = envSeconds("UPSTREAM_TIMEOUT_SEC", c.UpstreamTimeout)
	c.TokenClockSkew = envSeconds("TOKEN_CLOCK_SKEW_SEC", c.TokenClockSkew)

	if v := os.Getenv("AUTH_STRATEGY"); v != "" {
		s, err := credentials.ParseStrategy(v)
		if err != nil {
			return fmt.Errorf("AUTH_STRATEGY: %w", err)
		}
		c.Strategy = s
	} else if c.Strategy != "" {
		s, err := credentials.ParseStrategy(string(c.Strategy))
		if err != nil {
			return fmt.Errorf("auth_strategy: %w", err)
		}
		c.Strategy = s
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.Port == "" {
		c.Port = DefaultPort
	}
	c.HTTPAddr = ":" + strings.TrimPrefix(c.Port, ":")
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.UpstreamTimeout <= 0 {
		c.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if c.TokenClockSkew <= 0 {
		c.TokenClockSkew = DefaultTokenClockSkew
	}
	c.Shop = shop.Normalize(c.Shop)
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.APISecret = strings.TrimSpace(c.APISecret)
	c.AccessToken = strings.TrimSpace(c.AccessToken)
	if c.SessionStore == StoreNone {
		switch {
		case c.DatabaseURL != "" && c.Strategy == credentials.StrategySession:
			c.SessionStore = StorePostgres
		case c.RedisURL != "" && c.Strategy == credentials.StrategySession:
			c.SessionStore = StoreRedis
		}
	}
	if c.Strategy == "" {
		c.Strategy = c.InferStrategy()
	}
	if c.Strategy == credentials.StrategySession && c.SessionStore == StoreNone {
		c.SessionStore = StoreMemory
	}
}

// InferStrategy picks the credential strategy from what is configured: a
// static token wins, then a session store, then token exchange when
// requested, else the client-credentials grant.
func (c Config) InferStrategy() credentials.Strategy {
	switch {
	case strings.TrimSpace(c.AccessToken) != "":
		return credentials.StrategyStatic
	case c.SessionStore != StoreNone:
		return credentials.StrategySession
	case c.TokenExchange:
		return credentials.StrategyTokenExchange
	default:
		return credentials.StrategyClientCredentials
	}
}

// Validate checks the preconditions of the selected strategy.
func (c Config) Validate() error {
	ve := &ValidationError{Strategy: c.Strategy}
	need := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			ve.Missing = append(ve.Missing, name)
		}
	}

	// Every strategy verifies inbound session tokens with the app secret.
	need("SHOPIFY_API_SECRET", c.APISecret)
	switch c.Strategy {
	case credentials.StrategyStatic:
		need("SHOPIFY_SHOP", c.Shop)
		need("SHOPIFY_ACCESS_TOKEN", c.AccessToken)
	case credentials.StrategyClientCredentials:
		need("SHOPIFY_SHOP", c.Shop)
		need("SHOPIFY_API_KEY", c.APIKey)
	case credentials.StrategyTokenExchange:
		need("SHOPIFY_API_KEY", c.APIKey)
	case credentials.StrategySession:
		switch c.SessionStore {
		case StoreMemory:
		case StoreRedis:
			need("REDIS_URL", c.RedisURL)
		case StorePostgres:
			need("DATABASE_URL", c.DatabaseURL)
		default:
			ve.Invalid = append(ve.Invalid, fmt.Sprintf("SESSION_STORE=%q", c.SessionStore))
		}
	default:
		ve.Invalid = append(ve.Invalid, fmt.Sprintf("AUTH_STRATEGY=%q", c.Strategy))
	}
	if len(ve.Missing) == 0 && len(ve.Invalid) == 0 {
		return nil
	}
	return ve
}

// IsValidationError reports whether err came from Validate.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func env(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	}
	return def
}

func envSeconds(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i <= 0 {
			return def
		}
		return time.Duration(i) * time.Second
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

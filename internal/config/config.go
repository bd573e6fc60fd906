// Package config loads the broker configuration from YAML with
// environment variable overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ProviderCreds struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Configured reports whether credentials were supplied; platforms
// without them are simply not mounted.
func (p ProviderCreds) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// BaseURL is the externally visible origin, used to build the
		// redirect_uri handed to providers.
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Session struct {
		Issuer string `yaml:"issuer"`
		Secret string `yaml:"secret"`
		TTL    string `yaml:"ttl"`
		Secure bool   `yaml:"secure"`
	} `yaml:"session"`

	Cookies struct {
		// Secret signs the short-lived flow cookies (state, nonce,
		// intent, aux). Falls back to the session secret when empty.
		Secret string `yaml:"secret"`
	} `yaml:"cookies"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Storage struct {
		Driver string `yaml:"driver"` // memory | postgres
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		MaxRequests int    `yaml:"max_requests"`
		Window      string `yaml:"window"`
	} `yaml:"rate"`

	Providers struct {
		Discord   ProviderCreds `yaml:"discord"`
		GitHub    ProviderCreds `yaml:"github"`
		Twitch    ProviderCreds `yaml:"twitch"`
		Twitter   ProviderCreds `yaml:"twitter"`
		Minecraft ProviderCreds `yaml:"minecraft"`
	} `yaml:"providers"`
}

func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Session.Issuer == "" {
		c.Session.Issuer = "pronounhub"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "8760h" // 1y
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "pending:"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 30
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}

	c.applyEnvOverrides()

	if c.Cookies.Secret == "" {
		c.Cookies.Secret = c.Session.Secret
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("config: session.secret is required")
	}
	if _, err := time.ParseDuration(c.Session.TTL); err != nil {
		return fmt.Errorf("config: session.ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.Rate.Window); err != nil {
		return fmt.Errorf("config: rate.window: %w", err)
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: cache.kind %q (want memory or redis)", c.Cache.Kind)
	}
	switch c.Storage.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("config: storage.driver %q (want memory or postgres)", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("config: storage.dsn is required for postgres")
	}
	return nil
}

// SessionTTL returns the parsed session lifetime. Validate has already
// checked the string parses.
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Session.TTL)
	return d
}

func (c *Config) RateWindow() time.Duration {
	d, _ := time.ParseDuration(c.Rate.Window)
	return d
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = strings.ToLower(v)
	}

	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}

	if v, ok := getEnvStr("SESSION_SECRET"); ok {
		c.Session.Secret = v
	}
	if v, ok := getEnvStr("SESSION_TTL"); ok {
		c.Session.TTL = v
	}
	if v, ok := getEnvBool("SESSION_SECURE"); ok {
		c.Session.Secure = v
	}
	if v, ok := getEnvStr("COOKIE_SECRET"); ok {
		c.Cookies.Secret = v
	}

	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}

	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}

	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}

	overrideCreds := func(prefix string, p *ProviderCreds) {
		if v, ok := getEnvStr(prefix + "_CLIENT_ID"); ok {
			p.ClientID = v
		}
		if v, ok := getEnvStr(prefix + "_CLIENT_SECRET"); ok {
			p.ClientSecret = v
		}
	}
	overrideCreds("DISCORD", &c.Providers.Discord)
	overrideCreds("GITHUB", &c.Providers.GitHub)
	overrideCreds("TWITCH", &c.Providers.Twitch)
	overrideCreds("TWITTER", &c.Providers.Twitter)
	overrideCreds("MINECRAFT", &c.Providers.Minecraft)

	// prod never runs with insecure cookies
	if c.App.Env == "prod" {
		c.Session.Secure = true
	}
}

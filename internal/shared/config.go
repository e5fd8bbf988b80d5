package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	// DefaultTimeout bounds every call to the provider.
	DefaultTimeout = 3 * time.Second
	// DefaultLifetime is assumed when the provider omits expires_in.
	DefaultLifetime = 3600 * time.Second
	// DefaultRefreshMargin is how long before expiry a token is refreshed.
	DefaultRefreshMargin = 60 * time.Second
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	HTTP     HTTPConfig     `toml:"http"`
	Session  SessionConfig  `toml:"session"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// ProviderConfig contains OAuth client credentials and catalog endpoints.
type ProviderConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	Scope        string `toml:"scope"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
	APIBaseURL   string `toml:"api_base_url"`
}

// Scopes splits the space separated scope string.
func (p ProviderConfig) Scopes() []string {
	return strings.Fields(p.Scope)
}

// HTTPConfig contains outbound request settings.
type HTTPConfig struct {
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
}

// Timeout returns the configured request timeout, falling back to [DefaultTimeout].
func (h HTTPConfig) Timeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// SessionConfig contains token lifecycle and cookie settings.
type SessionConfig struct {
	DefaultLifetimeSeconds int    `toml:"default_lifetime_seconds"`
	RefreshMarginSeconds   int    `toml:"refresh_margin_seconds"`
	CookieName             string `toml:"cookie_name"`
	Secret                 string `toml:"secret"`
	CookieTTLHours         int    `toml:"cookie_ttl_hours"`
}

// DefaultLifetime returns the lifetime assumed when the provider omits expires_in.
func (s SessionConfig) DefaultLifetime() time.Duration {
	if s.DefaultLifetimeSeconds <= 0 {
		return DefaultLifetime
	}
	return time.Duration(s.DefaultLifetimeSeconds) * time.Second
}

// RefreshMargin returns how early before expiry a refresh is triggered.
func (s SessionConfig) RefreshMargin() time.Duration {
	if s.RefreshMarginSeconds <= 0 {
		return DefaultRefreshMargin
	}
	return time.Duration(s.RefreshMarginSeconds) * time.Second
}

// CookieTTL returns the session cookie lifetime.
func (s SessionConfig) CookieTTL() time.Duration {
	if s.CookieTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.CookieTTLHours) * time.Hour
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr joins host and port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports missing provider settings required for the authorization code flow.
func (c *Config) Validate() error {
	p := c.Provider
	switch {
	case p.ClientID == "" || p.ClientSecret == "":
		return fmt.Errorf("%w: client_id and client_secret must be set", ErrMissingCredentials)
	case p.RedirectURI == "":
		return fmt.Errorf("%w: redirect_uri must be set", ErrInvalidConfig)
	case p.AuthURL == "" || p.TokenURL == "" || p.APIBaseURL == "":
		return fmt.Errorf("%w: provider endpoints must be set", ErrInvalidConfig)
	}
	return nil
}

package models

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL      = "https://api.fabric.microsoft.com/v1"
	DefaultAuthorityURL = "https://login.microsoftonline.com"
	DefaultScope        = "https://api.fabric.microsoft.com/.default"
)

// fabricctl configuration
type Configuration struct {
	// Fabric REST API base address, including the version segment
	BaseURL string `yaml:"base_url"`
	// Microsoft Entra ID authority
	AuthorityURL string `yaml:"authority_url"`
	// Directory (tenant) of the service principal
	TenantID string `yaml:"tenant_id"`
	// Application (client) id of the service principal
	ClientID string `yaml:"client_id"`
	// Client secret of the service principal
	ClientSecret *SecretRef `yaml:"client_secret"`
	// Pre-acquired bearer token, takes precedence over client credentials
	Token *SecretRef `yaml:"token"`
	// OAuth2 scope requested for the token
	Scope string `yaml:"scope"`
	// Timeout of a single HTTP request
	Timeout time.Duration `yaml:"timeout"`
	// Delay between polls when the service sends no Retry-After
	PollInterval time.Duration `yaml:"poll_interval"`
	// Upper bound for waiting on a long running operation
	PollTimeout time.Duration `yaml:"poll_timeout"`
	// Retries for throttled or unavailable responses
	MaxRetries int `yaml:"max_retries"`
	// Requests per second
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
	// Log level (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
	// Rego policy guarding mutating requests
	Policy string `yaml:"policy"`
}

// Configuration with every default applied
func NewConfiguration() *Configuration {
	c := &Configuration{}
	c.setDefaults()
	return c
}

// Load a YAML configuration file
func ReadConfiguration(path string) (*Configuration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := Configuration{}
	err = yaml.NewDecoder(f).Decode(&c)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	c.setDefaults()
	return &c, nil
}

// Override fields from FABRIC_* environment variables
func (c *Configuration) ApplyEnv(getenv func(string) string) {
	if v := getenv("FABRIC_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := getenv("FABRIC_TENANT_ID"); v != "" {
		c.TenantID = v
	}
	if v := getenv("FABRIC_CLIENT_ID"); v != "" {
		c.ClientID = v
	}
	if getenv("FABRIC_CLIENT_SECRET") != "" {
		c.ClientSecret = &SecretRef{Provider: "env", ID: "FABRIC_CLIENT_SECRET"}
	}
	if getenv("FABRIC_TOKEN") != "" {
		c.Token = &SecretRef{Provider: "env", ID: "FABRIC_TOKEN"}
	}
	if v := getenv("FABRIC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("FABRIC_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
}

func (c *Configuration) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.AuthorityURL == "" {
		c.AuthorityURL = DefaultAuthorityURL
	}
	if c.Scope == "" {
		c.Scope = DefaultScope
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = 30 * time.Minute
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RateLimit == 0 {
		c.RateLimit = 10
	}
	if c.RateBurst == 0 {
		c.RateBurst = 5
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-jose/go-jose/v4"
	"gopkg.in/yaml.v3"
)

var HTTPClient = &http.Client{Timeout: time.Second * 10}

type StringList []string

// fabric-mock-server configuration
type ServerConfiguration struct {
	// IP address and port to listen on
	Listen string `yaml:"host"`
	// Log level (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
	// Maximum entries per list page
	PageSize int `yaml:"page_size"`
	// Polls an operation answers before it completes
	OperationPolls int `yaml:"operation_polls"`
	// Seconds advertised in Retry-After
	RetryAfter int `yaml:"retry_after"`
	// Accepted token audiences, empty accepts any
	Audience StringList `yaml:"audience"`
	// Trusted token issuers, empty disables signature validation
	Issuers map[string]*Issuer `yaml:"issuers"`
	// Supported JWT token algorithms
	Algorithms []jose.SignatureAlgorithm `yaml:"algorithms"`
	// Capacities present at startup
	Capacities []Capacity `yaml:"capacities"`

	issuersByUri map[string]*Issuer
}

func NewServerConfiguration() *ServerConfiguration {
	c := &ServerConfiguration{}
	c.setDefaults()
	return c
}

// Load a YAML mock server configuration file
func ReadServerConfiguration(path string) (*ServerConfiguration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := ServerConfiguration{}
	err = yaml.NewDecoder(f).Decode(&c)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	c.setDefaults()
	return &c, nil
}

func (c *ServerConfiguration) setDefaults() {
	if len(c.Algorithms) == 0 {
		c.Algorithms = []jose.SignatureAlgorithm{jose.RS256}
	}
	if c.Issuers == nil {
		c.Issuers = map[string]*Issuer{}
	}
	for name, issuer := range c.Issuers {
		issuer.Name = name
	}
	if c.Listen == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3502"
		}
		c.Listen = "0.0.0.0:" + port
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PageSize == 0 {
		c.PageSize = 100
	}
	if c.OperationPolls == 0 {
		c.OperationPolls = 1
	}
}

// Get issuer by URI
func (c *ServerConfiguration) GetIssuer(uri string) *Issuer {
	if c.issuersByUri == nil {
		c.issuersByUri = map[string]*Issuer{}
	}
	iss, ok := c.issuersByUri[uri]
	if !ok {
		for _, i := range c.Issuers {
			if i.Issuer == uri {
				c.issuersByUri[uri] = i
				return i
			}
		}
		c.issuersByUri[uri] = nil
		return nil
	}
	return iss
}

func (c *ServerConfiguration) PreloadJWKS(ctx context.Context) error {
	for _, issuer := range c.Issuers {
		if err := issuer.LoadJWKS(ctx, HTTPClient); err != nil {
			return err
		}
	}
	return nil
}

func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = []string{node.Value}
	case yaml.SequenceNode:
		for _, value := range node.Content {
			if value.Kind != yaml.ScalarNode {
				return fmt.Errorf("invalid node kind: %v", value.Kind)
			}
			*s = append(*s, value.Value)
		}
	default:
		return fmt.Errorf("invalid node kind: %v", node.Kind)
	}
	return nil
}

package providers

import (
	"context"
	"maps"
)

// Literal values embedded in the configuration
type StringProvider struct{}

func NewStringProvider() *StringProvider {
	return &StringProvider{}
}

func (p *StringProvider) Read(ctx context.Context, secrets map[string]string) (map[string]string, error) {
	return maps.Clone(secrets), nil
}

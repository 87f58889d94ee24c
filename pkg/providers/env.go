package providers

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
)

type EnvProvider struct {
	GetEnv func(string) string
}

func NewEnvProvider() *EnvProvider {
	return &EnvProvider{
		GetEnv: os.Getenv,
	}
}

func (p *EnvProvider) Read(ctx context.Context, secrets map[string]string) (map[string]string, error) {
	result := make(map[string]string, len(secrets))
	for name, key := range secrets {
		result[name] = p.GetEnv(key)
		if result[name] == "" {
			log.Warn().Str("secret", name).Str("env", key).Msg("env variable is empty")
		}
	}
	return result, nil
}

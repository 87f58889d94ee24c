package providers

import (
	"context"
	"fmt"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/rs/zerolog/log"
)

// Reads secrets in bulk: name -> provider-specific id in, name -> value out
type SecretProvider interface {
	Read(ctx context.Context, secrets map[string]string) (map[string]string, error)
}

type Resolver struct {
	providers map[string]SecretProvider
}

func NewResolver() *Resolver {
	return &Resolver{
		providers: map[string]SecretProvider{},
	}
}

func (r *Resolver) WithDefaultProviders() *Resolver {
	r.Add("env", NewEnvProvider())
	r.Add("string", NewStringProvider())
	r.Add("file", NewFileProvider())
	r.Add("aws.ssm", NewSSMProvider())
	r.Add("kubernetes.secret", NewKubernetesProvider())
	return r
}

func (r *Resolver) Add(id string, provider SecretProvider) {
	r.providers[id] = provider
}

// Resolve named references, one Read per provider
func (r *Resolver) Resolve(ctx context.Context, refs map[string]models.SecretRef) (map[string]string, error) {
	byProvider := map[string]map[string]string{}
	for name, ref := range refs {
		if r.providers[ref.Provider] == nil {
			log.Warn().
				Str("provider", ref.Provider).
				Str("secret", name).
				Msg("unknown secret provider")
			continue
		}
		if byProvider[ref.Provider] == nil {
			byProvider[ref.Provider] = map[string]string{}
		}
		byProvider[ref.Provider][name] = ref.ID
	}

	resolved := make(map[string]string, len(refs))
	for id, secrets := range byProvider {
		values, err := r.providers[id].Read(ctx, secrets)
		if err != nil {
			return nil, fmt.Errorf("%s provider: %w", id, err)
		}
		for name, value := range values {
			resolved[name] = value
		}
	}

	return resolved, nil
}

// Resolve a single reference, an empty value is an error
func (r *Resolver) ResolveOne(ctx context.Context, ref models.SecretRef) (string, error) {
	values, err := r.Resolve(ctx, map[string]models.SecretRef{"value": ref})
	if err != nil {
		return "", err
	}
	if values["value"] == "" {
		return "", fmt.Errorf("secret %s resolved to an empty value", ref)
	}
	return values["value"], nil
}

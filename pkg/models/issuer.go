package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-jose/go-jose/v4"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type JWKS jose.JSONWebKeySet

// Token issuer trusted by the mock server
type Issuer struct {
	Name string `json:"name" yaml:"-"`
	// The issuer's URL, e.g. https://sts.windows.net/<tenant>/
	Issuer string `json:"issuer"`
	// The URI to obtain the JWKS from
	JWKSURI string `json:"jwks_uri,omitempty" yaml:"jwks_uri,omitempty"`
	// The content of the JWKS
	JWKS *JWKS `json:"jwks,omitempty"`
}

// Resolve the issuer's JWKS using OIDC discovery or the configured JWKS URI
func (i *Issuer) LoadJWKS(ctx context.Context, client *http.Client) error {
	if i.JWKS != nil {
		return nil
	}

	if i.JWKSURI == "" {
		var oidcConfig struct {
			JwksUri string `json:"jwks_uri"`
		}
		err := getJSON(ctx, client, i.Issuer+"/.well-known/openid-configuration", &oidcConfig)
		if err != nil {
			return fmt.Errorf("openid-configuration of issuer %s: %w", i.Issuer, err)
		}
		i.JWKSURI = oidcConfig.JwksUri
		log.Debug().Str("issuer", i.Issuer).Str("jwks_uri", i.JWKSURI).Msg("discovered jwks_uri of issuer")
	}

	var jwks jose.JSONWebKeySet
	if err := getJSON(ctx, client, i.JWKSURI, &jwks); err != nil {
		return fmt.Errorf("jwks of issuer %s: %w", i.Issuer, err)
	}
	if len(jwks.Keys) == 0 {
		return fmt.Errorf("jwks uri %s returned no keys", i.JWKSURI)
	}

	i.JWKS = &JWKS{jwks.Keys}
	log.Debug().Str("issuer", i.Issuer).Int("keys", len(i.JWKS.Keys)).Msg("loaded jwks of issuer")
	return nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status code %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (o *JWKS) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid node kind: %v", node.Kind)
	}
	var jwks jose.JSONWebKeySet
	if err := json.Unmarshal([]byte(node.Value), &jwks); err != nil {
		return fmt.Errorf("failed to unmarshal JWKS: %v", err)
	}
	o.Keys = jwks.Keys
	return nil
}

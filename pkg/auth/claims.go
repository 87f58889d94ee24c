package auth

import (
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var allAlgorithms = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.PS384, jose.PS512,
}

// Identity claims of an Entra ID access token
type Claims struct {
	jwt.Claims
	ObjectID string `json:"oid,omitempty"`
	UPN      string `json:"upn,omitempty"`
	AppID    string `json:"appid,omitempty"`
	TenantID string `json:"tid,omitempty"`
}

// Decode the claims of a token without verifying its signature. The service
// verifies the token, fabricctl only reads who it is acting as.
func ParseClaims(token string) (*Claims, error) {
	j, err := jwt.ParseSigned(token, allAlgorithms)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	var claims Claims
	if err := j.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// Claims as a plain map for the guard policy input
func (c *Claims) Identity() map[string]any {
	identity := map[string]any{
		"oid":   c.ObjectID,
		"upn":   c.UPN,
		"appid": c.AppID,
		"tid":   c.TenantID,
		"sub":   c.Subject,
	}
	if len(c.Audience) > 0 {
		identity["aud"] = []string(c.Audience)
	}
	return identity
}

package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/fabricops/fabricctl/pkg/providers"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rsaKey *rsa.PrivateKey

func init() {
	log.Logger = zerolog.Nop()
	rsaKey, _ = rsa.GenerateKey(rand.Reader, 2048)
}

func sign(claims map[string]any) string {
	signer, _ := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: rsaKey}, &jose.SignerOptions{
		ExtraHeaders: map[jose.HeaderKey]any{"typ": "JWT"},
	})
	token, _ := jwt.Signed(signer).Claims(claims).Serialize()
	return token
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	token := sign(map[string]any{
		"aud":   "https://api.fabric.microsoft.com",
		"oid":   "oid-1",
		"upn":   "ops@contoso.com",
		"appid": "app-1",
		"tid":   "tenant-1",
		"sub":   "subject",
		"exp":   exp,
	})

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "oid-1", claims.ObjectID)
	assert.Equal(t, exp, claims.Expiry.Time().Unix())
	assert.Equal(t, map[string]any{
		"oid":   "oid-1",
		"upn":   "ops@contoso.com",
		"appid": "app-1",
		"tid":   "tenant-1",
		"sub":   "subject",
		"aud":   []string{"https://api.fabric.microsoft.com"},
	}, claims.Identity())

	_, err = ParseClaims("not-a-jwt")
	assert.Error(t, err)
}

func TestStaticTokenSource(t *testing.T) {
	valid := sign(map[string]any{"exp": time.Now().Add(time.Hour).Unix()})
	tok, err := StaticTokenSource("Bearer " + valid).Token()
	require.NoError(t, err)
	assert.Equal(t, valid, tok.AccessToken)
	assert.False(t, tok.Expiry.IsZero())

	expired := sign(map[string]any{"exp": time.Now().Add(-time.Hour).Unix()})
	_, err = StaticTokenSource(expired).Token()
	assert.ErrorContains(t, err, "expired")

	opaque, err := StaticTokenSource("opaque-token").Token()
	require.NoError(t, err)
	assert.True(t, opaque.Expiry.IsZero())
}

func TestClientCredentials(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/tenant-1/oauth2/v2.0/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		assert.Equal(t, "s3cret", r.PostForm.Get("client_secret"))
		assert.Equal(t, models.DefaultScope, r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "issued-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	cfg := models.NewConfiguration()
	cfg.AuthorityURL = server.URL + "/"
	cfg.TenantID = "tenant-1"
	cfg.ClientID = "client-1"
	cfg.ClientSecret = &models.SecretRef{Provider: "string", ID: "s3cret"}

	ts, err := NewTokenSource(context.TODO(), cfg, providers.NewResolver().WithDefaultProviders(), server.Client())
	require.NoError(t, err)

	for range 3 {
		tok, err := ts.Token()
		require.NoError(t, err)
		assert.Equal(t, "issued-token", tok.AccessToken)
	}
	assert.Equal(t, 1, requests, "token is reused until expiry")
}

func TestNewTokenSourceStatic(t *testing.T) {
	cfg := models.NewConfiguration()
	cfg.Token = &models.SecretRef{Provider: "string", ID: "opaque"}
	ts, err := NewTokenSource(context.TODO(), cfg, providers.NewResolver().WithDefaultProviders(), nil)
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "opaque", tok.AccessToken)
}

func TestNewTokenSourceMissing(t *testing.T) {
	_, err := NewTokenSource(context.TODO(), models.NewConfiguration(), providers.NewResolver(), nil)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestTokenURL(t *testing.T) {
	assert.Equal(t,
		"https://login.microsoftonline.com/contoso/oauth2/v2.0/token",
		TokenURL(models.DefaultAuthorityURL, "contoso"))
}

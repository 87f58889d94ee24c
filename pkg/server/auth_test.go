package server

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
)

const (
	testIssuer   = "https://sts.windows.net/00000000-0000-0000-0000-000000000001/"
	testAudience = "https://api.fabric.microsoft.com"
)

var rsaKey *rsa.PrivateKey
var jwks *jose.JSONWebKeySet

func init() {
	gin.SetMode(gin.TestMode)

	rsaKey, _ = rsa.GenerateKey(rand.Reader, 2048)
	jwks = &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:   &rsaKey.PublicKey,
				KeyID: "someKeyID",
				Use:   "sig",
			},
		},
	}
}

func signWithKid(kid string, claims map[string]any) string {
	signer, _ := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: rsaKey}, &jose.SignerOptions{
		ExtraHeaders: map[jose.HeaderKey]any{
			jose.HeaderKey("kid"): kid,
			jose.HeaderKey("typ"): "JWT",
		},
	})
	token, _ := jwt.Signed(signer).Claims(claims).Serialize()
	return token
}

func sign(claims map[string]any) string {
	return signWithKid("someKeyID", claims)
}

func signWrongAlg() string {
	key := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	signer, _ := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: key}, &jose.SignerOptions{})
	token, _ := jwt.Signed(signer).Claims(map[string]any{
		"iss": testIssuer,
		"aud": testAudience,
	}).Serialize()
	return token
}

func testServerConfiguration() *models.ServerConfiguration {
	cfg := models.NewServerConfiguration()
	cfg.Audience = models.StringList{testAudience}
	cfg.Issuers = map[string]*models.Issuer{
		"entra": {
			Name:   "entra",
			Issuer: testIssuer,
			JWKS:   &models.JWKS{Keys: jwks.Keys},
		},
	}
	return cfg
}

func TestValidToken(t *testing.T) {
	cfg := testServerConfiguration()

	cases := map[string]struct {
		token   string
		code    int
		errCode string
		message string
		reason  string
	}{
		"valid": {
			code: 200,
			token: sign(map[string]any{
				"iss": testIssuer,
				"aud": testAudience,
				"oid": "user",
				"exp": time.Now().Add(time.Minute).Unix(),
				"nbf": time.Now().Add(-2 * time.Minute).Unix(),
			}),
		},
		"audience": {
			code: 401,
			token: sign(map[string]any{
				"iss": testIssuer,
				"aud": "wrong-audience",
			}),
			errCode: "InvalidToken",
			message: "go-jose/go-jose/jwt: validation failed, invalid audience claim (aud)",
			reason:  "invalid:claims:aud",
		},
		"issuer": {
			code: 401,
			token: sign(map[string]any{
				"iss": "unsupported-issuer",
				"aud": testAudience,
			}),
			errCode: "InvalidToken",
			message: "invalid token issuer",
			reason:  "invalid:claims:iss",
		},
		"garbage": {
			code:    401,
			token:   "aaa",
			errCode: "InvalidToken",
			message: "invalid token or algorithm",
			reason:  "invalid:jwt",
		},
		"empty json": {
			code:    401,
			token:   "e30K.e30K.aaaa",
			errCode: "InvalidToken",
			message: "invalid token or algorithm",
			reason:  "invalid:jwt",
		},
		"expired": {
			code: 401,
			token: sign(map[string]any{
				"iss": testIssuer,
				"aud": testAudience,
				"exp": time.Now().Add(-2 * time.Minute).Unix(),
			}),
			errCode: "TokenExpired",
			message: "go-jose/go-jose/jwt: validation failed, token is expired (exp)",
			reason:  "invalid:claims:exp",
		},
		"not yet valid": {
			code: 401,
			token: sign(map[string]any{
				"iss": testIssuer,
				"aud": testAudience,
				"nbf": time.Now().Add(2 * time.Minute).Unix(),
			}),
			errCode: "InvalidToken",
			message: "go-jose/go-jose/jwt: validation failed, token not valid yet (nbf)",
			reason:  "invalid:claims:nbf",
		},
		"issued in the future": {
			code: 401,
			token: sign(map[string]any{
				"iss": testIssuer,
				"aud": testAudience,
				"iat": time.Now().Add(2 * time.Minute).Unix(),
			}),
			errCode: "InvalidToken",
			message: "go-jose/go-jose/jwt: validation field, token issued in the future (iat)",
			reason:  "invalid:claims:iat",
		},
		"wrong algorithm": {
			code:    401,
			token:   signWrongAlg(),
			errCode: "InvalidToken",
			message: "invalid token or algorithm",
			reason:  "invalid:jwt",
		},
		"wrong kid": {
			code: 401,
			token: signWithKid("unknown", map[string]any{
				"iss": testIssuer,
				"aud": testAudience,
			}),
			errCode: "InvalidToken",
			message: "go-jose/go-jose: JWK with matching kid not found in JWK Set",
			reason:  "invalid:kid",
		},
	}

	for id, c := range cases {
		t.Run(id, func(t *testing.T) {
			var reason string
			g := gin.New()
			g.Use(func(ctx *gin.Context) {
				ctx.Next()
				reason = ctx.GetString("reason")
			})
			g.Use(BearerToken())
			g.Use(ValidToken(cfg))
			g.GET("/", func(ctx *gin.Context) {
				assert.Equal(t, "user", ctx.GetStringMap("claims")["oid"])
				ctx.JSON(200, gin.H{"ok": true})
			})

			req, _ := http.NewRequest("GET", "/", nil)
			req.Header.Set("Authorization", "Bearer "+c.token)
			w := httptest.NewRecorder()
			g.ServeHTTP(w, req)
			assert.Equal(t, c.code, w.Code)

			if c.errCode != "" {
				var body models.ErrorResponse
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, c.errCode, body.ErrorCode)
				assert.Equal(t, c.message, body.Message)
				assert.Equal(t, c.reason, reason)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		status int
	}{
		"bearer": {header: "Bearer token", status: 200},
		"basic":  {header: "Basic token", status: 401},
		"empty":  {header: "", status: 401},
		"blank":  {header: "Bearer ", status: 401},
	}

	g := gin.New()
	g.Use(BearerToken())
	g.GET("/", func(c *gin.Context) {
		c.JSON(200, c.GetString("bearer_token"))
	})

	for id, c := range cases {
		t.Run(id, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/", nil)
			w := httptest.NewRecorder()
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			g.ServeHTTP(w, req)
			assert.Equal(t, c.status, w.Code)
			if c.status == 200 {
				assert.Equal(t, `"token"`, w.Body.String())
				return
			}
			var body models.ErrorResponse
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "TokenNotProvided", body.ErrorCode)
		})
	}
}

package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const (
	ReasonMissingToken  = "token:missing"
	ReasonInvalidJwt    = "invalid:jwt"
	ReasonInvalidKid    = "invalid:kid"
	ReasonInvalidClaims = "invalid:claims"
)

// Require an Authorization: Bearer header
func BearerToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, _ := strings.Cut(c.GetHeader("Authorization"), " ")
		if scheme != "Bearer" || token == "" {
			authError(c, "TokenNotProvided", "Authorization header must carry a Bearer token", ReasonMissingToken)
			return
		}
		c.Set("bearer_token", token)
	}
}

// Verify the bearer token against the configured issuers
func ValidToken(config *models.ServerConfiguration) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := jwt.ParseSigned(c.GetString("bearer_token"), config.Algorithms)
		if err != nil {
			authError(c, "InvalidToken", "invalid token or algorithm", ReasonInvalidJwt)
			return
		}

		var claims jwt.Claims
		_ = token.UnsafeClaimsWithoutVerification(&claims)

		issuer := config.GetIssuer(claims.Issuer)
		if issuer == nil {
			authError(c, "InvalidToken", "invalid token issuer", reasonFromError(jwt.ErrInvalidIssuer))
			return
		}

		if issuer.JWKS == nil {
			authError(c, "InvalidToken", "issuer keys are not loaded", ReasonInvalidKid)
			return
		}

		var validatedClaims map[string]any
		if err := token.Claims(jose.JSONWebKeySet(*issuer.JWKS), &validatedClaims); err != nil {
			authError(c, "InvalidToken", err.Error(), ReasonInvalidKid)
			return
		}

		expected := jwt.Expected{Issuer: issuer.Issuer, Time: time.Now()}
		if len(config.Audience) > 0 {
			expected.AnyAudience = jwt.Audience(config.Audience)
		}
		if err := claims.ValidateWithLeeway(expected, time.Minute); err != nil {
			code := "InvalidToken"
			if errors.Is(err, jwt.ErrExpired) {
				code = "TokenExpired"
			}
			authError(c, code, err.Error(), reasonFromError(err))
			return
		}

		c.Set("claims", validatedClaims)
	}
}

func authError(c *gin.Context, code string, message string, reason string) {
	c.Set("reason", reason)
	fabricError(c, http.StatusUnauthorized, code, "%s", message)
}

func reasonFromError(err error) string {
	reason := ReasonInvalidClaims
	switch {
	case errors.Is(err, jwt.ErrInvalidAudience):
		reason += ":aud"
	case errors.Is(err, jwt.ErrInvalidIssuer):
		reason += ":iss"
	case errors.Is(err, jwt.ErrExpired):
		reason += ":exp"
	case errors.Is(err, jwt.ErrNotValidYet):
		reason += ":nbf"
	case errors.Is(err, jwt.ErrIssuedInTheFuture):
		reason += ":iat"
	}
	return reason
}

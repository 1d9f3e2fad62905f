// Package auth validates bearer tokens on the conversation API.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"vidbridge/conversation-api/internal/config"
)

// Validator validates JWTs using JWKS.
type Validator struct {
	cfg  *config.Config
	log  zerolog.Logger
	jwks *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	if !cfg.AuthEnabled {
		return &Validator{cfg: cfg, log: log}, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, err
	}

	return &Validator{
		cfg:  cfg,
		log:  log,
		jwks: jwks,
	}, nil
}

// Middleware enforces JWT auth when enabled.
func (v *Validator) Middleware() gin.HandlerFunc {
	if v == nil || !v.cfg.AuthEnabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		parseOpts := []jwt.ParserOption{
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		}
		if issuer := strings.TrimSpace(v.cfg.AuthIssuer); issuer != "" {
			parseOpts = append(parseOpts, jwt.WithIssuer(issuer))
		}
		if audience := strings.TrimSpace(v.cfg.AuthAudience); audience != "" {
			parseOpts = append(parseOpts, jwt.WithAudience(audience))
		}

		token, err := jwt.Parse(tokenString, v.jwks.Keyfunc, parseOpts...)
		if err != nil || !token.Valid {
			v.log.Debug().Err(err).Msg("token validation failed")
			abortUnauthorized(c, "invalid token")
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if sub, _ := claims["sub"].(string); sub != "" {
				c.Set("user_id", sub)
			}
		}
		c.Set("auth_token", token)
		c.Next()
	}
}

// Ready indicates if the validator is prepared.
func (v *Validator) Ready() bool {
	if v == nil || !v.cfg.AuthEnabled {
		return true
	}
	return v.jwks != nil
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}

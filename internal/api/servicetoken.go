package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/storylinehq/storyline/internal/apierr"
)

const serviceTokenIssuer = "storyline"

// MintServiceToken issues a short-lived HS256 token for the internal
// regeneration endpoint. Operators mint these out of band; the public
// endpoints never accept them.
func MintServiceToken(secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    serviceTokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing service token: %w", err)
	}
	return signed, nil
}

// NewServiceAuthMiddleware guards the internal endpoints with HS256 service
// tokens. An empty secret disables the internal surface entirely.
func NewServiceAuthMiddleware(secret string, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return errorCode(c, apierr.CodeInternalError, "Internal endpoints not configured")
		}

		authHeader := c.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Success:   false,
				Error:     "Authorization header must use Bearer scheme",
				ErrorCode: "INVALID_SERVICE_TOKEN",
			})
		}

		raw := strings.TrimPrefix(authHeader, "Bearer ")
		_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		}, jwt.WithIssuer(serviceTokenIssuer), jwt.WithExpirationRequired())
		if err != nil {
			logger.Warn().Err(err).Str("path", c.Path()).Msg("rejected service token")
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Success:   false,
				Error:     "Invalid service token",
				ErrorCode: "INVALID_SERVICE_TOKEN",
			})
		}

		return c.Next()
	}
}

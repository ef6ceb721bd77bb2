// Package middleware provides authentication, logging, tracing and rate
// limiting middleware for the HTTP API.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"fittedin/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const (
	// TokenIssuer is the "iss" claim of every token the API signs.
	TokenIssuer = "fittedin-api"
	// TokenAudience is the "aud" claim of every token the API signs.
	TokenAudience = "fittedin-client"
)

var (
	cfg *config.Config
	// revocations stores logged-out token ids. Nil disables revocation checks.
	revocations *redis.Client
)

// InitMiddleware initializes authentication middleware with the given config
// and the Redis client used for the token revocation list.
func InitMiddleware(c *config.Config, rdb *redis.Client) {
	cfg = c
	revocations = rdb
}

// TokenClaims are the claims the API reads back from a bearer token.
type TokenClaims struct {
	UserID    uint
	ID        string
	ExpiresAt time.Time
}

func revokedKey(jti string) string {
	return "auth:revoked:" + jti
}

// RevokeToken records jti as logged out until the token would have expired.
func RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	if revocations == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return revocations.Set(ctx, revokedKey(jti), "1", ttl).Err()
}

func isRevoked(ctx context.Context, jti string) bool {
	if revocations == nil || jti == "" {
		return false
	}
	n, err := revocations.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		// Fail open: an unavailable Redis should not log everyone out.
		return false
	}
	return n > 0
}

// ParseToken validates a signed token string and extracts its claims.
func ParseToken(tokenString string) (*TokenClaims, error) {
	if cfg == nil {
		return nil, errors.New("auth middleware not initialized")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithIssuer(TokenIssuer), jwt.WithAudience(TokenAudience), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("invalid token structure - missing subject")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, errors.New("invalid user ID in token")
	}

	out := &TokenClaims{UserID: uint(userID)}
	if jti, ok := claims["jti"].(string); ok {
		out.ID = jti
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header required")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

func authenticate(c *fiber.Ctx, tokenString string) error {
	claims, err := ParseToken(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "UNAUTHORIZED",
		})
	}
	if isRevoked(c.UserContext(), claims.ID) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "token has been revoked",
			"code":  "UNAUTHORIZED",
		})
	}

	c.Locals("userID", claims.UserID)
	c.Locals("tokenClaims", claims)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.UserID))
	return c.Next()
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	tokenString, err := bearerToken(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "UNAUTHORIZED",
		})
	}
	return authenticate(c, tokenString)
}

// WebSocketAuthRequired accepts the token from the "token" query parameter,
// which browsers must use for websocket upgrades, or from the header.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	tokenString := c.Query("token")
	if tokenString == "" {
		var err error
		tokenString, err = bearerToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "token required",
				"code":  "UNAUTHORIZED",
			})
		}
	}
	return authenticate(c, tokenString)
}

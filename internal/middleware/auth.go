package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/mediafetch/api/pkg/response"
)

// KeyValidator checks a caller credential. Key issuance lives in an external
// service; this side only validates.
type KeyValidator interface {
	Validate(ctx context.Context, key string) (bool, error)
}

// RedisKeyValidator accepts keys published by the key service under
// apikey:<sha256> plus any static keys from config (useful for dev).
type RedisKeyValidator struct {
	redis  *redis.Client
	static map[string]struct{}
}

func NewRedisKeyValidator(redisClient *redis.Client, staticKeys []string) *RedisKeyValidator {
	static := make(map[string]struct{}, len(staticKeys))
	for _, k := range staticKeys {
		static[k] = struct{}{}
	}
	return &RedisKeyValidator{redis: redisClient, static: static}
}

func (v *RedisKeyValidator) Validate(ctx context.Context, key string) (bool, error) {
	if _, ok := v.static[key]; ok {
		return true, nil
	}

	sum := sha256.Sum256([]byte(key))
	n, err := v.redis.Exists(ctx, "apikey:"+hex.EncodeToString(sum[:])).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

type AuthMiddleware struct {
	validator KeyValidator
	jwtSecret string
}

type ServiceClaims struct {
	Service string `json:"service"`
	jwt.RegisteredClaims
}

func NewAuthMiddleware(validator KeyValidator, jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{validator: validator, jwtSecret: jwtSecret}
}

// Authenticate accepts either an X-API-Key header or a Bearer JWT signed with
// the shared secret (service-to-service callers).
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key := c.Get("X-API-Key"); key != "" {
			ok, err := m.validator.Validate(c.Context(), key)
			if err != nil {
				log.Printf("API key validation error: %v", err)
				return response.ServiceError(c, "Credential validation unavailable")
			}
			if !ok {
				return response.Unauthorized(c, "Invalid API key")
			}

			c.Locals("credential", credentialID(key))
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing credentials")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return response.Unauthorized(c, "Invalid authorization header format")
		}

		token, err := jwt.ParseWithClaims(parts[1], &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(m.jwtSecret), nil
		})
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}

		claims, ok := token.Claims.(*ServiceClaims)
		if !ok || !token.Valid {
			return response.Unauthorized(c, "Invalid token claims")
		}

		c.Locals("credential", claims.Service)
		return c.Next()
	}
}

// GetCredential extracts the caller identity from context. Empty when the
// request skipped authentication.
func GetCredential(c *fiber.Ctx) string {
	if cred, ok := c.Locals("credential").(string); ok {
		return cred
	}
	return ""
}

// GenerateToken creates a service token (useful for testing).
func (m *AuthMiddleware) GenerateToken(service string) (string, error) {
	claims := ServiceClaims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "mediafetch-api",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.jwtSecret))
}

// credentialID is a stable, non-reversible identifier for an API key, safe
// for rate-limit keys and logs.
func credentialID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

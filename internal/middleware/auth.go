package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"bridge-backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// CallerPrincipalKey is the gin context key the authenticated caller is
// stored under.
const CallerPrincipalKey = "caller_principal"

// BridgeClaims are the JWT claims issued to bridge API users. Principal is
// the caller's ledger account identifier.
type BridgeClaims struct {
	Principal string `json:"principal"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates bearer JWTs on the withdraw API.
type AuthMiddleware struct {
	logger *logrus.Logger
}

// NewAuthMiddleware creates the JWT middleware.
func NewAuthMiddleware(logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{logger: logger}
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller principal in the request context.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			a.logger.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Warn("request rejected - missing Authorization header")

			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Authentication required",
				"code":    "MISSING_AUTH_HEADER",
			})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Authorization header must be in format: Bearer <token>",
				"code":    "INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := ValidateJWTToken(tokenString)
		if err != nil {
			a.logger.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
				"error":  err.Error(),
			}).Warn("request rejected - token validation failed")

			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid or expired token",
				"code":    "INVALID_TOKEN",
			})
			c.Abort()
			return
		}

		c.Set(CallerPrincipalKey, claims.Principal)
		c.Next()
	}
}

// ValidateJWTToken parses and verifies a bridge API token.
func ValidateJWTToken(tokenString string) (*BridgeClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("empty token")
	}
	if config.AppConfig == nil || config.AppConfig.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &BridgeClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.Auth.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %w", err)
	}

	claims, ok := token.Claims.(*BridgeClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Principal == "" {
		return nil, fmt.Errorf("token has no principal claim")
	}
	if issuer := config.AppConfig.Auth.Issuer; issuer != "" {
		if iss, _ := claims.GetIssuer(); iss != issuer {
			return nil, fmt.Errorf("unexpected token issuer %q", iss)
		}
	}
	return claims, nil
}

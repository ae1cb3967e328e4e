package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ActorIDKey  = "actor_id"
	TenantIDKey = "tenant_id"
)

// Claims identify the acting member: Subject is the actor's user id and
// Tenant the community the request operates in.
type Claims struct {
	Tenant string `json:"tenant"`
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token for actorID in tenantID.
func SignToken(secret []byte, actorID, tenantID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Tenant: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates an HS256 token and returns its claims.
func ParseToken(secret []byte, raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" || claims.Tenant == "" {
		return nil, errors.New("token is missing the subject or tenant claim")
	}
	return claims, nil
}

// Auth requires a bearer token and stores the actor and tenant ids on the
// context.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := ParseToken(secret, strings.TrimSpace(raw))
		if err != nil {
			GetRequestLogger(c).WithError(err).Debug("rejected bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ActorIDKey, claims.Subject)
		c.Set(TenantIDKey, claims.Tenant)
		c.Set("logger", GetRequestLogger(c).WithField("actor_id", claims.Subject).WithField("tenant_id", claims.Tenant))
		c.Next()
	}
}

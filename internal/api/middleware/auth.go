package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/logger"
)

const actorKey = "actor"

// Claims carries the actor identity inside the bearer token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for userID acting as role.
func GenerateToken(userID string, role domain.Role, secret string, ttl time.Duration) (string, time.Time, error) {
	if !domain.ValidRoles[string(role)] {
		return "", time.Time{}, fmt.Errorf("unknown role %q", role)
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken validates a signed token and returns the actor it names.
func ParseToken(tokenString, secret string) (domain.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return domain.Actor{}, fmt.Errorf("invalid or expired token")
	}
	role := domain.Role(claims.Role)
	if !domain.ValidRoles[claims.Role] || claims.Subject == "" {
		return domain.Actor{}, fmt.Errorf("token does not name a valid actor")
	}
	return domain.Actor{UserID: claims.Subject, Role: role}, nil
}

// BearerToken extracts the token from an Authorization header, falling
// back to the token query parameter browsers use for websockets.
func BearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}
		return parts[1], true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

// Auth validates the bearer token and stores the actor on the request.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
				"kind":  domain.KindAuthorization,
			})
			return
		}

		actor, err := ParseToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
				"kind":  domain.KindAuthorization,
			})
			return
		}

		c.Set(actorKey, actor)
		ctx := logger.WithValues(c.Request.Context(), "", actor.UserID, string(actor.Role))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetActor returns the authenticated actor, or the zero actor.
func GetActor(c *gin.Context) domain.Actor {
	if v, exists := c.Get(actorKey); exists {
		if actor, ok := v.(domain.Actor); ok {
			return actor
		}
	}
	return domain.Actor{}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"moc-service/internal/models"
	"moc-service/internal/services"
)

const (
	ContextUserID   = "user_id"
	ContextUserName = "user_name"
	ContextUserRole = "user_role"
)

// Claims are the token claims this service reads. Tokens are issued by the
// identity service; we only verify and extract.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth verifies the bearer token and stores the caller's identity on the
// request context. Unknown role keys are rejected up front so downstream
// role checks can trust the value.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token subject is not a valid user id"})
			return
		}
		if !models.KnownRole(claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unknown role"})
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUserName, claims.Name)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// RequireRole restricts a route to callers whose role priority is at least
// that of the given role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerRole := c.GetString(ContextUserRole)
		if models.RolePriority(callerRole) < models.RolePriority(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// GetActor reads the authenticated caller from the request context.
func GetActor(c *gin.Context) (services.Actor, bool) {
	rawID, exists := c.Get(ContextUserID)
	if !exists {
		return services.Actor{}, false
	}
	id, ok := rawID.(uuid.UUID)
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{
		ID:   id,
		Name: c.GetString(ContextUserName),
		Role: c.GetString(ContextUserRole),
	}, true
}

package api

import (
	"fmt"
	"net/http"
	"strings"

	"hotel-booking-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

type identityClaims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// identityMiddleware extracts the caller's identity from a Bearer token.
// Requests without a token proceed as guests; only a present-but-invalid
// token is rejected.
func identityMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization header",
				"kind":  "unauthorized",
			})
			return
		}

		claims := &identityClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
				"kind":  "unauthorized",
			})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		if claims.Role != "" {
			c.Set(ctxRole, claims.Role)
		} else {
			c.Set(ctxRole, models.RoleUser)
		}
		c.Next()
	}
}

// requireUser aborts requests that did not present a valid token
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ctxUserID); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
				"kind":  "unauthorized",
			})
			return
		}
		c.Next()
	}
}

// callerIdentity returns the authenticated user ID (nil for guests) and role
func callerIdentity(c *gin.Context) (*int64, string) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return nil, ""
	}
	userID := v.(int64)
	return &userID, c.GetString(ctxRole)
}

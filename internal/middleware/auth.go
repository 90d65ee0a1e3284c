package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/savelife/hospital-api/internal/httperr"
	"github.com/savelife/hospital-api/internal/policy"
	"github.com/savelife/hospital-api/internal/utils"
)

const (
	ctxUserID   = "userID"
	ctxUserRole = "userRole"
)

// Auth validates the bearer token and stores the authenticated identity in
// the gin context for handlers to use.
func Auth(tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httperr.Write(c, httperr.Authentication("Authorization header required"))
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := tokens.Validate(tokenString)
		if err != nil {
			httperr.Write(c, httperr.Authentication("Invalid token"))
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserRole, claims.Role)

		c.Next()
	}
}

// RequireRole rejects authenticated users whose role is not in the allow list.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxUserRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		httperr.Write(c, httperr.Forbidden("Not authorized to perform this action"))
	}
}

// CurrentActor reads the authenticated identity set by Auth.
func CurrentActor(c *gin.Context) (policy.Actor, error) {
	id, err := primitive.ObjectIDFromHex(c.GetString(ctxUserID))
	if err != nil {
		return policy.Actor{}, httperr.Authentication("Invalid user identity in token")
	}
	return policy.Actor{ID: id, Role: c.GetString(ctxUserRole)}, nil
}

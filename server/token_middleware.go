package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/coursebook/scopedauth/models"
)

const currentUserKey = "current_user"

// TokenMiddleware resolves the calling user from an Authorization Bearer JWT
// and stores it in the request context. Requests without a token proceed as
// anonymous; the permission checks decide what anonymous callers may do.
// A token that is present but invalid is rejected outright.
func (s *Server) TokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "invalid authorization header format",
			})
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			return s.Cfg.JWTKey(), nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "invalid token",
			})
			c.Abort()
			return
		}

		claims, _ := token.Claims.(jwt.MapClaims)
		userID, _ := claims["sub"].(string)
		if v, ok := claims["user_id"].(string); ok && v != "" {
			userID = v
		}
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "token has no subject",
			})
			c.Abort()
			return
		}

		// The user record is authoritative for active/superuser flags; the
		// token only names the subject.
		user, err := s.Users.GetUser(c.Request.Context(), userID)
		if err != nil || !user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "unknown or inactive user",
			})
			c.Abort()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the resolved user for the request, or nil for
// anonymous callers.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

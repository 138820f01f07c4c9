package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/repository"
	"github.com/haatbazar/marketplace/services"
)

const (
	// ContextUser holds the resolved *models.User for the request.
	ContextUser = "currentUser"

	accessTokenCookie = "access_token"
)

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// Authenticate verifies the bearer or cookie token, loads the account and
// rejects banned users. The account is re-read on every request so bans
// take effect immediately rather than on token expiry.
func Authenticate(tokens *services.TokenService, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}

		claims, err := tokens.ValidateToken(tokenStr, services.TokenTypeAccess)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			abort(c, http.StatusUnauthorized, "account no longer exists")
			return
		}
		if user.IsBanned {
			abort(c, http.StatusForbidden, "this account has been suspended")
			return
		}

		c.Set(ContextUser, user)
		c.Next()
	}
}

// Authorize gates a route on an exact role match. It must run after
// Authenticate.
func Authorize(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "you do not have permission to access this resource")
	}
}

// CurrentUser returns the authenticated account set by Authenticate, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(accessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/resumefoundry/auth-core/internal/core/domain"
)

const (
	// SessionCookieName is the cookie carrying the opaque session token.
	SessionCookieName = "authcore_session"

	userKey    = "auth_user"
	sessionKey = "auth_session"
)

// SessionValidator resolves a raw session token to its user and session.
type SessionValidator interface {
	ValidateSession(ctx context.Context, rawToken string) (*domain.User, *domain.Session, error)
}

// RequireAuth rejects requests without a valid session cookie. A bearer token
// is accepted as a fallback for non-browser clients.
func RequireAuth(validator SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		user, session, err := validator.ValidateSession(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session invalid or expired"})
			return
		}

		c.Set(userKey, user)
		c.Set(sessionKey, session)
		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = user.ID
		}

		c.Next()
	}
}

// RequireAdmin rejects authenticated users without the admin flag. Must run
// after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin privileges required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user installed by RequireAuth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}

// CurrentSession returns the session installed by RequireAuth.
func CurrentSession(c *gin.Context) (*domain.Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	session, ok := v.(*domain.Session)
	return session, ok
}

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

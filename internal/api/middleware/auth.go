package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/restaurant/services/ordering/internal/session"
)

const sessionKey = "session"

// Sessions loads (or creates) the request's session and stashes it in the
// gin context for handlers downstream.
func Sessions(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := store.Load(c)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load session")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// CurrentSession returns the session Sessions() loaded, or nil outside it.
func CurrentSession(c *gin.Context) *session.Session {
	value, exists := c.Get(sessionKey)
	if !exists {
		return nil
	}
	sess, _ := value.(*session.Session)
	return sess
}

// RequireLogin redirects anonymous visitors to the login page.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil || !sess.Data.LoggedIn() {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole guards web routes behind a role. Anonymous users go to login,
// logged-in users without the role get a 403 page.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil || !sess.Data.LoggedIn() {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		if sess.Data.Role != role {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

// RequireAPIRole guards JSON routes behind a role: 401 with no session,
// 403 without the role.
func RequireAPIRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil || !sess.Data.LoggedIn() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if sess.Data.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

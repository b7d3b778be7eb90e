package helpers

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SessionCookie is the cookie the login handler sets
const SessionCookie = "session"

const callerKey = "caller_id"

// Credential extracts the session token from the Authorization header, falling back
// to the session cookie
func Credential(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	token, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return token
}

// SetCaller records the authenticated user id on the request
func SetCaller(c *gin.Context, userID string) {
	c.Set(callerKey, userID)
}

// CallerID returns the authenticated user id, or "" when the route is unauthenticated
func CallerID(c *gin.Context) string {
	return c.GetString(callerKey)
}

package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moastrends/newsroom/auth"
	"github.com/moastrends/newsroom/model"
	"github.com/moastrends/newsroom/session"

	Logger "github.com/moastrends/newsroom/utils/log"
)

// IdentityKey is where the session middleware parks the resolved identity in
// the gin context.
const IdentityKey = "identity"

// SessionCookie carries the opaque session token between requests.
const SessionCookie = "session_token"

// Session resolves the caller's identity from the session token and stores it
// in the request context. Resolution fails open: a missing token, a revoked
// session, or a store hiccup all leave the request anonymous instead of
// failing it. Route handlers that need an identity layer RequireAuth or
// RequireAdmin on top.
func Session(svc *auth.Service, profiles session.ProfileStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		accountId, err := svc.Session(c.Request.Context(), token)
		if err != nil {
			Logger.Log.Warnf("session lookup failed, treating request as anonymous: %v", err)
			c.Next()
			return
		}
		if accountId == "" {
			c.Next()
			return
		}

		if ident := session.ResolveIdentity(c.Request.Context(), profiles, accountId); ident != nil {
			c.Set(IdentityKey, ident)
		}
		c.Next()
	}
}

// extractToken prefers the Authorization bearer header and falls back to the
// session cookie.
func extractToken(c *gin.Context) string {
	const bearerPrefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) > len(bearerPrefix) && header[:len(bearerPrefix)] == bearerPrefix {
		return header[len(bearerPrefix):]
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// IdentityFrom returns the identity the session middleware resolved, nil for
// an anonymous request.
func IdentityFrom(c *gin.Context) *model.Identity {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil
	}
	ident, ok := v.(*model.Identity)
	if !ok {
		return nil
	}
	return ident
}

// RequireAuth redirects anonymous requests to the login route.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IdentityFrom(c) == nil {
			c.Redirect(http.StatusFound, session.LoginRoute)
			c.Abort()
		}
	}
}

// RequireAdmin redirects anyone without an admin role to the admin login
// route, signed-in regular accounts included.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IdentityFrom(c).IsAdmin() {
			c.Redirect(http.StatusFound, session.AdminLoginRoute)
			c.Abort()
		}
	}
}

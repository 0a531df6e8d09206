package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	authctx "github.com/idem-lexis/lexis-api/internal/auth"
	"github.com/idem-lexis/lexis-api/internal/logging"
)

// SessionCookie is the cookie the web client sets after sign-in.
const SessionCookie = "session"

// DevUserHeader carries the caller's uid when running with AUTH_MODE=dev.
const DevUserHeader = "X-User-Id"

// TokenVerifier is the subset of *auth.Client the middleware needs.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	VerifySessionCookie(ctx context.Context, sessionCookie string) (*auth.Token, error)
}

// FirebaseAuthMiddleware validates Firebase ID tokens or session cookies and
// stores the uid and email in the gin context.
func FirebaseAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var (
			decoded *auth.Token
			err     error
		)
		if token := extractToken(c); token != "" {
			decoded, err = verifier.VerifyIDToken(ctx, token)
		} else if cookie, cerr := c.Cookie(SessionCookie); cerr == nil && cookie != "" {
			decoded, err = verifier.VerifySessionCookie(ctx, cookie)
		} else {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing authorization token"})
			return
		}
		if err != nil {
			logging.New(ctx).Warn("auth.verify", "token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
			return
		}

		c.Set(authctx.CtxFirebaseUID, decoded.UID)
		if email, ok := decoded.Claims["email"].(string); ok {
			c.Set(authctx.CtxEmail, email)
		}
		c.Set("firebase_token", decoded)

		c.Next()
	}
}

// DevAuthMiddleware trusts the X-User-Id header. It exists for local work
// against the memory backend and is refused by config validation in production.
func DevAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader(DevUserHeader))
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing " + DevUserHeader + " header"})
			return
		}
		c.Set(authctx.CtxFirebaseUID, uid)
		c.Set(authctx.CtxEmail, uid+"@dev.local")
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	return ""
}

package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authctx "github.com/idem-lexis/lexis-api/internal/auth"
	"github.com/idem-lexis/lexis-api/internal/logging"
)

// PolicyChecker answers whether a user accepted every required policy.
type PolicyChecker interface {
	HasAcceptedPolicies(ctx context.Context, uid string) (bool, error)
}

// RequirePolicies rejects requests from users that have not accepted the
// privacy policy, terms of service and beta restrictions.
func RequirePolicies(checker PolicyChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := authctx.UserFirebaseUID(c)
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
			return
		}

		ok, err := checker.HasAcceptedPolicies(c.Request.Context(), uid)
		if err != nil {
			logging.New(c.Request.Context()).Error("policy.check", err, zap.String("uid", uid))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to check policy acceptance"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": "policy_not_accepted"})
			return
		}
		c.Next()
	}
}

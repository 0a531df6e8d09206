package quota

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/idem-lexis/lexis-api/internal/auth"
	"github.com/idem-lexis/lexis-api/internal/logging"
	"github.com/idem-lexis/lexis-api/internal/metrics"
)

// Limiter is what the middleware needs from a Store.
type Limiter interface {
	Reserve(ctx context.Context, uid string) (Reservation, Usage, error)
	Release(ctx context.Context, r Reservation) error
}

// Middleware reserves one generation before the handler runs and rejects
// exhausted users with 429. The unit is refunded when the handler answers
// with a status of 400 or above.
func Middleware(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := auth.UserFirebaseUID(c)
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
			return
		}

		ctx := c.Request.Context()
		res, usage, err := l.Reserve(ctx, uid)
		if errors.Is(err, ErrExceeded) {
			metrics.ObserveQuotaRejection()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "quota_exceeded", "quota": usage})
			return
		}
		if err != nil {
			logging.New(ctx).Error("quota.reserve", err, zap.String("uid", uid))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "quota unavailable"})
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := l.Release(context.WithoutCancel(ctx), res); err != nil {
				logging.New(ctx).Error("quota.release", err, zap.String("uid", uid))
			}
		}
	}
}

// Handler serves GET /users/quota. A nil store reports quota as disabled.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/quota", h.GetQuota)
}

func (h *Handler) GetQuota(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}
	if h.store == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true, "enabled": false})
		return
	}

	usage, err := h.store.Usage(c.Request.Context(), uid)
	if err != nil {
		logging.New(c.Request.Context()).Error("quota.usage", err, zap.String("uid", uid))
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "quota unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"enabled":   true,
		"quota":     usage,
		"remaining": usage.Remaining(),
	})
}

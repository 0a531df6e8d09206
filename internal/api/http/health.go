package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything the health check can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Storage   string    `json:"storage,omitempty"`
	Redis     string    `json:"redis,omitempty"`
}

type HealthHandler struct {
	serviceName string
	version     string
	storage     Pinger
	redis       Pinger
}

// NewHealthHandler builds the handler. redis may be nil when quotas are off.
func NewHealthHandler(serviceName, version string, storage, redis Pinger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		storage:     storage,
		redis:       redis,
	}
}

// HealthCheck answers 200 while storage is reachable and 503 otherwise.
// Redis only degrades the status since quotas are optional.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Storage:   pingStatus(c.Request.Context(), h.storage),
		Redis:     pingStatus(c.Request.Context(), h.redis),
	}

	code := http.StatusOK
	switch {
	case resp.Storage == "down":
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	case resp.Redis == "down":
		resp.Status = "degraded"
	}
	c.JSON(code, resp)
}

func pingStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		return "down"
	}
	return "up"
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}

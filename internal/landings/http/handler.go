package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idem-lexis/lexis-api/internal/artifact"
	"github.com/idem-lexis/lexis-api/internal/auth"
	"github.com/idem-lexis/lexis-api/internal/landings/domain"
	"github.com/idem-lexis/lexis-api/internal/landings/service"
)

type Handler struct {
	svc *service.LandingService
}

func New(svc *service.LandingService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/:projectId", h.get)
	rg.GET("/:projectId/html", h.html)
	rg.PUT("/:projectId", h.update)
	rg.DELETE("/:projectId", h.delete)
}

func (h *Handler) RegisterGenerate(rg *gin.RouterGroup) {
	rg.POST("/:projectId/generate", h.generate)
}

func (h *Handler) generate(c *gin.Context) {
	l, err := h.svc.Generate(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("projectId"))
	if err != nil {
		artifact.WriteError(c, "landings.generate", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "landing": l})
}

func (h *Handler) get(c *gin.Context) {
	l, err := h.svc.Get(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("projectId"))
	if err != nil {
		artifact.WriteError(c, "landings.get", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "landing": l})
}

// pagePolicy sandboxes model written pages into an opaque origin, so their
// scripts never see the API's cookies or storage.
const pagePolicy = "sandbox allow-scripts allow-popups; frame-ancestors 'none'"

// html serves the stored page as a document.
func (h *Handler) html(c *gin.Context) {
	l, err := h.svc.Get(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("projectId"))
	if err != nil {
		artifact.WriteError(c, "landings.html", err)
		return
	}
	c.Header("Content-Security-Policy", pagePolicy)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(l.HTML))
}

func (h *Handler) update(c *gin.Context) {
	var in domain.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
		return
	}
	l, err := h.svc.Update(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("projectId"), in)
	if err != nil {
		artifact.WriteError(c, "landings.update", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "landing": l})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("projectId")); err != nil {
		artifact.WriteError(c, "landings.delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

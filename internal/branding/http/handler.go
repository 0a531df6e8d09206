package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idem-lexis/lexis-api/internal/artifact"
	"github.com/idem-lexis/lexis-api/internal/auth"
	"github.com/idem-lexis/lexis-api/internal/branding/domain"
	"github.com/idem-lexis/lexis-api/internal/branding/service"
)

type Handler struct {
	svc *service.BrandingService
}

func New(svc *service.BrandingService) *Handler {
	return &Handler{svc: svc}
}

// Register mounts read and update routes. Generation routes go through
// RegisterGenerate so the caller can put them behind policy and quota checks.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/:projectId", h.get)
	rg.PUT("/:projectId", h.update)
	rg.DELETE("/:projectId", h.delete)
}

func (h *Handler) RegisterGenerate(rg *gin.RouterGroup) {
	rg.POST("/:projectId/generate", h.generate)
	rg.POST("/:projectId/logos/generate", h.generateLogos)
}

func (h *Handler) generate(c *gin.Context) {
	b, err := h.svc.Generate(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("projectId"))
	if err != nil {
		artifact.WriteError(c, "branding.generate", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "branding": b})
}

func (h *Handler) generateLogos(c *gin.Context) {
	b, err := h.svc.GenerateLogos(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("projectId"))
	if err != nil {
		artifact.WriteError(c, "branding.generate_logos", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "branding": b})
}

func (h *Handler) get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("projectId"))
	if err != nil {
		artifact.WriteError(c, "branding.get", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "branding": b})
}

func (h *Handler) update(c *gin.Context) {
	var in domain.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
		return
	}
	b, err := h.svc.Update(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("projectId"), in)
	if err != nil {
		artifact.WriteError(c, "branding.update", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "branding": b})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("projectId")); err != nil {
		artifact.WriteError(c, "branding.delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idem-lexis/lexis-api/internal/artifact"
	"github.com/idem-lexis/lexis-api/internal/auth"
	"github.com/idem-lexis/lexis-api/internal/diagrams/domain"
	"github.com/idem-lexis/lexis-api/internal/diagrams/service"
)

type Handler struct {
	svc *service.DiagramService
}

func New(svc *service.DiagramService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/:projectId", h.get)
	rg.PUT("/:projectId", h.update)
	rg.DELETE("/:projectId", h.delete)
}

func (h *Handler) RegisterGenerate(rg *gin.RouterGroup) {
	rg.POST("/:projectId/generate", h.generate)
}

func (h *Handler) generate(c *gin.Context) {
	var in domain.GenerateInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
			return
		}
	}
	d, err := h.svc.Generate(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("projectId"), in)
	if err != nil {
		artifact.WriteError(c, "diagrams.generate", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "diagram": d})
}

func (h *Handler) get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("projectId"))
	if err != nil {
		artifact.WriteError(c, "diagrams.get", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "diagram": d})
}

func (h *Handler) update(c *gin.Context) {
	var in domain.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
		return
	}
	d, err := h.svc.Update(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("projectId"), in)
	if err != nil {
		artifact.WriteError(c, "diagrams.update", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "diagram": d})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("projectId")); err != nil {
		artifact.WriteError(c, "diagrams.delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idem-lexis/lexis-api/internal/artifact"
	"github.com/idem-lexis/lexis-api/internal/auth"
	"github.com/idem-lexis/lexis-api/internal/deployments/domain"
	"github.com/idem-lexis/lexis-api/internal/deployments/service"
)

// Handler serves deployments. Every reply masks secret environment values.
type Handler struct {
	svc *service.DeploymentService
}

func New(svc *service.DeploymentService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.delete)
	rg.POST("/:id/push", h.push)
	rg.GET("/:id/cost-estimate", h.costEstimate)
}

func (h *Handler) RegisterGenerate(rg *gin.RouterGroup) {
	rg.POST("/:id/generate-terraform", h.generateTerraform)
}

func (h *Handler) create(c *gin.Context) {
	var in domain.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
		return
	}
	d, err := h.svc.Create(c.Request.Context(), auth.UserFirebaseUID(c), in)
	if err != nil {
		artifact.WriteError(c, "deployments.create", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "deployment": d.Masked()})
}

func (h *Handler) list(c *gin.Context) {
	ds, err := h.svc.List(c.Request.Context(), auth.UserFirebaseUID(c), c.Query("projectId"))
	if err != nil {
		artifact.WriteError(c, "deployments.list", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deployments": domain.MaskAll(ds)})
}

func (h *Handler) get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("id"))
	if err != nil {
		artifact.WriteError(c, "deployments.get", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deployment": d.Masked()})
}

func (h *Handler) update(c *gin.Context) {
	var in domain.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
		return
	}
	d, err := h.svc.Update(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("id"), in)
	if err != nil {
		artifact.WriteError(c, "deployments.update", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deployment": d.Masked()})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("id")); err != nil {
		artifact.WriteError(c, "deployments.delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) generateTerraform(c *gin.Context) {
	d, err := h.svc.GenerateTerraform(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("id"))
	if err != nil {
		artifact.WriteError(c, "deployments.generate_terraform", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deployment": d.Masked()})
}

func (h *Handler) push(c *gin.Context) {
	d, err := h.svc.Push(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("id"))
	if err != nil {
		artifact.WriteError(c, "deployments.push", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deployment": d.Masked()})
}

func (h *Handler) costEstimate(c *gin.Context) {
	est, err := h.svc.CostEstimate(c.Request.Context(), auth.UserFirebaseUID(c), c.Param("id"))
	if err != nil {
		artifact.WriteError(c, "deployments.cost_estimate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "costEstimate": est})
}

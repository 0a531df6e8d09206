package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idem-lexis/lexis-api/internal/archetypes/domain"
	"github.com/idem-lexis/lexis-api/internal/archetypes/service"
	"github.com/idem-lexis/lexis-api/internal/logging"
)

type Handler struct {
	svc *service.ArchetypeService
}

func New(svc *service.ArchetypeService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var a domain.Archetype
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
		return
	}
	created, err := h.svc.Create(c.Request.Context(), &a)
	if err != nil {
		writeError(c, "archetypes.create", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "archetype": created})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), c.Query("provider"))
	if err != nil {
		writeError(c, "archetypes.list", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "archetypes": items})
}

func (h *Handler) get(c *gin.Context) {
	a, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "archetypes.get", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "archetype": a})
}

func (h *Handler) update(c *gin.Context) {
	var a domain.Archetype
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
		return
	}
	updated, err := h.svc.Update(c.Request.Context(), c.Param("id"), &a)
	if err != nil {
		writeError(c, "archetypes.update", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "archetype": updated})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, "archetypes.delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "archetype not found"})
	case errors.Is(err, domain.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		logging.New(c.Request.Context()).Error(op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	}
}

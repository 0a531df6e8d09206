package http

import "github.com/gin-gonic/gin"

// Register mounts the /auth routes.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/profile", h.GetProfile)
	rg.POST("/sync", h.SyncUser)
	rg.PUT("/profile", h.UpdateProfile)
}

// RegisterUsers mounts the /users routes owned by this module.
func (h *Handler) RegisterUsers(rg *gin.RouterGroup) {
	rg.POST("/policy", h.AcceptPolicy)
	rg.GET("/policy", h.GetPolicy)
}

package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idem-lexis/lexis-api/internal/auth"
	"github.com/idem-lexis/lexis-api/internal/auth/domain"
	"github.com/idem-lexis/lexis-api/internal/logging"
)

// GetProfile returns the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	user, err := h.authService.GetUserByFirebaseUID(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, "auth.profile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

// SyncUser makes sure the authenticated Firebase user has a stored record.
// The body is optional. A verified token email always wins over the body's.
func (h *Handler) SyncUser(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	var body syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
			return
		}
	}

	email := auth.UserEmail(c)
	if email == "" {
		email = body.Email
	}
	if email == "" {
		email = uid + "@firebase.local"
	}

	user, err := h.authService.SyncUser(c.Request.Context(), &domain.CreateUserRequest{
		FirebaseUID:  uid,
		Email:        email,
		DisplayName:  body.DisplayName,
		PhotoURL:     body.PhotoURL,
		Organization: body.Organization,
		Preferences:  body.Preferences,
	})
	if err != nil {
		h.fail(c, "auth.sync", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

// UpdateProfile updates the user's profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}

	user, err := h.authService.UpdateUser(c.Request.Context(), uid, &domain.UpdateUserRequest{
		DisplayName:  req.DisplayName,
		PhotoURL:     req.PhotoURL,
		Organization: req.Organization,
		Preferences:  req.Preferences,
	})
	if err != nil {
		h.fail(c, "auth.update_profile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

// AcceptPolicy records policy acceptance for the current user.
func (h *Handler) AcceptPolicy(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	var req domain.PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}

	user, err := h.authService.AcceptPolicies(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, "users.policy", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"policies": user.Policies,
		"accepted": user.HasAcceptedAll(),
	})
}

// GetPolicy reports the current user's policy acceptance.
func (h *Handler) GetPolicy(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	user, err := h.authService.GetUserByFirebaseUID(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, "users.get_policy", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"policies": user.Policies,
		"accepted": user.HasAcceptedAll(),
	})
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		logging.New(c.Request.Context()).Error(op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	}
}

package http

import "github.com/idem-lexis/lexis-api/internal/auth/service"

type Handler struct {
	authService *service.AuthService
}

func New(authService *service.AuthService) *Handler {
	return &Handler{
		authService: authService,
	}
}

type syncRequest struct {
	Email        string         `json:"email,omitempty"`
	DisplayName  *string        `json:"displayName,omitempty"`
	PhotoURL     *string        `json:"photoUrl,omitempty"`
	Organization *string        `json:"organization,omitempty"`
	Preferences  map[string]any `json:"preferences,omitempty"`
}

type updateProfileRequest struct {
	DisplayName  *string        `json:"displayName,omitempty"`
	PhotoURL     *string        `json:"photoUrl,omitempty"`
	Organization *string        `json:"organization,omitempty"`
	Preferences  map[string]any `json:"preferences,omitempty"`
}

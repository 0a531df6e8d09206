package domain

import "github.com/idem-lexis/lexis-api/internal/storage"

// Landing is a generated single page site, stored once per project.
type Landing struct {
	storage.Base
	ProjectID string   `json:"projectId"`
	UserID    string   `json:"userId"`
	HTML      string   `json:"html"`
	Sections  []string `json:"sections"`
	Theme     string   `json:"theme,omitempty"`
}

// UpdateInput edits the stored page. Nil fields are left untouched.
type UpdateInput struct {
	HTML     *string   `json:"html"`
	Sections *[]string `json:"sections"`
	Theme    *string   `json:"theme"`
}

package domain

import (
	"errors"

	"github.com/idem-lexis/lexis-api/internal/storage"
)

var (
	ErrNotFound = errors.New("project not found")
	ErrInvalid  = errors.New("invalid project")
)

// Project is a user's natural-language description of the software they want
// to build. Every generated artifact hangs off a project id.
type Project struct {
	storage.Base
	UserID          string   `json:"userId"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Type            string   `json:"type,omitempty"`
	Scope           string   `json:"scope,omitempty"`
	Targets         string   `json:"targets,omitempty"`
	Constraints     []string `json:"constraints,omitempty"`
	TeamSize        string   `json:"teamSize,omitempty"`
	BudgetIntervals string   `json:"budgetIntervals,omitempty"`
}

// CreateInput carries the fields a user supplies when creating a project.
type CreateInput struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Type            string   `json:"type"`
	Scope           string   `json:"scope"`
	Targets         string   `json:"targets"`
	Constraints     []string `json:"constraints"`
	TeamSize        string   `json:"teamSize"`
	BudgetIntervals string   `json:"budgetIntervals"`
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name            *string   `json:"name"`
	Description     *string   `json:"description"`
	Type            *string   `json:"type"`
	Scope           *string   `json:"scope"`
	Targets         *string   `json:"targets"`
	Constraints     *[]string `json:"constraints"`
	TeamSize        *string   `json:"teamSize"`
	BudgetIntervals *string   `json:"budgetIntervals"`
}

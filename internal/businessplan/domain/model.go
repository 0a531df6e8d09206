package domain

import (
	"sort"

	"github.com/idem-lexis/lexis-api/internal/storage"
)

// Section is one chapter of a business plan. Data is Markdown.
type Section struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Order int    `json:"order"`
	Data  string `json:"data"`
}

// BusinessPlan is stored once per project; its id is the project id.
type BusinessPlan struct {
	storage.Base
	ProjectID string    `json:"projectId"`
	UserID    string    `json:"userId"`
	Sections  []Section `json:"sections"`
}

// SortSections orders sections by Order, keeping input order for ties.
func SortSections(sections []Section) {
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })
}

// UpdateInput replaces the plan's sections.
type UpdateInput struct {
	Sections []Section `json:"sections"`
}

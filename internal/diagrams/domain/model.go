package domain

import "github.com/idem-lexis/lexis-api/internal/storage"

// Type is a supported diagram kind.
type Type string

const (
	TypeArchitecture Type = "architecture"
	TypeContext      Type = "context"
	TypeSequence     Type = "sequence"
	TypeClass        Type = "class"
	TypeUseCase      Type = "use-case"
)

// AllTypes lists every diagram kind in generation order.
func AllTypes() []Type {
	return []Type{TypeArchitecture, TypeContext, TypeSequence, TypeClass, TypeUseCase}
}

// Valid reports whether t is a known diagram kind.
func (t Type) Valid() bool {
	for _, k := range AllTypes() {
		if k == t {
			return true
		}
	}
	return false
}

// Section holds one Mermaid diagram.
type Section struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    Type   `json:"type"`
	Data    string `json:"data"`
	Summary string `json:"summary,omitempty"`
}

// Diagram is stored once per project; its id is the project id.
type Diagram struct {
	storage.Base
	ProjectID string    `json:"projectId"`
	UserID    string    `json:"userId"`
	Sections  []Section `json:"sections"`
}

// GenerateInput optionally narrows which diagram kinds are produced.
type GenerateInput struct {
	Types []Type `json:"types"`
}

// UpdateInput replaces the diagram sections.
type UpdateInput struct {
	Sections []Section `json:"sections"`
}

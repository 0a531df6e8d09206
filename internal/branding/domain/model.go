package domain

import "github.com/idem-lexis/lexis-api/internal/storage"

// Logo is one generated logo concept.
type Logo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	SVG     string `json:"svg"`
	Concept string `json:"concept"`
}

// ColorModel is a palette of hex colors, primary first.
type ColorModel struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	URL    string   `json:"url"`
	Colors []string `json:"colors"`
}

// TypographyModel pairs a heading font with a body font.
type TypographyModel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PrimaryFont   string `json:"primaryFont"`
	SecondaryFont string `json:"secondaryFont"`
	URL           string `json:"url"`
}

// Branding is stored once per project; its id is the project id.
type Branding struct {
	storage.Base
	ProjectID            string            `json:"projectId"`
	UserID               string            `json:"userId"`
	Logos                []Logo            `json:"logos"`
	Colors               []ColorModel      `json:"colors"`
	Typography           []TypographyModel `json:"typography"`
	SelectedLogoID       string            `json:"selectedLogoId,omitempty"`
	SelectedColorID      string            `json:"selectedColorId,omitempty"`
	SelectedTypographyID string            `json:"selectedTypographyId,omitempty"`
	BrandDefinition      string            `json:"brandDefinition,omitempty"`
}

// SelectedColors returns the selected palette, or the first one.
func (b *Branding) SelectedColors() *ColorModel {
	for i := range b.Colors {
		if b.Colors[i].ID == b.SelectedColorID {
			return &b.Colors[i]
		}
	}
	if len(b.Colors) > 0 {
		return &b.Colors[0]
	}
	return nil
}

// SelectedFonts returns the selected typography, or the first one.
func (b *Branding) SelectedFonts() *TypographyModel {
	for i := range b.Typography {
		if b.Typography[i].ID == b.SelectedTypographyID {
			return &b.Typography[i]
		}
	}
	if len(b.Typography) > 0 {
		return &b.Typography[0]
	}
	return nil
}

// UpdateInput changes selections or the brand definition. Nil fields are left untouched.
type UpdateInput struct {
	SelectedLogoID       *string `json:"selectedLogoId"`
	SelectedColorID      *string `json:"selectedColorId"`
	SelectedTypographyID *string `json:"selectedTypographyId"`
	BrandDefinition      *string `json:"brandDefinition"`
}

package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/idem-lexis/lexis-api/internal/artifact"
	"github.com/idem-lexis/lexis-api/internal/branding/domain"
	"github.com/idem-lexis/lexis-api/internal/llm"
	"github.com/idem-lexis/lexis-api/internal/logging"
	projectdomain "github.com/idem-lexis/lexis-api/internal/projects/domain"
	"github.com/idem-lexis/lexis-api/internal/prompts"
	"github.com/idem-lexis/lexis-api/internal/storage"
)

const (
	colorsMaxTokens     = 2048
	typographyMaxTokens = 1024
	definitionMaxTokens = 512
	logosMaxTokens      = 8192

	coolorsURL     = "https://coolors.co/"
	googleFontsURL = "https://fonts.googleapis.com/css2"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type BrandingService struct {
	repo     storage.Repository[domain.Branding]
	projects artifact.Projects
	llm      *llm.Client
}

func NewBrandingService(repo storage.Repository[domain.Branding], projects artifact.Projects, client *llm.Client) *BrandingService {
	return &BrandingService{repo: repo, projects: projects, llm: client}
}

type colorsReply struct {
	Colors []struct {
		Name   string   `json:"name"`
		Colors []string `json:"colors"`
	} `json:"colors"`
}

type typographyReply struct {
	Typography []struct {
		Name          string `json:"name"`
		PrimaryFont   string `json:"primaryFont"`
		SecondaryFont string `json:"secondaryFont"`
	} `json:"typography"`
}

type definitionReply struct {
	BrandDefinition string `json:"brandDefinition"`
}

type logosReply struct {
	Logos []struct {
		Name    string `json:"name"`
		Concept string `json:"concept"`
		SVG     string `json:"svg"`
	} `json:"logos"`
}

// Generate builds a complete branding for the project, replacing any previous one.
// Palettes, typography and the brand definition are requested concurrently;
// logos follow once a palette is known.
func (s *BrandingService) Generate(ctx context.Context, userID, projectID string) (*domain.Branding, error) {
	p, err := s.projects.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	project := prompts.FromProject(p)

	var (
		colors     colorsReply
		typography typographyReply
		definition definitionReply
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.ask(gctx, prompts.BrandingColors, project, nil, colorsMaxTokens, &colors)
	})
	g.Go(func() error {
		return s.ask(gctx, prompts.BrandingTypography, project, nil, typographyMaxTokens, &typography)
	})
	g.Go(func() error {
		return s.ask(gctx, prompts.BrandingDefinition, project, nil, definitionMaxTokens, &definition)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &domain.Branding{
		Base:            storage.Base{ID: p.ID},
		ProjectID:       p.ID,
		UserID:          p.UserID,
		BrandDefinition: strings.TrimSpace(definition.BrandDefinition),
	}
	for _, c := range colors.Colors {
		palette := normalizeColors(c.Colors)
		if len(palette) == 0 {
			continue
		}
		b.Colors = append(b.Colors, domain.ColorModel{
			ID:     uuid.NewString(),
			Name:   strings.TrimSpace(c.Name),
			URL:    paletteURL(palette),
			Colors: palette,
		})
	}
	for _, t := range typography.Typography {
		primary, secondary := strings.TrimSpace(t.PrimaryFont), strings.TrimSpace(t.SecondaryFont)
		if primary == "" {
			continue
		}
		if secondary == "" {
			secondary = primary
		}
		b.Typography = append(b.Typography, domain.TypographyModel{
			ID:            uuid.NewString(),
			Name:          strings.TrimSpace(t.Name),
			PrimaryFont:   primary,
			SecondaryFont: secondary,
			URL:           fontsURL(primary, secondary),
		})
	}
	if len(b.Colors) == 0 {
		return nil, fmt.Errorf("%w: no usable color palette", llm.ErrInvalidJSON)
	}
	b.SelectedColorID = b.Colors[0].ID
	if len(b.Typography) > 0 {
		b.SelectedTypographyID = b.Typography[0].ID
	}

	logos, err := s.generateLogos(ctx, p, b)
	if err != nil {
		return nil, err
	}
	b.Logos = logos
	b.SelectedLogoID = logos[0].ID

	saved, err := storage.Upsert(ctx, s.repo, b)
	if err != nil {
		return nil, err
	}
	logging.New(ctx).Info("branding.generate", "branding generated",
		zap.String("project_id", p.ID),
		zap.Int("palettes", len(b.Colors)),
		zap.Int("logos", len(b.Logos)),
	)
	return saved, nil
}

// GenerateLogos replaces the logo variations of an existing branding using its selected palette.
func (s *BrandingService) GenerateLogos(ctx context.Context, userID, projectID string) (*domain.Branding, error) {
	b, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	p, err := s.projects.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	logos, err := s.generateLogos(ctx, p, b)
	if err != nil {
		return nil, err
	}
	b.Logos = logos
	b.SelectedLogoID = logos[0].ID
	return s.repo.Update(ctx, b.ID, b)
}

// Get returns the project's branding.
func (s *BrandingService) Get(ctx context.Context, userID, projectID string) (*domain.Branding, error) {
	if _, err := s.projects.Get(ctx, userID, projectID); err != nil {
		return nil, err
	}
	b, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, artifact.NotFound("branding")
		}
		return nil, err
	}
	return b, nil
}

// Update changes selections. Selected ids must name an existing item.
func (s *BrandingService) Update(ctx context.Context, userID, projectID string, in domain.UpdateInput) (*domain.Branding, error) {
	b, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	if in.SelectedLogoID != nil {
		if !containsID(len(b.Logos), func(i int) string { return b.Logos[i].ID }, *in.SelectedLogoID) {
			return nil, artifact.Invalid("unknown logo %q", *in.SelectedLogoID)
		}
		b.SelectedLogoID = *in.SelectedLogoID
	}
	if in.SelectedColorID != nil {
		if !containsID(len(b.Colors), func(i int) string { return b.Colors[i].ID }, *in.SelectedColorID) {
			return nil, artifact.Invalid("unknown color palette %q", *in.SelectedColorID)
		}
		b.SelectedColorID = *in.SelectedColorID
	}
	if in.SelectedTypographyID != nil {
		if !containsID(len(b.Typography), func(i int) string { return b.Typography[i].ID }, *in.SelectedTypographyID) {
			return nil, artifact.Invalid("unknown typography %q", *in.SelectedTypographyID)
		}
		b.SelectedTypographyID = *in.SelectedTypographyID
	}
	if in.BrandDefinition != nil {
		b.BrandDefinition = strings.TrimSpace(*in.BrandDefinition)
	}
	return s.repo.Update(ctx, b.ID, b)
}

// Delete removes the project's branding.
func (s *BrandingService) Delete(ctx context.Context, userID, projectID string) error {
	if _, err := s.Get(ctx, userID, projectID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, projectID)
}

func (s *BrandingService) generateLogos(ctx context.Context, p *projectdomain.Project, b *domain.Branding) ([]domain.Logo, error) {
	params := map[string]any{"brandDefinition": b.BrandDefinition}
	if c := b.SelectedColors(); c != nil {
		params["palette"] = c.Colors
	}
	if t := b.SelectedFonts(); t != nil {
		params["typography"] = t.PrimaryFont
	}

	var reply logosReply
	if err := s.ask(ctx, prompts.BrandingLogos, prompts.FromProject(p), params, logosMaxTokens, &reply); err != nil {
		return nil, err
	}

	logos := make([]domain.Logo, 0, len(reply.Logos))
	for _, l := range reply.Logos {
		svg := strings.TrimSpace(llm.StripFences(l.SVG))
		if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
			continue
		}
		logos = append(logos, domain.Logo{
			ID:      uuid.NewString(),
			Name:    strings.TrimSpace(l.Name),
			Concept: strings.TrimSpace(l.Concept),
			SVG:     svg,
		})
	}
	if len(logos) == 0 {
		return nil, fmt.Errorf("%w: no usable svg logo", llm.ErrInvalidJSON)
	}
	return logos, nil
}

func (s *BrandingService) ask(ctx context.Context, name prompts.Name, project prompts.ProjectContext, params map[string]any, maxTokens int, out any) error {
	prompt, err := prompts.Render(name, prompts.Data{Project: project, Params: params})
	if err != nil {
		return err
	}
	if err := s.llm.GenerateJSON(ctx, prompt.Request(maxTokens), out); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func normalizeColors(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if !strings.HasPrefix(c, "#") {
			c = "#" + c
		}
		if hexColor.MatchString(c) {
			out = append(out, strings.ToUpper(c))
		}
	}
	return out
}

func paletteURL(colors []string) string {
	parts := make([]string, len(colors))
	for i, c := range colors {
		parts[i] = strings.ToLower(strings.TrimPrefix(c, "#"))
	}
	return coolorsURL + strings.Join(parts, "-")
}

func fontsURL(fonts ...string) string {
	q := url.Values{}
	seen := map[string]bool{}
	for _, f := range fonts {
		if seen[f] {
			continue
		}
		seen[f] = true
		q.Add("family", f)
	}
	q.Set("display", "swap")
	return googleFontsURL + "?" + q.Encode()
}

func containsID(n int, id func(int) string, want string) bool {
	for i := 0; i < n; i++ {
		if id(i) == want {
			return true
		}
	}
	return false
}

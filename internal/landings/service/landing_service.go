package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/idem-lexis/lexis-api/internal/artifact"
	brandingdomain "github.com/idem-lexis/lexis-api/internal/branding/domain"
	"github.com/idem-lexis/lexis-api/internal/landings/domain"
	"github.com/idem-lexis/lexis-api/internal/llm"
	"github.com/idem-lexis/lexis-api/internal/logging"
	"github.com/idem-lexis/lexis-api/internal/prompts"
	"github.com/idem-lexis/lexis-api/internal/storage"
)

const maxTokens = 16384

// Brandings looks up a project's branding so the page can reuse its palette and fonts.
type Brandings interface {
	FindByID(ctx context.Context, id string) (*brandingdomain.Branding, error)
}

type LandingService struct {
	repo      storage.Repository[domain.Landing]
	projects  artifact.Projects
	brandings Brandings
	llm       *llm.Client
}

// NewLandingService builds the service. brandings may be nil.
func NewLandingService(repo storage.Repository[domain.Landing], projects artifact.Projects, brandings Brandings, client *llm.Client) *LandingService {
	return &LandingService{repo: repo, projects: projects, brandings: brandings, llm: client}
}

type landingReply struct {
	HTML     string   `json:"html"`
	Sections []string `json:"sections"`
	Theme    string   `json:"theme"`
}

// Generate renders a landing page for the project, replacing any previous one.
func (s *LandingService) Generate(ctx context.Context, userID, projectID string) (*domain.Landing, error) {
	p, err := s.projects.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	params := map[string]any{}
	if s.brandings != nil {
		b, err := s.brandings.FindByID(ctx, p.ID)
		switch {
		case err == nil:
			params["brandDefinition"] = b.BrandDefinition
			if c := b.SelectedColors(); c != nil {
				params["palette"] = c.Colors
			}
			if f := b.SelectedFonts(); f != nil {
				params["fonts"] = []string{f.PrimaryFont, f.SecondaryFont}
			}
		case !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}
	}

	prompt, err := prompts.Render(prompts.Landing, prompts.Data{Project: prompts.FromProject(p), Params: params})
	if err != nil {
		return nil, err
	}
	var reply landingReply
	if err := s.llm.GenerateJSON(ctx, prompt.Request(maxTokens), &reply); err != nil {
		return nil, err
	}

	html := cleanHTML(reply.HTML)
	if !isHTMLDocument(html) {
		return nil, fmt.Errorf("%w: reply carries no html document", llm.ErrInvalidJSON)
	}

	l := &domain.Landing{
		Base:      storage.Base{ID: p.ID},
		ProjectID: p.ID,
		UserID:    p.UserID,
		HTML:      html,
		Sections:  reply.Sections,
		Theme:     strings.TrimSpace(reply.Theme),
	}
	saved, err := storage.Upsert(ctx, s.repo, l)
	if err != nil {
		return nil, err
	}
	logging.New(ctx).Info("landings.generate", "landing generated",
		zap.String("project_id", p.ID), zap.Int("html_bytes", len(html)))
	return saved, nil
}

func (s *LandingService) Get(ctx context.Context, userID, projectID string) (*domain.Landing, error) {
	if _, err := s.projects.Get(ctx, userID, projectID); err != nil {
		return nil, err
	}
	l, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, artifact.NotFound("landing")
		}
		return nil, err
	}
	return l, nil
}

func (s *LandingService) Update(ctx context.Context, userID, projectID string, in domain.UpdateInput) (*domain.Landing, error) {
	l, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if in.HTML != nil {
		html := cleanHTML(*in.HTML)
		if !isHTMLDocument(html) {
			return nil, artifact.Invalid("html must be a complete document")
		}
		l.HTML = html
	}
	if in.Sections != nil {
		l.Sections = *in.Sections
	}
	if in.Theme != nil {
		l.Theme = strings.TrimSpace(*in.Theme)
	}
	return s.repo.Update(ctx, l.ID, l)
}

func (s *LandingService) Delete(ctx context.Context, userID, projectID string) error {
	if _, err := s.Get(ctx, userID, projectID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, projectID)
}

func cleanHTML(s string) string {
	return strings.TrimSpace(llm.StripFences(s))
}

func isHTMLDocument(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<html") && strings.Contains(lower, "</html>")
}

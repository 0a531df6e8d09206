package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/idem-lexis/lexis-api/internal/artifact"
	"github.com/idem-lexis/lexis-api/internal/diagrams/domain"
	"github.com/idem-lexis/lexis-api/internal/llm"
	"github.com/idem-lexis/lexis-api/internal/logging"
	"github.com/idem-lexis/lexis-api/internal/prompts"
	"github.com/idem-lexis/lexis-api/internal/storage"
)

const maxTokens = 8192

type DiagramService struct {
	repo     storage.Repository[domain.Diagram]
	projects artifact.Projects
	llm      *llm.Client
}

func NewDiagramService(repo storage.Repository[domain.Diagram], projects artifact.Projects, client *llm.Client) *DiagramService {
	return &DiagramService{repo: repo, projects: projects, llm: client}
}

type diagramReply struct {
	Sections []domain.Section `json:"sections"`
}

// Generate produces one Mermaid diagram per requested kind, all kinds when none are named.
func (s *DiagramService) Generate(ctx context.Context, userID, projectID string, in domain.GenerateInput) (*domain.Diagram, error) {
	types := in.Types
	if len(types) == 0 {
		types = domain.AllTypes()
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		if !t.Valid() {
			return nil, artifact.Invalid("unknown diagram type %q", t)
		}
		names = append(names, string(t))
	}

	p, err := s.projects.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	prompt, err := prompts.Render(prompts.Diagrams, prompts.Data{
		Project: prompts.FromProject(p),
		Params:  map[string]any{"types": names},
	})
	if err != nil {
		return nil, err
	}
	var reply diagramReply
	if err := s.llm.GenerateJSON(ctx, prompt.Request(maxTokens), &reply); err != nil {
		return nil, err
	}

	sections := normalize(reply.Sections)
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: no mermaid diagrams", llm.ErrInvalidJSON)
	}

	d := &domain.Diagram{
		Base:      storage.Base{ID: p.ID},
		ProjectID: p.ID,
		UserID:    p.UserID,
		Sections:  sections,
	}
	saved, err := storage.Upsert(ctx, s.repo, d)
	if err != nil {
		return nil, err
	}
	logging.New(ctx).Info("diagrams.generate", "diagrams generated",
		zap.String("project_id", p.ID), zap.Int("sections", len(sections)))
	return saved, nil
}

func (s *DiagramService) Get(ctx context.Context, userID, projectID string) (*domain.Diagram, error) {
	if _, err := s.projects.Get(ctx, userID, projectID); err != nil {
		return nil, err
	}
	d, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, artifact.NotFound("diagram")
		}
		return nil, err
	}
	return d, nil
}

// Update replaces the stored sections. Unknown diagram kinds are rejected.
func (s *DiagramService) Update(ctx context.Context, userID, projectID string, in domain.UpdateInput) (*domain.Diagram, error) {
	d, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	for _, sec := range in.Sections {
		if !sec.Type.Valid() {
			return nil, artifact.Invalid("unknown diagram type %q", sec.Type)
		}
	}
	sections := normalize(in.Sections)
	if len(sections) == 0 {
		return nil, artifact.Invalid("at least one diagram with mermaid data is required")
	}
	d.Sections = sections
	return s.repo.Update(ctx, d.ID, d)
}

func (s *DiagramService) Delete(ctx context.Context, userID, projectID string) error {
	if _, err := s.Get(ctx, userID, projectID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, projectID)
}

// normalize strips code fences from the mermaid source and drops empty or unknown diagrams.
func normalize(in []domain.Section) []domain.Section {
	out := make([]domain.Section, 0, len(in))
	for _, sec := range in {
		sec.Data = strings.TrimSpace(llm.StripFences(sec.Data))
		if sec.Data == "" || !sec.Type.Valid() {
			continue
		}
		if sec.ID == "" {
			sec.ID = uuid.NewString()
		}
		sec.Name = strings.TrimSpace(sec.Name)
		if sec.Name == "" {
			sec.Name = string(sec.Type)
		}
		sec.Summary = strings.TrimSpace(sec.Summary)
		out = append(out, sec)
	}
	return out
}

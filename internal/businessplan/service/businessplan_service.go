package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/idem-lexis/lexis-api/internal/artifact"
	"github.com/idem-lexis/lexis-api/internal/businessplan/domain"
	"github.com/idem-lexis/lexis-api/internal/llm"
	"github.com/idem-lexis/lexis-api/internal/logging"
	"github.com/idem-lexis/lexis-api/internal/prompts"
	"github.com/idem-lexis/lexis-api/internal/storage"
)

const maxTokens = 8192

type BusinessPlanService struct {
	repo     storage.Repository[domain.BusinessPlan]
	projects artifact.Projects
	llm      *llm.Client
}

func NewBusinessPlanService(repo storage.Repository[domain.BusinessPlan], projects artifact.Projects, client *llm.Client) *BusinessPlanService {
	return &BusinessPlanService{repo: repo, projects: projects, llm: client}
}

type planReply struct {
	Sections []domain.Section `json:"sections"`
}

// Generate asks the model for a full plan and stores it, replacing any previous plan.
func (s *BusinessPlanService) Generate(ctx context.Context, userID, projectID string) (*domain.BusinessPlan, error) {
	p, err := s.projects.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	prompt, err := prompts.Render(prompts.BusinessPlan, prompts.Data{Project: prompts.FromProject(p)})
	if err != nil {
		return nil, err
	}
	var reply planReply
	if err := s.llm.GenerateJSON(ctx, prompt.Request(maxTokens), &reply); err != nil {
		return nil, err
	}

	sections := normalize(reply.Sections)
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: plan has no sections", llm.ErrInvalidJSON)
	}

	plan := &domain.BusinessPlan{
		Base:      storage.Base{ID: p.ID},
		ProjectID: p.ID,
		UserID:    p.UserID,
		Sections:  sections,
	}
	saved, err := storage.Upsert(ctx, s.repo, plan)
	if err != nil {
		return nil, err
	}
	logging.New(ctx).Info("businessplan.generate", "business plan generated",
		zap.String("project_id", p.ID), zap.Int("sections", len(sections)))
	return saved, nil
}

// Get returns the project's plan with sections in order.
func (s *BusinessPlanService) Get(ctx context.Context, userID, projectID string) (*domain.BusinessPlan, error) {
	if _, err := s.projects.Get(ctx, userID, projectID); err != nil {
		return nil, err
	}
	plan, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, artifact.NotFound("business plan")
		}
		return nil, err
	}
	domain.SortSections(plan.Sections)
	return plan, nil
}

// Update replaces the sections of an existing plan.
func (s *BusinessPlanService) Update(ctx context.Context, userID, projectID string, in domain.UpdateInput) (*domain.BusinessPlan, error) {
	plan, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	sections := normalize(in.Sections)
	if len(sections) == 0 {
		return nil, artifact.Invalid("at least one section with a name is required")
	}
	plan.Sections = sections
	return s.repo.Update(ctx, plan.ID, plan)
}

// Delete removes the project's plan.
func (s *BusinessPlanService) Delete(ctx context.Context, userID, projectID string) error {
	if _, err := s.Get(ctx, userID, projectID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, projectID)
}

// normalize drops nameless sections, fills ids and missing order, and sorts.
func normalize(in []domain.Section) []domain.Section {
	out := make([]domain.Section, 0, len(in))
	for i, sec := range in {
		sec.Name = strings.TrimSpace(sec.Name)
		if sec.Name == "" {
			continue
		}
		if sec.ID == "" {
			sec.ID = uuid.NewString()
		}
		if sec.Type == "" {
			sec.Type = strings.ToLower(strings.ReplaceAll(sec.Name, " ", "_"))
		}
		if sec.Order == 0 {
			sec.Order = i + 1
		}
		sec.Data = strings.TrimSpace(sec.Data)
		out = append(out, sec)
	}
	domain.SortSections(out)
	return out
}

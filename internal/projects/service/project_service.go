package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/idem-lexis/lexis-api/internal/projects/domain"
	"github.com/idem-lexis/lexis-api/internal/storage"
)

const publicIDPrefix = "lexis"

// Cleanup removes records a project owns. It must treat "nothing to remove" as success.
type Cleanup func(ctx context.Context, projectID string) error

// ProjectService handles project-related business logic
type ProjectService struct {
	repo     storage.Repository[domain.Project]
	newID    func(prefix string) (string, error)
	cleanups []Cleanup
}

// NewProjectService creates a new project service
func NewProjectService(repo storage.Repository[domain.Project]) *ProjectService {
	return &ProjectService{repo: repo, newID: domain.NewPublicID}
}

// OnDelete registers cleanups that run before a project is deleted.
func (s *ProjectService) OnDelete(fns ...Cleanup) {
	s.cleanups = append(s.cleanups, fns...)
}

// Create validates the input and stores a new project for userID.
func (s *ProjectService) Create(ctx context.Context, userID string, in domain.CreateInput) (*domain.Project, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalid)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", domain.ErrInvalid)
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, fmt.Errorf("%w: description required", domain.ErrInvalid)
	}

	for i := 0; i < 5; i++ {
		publicID, err := s.newID(publicIDPrefix)
		if err != nil {
			return nil, err
		}

		p := &domain.Project{
			Base:            storage.Base{ID: publicID},
			UserID:          userID,
			Name:            name,
			Description:     desc,
			Type:            strings.TrimSpace(in.Type),
			Scope:           strings.TrimSpace(in.Scope),
			Targets:         strings.TrimSpace(in.Targets),
			Constraints:     in.Constraints,
			TeamSize:        strings.TrimSpace(in.TeamSize),
			BudgetIntervals: strings.TrimSpace(in.BudgetIntervals),
		}
		created, err := s.repo.Create(ctx, p)
		if err == nil {
			return created, nil
		}

		// id collision → retry
		if errors.Is(err, storage.ErrAlreadyExists) {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to generate unique project id")
}

// List returns all projects for a user
func (s *ProjectService) List(ctx context.Context, userID string) ([]domain.Project, error) {
	return s.repo.FindAll(ctx, storage.Filter{"userId": userID})
}

// Get returns the project when userID owns it. A foreign project reads as ErrNotFound.
func (s *ProjectService) Get(ctx context.Context, userID, projectID string) (*domain.Project, error) {
	p, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// Update applies the non-nil fields of in.
func (s *ProjectService) Update(ctx context.Context, userID, projectID string, in domain.UpdateInput) (*domain.Project, error) {
	p, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", domain.ErrInvalid)
		}
		p.Name = name
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if desc == "" {
			return nil, fmt.Errorf("%w: description cannot be empty", domain.ErrInvalid)
		}
		p.Description = desc
	}
	if in.Type != nil {
		p.Type = strings.TrimSpace(*in.Type)
	}
	if in.Scope != nil {
		p.Scope = strings.TrimSpace(*in.Scope)
	}
	if in.Targets != nil {
		p.Targets = strings.TrimSpace(*in.Targets)
	}
	if in.Constraints != nil {
		p.Constraints = *in.Constraints
	}
	if in.TeamSize != nil {
		p.TeamSize = strings.TrimSpace(*in.TeamSize)
	}
	if in.BudgetIntervals != nil {
		p.BudgetIntervals = strings.TrimSpace(*in.BudgetIntervals)
	}

	return s.repo.Update(ctx, projectID, p)
}

// Delete removes a project owned by userID together with its artifacts.
// When a cleanup fails the project is kept so the delete can be retried.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID string) error {
	if _, err := s.Get(ctx, userID, projectID); err != nil {
		return err
	}
	var errs []error
	for _, fn := range s.cleanups {
		if err := fn(ctx, projectID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("remove artifacts of project %s: %w", projectID, err)
	}
	if err := s.repo.Delete(ctx, projectID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

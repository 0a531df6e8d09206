package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/idem-lexis/lexis-api/internal/archetypes/domain"
	"github.com/idem-lexis/lexis-api/internal/logging"
	"github.com/idem-lexis/lexis-api/internal/storage"
)

type ArchetypeService struct {
	repo storage.Repository[domain.Archetype]
}

func NewArchetypeService(repo storage.Repository[domain.Archetype]) *ArchetypeService {
	return &ArchetypeService{repo: repo}
}

func (s *ArchetypeService) Create(ctx context.Context, a *domain.Archetype) (*domain.Archetype, error) {
	normalize(a)
	if err := a.Validate(); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, a)
	if errors.Is(err, storage.ErrAlreadyExists) {
		return nil, fmt.Errorf("%w: id %q already exists", domain.ErrInvalid, a.ID)
	}
	return created, err
}

// List returns archetypes, optionally only those for provider.
func (s *ArchetypeService) List(ctx context.Context, provider string) ([]domain.Archetype, error) {
	var filter storage.Filter
	if provider != "" {
		filter = storage.Filter{"provider": strings.ToLower(provider)}
	}
	return s.repo.FindAll(ctx, filter)
}

func (s *ArchetypeService) Get(ctx context.Context, id string) (*domain.Archetype, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// Update replaces an archetype.
func (s *ArchetypeService) Update(ctx context.Context, id string, a *domain.Archetype) (*domain.Archetype, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	normalize(a)
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, a)
}

func (s *ArchetypeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

// Seed inserts the archetypes whose id is not stored yet and returns how many were added.
func (s *ArchetypeService) Seed(ctx context.Context, items []domain.Archetype) (int, error) {
	added := 0
	for i := range items {
		a := items[i]
		if a.ID == "" {
			return added, fmt.Errorf("%w: seed archetype %q has no id", domain.ErrInvalid, a.Name)
		}
		if _, err := s.repo.FindByID(ctx, a.ID); err == nil {
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return added, err
		}
		if _, err := s.Create(ctx, &a); err != nil {
			return added, fmt.Errorf("seed %s: %w", a.ID, err)
		}
		added++
	}
	logging.Base().Info("archetypes seeded", zap.Int("added", added), zap.Int("total", len(items)))
	return added, nil
}

// SeedFile is the YAML layout of ARCHETYPES_SEED_PATH.
type SeedFile struct {
	Archetypes []domain.Archetype `yaml:"archetypes"`
}

// LoadSeedFile parses a YAML seed file.
func LoadSeedFile(path string) ([]domain.Archetype, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetype seed: %w", err)
	}
	return ParseSeed(raw)
}

// ParseSeed parses YAML seed content.
func ParseSeed(raw []byte) ([]domain.Archetype, error) {
	var f SeedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse archetype seed: %w", err)
	}
	return f.Archetypes, nil
}

func normalize(a *domain.Archetype) {
	a.Name = strings.TrimSpace(a.Name)
	a.Provider = domain.Provider(strings.ToLower(strings.TrimSpace(string(a.Provider))))
	a.Category = strings.TrimSpace(a.Category)
}

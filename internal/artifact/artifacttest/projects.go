// Package artifacttest wires an in-memory project store for artifact tests.
package artifacttest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/idem-lexis/lexis-api/internal/projects/domain"
	"github.com/idem-lexis/lexis-api/internal/projects/service"
	"github.com/idem-lexis/lexis-api/internal/storage"
	"github.com/idem-lexis/lexis-api/internal/storage/memory"
)

// Projects returns a project service over a fresh memory backend.
func Projects() *service.ProjectService {
	return service.NewProjectService(storage.NewRepository[domain.Project](memory.New(), storage.ModelProjects))
}

// CreateProject stores a sample project owned by userID.
func CreateProject(t *testing.T, svc *service.ProjectService, userID string) *domain.Project {
	t.Helper()
	p, err := svc.Create(context.Background(), userID, domain.CreateInput{
		Name:        "Lexis",
		Description: "Generates product artifacts from a short description",
		Targets:     "indie founders",
		Constraints: []string{"gdpr"},
	})
	require.NoError(t, err)
	return p
}

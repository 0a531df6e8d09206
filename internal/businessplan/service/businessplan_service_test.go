package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idem-lexis/lexis-api/internal/artifact"
	"github.com/idem-lexis/lexis-api/internal/artifact/artifacttest"
	"github.com/idem-lexis/lexis-api/internal/businessplan/domain"
	"github.com/idem-lexis/lexis-api/internal/llm"
	"github.com/idem-lexis/lexis-api/internal/llm/llmtest"
	projectdomain "github.com/idem-lexis/lexis-api/internal/projects/domain"
	"github.com/idem-lexis/lexis-api/internal/storage"
	"github.com/idem-lexis/lexis-api/internal/storage/memory"
)

const planJSON = `{"sections":[
	{"name":"Market Analysis","order":3,"data":"TAM is large"},
	{"name":"Executive Summary","type":"summary","order":1,"data":"  Lexis helps founders  "},
	{"name":"","order":2,"data":"dropped"},
	{"name":"Business Model","order":2,"data":"Subscriptions"}
]}`

func TestBusinessPlanLifecycle(t *testing.T) {
	ctx := context.Background()
	projects := artifacttest.Projects()
	p := artifacttest.CreateProject(t, projects, "alice")
	fake := llmtest.New(planJSON)
	svc := NewBusinessPlanService(storage.NewRepository[domain.BusinessPlan](memory.New(), storage.ModelBusinessPlans), projects, llmtest.Client(fake))

	_, err := svc.Get(ctx, "alice", p.ID)
	assert.ErrorIs(t, err, artifact.ErrNotFound)

	plan, err := svc.Generate(ctx, "alice", p.ID)
	require.NoError(t, err)
	require.Len(t, plan.Sections, 3)
	assert.Equal(t, "Executive Summary", plan.Sections[0].Name)
	assert.Equal(t, "Business Model", plan.Sections[1].Name)
	assert.Equal(t, "market_analysis", plan.Sections[2].Type)
	assert.Equal(t, "Lexis helps founders", plan.Sections[0].Data)
	assert.NotEmpty(t, plan.Sections[0].ID)
	assert.Contains(t, fake.Requests[0].Prompt, "Project name: Lexis")

	_, err = svc.Update(ctx, "alice", p.ID, domain.UpdateInput{})
	assert.ErrorIs(t, err, artifact.ErrInvalid)

	updated, err := svc.Update(ctx, "alice", p.ID, domain.UpdateInput{Sections: []domain.Section{
		{Name: "Risks", Order: 2}, {Name: "Team", Order: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Team", updated.Sections[0].Name)

	got, err := svc.Get(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Team", got.Sections[0].Name)

	_, err = svc.Get(ctx, "bob", p.ID)
	assert.ErrorIs(t, err, projectdomain.ErrNotFound, "foreign project")

	require.NoError(t, svc.Delete(ctx, "alice", p.ID))
	_, err = svc.Get(ctx, "alice", p.ID)
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestBusinessPlanGenerate_EmptyPlan(t *testing.T) {
	projects := artifacttest.Projects()
	p := artifacttest.CreateProject(t, projects, "alice")
	svc := NewBusinessPlanService(storage.NewRepository[domain.BusinessPlan](memory.New(), storage.ModelBusinessPlans), projects, llmtest.Client(llmtest.New(`{"sections":[]}`)))

	_, err := svc.Generate(context.Background(), "alice", p.ID)
	assert.ErrorIs(t, err, llm.ErrInvalidJSON)
}

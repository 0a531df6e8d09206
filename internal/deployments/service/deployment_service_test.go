package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	archetypes "github.com/idem-lexis/lexis-api/internal/archetypes/domain"
	"github.com/idem-lexis/lexis-api/internal/artifact"
	"github.com/idem-lexis/lexis-api/internal/artifact/artifacttest"
	"github.com/idem-lexis/lexis-api/internal/deployments/domain"
	"github.com/idem-lexis/lexis-api/internal/deployments/pricing"
	"github.com/idem-lexis/lexis-api/internal/github"
	"github.com/idem-lexis/lexis-api/internal/llm/llmtest"
	projectdomain "github.com/idem-lexis/lexis-api/internal/projects/domain"
	"github.com/idem-lexis/lexis-api/internal/storage"
	"github.com/idem-lexis/lexis-api/internal/storage/memory"
)

const defaultMain = `provider "aws" {
  region = var.region
}

resource "aws_instance" "web" {
  count         = var.instance_count
  instance_type = var.instance_type
}
`

type fakeArchetypes map[string]*archetypes.Archetype

func (f fakeArchetypes) Get(_ context.Context, id string) (*archetypes.Archetype, error) {
	a, ok := f[id]
	if !ok {
		return nil, archetypes.ErrNotFound
	}
	return a, nil
}

func catalog() fakeArchetypes {
	return fakeArchetypes{
		"aws-web": {
			Base:     storage.Base{ID: "aws-web"},
			Name:     "Web server",
			Provider: archetypes.ProviderAWS,
			TerraformVariables: []archetypes.TerraformVariable{
				{Name: "region", Type: archetypes.TypeString, Default: "eu-west-1"},
				{Name: "instance_type", Type: archetypes.TypeString, Required: true},
				{Name: "instance_count", Type: archetypes.TypeNumber, Default: 1},
				{Name: "ssh_key", Type: archetypes.TypeString, Sensitive: true},
			},
			DefaultMain: defaultMain,
		},
		"gcp-run": {
			Base:     storage.Base{ID: "gcp-run"},
			Name:     "Cloud Run",
			Provider: archetypes.ProviderGCP,
		},
	}
}

type fakePricer struct {
	hourly       float64
	err          error
	instanceType string
	region       string
}

func (f *fakePricer) HourlyUSD(_ context.Context, instanceType, region string) (float64, error) {
	f.instanceType, f.region = instanceType, region
	return f.hourly, f.err
}

type fakePusher struct {
	err     error
	files   map[string]string
	ensured string
}

func (f *fakePusher) Owner(context.Context) (string, error) {
	return "alice", nil
}

func (f *fakePusher) EnsureRepository(_ context.Context, owner, name string, _ bool) (*github.Repository, error) {
	f.ensured = owner + "/" + name
	return &github.Repository{Name: name, FullName: owner + "/" + name, HTMLURL: "https://github.com/" + owner + "/" + name, DefaultBranch: "main"}, nil
}

func (f *fakePusher) PushFiles(_ context.Context, _, _, branch, _ string, files map[string]string) (*github.PushResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.files = files
	return &github.PushResult{Branch: branch, CommitSHA: "abc"}, nil
}

type fixture struct {
	svc     *DeploymentService
	project *projectdomain.Project
	llm     *llmtest.Provider
	pricer  *fakePricer
	pusher  *fakePusher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	projects := artifacttest.Projects()
	f := &fixture{
		project: artifacttest.CreateProject(t, projects, "alice"),
		llm:     &llmtest.Provider{},
		pricer:  &fakePricer{hourly: 0.0104},
		pusher:  &fakePusher{},
	}
	repo := storage.NewRepository[domain.Deployment](memory.New(), storage.ModelDeployments)
	f.svc = NewDeploymentService(repo, projects, catalog(), llmtest.Client(f.llm), f.pusher, f.pricer)
	f.svc.now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) create(t *testing.T, in domain.CreateInput) *domain.Deployment {
	t.Helper()
	if in.ProjectID == "" {
		in.ProjectID = f.project.ID
	}
	if in.Name == "" {
		in.Name = "prod web"
	}
	if in.ArchetypeID == "" {
		in.ArchetypeID = "aws-web"
	}
	d, err := f.svc.Create(context.Background(), "alice", in)
	require.NoError(t, err)
	return d
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	d := f.create(t, domain.CreateInput{})
	assert.Equal(t, domain.StatusConfiguring, d.Status)
	assert.Equal(t, archetypes.ProviderAWS, d.Provider)
	assert.Equal(t, "development", d.Environment)
	assert.NotEmpty(t, d.ID)

	tests := []struct {
		name string
		in   domain.CreateInput
		want error
	}{
		{name: "foreign project", in: domain.CreateInput{ProjectID: "lexis-00000-0000", Name: "x", ArchetypeID: "aws-web"}, want: projectdomain.ErrNotFound},
		{name: "no name", in: domain.CreateInput{ProjectID: f.project.ID, ArchetypeID: "aws-web"}, want: artifact.ErrInvalid},
		{name: "unknown archetype", in: domain.CreateInput{ProjectID: f.project.ID, Name: "x", ArchetypeID: "nope"}, want: artifact.ErrInvalid},
		{name: "bad env key", in: domain.CreateInput{ProjectID: f.project.ID, Name: "x", ArchetypeID: "aws-web",
			EnvironmentVariables: []domain.EnvironmentVariable{{Key: "BAD-KEY"}}}, want: artifact.ErrInvalid},
		{name: "duplicate env key", in: domain.CreateInput{ProjectID: f.project.ID, Name: "x", ArchetypeID: "aws-web",
			EnvironmentVariables: []domain.EnvironmentVariable{{Key: "A"}, {Key: "A"}}}, want: artifact.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, "alice", tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestListAndOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.create(t, domain.CreateInput{})

	list, err := f.svc.List(ctx, "alice", f.project.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, d.ID, list[0].ID)

	list, err = f.svc.List(ctx, "bob", "")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.Get(ctx, "bob", d.ID)
	assert.ErrorIs(t, err, artifact.ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, "alice", d.ID))
	_, err = f.svc.Get(ctx, "alice", d.ID)
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestUpdate_KeepsMaskedSecretsAndResetsStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.create(t, domain.CreateInput{
		TerraformVariables:   map[string]any{"instance_type": "t3.micro"},
		EnvironmentVariables: []domain.EnvironmentVariable{{Key: "TOKEN", Value: "s3cret", Secret: true}},
	})
	f.llm.Fallback.Text = `{"mainTf":"resource \"x\" \"y\" {}"}`
	_, err := f.svc.GenerateTerraform(ctx, "alice", d.ID)
	require.NoError(t, err)

	vars := []domain.EnvironmentVariable{
		{Key: "TOKEN", Value: domain.Mask, Secret: true},
		{Key: "MODE", Value: "prod"},
	}
	updated, err := f.svc.Update(ctx, "alice", d.ID, domain.UpdateInput{EnvironmentVariables: &vars})
	require.NoError(t, err)
	assert.Equal(t, "s3cret", updated.EnvironmentVariables[0].Value)
	assert.Equal(t, domain.StatusGenerated, updated.Status, "env changes keep the generated files")

	updated, err = f.svc.Update(ctx, "alice", d.ID, domain.UpdateInput{TerraformVariables: map[string]any{"instance_type": "t3.large"}})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfiguring, updated.Status)
	assert.Nil(t, updated.GeneratedFiles)
}

func TestGenerateTerraform(t *testing.T) {
	ctx := context.Background()

	t.Run("uses the model's files when they check out", func(t *testing.T) {
		f := newFixture(t)
		d := f.create(t, domain.CreateInput{TerraformVariables: map[string]any{"instance_type": "t3.small", "ssh_key": "mine"}})
		f.llm.Fallback.Text = `{"mainTf":"resource \"aws_instance\" \"web\" {\n  instance_type = var.instance_type\n}","outputsTf":"output \"id\" {\n  value = aws_instance.web.id\n}"}`

		got, err := f.svc.GenerateTerraform(ctx, "alice", d.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusGenerated, got.Status)
		require.NotNil(t, got.GeneratedFiles)
		assert.Contains(t, got.GeneratedFiles.MainTf, "var.instance_type")
		assert.Contains(t, got.GeneratedFiles.OutputsTf, `output "id"`)
		assert.Contains(t, got.GeneratedFiles.VariablesTf, `variable "instance_type"`)

		tfvars := got.GeneratedFiles.TerraformTfvars
		assert.Contains(t, tfvars, `instance_type  = "t3.small"`)
		assert.Contains(t, tfvars, `region         = "eu-west-1"`)
		assert.Contains(t, tfvars, "instance_count = 1")
		assert.NotContains(t, tfvars, "mine", "sensitive values stay out of tfvars")

		require.Equal(t, 1, f.llm.Calls())
		assert.Contains(t, f.llm.Requests[0].Prompt, `variable "instance_type"`)
	})

	t.Run("falls back to the archetype main.tf", func(t *testing.T) {
		f := newFixture(t)
		d := f.create(t, domain.CreateInput{TerraformVariables: map[string]any{"instance_type": "t3.small"}})
		f.llm.Fallback.Text = `{"mainTf":"resource \"x\" \"y\" {\n  a = var.undeclared\n}"}`

		got, err := f.svc.GenerateTerraform(ctx, "alice", d.ID)
		require.NoError(t, err)
		assert.Equal(t, defaultMain, got.GeneratedFiles.MainTf)
		assert.Empty(t, got.GeneratedFiles.OutputsTf)
	})

	t.Run("rejects variables that do not fit the schema", func(t *testing.T) {
		f := newFixture(t)
		d := f.create(t, domain.CreateInput{TerraformVariables: map[string]any{"instance_count": "many"}})

		_, err := f.svc.GenerateTerraform(ctx, "alice", d.ID)
		require.ErrorIs(t, err, artifact.ErrInvalid)
		assert.ErrorIs(t, err, archetypes.ErrVariables)
		assert.Contains(t, err.Error(), "instance_type: required")
		assert.Equal(t, 0, f.llm.Calls())
	})
}

func TestPush(t *testing.T) {
	ctx := context.Background()

	t.Run("requires generated files", func(t *testing.T) {
		f := newFixture(t)
		d := f.create(t, domain.CreateInput{GitRepository: &domain.GitRepository{Name: "infra"}})
		_, err := f.svc.Push(ctx, "alice", d.ID)
		assert.ErrorIs(t, err, artifact.ErrUnprocessable)
	})

	t.Run("pushes and records the repository", func(t *testing.T) {
		f := newFixture(t)
		d := f.create(t, domain.CreateInput{
			TerraformVariables: map[string]any{"instance_type": "t3.small"},
			GitRepository:      &domain.GitRepository{Name: "infra"},
		})
		f.llm.Fallback.Err = errors.New("model down")
		_, err := f.svc.GenerateTerraform(ctx, "alice", d.ID)
		require.NoError(t, err)

		got, err := f.svc.Push(ctx, "alice", d.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPushed, got.Status)
		assert.Equal(t, "alice", got.GitRepository.Owner)
		assert.Equal(t, "main", got.GitRepository.Branch)
		assert.Equal(t, "https://github.com/alice/infra", got.GitRepository.URL)
		require.NotNil(t, got.PushedAt)
		assert.ElementsMatch(t, []string{"main.tf", "variables.tf", "terraform.tfvars"}, keys(f.pusher.files))
	})

	t.Run("rejects a foreign owner", func(t *testing.T) {
		f := newFixture(t)
		d := f.create(t, domain.CreateInput{
			TerraformVariables: map[string]any{"instance_type": "t3.small"},
			GitRepository:      &domain.GitRepository{Name: "infra", Owner: "someone-else"},
		})
		f.llm.Fallback.Err = errors.New("model down")
		_, err := f.svc.GenerateTerraform(ctx, "alice", d.ID)
		require.NoError(t, err)

		_, err = f.svc.Push(ctx, "alice", d.ID)
		assert.ErrorIs(t, err, artifact.ErrInvalid)
		assert.ErrorIs(t, err, github.ErrForeignOwner)
		assert.Empty(t, f.pusher.ensured)
		assert.Nil(t, f.pusher.files)

		stored, err := f.svc.Get(ctx, "alice", d.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusGenerated, stored.Status)
	})

	t.Run("marks the deployment failed", func(t *testing.T) {
		f := newFixture(t)
		d := f.create(t, domain.CreateInput{
			TerraformVariables: map[string]any{"instance_type": "t3.small"},
			GitRepository:      &domain.GitRepository{Name: "infra"},
		})
		f.llm.Fallback.Err = errors.New("model down")
		_, err := f.svc.GenerateTerraform(ctx, "alice", d.ID)
		require.NoError(t, err)

		f.pusher.err = &github.APIError{Status: 403, Message: "forbidden"}
		_, err = f.svc.Push(ctx, "alice", d.ID)
		require.Error(t, err)

		stored, err := f.svc.Get(ctx, "alice", d.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, stored.Status)
		assert.Contains(t, stored.LastError, "forbidden")
	})
}

func TestCostEstimate(t *testing.T) {
	ctx := context.Background()

	t.Run("aws", func(t *testing.T) {
		f := newFixture(t)
		d := f.create(t, domain.CreateInput{TerraformVariables: map[string]any{"instance_type": "t3.micro", "instance_count": 2}})

		est, err := f.svc.CostEstimate(ctx, "alice", d.ID)
		require.NoError(t, err)
		assert.Equal(t, "t3.micro", f.pricer.instanceType)
		assert.Equal(t, "eu-west-1", f.pricer.region)
		assert.Equal(t, 2, est.InstanceCount)
		assert.InDelta(t, 0.0208, est.HourlyUSD, 1e-9)
		assert.InDelta(t, 0.0208*730, est.MonthlyUSD, 1e-9)

		stored, err := f.svc.Get(ctx, "alice", d.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.CostEstimate)
	})

	t.Run("other providers", func(t *testing.T) {
		f := newFixture(t)
		d := f.create(t, domain.CreateInput{ArchetypeID: "gcp-run"})
		_, err := f.svc.CostEstimate(ctx, "alice", d.ID)
		assert.ErrorIs(t, err, artifact.ErrUnprocessable)
	})

	t.Run("no price", func(t *testing.T) {
		f := newFixture(t)
		d := f.create(t, domain.CreateInput{TerraformVariables: map[string]any{"instance_type": "z9.huge"}})
		f.pricer.err = pricing.ErrNoPrice
		_, err := f.svc.CostEstimate(ctx, "alice", d.ID)
		assert.ErrorIs(t, err, artifact.ErrUnprocessable)
	})
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

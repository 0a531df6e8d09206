package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	archetypes "github.com/idem-lexis/lexis-api/internal/archetypes/domain"
	"github.com/idem-lexis/lexis-api/internal/artifact"
	"github.com/idem-lexis/lexis-api/internal/deployments/domain"
	"github.com/idem-lexis/lexis-api/internal/deployments/pricing"
	"github.com/idem-lexis/lexis-api/internal/deployments/terraform"
	"github.com/idem-lexis/lexis-api/internal/github"
	"github.com/idem-lexis/lexis-api/internal/llm"
	"github.com/idem-lexis/lexis-api/internal/logging"
	"github.com/idem-lexis/lexis-api/internal/prompts"
	"github.com/idem-lexis/lexis-api/internal/storage"
)

const (
	maxTokens          = 8192
	defaultEnvironment = "development"
	defaultAWSRegion   = "us-east-1"
)

var envKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Archetypes resolves the template a deployment is built from.
type Archetypes interface {
	Get(ctx context.Context, id string) (*archetypes.Archetype, error)
}

// Pricer returns the on-demand hourly USD price of an instance type.
type Pricer interface {
	HourlyUSD(ctx context.Context, instanceType, region string) (float64, error)
}

type DeploymentService struct {
	repo       storage.Repository[domain.Deployment]
	projects   artifact.Projects
	archetypes Archetypes
	llm        *llm.Client
	pusher     github.Pusher
	pricer     Pricer
	now        func() time.Time
}

// NewDeploymentService builds the service. client, pusher and pricer may be nil;
// the operations that need them then fail with ErrUnprocessable, except
// GenerateTerraform which falls back to the archetype's main.tf.
func NewDeploymentService(
	repo storage.Repository[domain.Deployment],
	projects artifact.Projects,
	archetypes Archetypes,
	client *llm.Client,
	pusher github.Pusher,
	pricer Pricer,
) *DeploymentService {
	return &DeploymentService{
		repo:       repo,
		projects:   projects,
		archetypes: archetypes,
		llm:        client,
		pusher:     pusher,
		pricer:     pricer,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *DeploymentService) Create(ctx context.Context, userID string, in domain.CreateInput) (*domain.Deployment, error) {
	if _, err := s.projects.Get(ctx, userID, in.ProjectID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, artifact.Invalid("name required")
	}
	a, err := s.archetype(ctx, in.ArchetypeID)
	if err != nil {
		return nil, err
	}
	if err := validateEnv(in.EnvironmentVariables); err != nil {
		return nil, err
	}

	env := strings.TrimSpace(in.Environment)
	if env == "" {
		env = defaultEnvironment
	}
	d := &domain.Deployment{
		ProjectID:            in.ProjectID,
		UserID:               userID,
		Name:                 name,
		Environment:          env,
		Provider:             a.Provider,
		ArchetypeID:          a.ID,
		GitRepository:        in.GitRepository,
		EnvironmentVariables: in.EnvironmentVariables,
		TerraformVariables:   in.TerraformVariables,
		Status:               domain.StatusConfiguring,
	}
	if d.TerraformVariables == nil {
		d.TerraformVariables = map[string]any{}
	}
	return s.repo.Create(ctx, d)
}

// List returns the caller's deployments, narrowed to projectID when set.
func (s *DeploymentService) List(ctx context.Context, userID, projectID string) ([]domain.Deployment, error) {
	filter := storage.Filter{"userId": userID}
	if projectID != "" {
		if _, err := s.projects.Get(ctx, userID, projectID); err != nil {
			return nil, err
		}
		filter["projectId"] = projectID
	}
	return s.repo.FindAll(ctx, filter)
}

// Get returns a deployment owned by userID. A foreign deployment reads as not found.
func (s *DeploymentService) Get(ctx context.Context, userID, id string) (*domain.Deployment, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, artifact.NotFound("deployment")
		}
		return nil, err
	}
	if d.UserID != userID {
		return nil, artifact.NotFound("deployment")
	}
	return d, nil
}

// Update applies in. Changing the archetype or its variables sends a
// generated deployment back to configuring.
func (s *DeploymentService) Update(ctx context.Context, userID, id string, in domain.UpdateInput) (*domain.Deployment, error) {
	d, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, artifact.Invalid("name cannot be empty")
		}
		d.Name = name
	}
	if in.Environment != nil {
		d.Environment = strings.TrimSpace(*in.Environment)
	}
	if in.GitRepository != nil {
		d.GitRepository = in.GitRepository
	}
	if in.EnvironmentVariables != nil {
		vars := keepSecrets(d.EnvironmentVariables, *in.EnvironmentVariables)
		if err := validateEnv(vars); err != nil {
			return nil, err
		}
		d.EnvironmentVariables = vars
	}

	reconfigured := false
	if in.ArchetypeID != nil && *in.ArchetypeID != d.ArchetypeID {
		a, err := s.archetype(ctx, *in.ArchetypeID)
		if err != nil {
			return nil, err
		}
		d.ArchetypeID, d.Provider = a.ID, a.Provider
		reconfigured = true
	}
	if in.TerraformVariables != nil {
		d.TerraformVariables = in.TerraformVariables
		reconfigured = true
	}
	if reconfigured {
		d.Status = domain.StatusConfiguring
		d.GeneratedFiles = nil
		d.CostEstimate = nil
	}
	return s.repo.Update(ctx, d.ID, d)
}

func (s *DeploymentService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

type terraformReply struct {
	MainTf    string `json:"mainTf"`
	OutputsTf string `json:"outputsTf"`
}

// GenerateTerraform validates the deployment's variables against its
// archetype and renders the Terraform sources. variables.tf and
// terraform.tfvars are rendered locally; main.tf and outputs.tf come from the
// model, or from the archetype when the model's files do not check out.
// Sensitive variables are left out of terraform.tfvars.
func (s *DeploymentService) GenerateTerraform(ctx context.Context, userID, id string) (*domain.Deployment, error) {
	d, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	p, err := s.projects.Get(ctx, userID, d.ProjectID)
	if err != nil {
		return nil, err
	}
	a, err := s.archetype(ctx, d.ArchetypeID)
	if err != nil {
		return nil, err
	}
	values, err := a.ResolveVariables(d.TerraformVariables)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", artifact.ErrInvalid, err)
	}

	variablesTf, err := terraform.Variables(a.TerraformVariables)
	if err != nil {
		return nil, err
	}
	public := make(map[string]any, len(values))
	for name, v := range values {
		if decl, _ := a.Variable(name); !decl.Sensitive {
			public[name] = v
		}
	}
	tfvars, err := terraform.Tfvars(public)
	if err != nil {
		return nil, err
	}

	files := &domain.GeneratedFiles{
		VariablesTf:     string(variablesTf),
		TerraformTfvars: string(tfvars),
	}
	log := logging.New(ctx)
	reply, err := s.askTerraform(ctx, prompts.FromProject(p), d, a, files.VariablesTf)
	switch {
	case err != nil:
		if ctx.Err() != nil || a.DefaultMain == "" {
			return nil, err
		}
		log.Warn("deployments.generate_terraform", "model reply unusable, using archetype main.tf",
			zap.String("deployment_id", d.ID), zap.Error(err))
		files.MainTf = a.DefaultMain
	default:
		files.MainTf = reply.MainTf
		files.OutputsTf = reply.OutputsTf
	}

	d.GeneratedFiles = files
	d.Status = domain.StatusGenerated
	d.LastError = ""
	saved, err := s.repo.Update(ctx, d.ID, d)
	if err != nil {
		return nil, err
	}
	log.Info("deployments.generate_terraform", "terraform generated",
		zap.String("deployment_id", d.ID), zap.Int("files", len(files.Files())))
	return saved, nil
}

// askTerraform asks the model for main.tf and outputs.tf and checks both.
// A broken outputs.tf is dropped; a broken main.tf is an error.
func (s *DeploymentService) askTerraform(ctx context.Context, project prompts.ProjectContext, d *domain.Deployment, a *archetypes.Archetype, variablesTf string) (*terraformReply, error) {
	if s.llm == nil {
		return nil, fmt.Errorf("%w: no model configured", artifact.ErrUnprocessable)
	}
	prompt, err := prompts.Render(prompts.Terraform, prompts.Data{
		Project: project,
		Params: map[string]any{
			"provider":    string(a.Provider),
			"name":        d.Name,
			"environment": d.Environment,
			"archetype":   a.Name,
			"variablesTf": variablesTf,
			"defaultMain": a.DefaultMain,
		},
	})
	if err != nil {
		return nil, err
	}
	var reply terraformReply
	if err := s.llm.GenerateJSON(ctx, prompt.Request(maxTokens), &reply); err != nil {
		return nil, err
	}

	reply.MainTf = strings.TrimSpace(llm.StripFences(reply.MainTf))
	if reply.MainTf == "" {
		return nil, fmt.Errorf("%w: reply carries no main.tf", llm.ErrInvalidJSON)
	}
	reply.MainTf += "\n"
	if err := terraform.Check("main.tf", reply.MainTf, a.TerraformVariables); err != nil {
		return nil, err
	}
	reply.OutputsTf = strings.TrimSpace(llm.StripFences(reply.OutputsTf))
	if reply.OutputsTf != "" {
		reply.OutputsTf += "\n"
		if err := terraform.Check("outputs.tf", reply.OutputsTf, a.TerraformVariables); err != nil {
			logging.New(ctx).Warn("deployments.generate_terraform", "dropping outputs.tf", zap.Error(err))
			reply.OutputsTf = ""
		}
	}
	return &reply, nil
}

// Push commits the generated files to the deployment's repository. A GitHub
// failure marks the deployment failed and is returned.
func (s *DeploymentService) Push(ctx context.Context, userID, id string) (*domain.Deployment, error) {
	d, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if s.pusher == nil {
		return nil, fmt.Errorf("%w: %v", artifact.ErrUnprocessable, github.ErrNotConfigured)
	}
	if d.GeneratedFiles == nil || d.Status == domain.StatusConfiguring {
		return nil, fmt.Errorf("%w: terraform has not been generated", artifact.ErrUnprocessable)
	}
	if d.GitRepository == nil || strings.TrimSpace(d.GitRepository.Name) == "" {
		return nil, artifact.Invalid("gitRepository.name required")
	}

	repo, res, err := s.push(ctx, d)
	if errors.Is(err, github.ErrForeignOwner) {
		return nil, fmt.Errorf("%w: %w", artifact.ErrInvalid, err)
	}
	if err != nil {
		d.Status = domain.StatusFailed
		d.LastError = err.Error()
		if _, uerr := s.repo.Update(context.WithoutCancel(ctx), d.ID, d); uerr != nil {
			logging.New(ctx).Error("deployments.push", uerr, zap.String("deployment_id", d.ID))
		}
		return nil, fmt.Errorf("%w: %w", artifact.ErrUpstream, err)
	}

	now := s.now()
	d.GitRepository.Owner = repo.Owner.Login
	if d.GitRepository.Owner == "" {
		d.GitRepository.Owner = strings.SplitN(repo.FullName, "/", 2)[0]
	}
	d.GitRepository.Branch = res.Branch
	d.GitRepository.URL = repo.HTMLURL
	d.Status = domain.StatusPushed
	d.LastError = ""
	d.PushedAt = &now
	saved, err := s.repo.Update(ctx, d.ID, d)
	if err != nil {
		return nil, err
	}
	logging.New(ctx).Info("deployments.push", "terraform pushed",
		zap.String("deployment_id", d.ID), zap.String("repository", repo.FullName), zap.String("commit", res.CommitSHA))
	return saved, nil
}

func (s *DeploymentService) push(ctx context.Context, d *domain.Deployment) (*github.Repository, *github.PushResult, error) {
	owner, err := s.pusher.Owner(ctx)
	if err != nil {
		return nil, nil, err
	}
	if d.GitRepository.Owner != "" && !strings.EqualFold(d.GitRepository.Owner, owner) {
		return nil, nil, fmt.Errorf("%w: gitRepository.owner must be %s", github.ErrForeignOwner, owner)
	}
	repo, err := s.pusher.EnsureRepository(ctx, owner, d.GitRepository.Name, d.GitRepository.Private)
	if err != nil {
		return nil, nil, err
	}
	branch := d.GitRepository.Branch
	if branch == "" {
		branch = repo.DefaultBranch
	}
	message := fmt.Sprintf("Deploy %s (%s)", d.Name, d.Environment)
	res, err := s.pusher.PushFiles(ctx, owner, d.GitRepository.Name, branch, message, d.GeneratedFiles.Files())
	if err != nil {
		return nil, nil, err
	}
	return repo, res, nil
}

// CostEstimate prices the deployment's compute on AWS on-demand rates and
// stores the result. Other providers are ErrUnprocessable.
func (s *DeploymentService) CostEstimate(ctx context.Context, userID, id string) (*domain.CostEstimate, error) {
	d, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if d.Provider != archetypes.ProviderAWS {
		return nil, fmt.Errorf("%w: cost estimates are only available for aws", artifact.ErrUnprocessable)
	}
	if s.pricer == nil {
		return nil, fmt.Errorf("%w: pricing is not configured", artifact.ErrUnprocessable)
	}
	a, err := s.archetype(ctx, d.ArchetypeID)
	if err != nil {
		return nil, err
	}
	values, err := a.ResolveVariables(d.TerraformVariables)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", artifact.ErrInvalid, err)
	}

	instanceType, _ := values["instance_type"].(string)
	if instanceType == "" {
		return nil, fmt.Errorf("%w: deployment has no instance_type", artifact.ErrUnprocessable)
	}
	region, _ := values["region"].(string)
	if region == "" {
		region = defaultAWSRegion
	}
	count := 1
	if n, ok := values["instance_count"].(float64); ok && n >= 1 {
		count = int(n)
	}

	hourly, err := s.pricer.HourlyUSD(ctx, instanceType, region)
	if err != nil {
		if errors.Is(err, pricing.ErrNoPrice) {
			return nil, fmt.Errorf("%w: %v", artifact.ErrUnprocessable, err)
		}
		return nil, fmt.Errorf("%w: %w", artifact.ErrUpstream, err)
	}

	est := &domain.CostEstimate{
		Provider:      d.Provider,
		InstanceType:  instanceType,
		Region:        region,
		InstanceCount: count,
		HourlyUSD:     hourly * float64(count),
		MonthlyUSD:    hourly * float64(count) * pricing.HoursPerMonth,
		Currency:      "USD",
		EstimatedAt:   s.now(),
	}
	d.CostEstimate = est
	if _, err := s.repo.Update(ctx, d.ID, d); err != nil {
		return nil, err
	}
	return est, nil
}

func (s *DeploymentService) archetype(ctx context.Context, id string) (*archetypes.Archetype, error) {
	if strings.TrimSpace(id) == "" {
		return nil, artifact.Invalid("archetypeId required")
	}
	a, err := s.archetypes.Get(ctx, id)
	if err != nil {
		if errors.Is(err, archetypes.ErrNotFound) {
			return nil, artifact.Invalid("unknown archetype %q", id)
		}
		return nil, err
	}
	return a, nil
}

func validateEnv(vars []domain.EnvironmentVariable) error {
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		if !envKey.MatchString(v.Key) {
			return artifact.Invalid("invalid environment variable key %q", v.Key)
		}
		if seen[v.Key] {
			return artifact.Invalid("duplicate environment variable %q", v.Key)
		}
		seen[v.Key] = true
	}
	return nil
}

// keepSecrets restores stored secret values the client echoed back masked.
func keepSecrets(stored, incoming []domain.EnvironmentVariable) []domain.EnvironmentVariable {
	old := make(map[string]string, len(stored))
	for _, v := range stored {
		if v.Secret {
			old[v.Key] = v.Value
		}
	}
	out := make([]domain.EnvironmentVariable, len(incoming))
	for i, v := range incoming {
		if v.Secret && v.Value == domain.Mask {
			if prev, ok := old[v.Key]; ok {
				v.Value = prev
			}
		}
		out[i] = v
	}
	return out
}

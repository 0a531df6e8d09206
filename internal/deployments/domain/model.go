package domain

import (
	"time"

	archetypes "github.com/idem-lexis/lexis-api/internal/archetypes/domain"
	"github.com/idem-lexis/lexis-api/internal/storage"
)

// Mask replaces secret values in API responses.
const Mask = "********"

// Status tracks a deployment through configuring → generated → pushed.
type Status string

const (
	StatusConfiguring Status = "configuring"
	StatusGenerated   Status = "generated"
	StatusPushed      Status = "pushed"
	StatusFailed      Status = "failed"
)

// GitRepository is where generated files are pushed.
type GitRepository struct {
	URL     string `json:"url,omitempty"`
	Branch  string `json:"branch,omitempty"`
	Owner   string `json:"owner,omitempty"`
	Name    string `json:"name"`
	Private bool   `json:"private"`
}

type EnvironmentVariable struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Secret bool   `json:"secret"`
}

// GeneratedFiles holds the Terraform sources. Field names avoid dots so every
// backend can store them as document keys.
type GeneratedFiles struct {
	MainTf          string `json:"mainTf"`
	VariablesTf     string `json:"variablesTf"`
	TerraformTfvars string `json:"terraformTfvars"`
	OutputsTf       string `json:"outputsTf,omitempty"`
}

// Files maps file names to contents, leaving out empty files.
func (g GeneratedFiles) Files() map[string]string {
	out := make(map[string]string, 4)
	for name, content := range map[string]string{
		"main.tf":          g.MainTf,
		"variables.tf":     g.VariablesTf,
		"terraform.tfvars": g.TerraformTfvars,
		"outputs.tf":       g.OutputsTf,
	} {
		if content != "" {
			out[name] = content
		}
	}
	return out
}

// CostEstimate is an on-demand compute price for the deployment.
type CostEstimate struct {
	Provider      archetypes.Provider `json:"provider"`
	InstanceType  string              `json:"instanceType"`
	Region        string              `json:"region"`
	InstanceCount int                 `json:"instanceCount"`
	HourlyUSD     float64             `json:"hourlyUsd"`
	MonthlyUSD    float64             `json:"monthlyUsd"`
	Currency      string              `json:"currency"`
	EstimatedAt   time.Time           `json:"estimatedAt"`
}

type Deployment struct {
	storage.Base
	ProjectID            string                `json:"projectId"`
	UserID               string                `json:"userId"`
	Name                 string                `json:"name"`
	Environment          string                `json:"environment"`
	Provider             archetypes.Provider   `json:"provider"`
	ArchetypeID          string                `json:"archetypeId"`
	GitRepository        *GitRepository        `json:"gitRepository,omitempty"`
	EnvironmentVariables []EnvironmentVariable `json:"environmentVariables"`
	TerraformVariables   map[string]any        `json:"terraformVariables"`
	GeneratedFiles       *GeneratedFiles       `json:"generatedFiles,omitempty"`
	Status               Status                `json:"status"`
	LastError            string                `json:"lastError,omitempty"`
	CostEstimate         *CostEstimate         `json:"costEstimate,omitempty"`
	PushedAt             *time.Time            `json:"pushedAt,omitempty"`
}

// Masked returns a copy with secret environment values replaced by Mask.
func (d Deployment) Masked() Deployment {
	vars := make([]EnvironmentVariable, len(d.EnvironmentVariables))
	for i, v := range d.EnvironmentVariables {
		if v.Secret && v.Value != "" {
			v.Value = Mask
		}
		vars[i] = v
	}
	d.EnvironmentVariables = vars
	return d
}

// MaskAll applies Masked to every deployment.
func MaskAll(ds []Deployment) []Deployment {
	out := make([]Deployment, len(ds))
	for i := range ds {
		out[i] = ds[i].Masked()
	}
	return out
}

type CreateInput struct {
	ProjectID            string                `json:"projectId"`
	Name                 string                `json:"name"`
	Environment          string                `json:"environment"`
	ArchetypeID          string                `json:"archetypeId"`
	GitRepository        *GitRepository        `json:"gitRepository"`
	EnvironmentVariables []EnvironmentVariable `json:"environmentVariables"`
	TerraformVariables   map[string]any        `json:"terraformVariables"`
}

// UpdateInput is a partial update. A secret value sent back as Mask keeps
// the stored value.
type UpdateInput struct {
	Name                 *string                `json:"name"`
	Environment          *string                `json:"environment"`
	ArchetypeID          *string                `json:"archetypeId"`
	GitRepository        *GitRepository         `json:"gitRepository"`
	EnvironmentVariables *[]EnvironmentVariable `json:"environmentVariables"`
	TerraformVariables   map[string]any         `json:"terraformVariables"`
}

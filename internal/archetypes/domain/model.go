package domain

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/idem-lexis/lexis-api/internal/storage"
)

var (
	ErrNotFound = errors.New("archetype not found")
	ErrInvalid  = errors.New("invalid archetype")
	// ErrVariables is returned when deployment variables do not fit the archetype schema.
	ErrVariables = errors.New("invalid terraform variables")
)

// Provider is a cloud an archetype targets.
type Provider string

const (
	ProviderAWS   Provider = "aws"
	ProviderGCP   Provider = "gcp"
	ProviderAzure Provider = "azure"
)

func (p Provider) Valid() bool {
	return p == ProviderAWS || p == ProviderGCP || p == ProviderAzure
}

// VariableType is the schema type of a Terraform variable.
type VariableType string

const (
	TypeString VariableType = "string"
	TypeNumber VariableType = "number"
	TypeBool   VariableType = "bool"
	TypeList   VariableType = "list"
)

func (t VariableType) Valid() bool {
	return t == TypeString || t == TypeNumber || t == TypeBool || t == TypeList
}

// TerraformVariable describes one input of an archetype.
type TerraformVariable struct {
	Name        string       `json:"name" yaml:"name"`
	Type        VariableType `json:"type" yaml:"type"`
	Description string       `json:"description,omitempty" yaml:"description"`
	Required    bool         `json:"required" yaml:"required"`
	Default     any          `json:"default,omitempty" yaml:"default"`
	Sensitive   bool         `json:"sensitive,omitempty" yaml:"sensitive"`
}

// Archetype is a reusable infrastructure template.
type Archetype struct {
	storage.Base       `yaml:",inline"`
	Name               string              `json:"name" yaml:"name"`
	Description        string              `json:"description,omitempty" yaml:"description"`
	Provider           Provider            `json:"provider" yaml:"provider"`
	Category           string              `json:"category,omitempty" yaml:"category"`
	TerraformVariables []TerraformVariable `json:"terraformVariables" yaml:"terraformVariables"`
	DefaultMain        string              `json:"defaultMain,omitempty" yaml:"defaultMain"`
}

var identifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// Validate checks the archetype and its variable schema.
func (a *Archetype) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalid)
	}
	if !a.Provider.Valid() {
		return fmt.Errorf("%w: provider must be aws, gcp or azure", ErrInvalid)
	}
	seen := make(map[string]bool, len(a.TerraformVariables))
	for _, v := range a.TerraformVariables {
		if !identifier.MatchString(v.Name) {
			return fmt.Errorf("%w: variable name %q", ErrInvalid, v.Name)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: duplicate variable %q", ErrInvalid, v.Name)
		}
		seen[v.Name] = true
		if !v.Type.Valid() {
			return fmt.Errorf("%w: variable %q has unknown type %q", ErrInvalid, v.Name, v.Type)
		}
		if v.Default != nil {
			if _, err := coerce(v.Type, v.Default); err != nil {
				return fmt.Errorf("%w: default of %q: %v", ErrInvalid, v.Name, err)
			}
		}
	}
	return nil
}

// Variable returns the schema entry for name.
func (a *Archetype) Variable(name string) (TerraformVariable, bool) {
	for _, v := range a.TerraformVariables {
		if v.Name == name {
			return v, true
		}
	}
	return TerraformVariable{}, false
}

// ResolveVariables checks values against the schema and fills defaults.
// Every problem is reported, sorted, in a single ErrVariables error.
func (a *Archetype) ResolveVariables(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(a.TerraformVariables))
	var problems []string

	for name := range values {
		if _, ok := a.Variable(name); !ok {
			problems = append(problems, fmt.Sprintf("%s: not declared by archetype", name))
		}
	}
	for _, v := range a.TerraformVariables {
		raw, ok := values[v.Name]
		if !ok || raw == nil {
			switch {
			case v.Default != nil:
				raw = v.Default
			case v.Required:
				problems = append(problems, fmt.Sprintf("%s: required", v.Name))
				continue
			default:
				continue
			}
		}
		val, err := coerce(v.Type, raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", v.Name, err))
			continue
		}
		out[v.Name] = val
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, fmt.Errorf("%w: %s", ErrVariables, strings.Join(problems, "; "))
	}
	return out, nil
}

// coerce normalizes v to the Go type used for t: string, float64, bool or []any.
func coerce(t VariableType, v any) (any, error) {
	switch t {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeNumber:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeList:
		switch l := v.(type) {
		case []any:
			return l, nil
		case []string:
			out := make([]any, len(l))
			for i, s := range l {
				out[i] = s
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("expected %s, got %T", t, v)
}

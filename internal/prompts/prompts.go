// Package prompts renders the system and user prompts sent to the LLM for
// each generated artifact. Templates are embedded in the binary.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"github.com/idem-lexis/lexis-api/internal/llm"
	"github.com/idem-lexis/lexis-api/internal/projects/domain"
)

//go:embed templates/*.tmpl templates/partials/*.tmpl
var templateFS embed.FS

// Name identifies a prompt template.
type Name string

const (
	BrandingColors     Name = "branding_colors"
	BrandingTypography Name = "branding_typography"
	BrandingDefinition Name = "branding_definition"
	BrandingLogos      Name = "branding_logos"
	BusinessPlan       Name = "businessplan"
	Diagrams           Name = "diagrams"
	Landing            Name = "landing"
	Terraform          Name = "terraform"
)

// ProjectContext is the project description every prompt embeds.
type ProjectContext struct {
	Name            string
	Description     string
	Type            string
	Scope           string
	Targets         string
	Constraints     []string
	TeamSize        string
	BudgetIntervals string
}

// FromProject copies the describable fields of p.
func FromProject(p *domain.Project) ProjectContext {
	return ProjectContext{
		Name:            p.Name,
		Description:     p.Description,
		Type:            p.Type,
		Scope:           p.Scope,
		Targets:         p.Targets,
		Constraints:     p.Constraints,
		TeamSize:        p.TeamSize,
		BudgetIntervals: p.BudgetIntervals,
	}
}

// Data is the template input. Params carries artifact specific values.
type Data struct {
	Project ProjectContext
	Params  map[string]any
}

// Prompt is a rendered system/user pair.
type Prompt struct {
	System string
	User   string
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"json": func(v any) (string, error) {
		b, err := json.MarshalIndent(v, "", "  ")
		return string(b), err
	},
}

var registry = mustLoad()

func mustLoad() map[Name]*template.Template {
	files, err := fs.Glob(templateFS, "templates/*.tmpl")
	if err != nil {
		panic(err)
	}
	out := make(map[Name]*template.Template, len(files))
	for _, f := range files {
		name := Name(strings.TrimSuffix(path.Base(f), ".tmpl"))
		t := template.Must(template.New(string(name)).Funcs(funcs).ParseFS(templateFS, "templates/partials/*.tmpl", f))
		out[name] = t
	}
	return out
}

// Render executes the "system" and "user" blocks of the named template.
func Render(name Name, data Data) (Prompt, error) {
	t, ok := registry[name]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt %q", name)
	}
	if data.Params == nil {
		data.Params = map[string]any{}
	}

	var sys, usr bytes.Buffer
	if err := t.ExecuteTemplate(&sys, "system", data); err != nil {
		return Prompt{}, fmt.Errorf("render %s system prompt: %w", name, err)
	}
	if err := t.ExecuteTemplate(&usr, "user", data); err != nil {
		return Prompt{}, fmt.Errorf("render %s user prompt: %w", name, err)
	}
	return Prompt{
		System: strings.TrimSpace(sys.String()),
		User:   strings.TrimSpace(usr.String()),
	}, nil
}

// Names lists the loaded templates.
func Names() []Name {
	out := make([]Name, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	return out
}

// Request turns the prompt into an LLM request asking for JSON.
func (p Prompt) Request(maxTokens int) llm.Request {
	return llm.Request{
		System:    p.System,
		Prompt:    p.User,
		MaxTokens: maxTokens,
		JSON:      true,
	}
}

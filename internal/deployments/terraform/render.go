// Package terraform renders deployment input files and checks model written HCL.
package terraform

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/idem-lexis/lexis-api/internal/archetypes/domain"
)

// Variables renders variables.tf for the archetype schema, sorted by name.
// Defaults of sensitive variables are left out so the file can be committed.
func Variables(vars []domain.TerraformVariable) ([]byte, error) {
	sorted := append([]domain.TerraformVariable(nil), vars...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for i, v := range sorted {
		if i > 0 {
			body.AppendNewline()
		}
		block := body.AppendNewBlock("variable", []string{v.Name}).Body()
		if v.Description != "" {
			block.SetAttributeValue("description", cty.StringVal(v.Description))
		}
		block.SetAttributeRaw("type", typeTokens(v.Type))
		if v.Default != nil && !v.Sensitive {
			val, err := toCty(v.Default)
			if err != nil {
				return nil, fmt.Errorf("default of %s: %w", v.Name, err)
			}
			block.SetAttributeValue("default", val)
		}
		if v.Sensitive {
			block.SetAttributeValue("sensitive", cty.True)
		}
	}
	return hclwrite.Format(f.Bytes()), nil
}

// Tfvars renders terraform.tfvars with one assignment per value, sorted by name.
func Tfvars(values map[string]any) ([]byte, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for _, name := range names {
		val, err := toCty(values[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		body.SetAttributeValue(name, val)
	}
	return hclwrite.Format(f.Bytes()), nil
}

var varRef = regexp.MustCompile(`\bvar\.([a-zA-Z_][a-zA-Z0-9_-]*)`)

// Check parses src as HCL and reports variables it references but does not
// find in declared.
func Check(filename, src string, declared []domain.TerraformVariable) error {
	if _, diags := hclsyntax.ParseConfig([]byte(src), filename, hcl.Pos{Line: 1, Column: 1}); diags.HasErrors() {
		return fmt.Errorf("%s: %s", filename, diags.Error())
	}
	known := make(map[string]bool, len(declared))
	for _, v := range declared {
		known[v.Name] = true
	}
	for _, m := range varRef.FindAllStringSubmatch(src, -1) {
		if !known[m[1]] {
			return fmt.Errorf("%s: references undeclared variable %q", filename, m[1])
		}
	}
	return nil
}

func typeTokens(t domain.VariableType) hclwrite.Tokens {
	ident := func(s string) *hclwrite.Token {
		return &hclwrite.Token{Type: hclsyntax.TokenIdent, Bytes: []byte(s)}
	}
	if t == domain.TypeList {
		return hclwrite.Tokens{
			ident("list"),
			{Type: hclsyntax.TokenOParen, Bytes: []byte("(")},
			ident("any"),
			{Type: hclsyntax.TokenCParen, Bytes: []byte(")")},
		}
	}
	return hclwrite.Tokens{ident(string(t))}
}

func toCty(v any) (cty.Value, error) {
	switch x := v.(type) {
	case string:
		return cty.StringVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(x))
		for i, e := range x {
			ev, err := toCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = ev
		}
		return cty.TupleVal(elems), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported value type %T", v)
	}
}

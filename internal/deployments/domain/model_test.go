package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMasked(t *testing.T) {
	d := Deployment{EnvironmentVariables: []EnvironmentVariable{
		{Key: "API_KEY", Value: "s3cret", Secret: true},
		{Key: "LOG_LEVEL", Value: "info"},
		{Key: "EMPTY", Secret: true},
	}}

	m := d.Masked()
	assert.Equal(t, Mask, m.EnvironmentVariables[0].Value)
	assert.Equal(t, "info", m.EnvironmentVariables[1].Value)
	assert.Empty(t, m.EnvironmentVariables[2].Value)
	assert.Equal(t, "s3cret", d.EnvironmentVariables[0].Value, "original is untouched")
}

func TestGeneratedFiles(t *testing.T) {
	files := GeneratedFiles{MainTf: "m", VariablesTf: "v", TerraformTfvars: "t"}.Files()
	assert.Equal(t, map[string]string{
		"main.tf":          "m",
		"variables.tf":     "v",
		"terraform.tfvars": "t",
	}, files)
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveVariables(t *testing.T) {
	a := &Archetype{
		Name:     "web",
		Provider: ProviderAWS,
		TerraformVariables: []TerraformVariable{
			{Name: "instance_type", Type: TypeString, Required: true},
			{Name: "count", Type: TypeNumber, Default: 1},
			{Name: "public", Type: TypeBool},
			{Name: "cidrs", Type: TypeList, Default: []any{"0.0.0.0/0"}},
		},
	}
	require.NoError(t, a.Validate())

	got, err := a.ResolveVariables(map[string]any{"instance_type": "t3.small", "public": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"instance_type": "t3.small",
		"count":         float64(1),
		"public":        true,
		"cidrs":         []any{"0.0.0.0/0"},
	}, got)

	_, err = a.ResolveVariables(map[string]any{"count": "two", "extra": 1})
	require.ErrorIs(t, err, ErrVariables)
	assert.Equal(t, "invalid terraform variables: count: expected number, got string; extra: not declared by archetype; instance_type: required", err.Error())
}

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idem-lexis/lexis-api/internal/storage"
)

func TestParseModels(t *testing.T) {
	all, err := parseModels(nil)
	require.NoError(t, err)
	assert.Equal(t, storage.AllModels(), all)

	got, err := parseModels([]string{"projects", " brandings"})
	require.NoError(t, err)
	assert.Equal(t, []storage.TargetModelType{storage.ModelProjects, storage.ModelBrandings}, got)

	_, err = parseModels([]string{"widgets"})
	assert.ErrorContains(t, err, "unknown model")
}

func TestRootCmd(t *testing.T) {
	t.Run("requires both drivers", func(t *testing.T) {
		cmd := rootCmd()
		cmd.SetArgs([]string{"--from", "memory"})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		assert.Error(t, cmd.Execute())
	})

	t.Run("rejects identical drivers", func(t *testing.T) {
		cmd := rootCmd()
		out := &bytes.Buffer{}
		cmd.SetArgs([]string{"--from", "memory", "--to", "memory"})
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		assert.ErrorContains(t, cmd.Execute(), "must differ")
	})

	t.Run("reports destination errors", func(t *testing.T) {
		t.Setenv("DB_DSN", "")
		cmd := rootCmd()
		out := &bytes.Buffer{}
		cmd.SetArgs([]string{"--from", "memory", "--to", "postgres", "--dry-run"})
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		assert.ErrorContains(t, cmd.Execute(), "open destination")
	})

	t.Run("report", func(t *testing.T) {
		cmd := rootCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		report(cmd, []storage.CopyResult{{Model: storage.ModelProjects, Read: 3, Written: 2, Skipped: 1}}, true)
		assert.Contains(t, out.String(), "projects")
		assert.Contains(t, out.String(), "read=3 written=2 skipped=1")
		assert.Contains(t, out.String(), "dry run")
	})
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: "8080"},
		App:     AppConfig{Environment: "development", AuthMode: "dev"},
		Storage: StorageConfig{Driver: "memory"},
		LLM:     LLMConfig{Provider: "gemini", GeminiAPIKey: "key"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("accepts memory storage with dev auth", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("rejects missing port", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Port = ""
		assert.EqualError(t, cfg.Validate(), "PORT is required")
	})

	t.Run("rejects unknown storage driver", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storage.Driver = "cassandra"
		assert.Error(t, cfg.Validate())
	})

	t.Run("postgres needs a dsn", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storage.Driver = "postgres"
		assert.Error(t, cfg.Validate())
		cfg.Postgres.DSN = "postgres://localhost/lexis"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("provider key is required", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.Provider = "openrouter"
		assert.EqualError(t, cfg.Validate(), "OPENROUTER_API_KEY is required")
	})

	t.Run("dev auth is refused in production", func(t *testing.T) {
		cfg := validConfig()
		cfg.App.Environment = "production"
		assert.Error(t, cfg.Validate())
	})
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("LEXIS_TEST_INT", "42")
	t.Setenv("LEXIS_TEST_BAD_INT", "forty")
	t.Setenv("LEXIS_TEST_DURATION", "90s")
	t.Setenv("LEXIS_TEST_LIST", " a, b ,,c ")

	assert.Equal(t, 42, getEnvAsInt("LEXIS_TEST_INT", 1))
	assert.Equal(t, 1, getEnvAsInt("LEXIS_TEST_BAD_INT", 1))
	assert.Equal(t, 90*time.Second, getEnvAsDuration("LEXIS_TEST_DURATION", time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, getEnvAsList("LEXIS_TEST_LIST", nil))
	assert.Equal(t, "fallback", getEnv("LEXIS_TEST_MISSING", "fallback"))
}

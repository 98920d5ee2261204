package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/havenchat/haven/internal/config"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "haven.db")
	t.Setenv("GROQ_API_KEY", "test-key")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "https://api.groq.com/openai/v1", cfg.GroqBaseURL)
	require.Equal(t, "llama3-70b-8192", cfg.GroqModel)
	require.Equal(t, 0.7, cfg.Temperature)
	require.Equal(t, 400, cfg.MaxTokens)
	require.Contains(t, cfg.SystemPrompt, "NOT a licensed psychologist")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/haven")
	t.Setenv("GROQ_BASE_URL", "http://localhost:9999/v1/")
	t.Setenv("CHAT_TEMPERATURE", "0.2")
	t.Setenv("CHAT_MAX_TOKENS", "128")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9999/v1", cfg.GroqBaseURL, "trailing slash trimmed")
	require.Equal(t, 0.2, cfg.Temperature)
	require.Equal(t, 128, cfg.MaxTokens)
}

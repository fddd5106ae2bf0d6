package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iammorganparry/clive/apps/recall/internal/config"
	"github.com/iammorganparry/clive/apps/recall/internal/llm"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DBPath:               filepath.Join(t.TempDir(), "recall.db"),
		OpenAIEmbeddingModel: "text-embedding-ada-002",
		OpenAIChatModel:      "gpt-4.1-nano",
		OllamaBaseURL:        "http://127.0.0.1:1",
		LocalEmbeddingModel:  "all-minilm",
		LocalChatModel:       "qwen2.5:1.5b",
		EmbedTimeout:         10 * time.Second,
		GenerateTimeout:      60 * time.Second,
		LinkThreshold:        0.75,
		DefaultTopK:          3,
		EmbedCacheEnabled:    true,
		EmbedCacheItems:      100,
	}
}

func TestBuildLocalOnly(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := Build(testConfig(t), logger)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"ollama:all-minilm"}, a.Provider.Models())
	assert.Equal(t, "Bob", a.Persona.Identity.Name)
	assert.Len(t, a.caches, 1)

	// Complex prompts route to the unconfigured remote tier.
	reply := a.Router.SelectAndGenerate(context.Background(), "please analyze this")
	assert.Contains(t, reply, "[ERROR remote]")
	assert.Equal(t, llm.RouteRemote, a.Router.Route("please analyze this"))
}

func TestBuildWithRemoteTier(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenAIAPIKey = "sk-test"
	cfg.EmbedCacheEnabled = false

	a, err := Build(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"openai:text-embedding-ada-002", "ollama:all-minilm"}, a.Provider.Models())
	assert.Empty(t, a.caches)
}

func TestBuildBadPersona(t *testing.T) {
	cfg := testConfig(t)
	cfg.PersonaPath = t.TempDir()

	_, err := Build(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}

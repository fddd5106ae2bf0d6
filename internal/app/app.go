// Package app assembles the recall components from configuration. It is
// shared by the HTTP server and the CLI.
package app

import (
	"fmt"
	"log/slog"

	"github.com/iammorganparry/clive/apps/recall/internal/config"
	"github.com/iammorganparry/clive/apps/recall/internal/embedding"
	"github.com/iammorganparry/clive/apps/recall/internal/llm"
	"github.com/iammorganparry/clive/apps/recall/internal/memory"
	"github.com/iammorganparry/clive/apps/recall/internal/persona"
	"github.com/iammorganparry/clive/apps/recall/internal/store"
)

type App struct {
	DB       *store.DB
	Service  *memory.Service
	Router   *llm.Router
	Provider *embedding.Provider
	// Ollama is used for health checks.
	Ollama  *embedding.OllamaEmbedder
	Persona *persona.Persona

	caches []*embedding.CachedEmbedder
}

// Build opens the database and wires both model tiers. The remote tier is
// left out when no OpenAI key is configured.
func Build(cfg *config.Config, logger *slog.Logger) (*App, error) {
	p, err := persona.Load(cfg.PersonaPath)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	a := &App{DB: db, Persona: p}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	memoryStore := store.NewMemoryStore(db)
	linkStore := store.NewLinkStore(db)
	userStore := store.NewUserStore(db)
	usageStore := store.NewUsageStore(db)
	embCacheStore := store.NewEmbeddingCacheStore(db)

	// Embedding tiers
	ollama, err := embedding.NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.LocalEmbeddingModel)
	if err != nil {
		return nil, err
	}
	a.Ollama = ollama

	var remote, local embedding.Embedder = nil, ollama
	if cfg.RemoteEnabled() {
		remote = embedding.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIEmbeddingModel)
	}
	if cfg.EmbedCacheEnabled {
		if remote != nil {
			if remote, err = a.cached(remote, embCacheStore, cfg.EmbedCacheItems, logger); err != nil {
				return nil, err
			}
		}
		if local, err = a.cached(local, embCacheStore, cfg.EmbedCacheItems, logger); err != nil {
			return nil, err
		}
	}
	a.Provider = embedding.NewProvider(remote, local, cfg.EmbedTimeout, logger).
		WithSecondaryTimeout(cfg.LocalEmbedTimeout)

	// Chat tiers
	var remoteChat, localChat llm.Generator
	if cfg.RemoteEnabled() {
		m, err := llm.NewOpenAIChat(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIChatModel, cfg.GenerateTimeout)
		if err != nil {
			return nil, err
		}
		remoteChat = m
	}
	lm, err := llm.NewOllamaChat(cfg.OllamaBaseURL, cfg.LocalChatModel, cfg.GenerateTimeout)
	if err != nil {
		return nil, err
	}
	localChat = lm

	system := p.SystemPrompt()
	a.Router = llm.NewRouter(remoteChat, localChat, system, logger)

	responder := remoteChat
	if responder == nil {
		responder = localChat
	}
	a.Service = memory.NewService(memoryStore, linkStore, userStore, usageStore, a.Provider, responder, memory.Options{
		LinkThreshold: cfg.LinkThreshold,
		DefaultTopK:   cfg.DefaultTopK,
		SystemPrompt:  system,
	}, logger)

	logger.Info("recall components ready",
		"db", cfg.DBPath,
		"embedding_models", a.Provider.Models(),
		"responder", responder.Model(),
		"persona", p.Identity.Name,
	)
	ok = true
	return a, nil
}

func (a *App) cached(next embedding.Embedder, cache *store.EmbeddingCacheStore, items int64, logger *slog.Logger) (embedding.Embedder, error) {
	c, err := embedding.NewCachedEmbedder(next, cache, items, logger)
	if err != nil {
		return nil, fmt.Errorf("embedding cache for %s: %w", next.Model(), err)
	}
	a.caches = append(a.caches, c)
	return c, nil
}

// Close releases the caches and the database.
func (a *App) Close() error {
	for _, c := range a.caches {
		c.Close()
	}
	return a.DB.Close()
}

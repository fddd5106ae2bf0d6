package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/ristretto"

	"github.com/iammorganparry/clive/apps/recall/internal/models"
	"github.com/iammorganparry/clive/apps/recall/internal/search"
	"github.com/iammorganparry/clive/apps/recall/internal/store"
)

// CachedEmbedder wraps an Embedder with an in-process ristretto cache in
// front of the SQLite embedding cache. Entries are keyed by content hash and
// model, so each tier gets its own cache.
type CachedEmbedder struct {
	next   Embedder
	l1     *ristretto.Cache
	cache  *store.EmbeddingCacheStore
	logger *slog.Logger
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps next. maxItems bounds the in-process cache; cache
// may be nil to skip the persistent layer.
func NewCachedEmbedder(next Embedder, cache *store.EmbeddingCacheStore, maxItems int64, logger *slog.Logger) (*CachedEmbedder, error) {
	if maxItems <= 0 {
		maxItems = 1024
	}
	l1, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{next: next, l1: l1, cache: cache, logger: logger}, nil
}

func (e *CachedEmbedder) Model() string {
	return e.next.Model()
}

// Embed returns the embedding for text, using cache when available.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	hash := ContentHash(text)
	key := e.Model() + ":" + hash

	if v, ok := e.l1.Get(key); ok {
		return cloneVector(v.([]float32)), nil
	}

	if e.cache != nil {
		entry, err := e.cache.Get(ctx, hash, e.Model())
		if err != nil {
			e.logger.Warn("embedding cache lookup failed", "error", err)
		} else if entry != nil {
			vec, err := search.DecodeVector(entry.Embedding)
			if err == nil {
				e.l1.Set(key, vec, 1)
				return cloneVector(vec), nil
			}
			e.logger.Debug("discarding corrupt cached embedding", "hash", hash, "error", err)
		}
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.l1.Set(key, cloneVector(vec), 1)
	if e.cache != nil {
		entry := &models.EmbeddingCacheEntry{
			ContentHash: hash,
			Model:       e.Model(),
			Embedding:   search.EncodeVector(vec),
			Dimension:   len(vec),
		}
		if err := e.cache.Put(ctx, entry); err != nil {
			e.logger.Warn("embedding cache write failed", "error", err)
		}
	}

	return vec, nil
}

// Close releases the in-process cache.
func (e *CachedEmbedder) Close() {
	e.l1.Close()
}

// ContentHash computes a SHA-256 hash of text content.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h)
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

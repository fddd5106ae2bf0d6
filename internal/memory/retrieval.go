package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iammorganparry/clive/apps/recall/internal/embedding"
	"github.com/iammorganparry/clive/apps/recall/internal/models"
	"github.com/iammorganparry/clive/apps/recall/internal/search"
)

// VectorSource produces query vectors tagged with the model that made them.
type VectorSource interface {
	Embed(ctx context.Context, text string) (embedding.Result, error)
}

// MemoryReader loads candidate memories.
type MemoryReader interface {
	ListByOwnerUnit(ctx context.Context, owner, unit string) ([]*models.Memory, error)
	ListByOwner(ctx context.Context, owner string) ([]*models.Memory, error)
}

// LinkWriter persists links.
type LinkWriter interface {
	Insert(ctx context.Context, l *models.MemoryLink) error
}

// Retriever finds the memories most similar to a query within an
// (owner, unit) scope.
type Retriever struct {
	memories MemoryReader
	embedder VectorSource
	logger   *slog.Logger
}

func NewRetriever(memories MemoryReader, embedder VectorSource, logger *slog.Logger) *Retriever {
	return &Retriever{memories: memories, embedder: embedder, logger: logger}
}

// FindRelevant returns up to topK memories of owner in unit, most similar
// first. Memories without a usable embedding are left out. An empty result
// with a nil error means nothing relevant is stored; a failure to embed the
// query is returned as embedding.ErrEmbeddingUnavailable.
func (r *Retriever) FindRelevant(ctx context.Context, query, owner, unit string, topK int) ([]models.ScoredMemory, error) {
	results, _, err := r.findRelevant(ctx, query, owner, unit, topK)
	return results, err
}

// findRelevant is FindRelevant that also hands back the query vector. The
// vector is nil when no candidate needed the query embedded.
func (r *Retriever) findRelevant(ctx context.Context, query, owner, unit string, topK int) ([]models.ScoredMemory, *embedding.Result, error) {
	if topK <= 0 {
		return []models.ScoredMemory{}, nil, nil
	}

	candidates, err := r.memories.ListByOwnerUnit(ctx, owner, unit)
	if err != nil {
		return nil, nil, fmt.Errorf("load candidates: %w", err)
	}
	if len(candidates) == 0 {
		return []models.ScoredMemory{}, nil, nil
	}

	q, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("embed query: %w", err)
	}

	vectors, usable := decodeCandidates(candidates, q.Model, "", r.logger)
	matches := search.Rank(q.Vector, vectors, topK)

	results := make([]models.ScoredMemory, 0, len(matches))
	for _, m := range matches {
		results = append(results, models.ScoredMemory{Memory: usable[m.Index], Score: m.Score})
	}

	r.logger.Debug("retrieval complete",
		"owner", owner,
		"unit", unit,
		"candidates", len(candidates),
		"usable", len(usable),
		"returned", len(results),
	)
	return results, &q, nil
}

// decodeCandidates returns the vectors of memories embedded by model, in
// input order, together with the memories they belong to. Memories with no
// embedding, another model's embedding or an undecodable blob are skipped,
// as is the memory with ID skipID.
func decodeCandidates(mems []*models.Memory, model, skipID string, logger *slog.Logger) ([]search.Candidate, []*models.Memory) {
	vectors := make([]search.Candidate, 0, len(mems))
	usable := make([]*models.Memory, 0, len(mems))
	for _, m := range mems {
		if m.ID == skipID || !m.HasEmbedding() {
			continue
		}
		if m.EmbeddingModel != model {
			logger.Debug("skipping memory embedded by another model",
				"memory_id", m.ID, "model", m.EmbeddingModel, "want", model)
			continue
		}
		vec, err := search.DecodeVector(m.Embedding)
		if err != nil {
			logger.Debug("skipping undecodable embedding", "memory_id", m.ID, "error", err)
			continue
		}
		vectors = append(vectors, search.Candidate{ID: m.ID, Vector: vec})
		usable = append(usable, m)
	}
	return vectors, usable
}

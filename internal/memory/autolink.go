package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/iammorganparry/clive/apps/recall/internal/models"
	"github.com/iammorganparry/clive/apps/recall/internal/search"
)

// DefaultLinkThreshold is the similarity at which memories are auto-linked.
const DefaultLinkThreshold = 0.75

// AutoLinker connects a newly stored memory to every earlier memory of the
// same owner that is similar enough.
type AutoLinker struct {
	memories MemoryReader
	links    LinkWriter
	logger   *slog.Logger
}

func NewAutoLinker(memories MemoryReader, links LinkWriter, logger *slog.Logger) *AutoLinker {
	return &AutoLinker{memories: memories, links: links, logger: logger}
}

// LinkNewMemory compares mem, which must already be stored, against all other
// memories of its owner across units and persists a "semantic" link
// mem -> other for each pair with similarity >= threshold. It returns the
// links written. A failed insert does not stop the pass; such failures are
// joined into the returned error.
func (a *AutoLinker) LinkNewMemory(ctx context.Context, mem *models.Memory, threshold float64) ([]models.MemoryLink, error) {
	all, err := a.memories.ListByOwner(ctx, mem.Owner)
	if err != nil {
		return nil, fmt.Errorf("load owner memories: %w", err)
	}
	if len(all) < 2 {
		return nil, nil
	}
	if !mem.HasEmbedding() {
		return nil, nil
	}
	vec, err := search.DecodeVector(mem.Embedding)
	if err != nil {
		a.logger.Debug("new memory has undecodable embedding", "memory_id", mem.ID, "error", err)
		return nil, nil
	}

	others, usable := decodeCandidates(all, mem.EmbeddingModel, mem.ID, a.logger)

	var links []models.MemoryLink
	var errs []error
	for i, c := range others {
		sim, err := search.Cosine(vec, c.Vector)
		if err != nil {
			a.logger.Debug("skipping incomparable memory", "memory_id", c.ID, "error", err)
			continue
		}
		if sim < threshold {
			continue
		}

		link := models.MemoryLink{
			SourceID: mem.ID,
			TargetID: usable[i].ID,
			Kind:     models.LinkKindSemantic,
			Weight:   linkWeight(sim),
		}
		if err := a.links.Insert(ctx, &link); err != nil {
			errs = append(errs, fmt.Errorf("link %s -> %s: %w", link.SourceID, link.TargetID, err))
			continue
		}
		links = append(links, link)
	}

	if len(links) > 0 {
		a.logger.Info("auto-linked memory", "memory_id", mem.ID, "links", len(links))
	}
	return links, errors.Join(errs...)
}

// linkWeight maps a similarity to an integer weight in [0, 100].
func linkWeight(sim float64) int {
	w := int(math.Round(sim * 100))
	return max(0, min(100, w))
}

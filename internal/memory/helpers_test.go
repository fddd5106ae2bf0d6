package memory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iammorganparry/clive/apps/recall/internal/embedding"
	"github.com/iammorganparry/clive/apps/recall/internal/llm"
	"github.com/iammorganparry/clive/apps/recall/internal/store"
)

const testModel = "test:fixed"

// fixedVectors maps known texts to precomputed vectors.
type fixedVectors struct {
	model   string
	vectors map[string][]float32
	calls   int
}

func (f *fixedVectors) Embed(_ context.Context, text string) (embedding.Result, error) {
	f.calls++
	v, ok := f.vectors[text]
	if !ok {
		return embedding.Result{}, fmt.Errorf("%w: no vector for %q", embedding.ErrEmbeddingUnavailable, text)
	}
	return embedding.Result{Vector: v, Model: f.model, Tier: embedding.TierLocal}, nil
}

type stubGenerator struct {
	reply   string
	err     error
	systems []string
	prompts []string
}

func (g *stubGenerator) Model() string { return "stub:chat" }

func (g *stubGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	g.systems = append(g.systems, system)
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

var _ llm.Generator = (*stubGenerator)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// at returns a 2-d unit vector whose cosine with [1, 0] is sim.
func at(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

type testEnv struct {
	db       *store.DB
	memories *store.MemoryStore
	links    *store.LinkStore
	users    *store.UserStore
	usage    *store.UsageStore
	vectors  *fixedVectors
	svc      *Service
}

func newTestEnv(t *testing.T, gen llm.Generator) *testEnv {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:       db,
		memories: store.NewMemoryStore(db),
		links:    store.NewLinkStore(db),
		users:    store.NewUserStore(db),
		usage:    store.NewUsageStore(db),
		vectors:  &fixedVectors{model: testModel, vectors: map[string][]float32{}},
	}
	env.svc = NewService(env.memories, env.links, env.users, env.usage, env.vectors, gen, Options{SystemPrompt: "persona"}, discardLogger())
	return env
}

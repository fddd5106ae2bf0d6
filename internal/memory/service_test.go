package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iammorganparry/clive/apps/recall/internal/embedding"
	"github.com/iammorganparry/clive/apps/recall/internal/llm"
	"github.com/iammorganparry/clive/apps/recall/internal/models"
	"github.com/iammorganparry/clive/apps/recall/internal/store"
)

func intPtr(n int) *int { return &n }

func TestTeachValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.TeachRequest
		want string
	}{
		{"missing phone", models.TeachRequest{Unit: "U", Topic: "t", Content: "c"}, "phone"},
		{"missing unit", models.TeachRequest{Owner: "A", Topic: "t", Content: "c"}, "unit"},
		{"missing topic", models.TeachRequest{Owner: "A", Unit: "U", Content: "c"}, "topic"},
		{"blank content", models.TeachRequest{Owner: "A", Unit: "U", Topic: "t", Content: "   "}, "content"},
		{"only private content", models.TeachRequest{Owner: "A", Unit: "U", Topic: "t", Content: "<private>pin 1234</private>"}, "private"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Teach(ctx, &tt.req)
			require.ErrorIs(t, err, ErrInvalidRequest)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.Zero(t, env.vectors.calls)
}

func TestTeachStoresEmbedding(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.vectors.vectors["use the fire exit"] = []float32{0, 1}

	resp, err := env.svc.Teach(ctx, &models.TeachRequest{
		Owner: "A", Unit: "U", Topic: "safety", Content: "  use the fire exit ",
		Priority: intPtr(2), Tags: []string{"drill"}, Emotion: "calm",
	})
	require.NoError(t, err)
	assert.False(t, resp.EmbeddingSkipped)
	assert.NotEmpty(t, resp.Memory.ID)
	assert.Equal(t, testModel, resp.Memory.EmbeddingModel)

	got, err := env.svc.GetByID(ctx, resp.Memory.ID)
	require.NoError(t, err)
	assert.Equal(t, "use the fire exit", got.Content)
	assert.Equal(t, []string{"drill"}, got.Tags)
	require.NotNil(t, got.Priority)
	assert.Equal(t, 2, *got.Priority)
	assert.True(t, got.HasEmbedding())

	user, err := env.svc.GetUser(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "U", user.Unit)
}

func TestTeachRedactsPrivateSections(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.vectors.vectors["door code is"] = []float32{1, 0}

	resp, err := env.svc.Teach(ctx, &models.TeachRequest{
		Owner: "A", Unit: "U", Topic: "office", Content: "door code is <private>4711</private>",
	})
	require.NoError(t, err)
	assert.False(t, resp.EmbeddingSkipped)

	got, err := env.svc.GetByID(ctx, resp.Memory.ID)
	require.NoError(t, err)
	assert.Equal(t, "door code is", got.Content)
}

func TestTeachWithoutEmbedding(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	resp, err := env.svc.Teach(ctx, &models.TeachRequest{Owner: "A", Unit: "U", Topic: "t", Content: "unknown text"})
	require.NoError(t, err)
	assert.True(t, resp.EmbeddingSkipped)
	assert.Empty(t, resp.Links)

	got, err := env.svc.GetByID(ctx, resp.Memory.ID)
	require.NoError(t, err)
	assert.False(t, got.HasEmbedding())
	assert.Empty(t, got.EmbeddingModel)
}

type failingVectors struct{ err error }

func (f failingVectors) Embed(context.Context, string) (embedding.Result, error) {
	return embedding.Result{}, f.err
}

func TestTeachPropagatesUnexpectedEmbedErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	svc := NewService(env.memories, env.links, env.users, env.usage, failingVectors{err: context.Canceled}, nil, Options{}, discardLogger())

	_, err := svc.Teach(ctx, &models.TeachRequest{Owner: "A", Unit: "U", Topic: "t", Content: "c"})
	require.ErrorIs(t, err, context.Canceled)

	n, err := env.memories.CountByOwner(ctx, "A")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.svc.Search(ctx, &models.SearchRequest{Query: "q"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = env.svc.Search(ctx, &models.SearchRequest{Owner: "A", Query: " "})
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = env.svc.Search(ctx, &models.SearchRequest{Owner: "A", Unit: " ", Query: "q"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorContains(t, err, "unit is required")

	env.vectors.vectors["q"] = []float32{1, 0}
	resp, err := env.svc.Search(ctx, &models.SearchRequest{Owner: "A", Unit: "U", Query: "q"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, NoKnowledgeMessage, resp.Message)

	for _, sim := range []float64{0.1, 0.2, 0.3, 0.4, 0.5} {
		insertMemory(t, env, withVector("A", "U", "t", at(sim)))
	}
	resp, err = env.svc.Search(ctx, &models.SearchRequest{Owner: "A", Unit: "U", Query: "q"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Empty(t, resp.Message)
	assert.InDelta(t, 0.5, resp.Results[0].Score, 1e-6)

	resp, err = env.svc.Search(ctx, &models.SearchRequest{Owner: "A", Unit: "U", Query: "q", TopK: 10})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 5)
}

func TestList(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	insertMemory(t, env, withVector("A", "U1", "t", []float32{1, 0}))
	insertMemory(t, env, withVector("A", "U2", "t", []float32{1, 0}))

	all, err := env.svc.List(ctx, "A", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := env.svc.List(ctx, "A", "U2")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "U2", scoped[0].Unit)

	none, err := env.svc.List(ctx, "nobody", "")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = env.svc.List(ctx, "", "")
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestManualLink(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	a := insertMemory(t, env, withVector("A", "U", "a", []float32{1, 0}))
	b := insertMemory(t, env, withVector("A", "U", "b", []float32{0, 1}))

	t.Run("defaults", func(t *testing.T) {
		link, err := env.svc.Link(ctx, a.ID, &models.LinkRequest{TargetID: b.ID})
		require.NoError(t, err)
		assert.Equal(t, models.LinkKindReinforces, link.Kind)
		assert.Equal(t, 1, link.Weight)
		assert.NotZero(t, link.ID)
	})

	t.Run("explicit kind and weight", func(t *testing.T) {
		link, err := env.svc.Link(ctx, a.ID, &models.LinkRequest{TargetID: b.ID, Kind: "contradicts", Weight: intPtr(40)})
		require.NoError(t, err)
		assert.Equal(t, "contradicts", link.Kind)
		assert.Equal(t, 40, link.Weight)
	})

	t.Run("self link", func(t *testing.T) {
		_, err := env.svc.Link(ctx, a.ID, &models.LinkRequest{TargetID: a.ID})
		require.ErrorIs(t, err, ErrSelfLink)
	})

	t.Run("weight out of range", func(t *testing.T) {
		_, err := env.svc.Link(ctx, a.ID, &models.LinkRequest{TargetID: b.ID, Weight: intPtr(101)})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := env.svc.Link(ctx, a.ID, &models.LinkRequest{TargetID: "missing"})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("linked lists strongest first", func(t *testing.T) {
		linked, err := env.svc.Linked(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, linked, 2)
		assert.Equal(t, 40, linked[0].Link.Weight)
		assert.Equal(t, b.ID, linked[0].Memory.ID)
		assert.Equal(t, 1, linked[1].Link.Weight)
	})

	t.Run("linked unknown memory", func(t *testing.T) {
		_, err := env.svc.Linked(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRecap(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	resp, err := env.svc.Recap(ctx, "A", "U")
	require.NoError(t, err)
	assert.Equal(t, NothingTaughtMessage, resp.Summary)
	assert.Empty(t, resp.Topics)

	for _, topic := range []string{"safety", "billing", "safety"} {
		insertMemory(t, env, withVector("A", "U", topic, []float32{1, 0}))
	}
	insertMemory(t, env, withVector("A", "OTHER", "hr", []float32{1, 0}))

	resp, err = env.svc.Recap(ctx, "A", "U")
	require.NoError(t, err)
	assert.Equal(t, "You have taught me these topics:\n- safety (2)\n- billing (1)", resp.Summary)
	assert.Equal(t, []models.TopicCount{{Topic: "safety", Count: 2}, {Topic: "billing", Count: 1}}, resp.Topics)

	_, err = env.svc.Recap(ctx, "A", "")
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestInsights(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	mems := []*models.Memory{
		{Owner: "A", Unit: "U", Topic: "safety", Content: "1", Emotion: "worried"},
		{Owner: "A", Unit: "U", Topic: "safety", Content: "2", Emotion: "worried"},
		{Owner: "B", Unit: "U", Topic: "billing", Content: "3"},
		{Owner: "C", Unit: "X", Topic: "hr", Content: "4", Emotion: "calm"},
		{Owner: "C", Unit: "U", Topic: "old", Content: "5", CreatedAt: 1000},
	}
	for _, m := range mems {
		insertMemory(t, env, m)
	}

	resp, err := env.svc.Insights(ctx, "U", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.TotalMemories)
	assert.Equal(t, []models.ValueCount{{Value: "safety", Count: 2}, {Value: "billing", Count: 1}}, resp.TopTopics)
	assert.Equal(t, []models.ValueCount{{Value: "worried", Count: 2}}, resp.TopEmotions)
	assert.Equal(t, []models.ValueCount{{Value: "A", Count: 2}, {Value: "B", Count: 1}}, resp.TopOwners)
	assert.InDelta(t, 7*24*3600, resp.PeriodEnd-resp.PeriodStart, 3600)

	all, err := env.svc.Insights(ctx, "", 7)
	require.NoError(t, err)
	assert.Equal(t, 4, all.TotalMemories)
}

func TestCompareUnits(t *testing.T) {
	ctx := context.Background()

	t.Run("no generator", func(t *testing.T) {
		env := newTestEnv(t, nil)
		_, err := env.svc.CompareUnits(ctx, "X", "Y")
		require.ErrorIs(t, err, ErrNoGenerator)
	})

	t.Run("prompt carries both units", func(t *testing.T) {
		gen := &stubGenerator{reply: "X is stricter"}
		env := newTestEnv(t, gen)
		insertMemory(t, env, &models.Memory{Owner: "A", Unit: "X", Topic: "dress", Content: "suits only"})
		insertMemory(t, env, &models.Memory{Owner: "B", Unit: "Y", Topic: "dress", Content: "casual"})

		resp, err := env.svc.CompareUnits(ctx, "X", "Y")
		require.NoError(t, err)
		assert.Equal(t, "X is stricter", resp.Analysis)
		require.Len(t, gen.prompts, 1)
		assert.Contains(t, gen.prompts[0], "=== X ===\ndress: suits only")
		assert.Contains(t, gen.prompts[0], "=== Y ===\ndress: casual")
	})

	t.Run("generation failure", func(t *testing.T) {
		env := newTestEnv(t, &stubGenerator{err: errors.New("quota exceeded")})
		_, err := env.svc.CompareUnits(ctx, "X", "Y")
		var genErr *llm.GenerationError
		require.ErrorAs(t, err, &genErr)
		assert.Equal(t, "stub:chat", genErr.Model)
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t, nil)
		_, err := env.svc.CompareUnits(ctx, "X", "")
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	u, err := env.svc.RegisterUser(ctx, &models.RegisterUserRequest{Phone: "628", Name: "Sari", Unit: "U"})
	require.NoError(t, err)
	assert.Equal(t, "user", u.Role)

	_, err = env.svc.RegisterUser(ctx, &models.RegisterUserRequest{Phone: "628", Name: "Other"})
	require.ErrorIs(t, err, store.ErrUserExists)

	_, err = env.svc.RegisterUser(ctx, &models.RegisterUserRequest{Phone: "629"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	got, err := env.svc.GetUser(ctx, "628")
	require.NoError(t, err)
	assert.Equal(t, "Sari", got.Name)

	_, err = env.svc.GetUser(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	a := insertMemory(t, env, withVector("A", "U", "a", []float32{1, 0}))
	b := insertMemory(t, env, withVector("A", "U", "b", []float32{1, 0}))
	keep := insertMemory(t, env, withVector("B", "U", "c", []float32{1, 0}))
	_, err := env.svc.Link(ctx, a.ID, &models.LinkRequest{TargetID: b.ID})
	require.NoError(t, err)
	_, err = env.svc.Link(ctx, keep.ID, &models.LinkRequest{TargetID: a.ID})
	require.NoError(t, err)
	require.NoError(t, env.usage.Insert(ctx, &models.Interaction{Owner: "A", Unit: "U", Input: "hi", Reply: "hello", Model: "m"}))

	require.NoError(t, env.svc.DeleteUser(ctx, "A"))

	n, _, err := env.usage.Stats(ctx, "A")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = env.svc.GetByID(ctx, a.ID)
	require.ErrorIs(t, err, ErrNotFound)
	remaining, err := env.links.ListFrom(ctx, keep.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = env.svc.GetByID(ctx, keep.ID)
	require.NoError(t, err)

	err = env.svc.DeleteUser(ctx, "A")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTeacherSummary(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &stubGenerator{reply: "ok"})

	_, err := env.svc.TeacherSummary(ctx, " ")
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = env.svc.TeacherSummary(ctx, "A")
	require.ErrorIs(t, err, ErrNotFound)

	for _, m := range []*models.Memory{
		{Owner: "A", Unit: "U", Topic: "safety", Content: "a", Emotion: "calm"},
		{Owner: "A", Unit: "U", Topic: "safety", Content: "b", Emotion: "worried"},
		{Owner: "A", Unit: "V", Topic: "billing", Content: "c", Emotion: "calm"},
		{Owner: "A", Unit: "V", Topic: "billing", Content: "d"},
		{Owner: "A", Unit: "V", Topic: "billing", Content: "e"},
		{Owner: "B", Unit: "U", Topic: "safety", Content: "f", Emotion: "calm"},
	} {
		insertMemory(t, env, m)
	}
	require.NoError(t, env.usage.Insert(ctx, &models.Interaction{Owner: "A", Unit: "U", Input: "hi", Reply: "hello", Model: "m", CreatedAt: 100}))
	require.NoError(t, env.usage.Insert(ctx, &models.Interaction{Owner: "A", Unit: "V", Input: "yo", Reply: "hey", Model: "m", CreatedAt: 200}))

	sum, err := env.svc.TeacherSummary(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "A", sum.Phone)
	assert.Equal(t, 5, sum.TotalMemories)
	assert.Equal(t, []models.ValueCount{{Value: "billing", Count: 3}, {Value: "safety", Count: 2}}, sum.Topics)
	assert.Equal(t, []models.ValueCount{{Value: "calm", Count: 2}, {Value: "worried", Count: 1}}, sum.Emotions)
	assert.Equal(t, 2, sum.Interactions)
	assert.Equal(t, int64(200), sum.LastActive)

	insertMemory(t, env, &models.Memory{Owner: "C", Unit: "U", Topic: "t", Content: "x"})
	sum, err = env.svc.TeacherSummary(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, []models.ValueCount{}, sum.Emotions)
	assert.Zero(t, sum.Interactions)
	assert.Zero(t, sum.LastActive)
}
